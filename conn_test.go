package ldap

import (
	"context"
	"fmt"
	"math"
	"net"
	"testing"
	"time"

	"github.com/gemalto/ldap-go/ber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConn wires a Conn to a scripted server over an in-memory pipe.
func testConn(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	clientEnd, serverEnd := net.Pipe()
	c := NewConn(clientEnd)
	t.Cleanup(func() {
		c.Close()
		serverEnd.Close()
	})
	return c, serverEnd
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// readRequest reads one message off the server end and returns its
// message id and operation tag.  Requests can't be decoded into
// operations on the client side, so the envelope is picked apart by
// hand.
func readRequest(t *testing.T, server net.Conn) (int32, uint32) {
	t.Helper()
	v, _, err := ber.ReadValue(server)
	require.NoError(t, err)
	seq, ok := v.(*ber.Sequence)
	require.True(t, ok)
	items := seq.Items()
	require.GreaterOrEqual(t, len(items), 2)
	id, ok := items[0].(*ber.Integer)
	require.True(t, ok)
	op, ok := items[1].(*ber.Tagged)
	require.True(t, ok)
	return int32(id.Val), op.Ident().Tag
}

func writeResponse(t *testing.T, server net.Conn, id int32, op Operation) {
	t.Helper()
	b, err := (&Message{ID: id, Op: op}).Encode()
	require.NoError(t, err)
	_, err = server.Write(b)
	require.NoError(t, err)
}

func TestConnBind(t *testing.T) {
	c, server := testConn(t)
	go func() {
		id, tag := readRequest(t, server)
		assert.Equal(t, TagBindRequest, tag)
		writeResponse(t, server, id, &BindResponse{Result: Result{Code: ResultSuccess}})
	}()

	err := c.Bind(testCtx(t), "cn=admin,dc=example,dc=com", "secret")
	assert.NoError(t, err)
}

func TestConnBindFailure(t *testing.T) {
	c, server := testConn(t)
	go func() {
		id, _ := readRequest(t, server)
		writeResponse(t, server, id, &BindResponse{Result: Result{
			Code:              ResultInvalidCredentials,
			DiagnosticMessage: "wrong password",
		}})
	}()

	err := c.Bind(testCtx(t), "cn=admin,dc=example,dc=com", "nope")
	require.Error(t, err)
	assert.Equal(t, ResultInvalidCredentials, GetResultCode(err))
	assert.Contains(t, err.Error(), "wrong password")
}

func TestConnSearchStream(t *testing.T) {
	c, server := testConn(t)
	go func() {
		id, tag := readRequest(t, server)
		assert.Equal(t, TagSearchRequest, tag)
		writeResponse(t, server, id, &SearchResultEntry{ObjectName: "cn=a,dc=example,dc=com"})
		writeResponse(t, server, id, &SearchResultReference{URIs: []string{"ldap://b.example.com/"}})
		writeResponse(t, server, id, &SearchResultEntry{ObjectName: "cn=b,dc=example,dc=com"})
		writeResponse(t, server, id, &SearchResultDone{Result: Result{Code: ResultSuccess}})
	}()

	ctx := testCtx(t)
	stream, err := c.Search(ctx, &SearchRequest{
		BaseDN: "dc=example,dc=com",
		Scope:  ScopeWholeSubtree,
		Filter: FilterPresent{Attribute: "objectClass"},
	})
	require.NoError(t, err)

	e, err := stream.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "cn=a,dc=example,dc=com", e.ObjectName)

	// the reference between the entries is collected, not returned
	e, err = stream.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "cn=b,dc=example,dc=com", e.ObjectName)

	e, err = stream.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, e)

	// the stream stays exhausted
	e, err = stream.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, e)

	require.NotNil(t, stream.Result())
	assert.Equal(t, ResultSuccess, stream.Result().Code)
	assert.Equal(t, []string{"ldap://b.example.com/"}, stream.References())
}

func TestConnSearchEntries(t *testing.T) {
	c, server := testConn(t)
	go func() {
		id, _ := readRequest(t, server)
		writeResponse(t, server, id, &SearchResultEntry{ObjectName: "cn=a,dc=example,dc=com"})
		writeResponse(t, server, id, &SearchResultEntry{ObjectName: "cn=b,dc=example,dc=com"})
		writeResponse(t, server, id, &SearchResultDone{Result: Result{Code: ResultSuccess}})
	}()

	ctx := testCtx(t)
	stream, err := c.Search(ctx, &SearchRequest{Filter: FilterPresent{Attribute: "objectClass"}})
	require.NoError(t, err)

	entries, err := stream.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "cn=a,dc=example,dc=com", entries[0].ObjectName)
	assert.Equal(t, "cn=b,dc=example,dc=com", entries[1].ObjectName)
}

func TestConnSearchFailure(t *testing.T) {
	c, server := testConn(t)
	go func() {
		id, _ := readRequest(t, server)
		writeResponse(t, server, id, &SearchResultDone{Result: Result{
			Code:      ResultNoSuchObject,
			MatchedDN: "dc=com",
		}})
	}()

	ctx := testCtx(t)
	stream, err := c.Search(ctx, &SearchRequest{
		BaseDN: "dc=missing,dc=com",
		Filter: FilterPresent{Attribute: "objectClass"},
	})
	require.NoError(t, err)

	e, err := stream.Next(ctx)
	assert.Nil(t, e)
	require.Error(t, err)
	assert.Equal(t, ResultNoSuchObject, GetResultCode(err))
}

func TestConnModify(t *testing.T) {
	c, server := testConn(t)
	go func() {
		id, tag := readRequest(t, server)
		assert.Equal(t, TagModifyRequest, tag)
		writeResponse(t, server, id, &ModifyResponse{Result: Result{Code: ResultSuccess}})
	}()

	err := c.Modify(testCtx(t), "cn=jdoe,dc=example,dc=com", []ModifyChange{
		{Operation: ModifyReplace, Modification: Attribute{Type: "mail", Values: []string{"new@example.com"}}},
	})
	assert.NoError(t, err)
}

func TestConnExtended(t *testing.T) {
	c, server := testConn(t)
	go func() {
		id, tag := readRequest(t, server)
		assert.Equal(t, TagExtendedRequest, tag)
		// an intermediate response first, which the client should skip
		writeResponse(t, server, id, &IntermediateResponse{ResponseName: "1.2.3.4"})
		writeResponse(t, server, id, &ExtendedResponse{
			Result:        Result{Code: ResultSuccess},
			ResponseValue: []byte("dn:cn=jdoe,dc=example,dc=com"),
		})
	}()

	who, err := c.WhoAmI(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "dn:cn=jdoe,dc=example,dc=com", who)
}

func TestConnResync(t *testing.T) {
	c, server := testConn(t)
	go func() {
		id, _ := readRequest(t, server)
		// noise ahead of the response, which the reader must skip
		_, err := server.Write([]byte{0xFF, 0x00})
		require.NoError(t, err)
		writeResponse(t, server, id, &BindResponse{Result: Result{Code: ResultSuccess}})
	}()

	err := c.Bind(testCtx(t), "", "")
	assert.NoError(t, err)
}

func TestConnDropsUnknownMessageID(t *testing.T) {
	c, server := testConn(t)
	go func() {
		id, _ := readRequest(t, server)
		// a response for an id nobody asked about
		writeResponse(t, server, 999, &BindResponse{Result: Result{Code: ResultSuccess}})
		writeResponse(t, server, id, &BindResponse{Result: Result{Code: ResultSuccess}})
	}()

	err := c.Bind(testCtx(t), "", "")
	assert.NoError(t, err)
}

func TestConnServerDisconnect(t *testing.T) {
	c, server := testConn(t)
	go func() {
		readRequest(t, server)
		server.Close()
	}()

	err := c.Bind(testCtx(t), "", "")
	require.Error(t, err)
	assert.True(t, Is(err, ErrClosed), Details(err))
	assert.Equal(t, ResultServerDown, GetResultCode(err))

	// later requests fail immediately
	err = c.Bind(testCtx(t), "", "")
	require.Error(t, err)
	assert.True(t, Is(err, ErrClosed))
}

func TestConnClose(t *testing.T) {
	c, _ := testConn(t)
	require.NoError(t, c.Close())

	err := c.Bind(testCtx(t), "", "")
	require.Error(t, err)
	assert.True(t, Is(err, ErrClosed))
}

func TestConnAwaitContextDeadline(t *testing.T) {
	c, server := testConn(t)
	go func() {
		// swallow the request and never answer
		readRequest(t, server)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.Bind(ctx, "", "")
	require.Error(t, err)
	assert.Equal(t, ResultTimeout, GetResultCode(err))
}

func TestConnAbandon(t *testing.T) {
	c, server := testConn(t)
	done := make(chan struct{})
	go func() {
		defer close(done)
		id, _ := readRequest(t, server)
		writeResponse(t, server, id, &SearchResultEntry{ObjectName: "cn=a,dc=example,dc=com"})

		abandonID, tag := readRequest(t, server)
		assert.Equal(t, TagAbandonRequest, tag)
		// the abandon travels under its own message id
		assert.NotEqual(t, id, abandonID)
	}()

	ctx := testCtx(t)
	stream, err := c.Search(ctx, &SearchRequest{Filter: FilterPresent{Attribute: "objectClass"}})
	require.NoError(t, err)

	e, err := stream.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, e)

	require.NoError(t, stream.Abandon(ctx))
	<-done

	// the stream is dead after an abandon
	e, err = stream.Next(ctx)
	assert.Nil(t, e)
	assert.Error(t, err)
}

func TestConnAbandonWithBackloggedSearch(t *testing.T) {
	// a search nobody drains overfills its mailbox and blocks the
	// reader; abandoning the search must release the reader so the
	// connection stays usable
	c, server := testConn(t)
	go func() {
		id, _ := readRequest(t, server)
		for i := 0; i < mailboxSize+2; i++ {
			writeResponse(t, server, id, &SearchResultEntry{
				ObjectName: fmt.Sprintf("cn=e%d,dc=example,dc=com", i),
			})
		}

		_, tag := readRequest(t, server)
		assert.Equal(t, TagAbandonRequest, tag)

		bindID, tag := readRequest(t, server)
		assert.Equal(t, TagBindRequest, tag)
		writeResponse(t, server, bindID, &BindResponse{Result: Result{Code: ResultSuccess}})
	}()

	ctx := testCtx(t)
	stream, err := c.Search(ctx, &SearchRequest{Filter: FilterPresent{Attribute: "objectClass"}})
	require.NoError(t, err)

	// let the server overfill the mailbox and block the reader
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, stream.Abandon(ctx))

	// the reader must have recovered for this to complete
	assert.NoError(t, c.Bind(ctx, "", ""))
}

func TestConnServerDisconnectMidSearch(t *testing.T) {
	c, server := testConn(t)
	go func() {
		id, _ := readRequest(t, server)
		writeResponse(t, server, id, &SearchResultEntry{ObjectName: "cn=a,dc=example,dc=com"})
		server.Close()
	}()

	ctx := testCtx(t)
	stream, err := c.Search(ctx, &SearchRequest{
		BaseDN: "dc=example,dc=com",
		Filter: FilterPresent{Attribute: "objectClass"},
	})
	require.NoError(t, err)

	e, err := stream.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, e)

	// losing the connection mid-search is an error, not a clean end of
	// stream
	e, err = stream.Next(ctx)
	assert.Nil(t, e)
	require.Error(t, err)
	assert.True(t, Is(err, ErrClosed), Details(err))
	assert.Equal(t, ResultServerDown, GetResultCode(err))

	// and it stays an error on later calls
	e, err = stream.Next(ctx)
	assert.Nil(t, e)
	assert.Error(t, err)
}

func TestConnMessageIDSequence(t *testing.T) {
	c := &Conn{}
	assert.Equal(t, int32(1), c.allocateID())
	assert.Equal(t, int32(2), c.allocateID())
	assert.Equal(t, int32(3), c.allocateID())
}

func TestConnMessageIDWrap(t *testing.T) {
	// ids wrap back to 1, never 0: zero is reserved for unsolicited
	// notifications
	c := &Conn{nextID: math.MaxInt32 - 1}
	assert.Equal(t, int32(math.MaxInt32), c.allocateID())
	assert.Equal(t, int32(1), c.allocateID())
}

func TestConnConcurrentOperations(t *testing.T) {
	c, server := testConn(t)
	go func() {
		// answer the two requests in reverse order
		respond := func(id int32, tag uint32) {
			if tag == TagBindRequest {
				writeResponse(t, server, id, &BindResponse{Result: Result{Code: ResultSuccess}})
				return
			}
			writeResponse(t, server, id, &ModifyResponse{Result: Result{Code: ResultSuccess}})
		}
		id1, tag1 := readRequest(t, server)
		id2, tag2 := readRequest(t, server)
		respond(id2, tag2)
		respond(id1, tag1)
	}()

	ctx := testCtx(t)
	bindErr := make(chan error, 1)
	go func() {
		bindErr <- c.Bind(ctx, "", "")
	}()

	err := c.Modify(ctx, "cn=a,dc=example,dc=com", []ModifyChange{
		{Operation: ModifyAdd, Modification: Attribute{Type: "cn", Values: []string{"a"}}},
	})
	assert.NoError(t, err)
	assert.NoError(t, <-bindErr)
}
