package ldap

import (
	"bufio"
	"context"
	"crypto/tls"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/ansel1/merry"
	"github.com/gemalto/flume"
	"github.com/gemalto/ldap-go/ber"
	"github.com/google/uuid"
)

var connLog = flume.New("ldap_conn")

// mailboxSize is the buffer of each pending request's response channel.
// Searches can return many entries before the caller drains any.
const mailboxSize = 64

// mailbox holds the responses routed to one pending request.  gone is
// closed when the request is retired, so a reader blocked on a full
// mailbox can give up instead of stalling the whole connection.
type mailbox struct {
	ch   chan *Message
	gone chan struct{}
}

// Conn is an LDAP client connection.  A single background goroutine
// reads messages off the wire and routes each to the request awaiting
// its message id, so requests from multiple goroutines can be in flight
// at once.
type Conn struct {
	conn net.Conn
	br   *bufio.Reader
	log  flume.Logger

	// wmu serializes writes so concurrent requests cannot interleave
	// their encodings.
	wmu sync.Mutex

	mu       sync.Mutex
	nextID   int32
	pending  map[int32]*mailbox
	closed   chan struct{}
	closeErr error
}

// NewConn starts a client connection over an established transport and
// begins reading responses.  The caller hands ownership of nc to the
// connection.
func NewConn(nc net.Conn) *Conn {
	c := &Conn{
		conn:    nc,
		br:      bufio.NewReader(nc),
		log:     connLog.With("conn_id", uuid.New().String(), "remote_addr", nc.RemoteAddr()),
		pending: map[int32]*mailbox{},
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Dial connects to an LDAP server over plain TCP.
func Dial(network, address string) (*Conn, error) {
	return DialContext(context.Background(), network, address)
}

// DialContext connects to an LDAP server over plain TCP, honoring the
// context's deadline and cancellation for the dial itself.
func DialContext(ctx context.Context, network, address string) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, WithResultCode(merry.Prepend(err, "ldap: dial"), ResultServerDown)
	}
	return NewConn(nc), nil
}

// DialTLS connects to an LDAP server over TLS (ldaps).
func DialTLS(ctx context.Context, network, address string, config *tls.Config) (*Conn, error) {
	d := &tls.Dialer{Config: config}
	nc, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, WithResultCode(merry.Prepend(err, "ldap: dial"), ResultServerDown)
	}
	return NewConn(nc), nil
}

// readLoop reads messages until the transport fails or the connection
// closes.  Octets that cannot begin a message envelope are discarded one
// at a time until a sequence identifier comes around again.
func (c *Conn) readLoop() {
	for {
		b, err := c.br.Peek(1)
		if err != nil {
			c.shutdown(err)
			return
		}
		if b[0] != 0x30 {
			c.log.Info("discarding octet outside any message", "octet", b[0])
			_, _ = c.br.Discard(1)
			continue
		}
		v, _, err := ber.ReadValue(c.br)
		if err != nil {
			c.shutdown(err)
			return
		}
		msg, err := decodeMessage(v)
		if err != nil {
			// framing was consumed, so the stream is still in sync
			c.log.Info("dropping undecodable message", "error", err.Error())
			continue
		}
		c.deliver(msg)
	}
}

// deliver routes msg to the mailbox registered for its message id.
// Responses nobody is waiting for, including late responses to
// abandoned operations, are dropped.
func (c *Conn) deliver(msg *Message) {
	c.mu.Lock()
	mb, ok := c.pending[msg.ID]
	if ok {
		select {
		case mb.ch <- msg:
			c.mu.Unlock()
			return
		default:
		}
	}
	c.mu.Unlock()
	if !ok {
		c.log.Debug("dropping response with no pending request", "message_id", msg.ID, "op_tag", msg.Op.Tag())
		return
	}
	// mailbox is full: wait for the consumer to drain it, and give up
	// if the request is retired first so the read loop never wedges
	select {
	case mb.ch <- msg:
	case <-mb.gone:
		c.log.Debug("dropping response for retired request", "message_id", msg.ID, "op_tag", msg.Op.Tag())
	case <-c.closed:
	}
}

// shutdown fails the connection once.  Later calls are no-ops.
func (c *Conn) shutdown(cause error) {
	var closeErr error
	switch {
	case cause == nil || merry.Is(cause, ErrClosed):
		closeErr = merry.Here(ErrClosed)
	case merry.Is(cause, io.EOF):
		closeErr = WithResultCode(merry.Here(ErrClosed).Append("server closed the connection"), ResultServerDown)
	default:
		closeErr = WithResultCode(merry.Prepend(cause, "ldap: connection failed"), ResultServerDown)
	}

	c.mu.Lock()
	if c.closeErr == nil {
		c.closeErr = closeErr
		// waiters learn of the shutdown through the closed channel, so
		// the mailboxes are abandoned rather than closed
		close(c.closed)
		for id := range c.pending {
			delete(c.pending, id)
		}
		c.log.Debug("connection shut down", "error", closeErr.Error())
	}
	c.mu.Unlock()
	_ = c.conn.Close()
}

// Close tears down the connection without sending an unbind.  Pending
// requests fail with ErrClosed.
func (c *Conn) Close() error {
	c.shutdown(nil)
	return nil
}

// Unbind sends an unbind request and closes the connection.  The server
// never responds to an unbind.
func (c *Conn) Unbind(ctx context.Context) error {
	_, _, err := c.send(ctx, &UnbindRequest{}, nil, false)
	c.shutdown(nil)
	return err
}

func (c *Conn) err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr != nil {
		return c.closeErr
	}
	return merry.Here(ErrClosed)
}

// allocateID returns the next message id.  Ids wrap back to 1 after
// MaxInt32; zero is reserved for unsolicited notifications.
func (c *Conn) allocateID() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nextID == math.MaxInt32 {
		c.nextID = 0
	}
	c.nextID++
	return c.nextID
}

// send assigns a message id, registers a mailbox when a response is
// expected, and writes the encoded message.
func (c *Conn) send(ctx context.Context, op Operation, controls []Control, expectReply bool) (int32, *mailbox, error) {
	select {
	case <-c.closed:
		return 0, nil, c.err()
	default:
	}

	id := c.allocateID()
	var mb *mailbox
	if expectReply {
		mb = &mailbox{
			ch:   make(chan *Message, mailboxSize),
			gone: make(chan struct{}),
		}
		c.mu.Lock()
		c.pending[id] = mb
		c.mu.Unlock()
	}

	msg := &Message{ID: id, Op: op, Controls: controls}
	buf, err := msg.Encode()
	if err != nil {
		c.removeMailbox(id)
		return 0, nil, WithResultCode(merry.Prepend(err, "ldap: encode request"), ResultEncodingError)
	}

	c.wmu.Lock()
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(dl)
	}
	_, err = c.conn.Write(buf)
	if _, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(time.Time{})
	}
	c.wmu.Unlock()
	if err != nil {
		c.removeMailbox(id)
		return 0, nil, WithResultCode(merry.Prepend(err, "ldap: write request"), ResultServerDown)
	}
	c.log.Debug("sent request", "message_id", id, "op_tag", op.Tag())
	return id, mb, nil
}

// removeMailbox retires a pending request.  Closing gone releases a
// delivery blocked on the full mailbox; the closed channel covers the
// entries shutdown sweeps away without retiring them individually.
func (c *Conn) removeMailbox(id int32) {
	c.mu.Lock()
	if mb, ok := c.pending[id]; ok {
		delete(c.pending, id)
		close(mb.gone)
	}
	c.mu.Unlock()
}

// Await returns the next response message for a pending request.  The
// request stays pending; use Abandon or one of the operation helpers to
// retire it.
func (c *Conn) Await(ctx context.Context, id int32) (*Message, error) {
	return c.await(ctx, id, false)
}

func (c *Conn) await(ctx context.Context, id int32, remove bool) (*Message, error) {
	c.mu.Lock()
	mb, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		return nil, merry.Here(ErrNoSuchRequest).Appendf("message id %d", id)
	}

	finish := func(msg *Message) (*Message, error) {
		if remove {
			c.removeMailbox(id)
		}
		return msg, nil
	}

	select {
	case msg := <-mb.ch:
		return finish(msg)
	case <-mb.gone:
		// another goroutine retired the request, e.g. via Abandon
		return nil, merry.Here(ErrNoSuchRequest).Appendf("message id %d", id)
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, WithResultCode(merry.Wrap(ctx.Err()), ResultTimeout)
		}
		return nil, WithResultCode(merry.Wrap(ctx.Err()), ResultUserCanceled)
	case <-c.closed:
		// a response may have been buffered before the shutdown
		select {
		case msg := <-mb.ch:
			return finish(msg)
		default:
			return nil, c.err()
		}
	}
}

// Abandon retires a pending request and asks the server to stop working
// on it.  Responses already in flight are dropped when they arrive.
func (c *Conn) Abandon(ctx context.Context, id int32) error {
	c.removeMailbox(id)
	_, _, err := c.send(ctx, &AbandonRequest{MessageID: id}, nil, false)
	return err
}

// Bind authenticates with a DN and password.  An empty DN and password
// is an anonymous bind.
func (c *Conn) Bind(ctx context.Context, dn, password string, controls ...Control) error {
	id, _, err := c.send(ctx, &BindRequest{DN: dn, Password: password}, controls, true)
	if err != nil {
		return err
	}
	msg, err := c.await(ctx, id, true)
	if err != nil {
		c.removeMailbox(id)
		return err
	}
	resp, ok := msg.Op.(*BindResponse)
	if !ok {
		return unexpectedResponse(msg.Op, TagBindResponse)
	}
	return resp.Err()
}

// Modify applies a sequence of attribute changes to one entry.  The
// server applies the whole sequence atomically.
func (c *Conn) Modify(ctx context.Context, dn string, changes []ModifyChange, controls ...Control) error {
	id, _, err := c.send(ctx, &ModifyRequest{DN: dn, Changes: changes}, controls, true)
	if err != nil {
		return err
	}
	msg, err := c.await(ctx, id, true)
	if err != nil {
		c.removeMailbox(id)
		return err
	}
	resp, ok := msg.Op.(*ModifyResponse)
	if !ok {
		return unexpectedResponse(msg.Op, TagModifyResponse)
	}
	return resp.Err()
}

// Extended invokes an extended operation and returns its response.
// Intermediate responses the server emits along the way are logged and
// skipped.  The returned response is non-nil even when the server
// answered with an error result, so callers can read its value.
func (c *Conn) Extended(ctx context.Context, req *ExtendedRequest, controls ...Control) (*ExtendedResponse, error) {
	id, _, err := c.send(ctx, req, controls, true)
	if err != nil {
		return nil, err
	}
	for {
		msg, err := c.await(ctx, id, false)
		if err != nil {
			c.removeMailbox(id)
			return nil, err
		}
		switch op := msg.Op.(type) {
		case *ExtendedResponse:
			c.removeMailbox(id)
			return op, op.Err()
		case *IntermediateResponse:
			c.log.Debug("skipping intermediate response", "message_id", id, "response_name", op.ResponseName)
		default:
			c.removeMailbox(id)
			return nil, unexpectedResponse(msg.Op, TagExtendedResponse)
		}
	}
}

// WhoAmI asks the server for the authorization identity of this
// connection.
// RFC 4532
func (c *Conn) WhoAmI(ctx context.Context) (string, error) {
	resp, err := c.Extended(ctx, &ExtendedRequest{OID: OIDWhoAmI})
	if err != nil {
		return "", err
	}
	return string(resp.ResponseValue), nil
}

// Search sends a search request and returns a stream of its results.
// The request stays pending until the stream sees the final done
// message or is abandoned.
func (c *Conn) Search(ctx context.Context, req *SearchRequest, controls ...Control) (*SearchStream, error) {
	id, _, err := c.send(ctx, req, controls, true)
	if err != nil {
		return nil, err
	}
	return &SearchStream{conn: c, id: id}, nil
}

// SearchStream yields the entries of one search in the order the server
// returned them.  It is not safe for concurrent use.
type SearchStream struct {
	conn   *Conn
	id     int32
	refs   []string
	result *Result
	done   bool
	err    error
}

// ID returns the search's message id, for use with Abandon.
func (s *SearchStream) ID() int32 {
	return s.id
}

// Next returns the next entry.  It returns nil, nil when the search has
// completed successfully, and nil with an error when the server
// reported a failure or the connection broke.  Continuation references
// are collected and do not end the stream.
func (s *SearchStream) Next(ctx context.Context) (*SearchResultEntry, error) {
	if s.done {
		return nil, s.err
	}
	for {
		msg, err := s.conn.await(ctx, s.id, false)
		if err != nil {
			s.finish(err, nil)
			return nil, err
		}
		switch op := msg.Op.(type) {
		case *SearchResultEntry:
			return op, nil
		case *SearchResultReference:
			s.refs = append(s.refs, op.URIs...)
		case *SearchResultDone:
			s.finish(op.Err(), &op.Result)
			return nil, s.err
		default:
			err := unexpectedResponse(msg.Op, TagSearchResultEntry)
			s.finish(err, nil)
			return nil, err
		}
	}
}

// Entries drains the stream and returns all remaining entries.
func (s *SearchStream) Entries(ctx context.Context) ([]*SearchResultEntry, error) {
	var entries []*SearchResultEntry
	for {
		e, err := s.Next(ctx)
		if err != nil {
			return entries, err
		}
		if e == nil {
			return entries, nil
		}
		entries = append(entries, e)
	}
}

// Result returns the final search result, or nil if the done message
// has not arrived yet.
func (s *SearchStream) Result() *Result {
	return s.result
}

// References returns the continuation reference URIs collected so far.
// References are reported, never chased.
func (s *SearchStream) References() []string {
	return s.refs
}

// Abandon stops the search.  Entries already received but not yet read
// are discarded.
func (s *SearchStream) Abandon(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.finish(merry.Here(ErrNoSuchRequest).Append("search abandoned"), nil)
	return s.conn.Abandon(ctx, s.id)
}

func (s *SearchStream) finish(err error, result *Result) {
	s.done = true
	s.err = err
	s.result = result
	s.conn.removeMailbox(s.id)
}

func unexpectedResponse(op Operation, want uint32) error {
	return WithResultCode(
		merry.Here(ErrMalformedMessage).Appendf("got operation tag %d, expected %d", op.Tag(), want),
		ResultDecodingError)
}
