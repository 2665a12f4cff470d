package ldap

import (
	"github.com/ansel1/merry"
	"github.com/gemalto/ldap-go/ber"
)

// protocolVersion is the LDAP protocol version sent in bind requests.
const protocolVersion = 3

// simple authentication is context tag 0 of the AuthenticationChoice
const tagAuthSimple uint32 = 0

// serverSaslCreds BindResponse field
const tagServerSASLCreds uint32 = 7

// BindRequest is a simple (DN plus password) bind.  SASL mechanism
// negotiation is not supported.
type BindRequest struct {
	DN       string
	Password string
}

func (r *BindRequest) Tag() uint32 { return TagBindRequest }

func (r *BindRequest) berValue() (ber.Value, error) {
	seq := ber.NewSequence(
		ber.NewInteger(protocolVersion),
		ber.NewString(r.DN),
		ber.NewTagged(ber.ClassContext, tagAuthSimple, ber.NewString(r.Password), false),
	)
	return appTagged(TagBindRequest, seq), nil
}

// BindResponse is the server's answer to a bind.
type BindResponse struct {
	Result
	ServerSASLCreds []byte
}

func (r *BindResponse) Tag() uint32 { return TagBindResponse }

func (r *BindResponse) berValue() (ber.Value, error) {
	items := resultItems(r.Result, nil)
	if r.ServerSASLCreds != nil {
		items = append(items, ber.NewTagged(ber.ClassContext, tagServerSASLCreds, ber.NewOctetString(r.ServerSASLCreds), false))
	}
	return appTagged(TagBindResponse, ber.NewSequence(items...)), nil
}

func decodeBindResponse(raw []byte) (*BindResponse, error) {
	items, err := ber.DecodeAll(raw)
	if err != nil {
		return nil, merry.Prepend(err, "bind response")
	}
	result, n, err := decodeResult(items)
	if err != nil {
		return nil, merry.Prepend(err, "bind response")
	}
	resp := &BindResponse{Result: result}
	for _, item := range items[n:] {
		if t, ok := item.(*ber.Tagged); ok && t.Ident().Class == ber.ClassContext && t.Ident().Tag == tagServerSASLCreds {
			creds, _ := t.RawContent()
			resp.ServerSASLCreds = creds
		}
	}
	return resp, nil
}

// UnbindRequest terminates the session.  The server sends no response;
// both sides simply close the connection.
type UnbindRequest struct{}

func (r *UnbindRequest) Tag() uint32 { return TagUnbindRequest }

func (r *UnbindRequest) berValue() (ber.Value, error) {
	return appTagged(TagUnbindRequest, ber.NewNull()), nil
}
