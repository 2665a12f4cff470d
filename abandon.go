package ldap

import (
	"github.com/gemalto/ldap-go/ber"
)

// AbandonRequest asks the server to stop processing the operation with
// the given message id.  The server never replies to an abandon, and is
// not required to suppress responses already in flight; the dispatcher
// drops any that arrive after the caller stops awaiting them.
type AbandonRequest struct {
	MessageID int32
}

func (r *AbandonRequest) Tag() uint32 { return TagAbandonRequest }

func (r *AbandonRequest) berValue() (ber.Value, error) {
	// AbandonRequest ::= [APPLICATION 16] MessageID: a primitive
	// application tag over integer content
	return appTagged(TagAbandonRequest, ber.NewInteger(int64(r.MessageID))), nil
}
