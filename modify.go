package ldap

import (
	"github.com/ansel1/merry"
	"github.com/gemalto/ldap-go/ber"
)

// ModifyOperation selects what a modify change does to an attribute.
// RFC 4511 4.6
type ModifyOperation int64

const (
	ModifyAdd     ModifyOperation = 0
	ModifyDelete  ModifyOperation = 1
	ModifyReplace ModifyOperation = 2
)

// ModifyChange is one change within a modify request.
type ModifyChange struct {
	Operation    ModifyOperation
	Modification Attribute
}

// ModifyRequest changes the attributes of one entry.  Changes are
// applied by the server in order, atomically.
type ModifyRequest struct {
	DN      string
	Changes []ModifyChange
}

func (r *ModifyRequest) Tag() uint32 { return TagModifyRequest }

func (r *ModifyRequest) berValue() (ber.Value, error) {
	changes := ber.NewSequenceOf()
	for _, ch := range r.Changes {
		changes.Add(ber.NewSequence(
			ber.NewEnumerated(int64(ch.Operation)),
			ch.Modification.berValue(),
		))
	}
	return appTagged(TagModifyRequest, ber.NewSequence(ber.NewString(r.DN), changes)), nil
}

// ModifyResponse is the server's answer to a modify.
type ModifyResponse struct {
	Result
}

func (r *ModifyResponse) Tag() uint32 { return TagModifyResponse }

func (r *ModifyResponse) berValue() (ber.Value, error) {
	return appTagged(TagModifyResponse, ber.NewSequence(resultItems(r.Result, nil)...)), nil
}

func decodeModifyResponse(raw []byte) (*ModifyResponse, error) {
	items, err := ber.DecodeAll(raw)
	if err != nil {
		return nil, merry.Prepend(err, "modify response")
	}
	result, _, err := decodeResult(items)
	if err != nil {
		return nil, merry.Prepend(err, "modify response")
	}
	return &ModifyResponse{Result: result}, nil
}
