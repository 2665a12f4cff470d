package ldap

import (
	"github.com/ansel1/merry"
	"github.com/gemalto/ldap-go/ber"
)

// ExtendedRequest field tags
const (
	tagExtendedRequestName  uint32 = 0
	tagExtendedRequestValue uint32 = 1
)

// ExtendedResponse field tags
const (
	tagExtendedResponseName  uint32 = 10
	tagExtendedResponseValue uint32 = 11
)

// IntermediateResponse field tags
const (
	tagIntermediateResponseName  uint32 = 0
	tagIntermediateResponseValue uint32 = 1
)

// OIDStartTLS is the StartTLS extended operation.
// RFC 4511 4.14
const OIDStartTLS = "1.3.6.1.4.1.1466.20037"

// OIDWhoAmI is the "Who am I?" extended operation.
// RFC 4532
const OIDWhoAmI = "1.3.6.1.4.1.4203.1.11.3"

// ExtendedRequest invokes an extended operation by OID.  Value is the
// operation-specific request value, or nil when the operation takes
// none.
type ExtendedRequest struct {
	OID   string
	Value []byte
}

func (r *ExtendedRequest) Tag() uint32 { return TagExtendedRequest }

func (r *ExtendedRequest) berValue() (ber.Value, error) {
	seq := ber.NewSequence(
		ber.NewTagged(ber.ClassContext, tagExtendedRequestName, ber.NewString(r.OID), false),
	)
	if r.Value != nil {
		seq.Add(ber.NewTagged(ber.ClassContext, tagExtendedRequestValue, ber.NewOctetString(r.Value), false))
	}
	return appTagged(TagExtendedRequest, seq), nil
}

// ExtendedResponse is the server's answer to an extended request.
type ExtendedResponse struct {
	Result
	ResponseName  string
	ResponseValue []byte
}

func (r *ExtendedResponse) Tag() uint32 { return TagExtendedResponse }

func (r *ExtendedResponse) berValue() (ber.Value, error) {
	items := resultItems(r.Result, nil)
	if r.ResponseName != "" {
		items = append(items, ber.NewTagged(ber.ClassContext, tagExtendedResponseName, ber.NewString(r.ResponseName), false))
	}
	if r.ResponseValue != nil {
		items = append(items, ber.NewTagged(ber.ClassContext, tagExtendedResponseValue, ber.NewOctetString(r.ResponseValue), false))
	}
	return appTagged(TagExtendedResponse, ber.NewSequence(items...)), nil
}

func decodeExtendedResponse(raw []byte) (*ExtendedResponse, error) {
	items, err := ber.DecodeAll(raw)
	if err != nil {
		return nil, merry.Prepend(err, "extended response")
	}
	result, n, err := decodeResult(items)
	if err != nil {
		return nil, merry.Prepend(err, "extended response")
	}
	resp := &ExtendedResponse{Result: result}
	for _, item := range items[n:] {
		t, ok := item.(*ber.Tagged)
		if !ok || t.Ident().Class != ber.ClassContext {
			continue
		}
		raw, _ := t.RawContent()
		switch t.Ident().Tag {
		case tagExtendedResponseName:
			resp.ResponseName = string(raw)
		case tagExtendedResponseValue:
			resp.ResponseValue = raw
		}
	}
	return resp, nil
}

// IntermediateResponse carries interim results of an extended or
// controls-governed operation.
// RFC 4511 4.13
type IntermediateResponse struct {
	ResponseName  string
	ResponseValue []byte
}

func (r *IntermediateResponse) Tag() uint32 { return TagIntermediateResponse }

func (r *IntermediateResponse) berValue() (ber.Value, error) {
	seq := ber.NewSequence()
	if r.ResponseName != "" {
		seq.Add(ber.NewTagged(ber.ClassContext, tagIntermediateResponseName, ber.NewString(r.ResponseName), false))
	}
	if r.ResponseValue != nil {
		seq.Add(ber.NewTagged(ber.ClassContext, tagIntermediateResponseValue, ber.NewOctetString(r.ResponseValue), false))
	}
	return appTagged(TagIntermediateResponse, seq), nil
}

func decodeIntermediateResponse(raw []byte) (*IntermediateResponse, error) {
	items, err := ber.DecodeAll(raw)
	if err != nil {
		return nil, merry.Prepend(err, "intermediate response")
	}
	resp := &IntermediateResponse{}
	for _, item := range items {
		t, ok := item.(*ber.Tagged)
		if !ok || t.Ident().Class != ber.ClassContext {
			continue
		}
		raw, _ := t.RawContent()
		switch t.Ident().Tag {
		case tagIntermediateResponseName:
			resp.ResponseName = string(raw)
		case tagIntermediateResponseValue:
			resp.ResponseValue = raw
		}
	}
	return resp, nil
}
