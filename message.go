package ldap

import (
	"math"

	"github.com/ansel1/merry"
	"github.com/gemalto/ldap-go/ber"
)

// Application tags for the protocolOp CHOICE.
// RFC 4511 appendix B
const (
	TagBindRequest           uint32 = 0
	TagBindResponse          uint32 = 1
	TagUnbindRequest         uint32 = 2
	TagSearchRequest         uint32 = 3
	TagSearchResultEntry     uint32 = 4
	TagSearchResultDone      uint32 = 5
	TagModifyRequest         uint32 = 6
	TagModifyResponse        uint32 = 7
	TagAbandonRequest        uint32 = 16
	TagSearchResultReference uint32 = 19
	TagExtendedRequest       uint32 = 23
	TagExtendedResponse      uint32 = 24
	TagIntermediateResponse  uint32 = 25
)

// Operation is one variant of the protocolOp CHOICE inside an LDAP
// message.
type Operation interface {
	// Tag returns the operation's application tag number.
	Tag() uint32

	// berValue returns the application-tagged encoding of the operation.
	// Keeping this unexported keeps the variant set closed.
	berValue() (ber.Value, error)
}

// Message is the LDAPMessage envelope: a message id, a protocol
// operation, and optional controls.
//
// Message ids are assigned by the connection that sends the message; a
// response's id equals the id of the request it answers.
type Message struct {
	ID       int32
	Op       Operation
	Controls []Control
}

// Encode returns the full wire encoding of the message.
func (m *Message) Encode() ([]byte, error) {
	opv, err := m.Op.berValue()
	if err != nil {
		return nil, err
	}
	seq := ber.NewSequence(ber.NewInteger(int64(m.ID)), opv)
	if len(m.Controls) > 0 {
		ctls := ber.NewSequenceOf()
		for _, c := range m.Controls {
			cv, err := encodeControl(c)
			if err != nil {
				return nil, err
			}
			ctls.Add(cv)
		}
		seq.Add(ber.NewTagged(ber.ClassContext, 0, ctls, false))
	}
	return ber.Encode(seq), nil
}

// decodeMessage materializes a Message from a decoded envelope value.
// The envelope must be a Sequence of [message id, application-tagged
// operation, optional Context[0] controls].
func decodeMessage(v ber.Value) (*Message, error) {
	seq, ok := v.(*ber.Sequence)
	if !ok {
		return nil, merry.Here(ErrMalformedMessage).Appendf("envelope is %v, not a sequence", v.Ident())
	}
	items := seq.Items()
	if len(items) < 2 || len(items) > 3 {
		return nil, merry.Here(ErrMalformedMessage).Appendf("envelope has %d elements", len(items))
	}

	id, ok := items[0].(*ber.Integer)
	if !ok {
		return nil, merry.Here(ErrMalformedMessage).Append("message id is not an integer")
	}
	if id.Val < 0 || id.Val > math.MaxInt32 {
		return nil, merry.Here(ErrMalformedMessage).Appendf("message id %d out of range", id.Val)
	}

	opTagged, ok := items[1].(*ber.Tagged)
	if !ok || opTagged.Ident().Class != ber.ClassApplication {
		return nil, merry.Here(ErrMalformedMessage).Append("protocol operation is not application-tagged")
	}
	op, err := decodeOperation(opTagged)
	if err != nil {
		return nil, err
	}

	msg := &Message{ID: int32(id.Val), Op: op}

	if len(items) == 3 {
		ctlTagged, ok := items[2].(*ber.Tagged)
		if !ok || ctlTagged.Ident().Class != ber.ClassContext || ctlTagged.Ident().Tag != 0 {
			return nil, merry.Here(ErrMalformedMessage).Append("third element is not a controls sequence")
		}
		raw, _ := ctlTagged.RawContent()
		ctlValues, err := ber.DecodeAll(raw)
		if err != nil {
			return nil, merry.Prepend(err, "controls")
		}
		for _, cv := range ctlValues {
			ctl, err := decodeControl(cv)
			if err != nil {
				return nil, err
			}
			msg.Controls = append(msg.Controls, ctl)
		}
	}
	return msg, nil
}

// decodeOperation dispatches on the application tag of the protocol
// operation.  Only response operations are decoded; this is a client.
func decodeOperation(t *ber.Tagged) (Operation, error) {
	raw, ok := t.RawContent()
	if !ok {
		return nil, merry.Here(ErrMalformedOperation).Append("operation content is not opaque")
	}
	switch t.Ident().Tag {
	case TagBindResponse:
		return decodeBindResponse(raw)
	case TagSearchResultEntry:
		return decodeSearchResultEntry(raw)
	case TagSearchResultDone:
		return decodeSearchResultDone(raw)
	case TagModifyResponse:
		return decodeModifyResponse(raw)
	case TagSearchResultReference:
		return decodeSearchResultReference(raw)
	case TagExtendedResponse:
		return decodeExtendedResponse(raw)
	case TagIntermediateResponse:
		return decodeIntermediateResponse(raw)
	}
	return nil, merry.Here(ErrUnknownOperationTag).Appendf("application tag %d", t.Ident().Tag)
}

// appTagged wraps an operation's natural encoding under its application
// tag, implicitly.
func appTagged(tag uint32, v ber.Value) ber.Value {
	return ber.NewTagged(ber.ClassApplication, tag, v, false)
}

// referral Referral ::= [3] SEQUENCE SIZE (1..MAX) OF uri URI
const tagReferral uint32 = 3

// resultItems appends the LDAPResult components of r to a sequence's
// children.
func resultItems(r Result, items []ber.Value) []ber.Value {
	items = append(items,
		ber.NewEnumerated(int64(r.Code)),
		ber.NewString(r.MatchedDN),
		ber.NewString(r.DiagnosticMessage),
	)
	if len(r.Referral) > 0 {
		refs := ber.NewSequenceOf()
		for _, url := range r.Referral {
			refs.Add(ber.NewString(url))
		}
		items = append(items, ber.NewTagged(ber.ClassContext, tagReferral, refs, false))
	}
	return items
}

// decodeResult reads the LDAPResult components from the front of a
// response operation's children, returning the result and the number of
// children consumed.
func decodeResult(items []ber.Value) (Result, int, error) {
	var r Result
	if len(items) < 3 {
		return r, 0, merry.Here(ErrMalformedOperation).Appendf("result has %d elements", len(items))
	}

	code, ok := items[0].(*ber.Enumerated)
	if !ok {
		return r, 0, merry.Here(ErrMalformedOperation).Append("result code is not an enumerated")
	}
	matched, ok := items[1].(*ber.OctetString)
	if !ok {
		return r, 0, merry.Here(ErrMalformedOperation).Append("matched DN is not an octet string")
	}
	diag, ok := items[2].(*ber.OctetString)
	if !ok {
		return r, 0, merry.Here(ErrMalformedOperation).Append("diagnostic message is not an octet string")
	}
	r.Code = ResultCode(code.Val)
	r.MatchedDN = matched.String()
	r.DiagnosticMessage = diag.String()
	n := 3

	if len(items) > 3 {
		if t, ok := items[3].(*ber.Tagged); ok && t.Ident().Class == ber.ClassContext && t.Ident().Tag == tagReferral {
			raw, _ := t.RawContent()
			urls, err := decodeStrings(raw)
			if err != nil {
				return r, n, merry.Prepend(err, "referral")
			}
			r.Referral = urls
			n = 4
		}
	}
	return r, n, nil
}

// decodeStrings decodes a concatenation of octet strings.
func decodeStrings(raw []byte) ([]string, error) {
	values, err := ber.DecodeAll(raw)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, v := range values {
		o, ok := v.(*ber.OctetString)
		if !ok {
			return nil, merry.Here(ErrMalformedOperation).Appendf("expected octet string, got %v", v.Ident())
		}
		out = append(out, o.String())
	}
	return out, nil
}
