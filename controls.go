package ldap

import (
	"fmt"

	"github.com/ansel1/merry"
	"github.com/gemalto/ldap-go/ber"
	"github.com/gemalto/ldap-go/internal/ldaputil"
)

// Control is an OID-identified extension attached to a request or
// response message.
// RFC 4511 4.1.11
type Control interface {
	// OID returns the control type.
	OID() string

	// Criticality reports whether the server must reject the operation
	// if it does not recognize the control.
	Criticality() bool

	// encodeValue returns the encoded controlValue octets, or nil when
	// the control carries no value.
	encodeValue() ([]byte, error)
}

// ControlDecoder materializes a typed control from its criticality and
// raw controlValue octets (nil when the value was absent).
type ControlDecoder func(critical bool, value []byte) (Control, error)

// controlRegistry maps control OIDs to decoders.  It is populated by
// RegisterControl at startup and read-only afterwards; OIDs without a
// decoder fall back to OpaqueControl.
var controlRegistry = map[string]ControlDecoder{}

// RegisterControl registers a decoder for a control OID.  Registration
// happens from init functions; RegisterControl panics on a malformed
// OID.
func RegisterControl(oid string, dec ControlDecoder) {
	if !ldaputil.ValidOID(oid) {
		panic(fmt.Sprintf("ldap: RegisterControl: invalid OID %q", oid))
	}
	controlRegistry[oid] = dec
}

// OpaqueControl is a control with no registered decoder, or one the
// caller builds by hand.  Value nil means the controlValue is absent.
type OpaqueControl struct {
	ControlType string
	Critical    bool
	Value       []byte
}

func (c *OpaqueControl) OID() string       { return c.ControlType }
func (c *OpaqueControl) Criticality() bool { return c.Critical }

func (c *OpaqueControl) encodeValue() ([]byte, error) {
	return c.Value, nil
}

// encodeControl builds the Control sequence: [OID, criticality if true,
// value if present].  Criticality FALSE is the default and is omitted.
func encodeControl(c Control) (ber.Value, error) {
	seq := ber.NewSequence(ber.NewString(c.OID()))
	if c.Criticality() {
		seq.Add(ber.NewBoolean(true))
	}
	value, err := c.encodeValue()
	if err != nil {
		return nil, err
	}
	if value != nil {
		seq.Add(ber.NewOctetString(value))
	}
	return seq, nil
}

func decodeControl(v ber.Value) (Control, error) {
	seq, ok := v.(*ber.Sequence)
	if !ok {
		return nil, merry.Here(ErrMalformedControl).Append("control is not a sequence")
	}
	items := seq.Items()
	if len(items) < 1 || len(items) > 3 {
		return nil, merry.Here(ErrMalformedControl).Appendf("control has %d elements", len(items))
	}
	oid, ok := items[0].(*ber.OctetString)
	if !ok {
		return nil, merry.Here(ErrMalformedControl).Append("control type is not an octet string")
	}

	critical := false
	var value []byte
	for _, item := range items[1:] {
		switch t := item.(type) {
		case *ber.Boolean:
			critical = t.Val
		case *ber.OctetString:
			value = t.Data
		default:
			return nil, merry.Here(ErrMalformedControl).Appendf("unexpected control element %v", item.Ident())
		}
	}

	if dec, ok := controlRegistry[oid.String()]; ok {
		return dec(critical, value)
	}
	return &OpaqueControl{ControlType: oid.String(), Critical: critical, Value: value}, nil
}

// OIDPagedResults is the simple paged results control.
// RFC 2696
const OIDPagedResults = "1.2.840.113556.1.4.319"

// OIDManageDsaIT makes the server treat referral objects as ordinary
// entries.
// RFC 3296
const OIDManageDsaIT = "2.16.840.1.113730.3.4.2"

// PagedResultsControl pages search results.  Set Cookie to the value
// returned on the previous page to continue, and send a zero PageSize
// with the last cookie to abandon paging.
type PagedResultsControl struct {
	PageSize int32
	Cookie   []byte
	Critical bool
}

func (c *PagedResultsControl) OID() string       { return OIDPagedResults }
func (c *PagedResultsControl) Criticality() bool { return c.Critical }

func (c *PagedResultsControl) encodeValue() ([]byte, error) {
	cookie := c.Cookie
	if cookie == nil {
		cookie = []byte{}
	}
	return ber.Encode(ber.NewSequence(
		ber.NewInteger(int64(c.PageSize)),
		ber.NewOctetString(cookie),
	)), nil
}

func decodePagedResultsControl(critical bool, value []byte) (Control, error) {
	v, _, err := ber.Decode(value)
	if err != nil {
		return nil, merry.Prepend(err, "paged results control")
	}
	seq, ok := v.(*ber.Sequence)
	if !ok || seq.Len() != 2 {
		return nil, merry.Here(ErrMalformedControl).Append("paged results value is not a two-element sequence")
	}
	size, ok := seq.Items()[0].(*ber.Integer)
	if !ok {
		return nil, merry.Here(ErrMalformedControl).Append("paged results size is not an integer")
	}
	cookie, ok := seq.Items()[1].(*ber.OctetString)
	if !ok {
		return nil, merry.Here(ErrMalformedControl).Append("paged results cookie is not an octet string")
	}
	return &PagedResultsControl{PageSize: int32(size.Val), Cookie: cookie.Data, Critical: critical}, nil
}

// ManageDsaITControl asks the server to treat referral objects as
// ordinary entries.  It carries no value.
type ManageDsaITControl struct {
	Critical bool
}

func (c *ManageDsaITControl) OID() string       { return OIDManageDsaIT }
func (c *ManageDsaITControl) Criticality() bool { return c.Critical }

func (c *ManageDsaITControl) encodeValue() ([]byte, error) {
	return nil, nil
}

func decodeManageDsaITControl(critical bool, _ []byte) (Control, error) {
	return &ManageDsaITControl{Critical: critical}, nil
}

func init() {
	RegisterControl(OIDPagedResults, decodePagedResultsControl)
	RegisterControl(OIDManageDsaIT, decodeManageDsaITControl)
}
