package ldap

import (
	"github.com/ansel1/merry"
	"github.com/gemalto/ldap-go/ber"
	"github.com/gemalto/ldap-go/internal/ldaputil"
)

// Scope controls how deep a search descends from the base object.
// RFC 4511 4.5.1.2
type Scope int64

const (
	ScopeBaseObject   Scope = 0
	ScopeSingleLevel  Scope = 1
	ScopeWholeSubtree Scope = 2
)

// DerefAliases controls alias dereferencing during a search.
// RFC 4511 4.5.1.3
type DerefAliases int64

const (
	NeverDerefAliases   DerefAliases = 0
	DerefInSearching    DerefAliases = 1
	DerefFindingBaseObj DerefAliases = 2
	DerefAlways         DerefAliases = 3
)

// SearchRequest describes a search operation.  A nil Filter is an error;
// use FilterPresent{"objectClass"} for the conventional match-everything
// filter.
type SearchRequest struct {
	BaseDN       string
	Scope        Scope
	DerefAliases DerefAliases
	SizeLimit    int
	TimeLimit    int
	TypesOnly    bool
	Filter       Filter
	Attributes   []string
}

func (r *SearchRequest) Tag() uint32 { return TagSearchRequest }

func (r *SearchRequest) berValue() (ber.Value, error) {
	if r.Filter == nil {
		return nil, merry.Here(ErrFilterRequired)
	}
	attrs := ber.NewSequenceOf()
	for _, a := range r.Attributes {
		attrs.Add(ber.NewString(a))
	}
	seq := ber.NewSequence(
		ber.NewString(r.BaseDN),
		ber.NewEnumerated(int64(r.Scope)),
		ber.NewEnumerated(int64(r.DerefAliases)),
		ber.NewInteger(int64(r.SizeLimit)),
		ber.NewInteger(int64(r.TimeLimit)),
		ber.NewBoolean(r.TypesOnly),
		r.Filter.berValue(),
		attrs,
	)
	return appTagged(TagSearchRequest, seq), nil
}

// Attribute is one attribute description with its values, as carried in
// search result entries and modify requests.
type Attribute struct {
	Type   string
	Values []string
}

func (a Attribute) berValue() ber.Value {
	vals := ber.NewSetOf()
	for _, v := range a.Values {
		vals.Add(ber.NewString(v))
	}
	return ber.NewSequence(ber.NewString(a.Type), vals)
}

func decodeAttribute(v ber.Value) (Attribute, error) {
	var a Attribute
	seq, ok := v.(*ber.Sequence)
	if !ok || seq.Len() != 2 {
		return a, merry.Here(ErrMalformedOperation).Append("partial attribute is not a two-element sequence")
	}
	typ, ok := seq.Items()[0].(*ber.OctetString)
	if !ok {
		return a, merry.Here(ErrMalformedOperation).Append("attribute type is not an octet string")
	}
	set, ok := seq.Items()[1].(*ber.Set)
	if !ok {
		return a, merry.Here(ErrMalformedOperation).Append("attribute values are not a set")
	}
	a.Type = typ.String()
	for _, item := range set.Items() {
		val, ok := item.(*ber.OctetString)
		if !ok {
			return a, merry.Here(ErrMalformedOperation).Append("attribute value is not an octet string")
		}
		a.Values = append(a.Values, val.String())
	}
	return a, nil
}

// SearchResultEntry is one entry returned by a search.
type SearchResultEntry struct {
	ObjectName string
	Attributes []Attribute
}

func (e *SearchResultEntry) Tag() uint32 { return TagSearchResultEntry }

// AttributeValues returns the values of the named attribute, matching
// the attribute description case-insensitively.  Returns nil when the
// entry has no such attribute.
func (e *SearchResultEntry) AttributeValues(desc string) []string {
	for _, a := range e.Attributes {
		if ldaputil.EqualFold(a.Type, desc) {
			return a.Values
		}
	}
	return nil
}

func (e *SearchResultEntry) berValue() (ber.Value, error) {
	attrs := ber.NewSequenceOf()
	for _, a := range e.Attributes {
		attrs.Add(a.berValue())
	}
	return appTagged(TagSearchResultEntry, ber.NewSequence(ber.NewString(e.ObjectName), attrs)), nil
}

func decodeSearchResultEntry(raw []byte) (*SearchResultEntry, error) {
	items, err := ber.DecodeAll(raw)
	if err != nil {
		return nil, merry.Prepend(err, "search result entry")
	}
	if len(items) != 2 {
		return nil, merry.Here(ErrMalformedOperation).Appendf("search result entry has %d elements", len(items))
	}
	dn, ok := items[0].(*ber.OctetString)
	if !ok {
		return nil, merry.Here(ErrMalformedOperation).Append("object name is not an octet string")
	}
	attrSeq, ok := items[1].(*ber.Sequence)
	if !ok {
		return nil, merry.Here(ErrMalformedOperation).Append("attributes are not a sequence")
	}
	entry := &SearchResultEntry{ObjectName: dn.String()}
	for _, av := range attrSeq.Items() {
		a, err := decodeAttribute(av)
		if err != nil {
			return nil, err
		}
		entry.Attributes = append(entry.Attributes, a)
	}
	return entry, nil
}

// SearchResultDone terminates a search's result stream.
type SearchResultDone struct {
	Result
}

func (d *SearchResultDone) Tag() uint32 { return TagSearchResultDone }

func (d *SearchResultDone) berValue() (ber.Value, error) {
	return appTagged(TagSearchResultDone, ber.NewSequence(resultItems(d.Result, nil)...)), nil
}

func decodeSearchResultDone(raw []byte) (*SearchResultDone, error) {
	items, err := ber.DecodeAll(raw)
	if err != nil {
		return nil, merry.Prepend(err, "search result done")
	}
	result, _, err := decodeResult(items)
	if err != nil {
		return nil, merry.Prepend(err, "search result done")
	}
	return &SearchResultDone{Result: result}, nil
}

// SearchResultReference is a continuation reference returned in place of
// entries the server does not hold.
type SearchResultReference struct {
	URIs []string
}

func (r *SearchResultReference) Tag() uint32 { return TagSearchResultReference }

func (r *SearchResultReference) berValue() (ber.Value, error) {
	uris := ber.NewSequenceOf()
	for _, uri := range r.URIs {
		uris.Add(ber.NewString(uri))
	}
	return appTagged(TagSearchResultReference, uris), nil
}

func decodeSearchResultReference(raw []byte) (*SearchResultReference, error) {
	uris, err := decodeStrings(raw)
	if err != nil {
		return nil, merry.Prepend(err, "search result reference")
	}
	return &SearchResultReference{URIs: uris}, nil
}
