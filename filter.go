package ldap

import (
	"github.com/gemalto/ldap-go/ber"
)

// Filter tags.
// RFC 4511 4.5.1.7
const (
	tagFilterAnd            uint32 = 0
	tagFilterOr             uint32 = 1
	tagFilterNot            uint32 = 2
	tagFilterEquality       uint32 = 3
	tagFilterSubstrings     uint32 = 4
	tagFilterGreaterOrEqual uint32 = 5
	tagFilterLessOrEqual    uint32 = 6
	tagFilterPresent        uint32 = 7
	tagFilterApproxMatch    uint32 = 8
)

// Filter is one variant of the search filter CHOICE.  Filters are built
// programmatically; parsing RFC 4515 filter strings is out of scope.
type Filter interface {
	berValue() ber.Value
}

// FilterAnd matches when every nested filter matches.
type FilterAnd struct {
	Filters []Filter
}

func (f FilterAnd) berValue() ber.Value {
	return filterSet(tagFilterAnd, f.Filters)
}

// FilterOr matches when any nested filter matches.
type FilterOr struct {
	Filters []Filter
}

func (f FilterOr) berValue() ber.Value {
	return filterSet(tagFilterOr, f.Filters)
}

// FilterNot matches when the nested filter does not.
type FilterNot struct {
	Filter Filter
}

func (f FilterNot) berValue() ber.Value {
	// the nested filter is a CHOICE, so the [2] tag wraps its full
	// encoding
	return ber.NewTagged(ber.ClassContext, tagFilterNot, f.Filter.berValue(), true)
}

// FilterEqual matches entries whose attribute equals the value.
type FilterEqual struct {
	Attribute string
	Value     string
}

func (f FilterEqual) berValue() ber.Value {
	return ava(tagFilterEquality, f.Attribute, f.Value)
}

// FilterGreaterOrEqual matches per the attribute's ordering rule.
type FilterGreaterOrEqual struct {
	Attribute string
	Value     string
}

func (f FilterGreaterOrEqual) berValue() ber.Value {
	return ava(tagFilterGreaterOrEqual, f.Attribute, f.Value)
}

// FilterLessOrEqual matches per the attribute's ordering rule.
type FilterLessOrEqual struct {
	Attribute string
	Value     string
}

func (f FilterLessOrEqual) berValue() ber.Value {
	return ava(tagFilterLessOrEqual, f.Attribute, f.Value)
}

// FilterApproxMatch matches using the server's approximate matching
// rule.
type FilterApproxMatch struct {
	Attribute string
	Value     string
}

func (f FilterApproxMatch) berValue() ber.Value {
	return ava(tagFilterApproxMatch, f.Attribute, f.Value)
}

// FilterPresent matches entries that have the attribute at all.
type FilterPresent struct {
	Attribute string
}

func (f FilterPresent) berValue() ber.Value {
	return ber.NewTagged(ber.ClassContext, tagFilterPresent, ber.NewString(f.Attribute), false)
}

// Substring component tags.
const (
	tagSubstringInitial uint32 = 0
	tagSubstringAny     uint32 = 1
	tagSubstringFinal   uint32 = 2
)

// FilterSubstrings matches against initial/any/final fragments of the
// attribute's values.  At least one fragment must be set.
type FilterSubstrings struct {
	Attribute string
	Initial   string
	Any       []string
	Final     string
}

func (f FilterSubstrings) berValue() ber.Value {
	subs := ber.NewSequenceOf()
	if f.Initial != "" {
		subs.Add(ber.NewTagged(ber.ClassContext, tagSubstringInitial, ber.NewString(f.Initial), false))
	}
	for _, any := range f.Any {
		subs.Add(ber.NewTagged(ber.ClassContext, tagSubstringAny, ber.NewString(any), false))
	}
	if f.Final != "" {
		subs.Add(ber.NewTagged(ber.ClassContext, tagSubstringFinal, ber.NewString(f.Final), false))
	}
	return ber.NewTagged(ber.ClassContext, tagFilterSubstrings,
		ber.NewSequence(ber.NewString(f.Attribute), subs), false)
}

func filterSet(tag uint32, filters []Filter) ber.Value {
	set := ber.NewSetOf()
	for _, f := range filters {
		set.Add(f.berValue())
	}
	return ber.NewTagged(ber.ClassContext, tag, set, false)
}

// ava encodes an AttributeValueAssertion under the given filter tag.
func ava(tag uint32, attribute, value string) ber.Value {
	return ber.NewTagged(ber.ClassContext, tag,
		ber.NewSequence(ber.NewString(attribute), ber.NewString(value)), false)
}
