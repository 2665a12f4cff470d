package ber

import (
	"github.com/ansel1/merry"
)

// structured is the shared implementation behind the four constructed
// variants.  Content is the concatenation of each child's full encoding.
// Children are kept in insertion order; SET and SET OF are semantically
// unordered but encode physically in insertion order.
type structured struct {
	ident Identifier
	items []Value
}

func (s *structured) Ident() Identifier      { return s.ident }
func (s *structured) SetIdent(id Identifier) { s.ident = id }

// Add appends v to the end of the children.
func (s *structured) Add(v Value) {
	s.items = append(s.items, v)
}

// Set replaces the child at index i.
func (s *structured) Set(i int, v Value) error {
	if i < 0 || i >= len(s.items) {
		return merry.Here(ErrIndexOutOfRange).Appendf("%d of %d", i, len(s.items))
	}
	s.items[i] = v
	return nil
}

// Get returns the child at index i.
func (s *structured) Get(i int) (Value, error) {
	if i < 0 || i >= len(s.items) {
		return nil, merry.Here(ErrIndexOutOfRange).Appendf("%d of %d", i, len(s.items))
	}
	return s.items[i], nil
}

// Len returns the number of children.
func (s *structured) Len() int {
	return len(s.items)
}

// Items returns the children in order.  The returned slice is the
// value's backing storage; callers must not modify it.
func (s *structured) Items() []Value {
	return s.items
}

func (s *structured) appendContent(dst []byte) []byte {
	for _, v := range s.items {
		dst = Append(dst, v)
	}
	return dst
}

// Sequence is an ASN.1 SEQUENCE: an ordered list of children of distinct
// types.
type Sequence struct {
	structured
}

func NewSequence(items ...Value) *Sequence {
	return &Sequence{structured{ident: idSequence, items: items}}
}

// SequenceOf is an ASN.1 SEQUENCE OF: an ordered list of children of one
// type.  It shares SEQUENCE's tag on the wire, so decoding produces a
// *Sequence; use FromSequence to re-wrap when the position is known to
// hold a SEQUENCE OF.
type SequenceOf struct {
	structured
}

func NewSequenceOf(items ...Value) *SequenceOf {
	return &SequenceOf{structured{ident: idSequence, items: items}}
}

// FromSequence re-wraps a decoded Sequence as a SequenceOf.
func (s *SequenceOf) FromSequence(seq *Sequence) {
	s.structured = seq.structured
}

// Set is an ASN.1 SET.
type Set struct {
	structured
}

func NewSet(items ...Value) *Set {
	return &Set{structured{ident: idSet, items: items}}
}

// SetOf is an ASN.1 SET OF.  It shares SET's tag on the wire, so decoding
// produces a *Set; use FromSet to re-wrap.
type SetOf struct {
	structured
}

func NewSetOf(items ...Value) *SetOf {
	return &SetOf{structured{ident: idSet, items: items}}
}

// FromSet re-wraps a decoded Set as a SetOf.
func (s *SetOf) FromSet(set *Set) {
	s.structured = set.structured
}
