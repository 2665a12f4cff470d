package ber

import (
	"github.com/ansel1/merry"
)

// Value is one ASN.1 value.  It is implemented by a closed set of
// variants; see the package documentation for the full list.
//
// Every variant owns its identifier.  SetIdent overwrites it, which is
// how implicit tagging re-identifies a value.
type Value interface {
	Ident() Identifier
	SetIdent(Identifier)

	// appendContent appends the value's content octets (no identifier, no
	// length) to dst.  Keeping this unexported keeps the variant set
	// closed.
	appendContent(dst []byte) []byte
}

// Boolean is an ASN.1 BOOLEAN.  Encodes as a single content octet, 0x00
// or 0xFF.  Any nonzero octet decodes as true.
type Boolean struct {
	ident Identifier
	Val   bool
}

func NewBoolean(v bool) *Boolean {
	return &Boolean{ident: idBoolean, Val: v}
}

func (b *Boolean) Ident() Identifier      { return b.ident }
func (b *Boolean) SetIdent(id Identifier) { b.ident = id }

func (b *Boolean) appendContent(dst []byte) []byte {
	if b.Val {
		return append(dst, 0xFF)
	}
	return append(dst, 0x00)
}

// Integer is an ASN.1 INTEGER.  Encodes as the minimal-length big-endian
// two's-complement representation of Val.
type Integer struct {
	ident Identifier
	Val   int64
}

func NewInteger(v int64) *Integer {
	return &Integer{ident: idInteger, Val: v}
}

func (i *Integer) Ident() Identifier      { return i.ident }
func (i *Integer) SetIdent(id Identifier) { i.ident = id }

func (i *Integer) appendContent(dst []byte) []byte {
	return appendTwosComplement(dst, i.Val)
}

// Enumerated is an ASN.1 ENUMERATED.  Same content encoding as Integer,
// different universal tag.
type Enumerated struct {
	ident Identifier
	Val   int64
}

func NewEnumerated(v int64) *Enumerated {
	return &Enumerated{ident: idEnumerated, Val: v}
}

func (e *Enumerated) Ident() Identifier      { return e.ident }
func (e *Enumerated) SetIdent(id Identifier) { e.ident = id }

func (e *Enumerated) appendContent(dst []byte) []byte {
	return appendTwosComplement(dst, e.Val)
}

// Null is an ASN.1 NULL.  No content.
type Null struct {
	ident Identifier
}

func NewNull() *Null {
	return &Null{ident: idNull}
}

func (n *Null) Ident() Identifier               { return n.ident }
func (n *Null) SetIdent(id Identifier)          { n.ident = id }
func (n *Null) appendContent(dst []byte) []byte { return dst }

// OctetString is an ASN.1 OCTET STRING.  It doubles as the carrier for
// LDAP's UTF-8 string types; conveniently, Go strings are already UTF-8.
type OctetString struct {
	ident Identifier
	Data  []byte
}

func NewOctetString(data []byte) *OctetString {
	return &OctetString{ident: idOctetString, Data: data}
}

func NewString(s string) *OctetString {
	return &OctetString{ident: idOctetString, Data: []byte(s)}
}

func (o *OctetString) Ident() Identifier      { return o.ident }
func (o *OctetString) SetIdent(id Identifier) { o.ident = id }

func (o *OctetString) String() string {
	return string(o.Data)
}

func (o *OctetString) appendContent(dst []byte) []byte {
	return append(dst, o.Data...)
}

func appendTwosComplement(dst []byte, v int64) []byte {
	n := 1
	for i := v; i > 127; i >>= 8 {
		n++
	}
	for i := v; i < -128; i >>= 8 {
		n++
	}
	for shift := (n - 1) * 8; shift >= 0; shift -= 8 {
		dst = append(dst, byte(v>>uint(shift)))
	}
	return dst
}

func decodeTwosComplement(content []byte) (int64, error) {
	if len(content) == 0 {
		return 0, merry.Here(ErrInvalidContent).Append("integer with empty content")
	}
	if len(content) > 8 {
		return 0, merry.Here(ErrIntegerTooLarge).Appendf("%d content octets", len(content))
	}
	var v int64
	for _, b := range content {
		v = v<<8 | int64(b)
	}
	// sign-extend from the first content octet
	shift := uint(64 - len(content)*8)
	return v << shift >> shift, nil
}
