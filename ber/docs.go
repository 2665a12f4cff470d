// Package ber encodes and decodes ASN.1 values using the Basic Encoding
// Rules (ITU-T X.690), covering the subset of ASN.1 used by the LDAP
// wire protocol (RFC 4511).
//
// The core representation is the ber.Value interface, implemented by a
// closed set of variants:
//
//	BOOLEAN       *ber.Boolean
//	INTEGER       *ber.Integer
//	ENUMERATED    *ber.Enumerated
//	NULL          *ber.Null
//	OCTET STRING  *ber.OctetString
//	SEQUENCE      *ber.Sequence
//	SEQUENCE OF   *ber.SequenceOf
//	SET           *ber.Set
//	SET OF        *ber.SetOf
//	tagged value  *ber.Tagged
//	CHOICE        *ber.Choice
//
// Each variant carries its own Identifier (class, constructed flag, tag
// number), which can be overwritten to support implicit tagging.  Encode
// with ber.Encode or ber.Append, decode with ber.ReadValue, ber.Decode,
// or ber.DecodeAll.
//
// Decoding dispatches on the identifier.  Universal-class values decode
// into the matching variant above.  Values of any other class decode into
// a *ber.Tagged holding the raw content octets; the caller, which knows
// the expected shape from protocol context, reinterprets the content
// (see Tagged.RawContent and DecodeAll).
//
// SEQUENCE and SEQUENCE OF share a tag on the wire, as do SET and SET OF,
// so decoding always produces *ber.Sequence or *ber.Set.  Callers that
// know the position holds a SEQUENCE OF re-wrap after the fact.
//
// Indefinite-length encoding is recognized by the length decoder but
// rejected for value content: LDAP messages are always definite-length,
// and guessing a termination rule for constructed content is worse than
// failing loudly.
package ber
