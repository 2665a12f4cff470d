package ber

import (
	"bytes"
	"io"

	"github.com/ansel1/merry"
)

// ReadValue reads one complete BER value from r, returning the decoded
// value and the total number of octets consumed (identifier, length and
// content).  A stream cleanly at EOF before the first octet returns
// io.EOF; any later truncation returns ErrUnexpectedEOF.
//
// Dispatch is keyed on the identifier.  Universal-class values decode
// into the matching variant; unsupported universal tags return
// ErrUnsupportedTag.  Every other class decodes into an implicit *Tagged
// holding the raw content octets.
func ReadValue(r io.Reader) (Value, int, error) {
	id, n, err := ReadIdentifier(r)
	if err != nil {
		return nil, n, err
	}

	length, ln, err := ReadLength(r)
	n += ln
	if err != nil {
		return nil, n, err
	}
	if length == LengthIndefinite {
		return nil, n, merry.Here(ErrIndefiniteLength).Appendf("%v", id)
	}

	content := make([]byte, length)
	if _, err = io.ReadFull(r, content); err != nil {
		return nil, n, wrapEOF(err)
	}
	n += int(length)

	v, err := materialize(id, content)
	return v, n, err
}

// Decode decodes the first complete BER value in b, returning the value
// and the number of octets it occupied.
func Decode(b []byte) (Value, int, error) {
	return ReadValue(bytes.NewReader(b))
}

// DecodeAll decodes b as a concatenation of BER values, consuming it
// fully.  This is the decode loop for structured content: children are
// decoded until the accumulated consumed length equals the declared
// length.
func DecodeAll(b []byte) ([]Value, error) {
	var vals []Value
	for len(b) > 0 {
		v, n, err := Decode(b)
		if err != nil {
			if err == io.EOF {
				err = merry.Here(ErrUnexpectedEOF)
			}
			return nil, err
		}
		vals = append(vals, v)
		b = b[n:]
	}
	return vals, nil
}

func materialize(id Identifier, content []byte) (Value, error) {
	if id.Class != ClassUniversal {
		// opaque until the caller reinterprets it from protocol context
		return &Tagged{
			ident: id,
			Child: &OctetString{ident: idOctetString, Data: content},
		}, nil
	}

	switch id.Tag {
	case TagBoolean:
		if len(content) != 1 {
			return nil, merry.Here(ErrInvalidContent).Appendf("boolean with %d content octets", len(content))
		}
		return &Boolean{ident: id, Val: content[0] != 0}, nil
	case TagInteger:
		v, err := decodeTwosComplement(content)
		if err != nil {
			return nil, err
		}
		return &Integer{ident: id, Val: v}, nil
	case TagEnumerated:
		v, err := decodeTwosComplement(content)
		if err != nil {
			return nil, err
		}
		return &Enumerated{ident: id, Val: v}, nil
	case TagOctetString:
		return &OctetString{ident: id, Data: content}, nil
	case TagNull:
		if len(content) != 0 {
			return nil, merry.Here(ErrInvalidContent).Appendf("null with %d content octets", len(content))
		}
		return &Null{ident: id}, nil
	case TagSequence:
		items, err := DecodeAll(content)
		if err != nil {
			return nil, err
		}
		return &Sequence{structured{ident: id, items: items}}, nil
	case TagSet:
		items, err := DecodeAll(content)
		if err != nil {
			return nil, err
		}
		return &Set{structured{ident: id, items: items}}, nil
	}
	return nil, merry.Here(ErrUnsupportedTag).Appendf("%v", id)
}
