package ber

import (
	"fmt"
	"io"

	"github.com/ansel1/merry"
)

// Class is the tag class from the top two bits of a BER identifier octet.
type Class uint8

const (
	ClassUniversal   Class = 0x00
	ClassApplication Class = 0x40
	ClassContext     Class = 0x80
	ClassPrivate     Class = 0xC0
)

func (c Class) String() string {
	switch c {
	case ClassUniversal:
		return "universal"
	case ClassApplication:
		return "application"
	case ClassContext:
		return "context"
	case ClassPrivate:
		return "private"
	}
	return fmt.Sprintf("%#02x", uint8(c))
}

// Universal tag numbers used by LDAP.
// X.690 8.1.2
const (
	TagBoolean     uint32 = 0x01
	TagInteger     uint32 = 0x02
	TagOctetString uint32 = 0x04
	TagNull        uint32 = 0x05
	TagEnumerated  uint32 = 0x0A
	TagSequence    uint32 = 0x10
	TagSet         uint32 = 0x11
)

// Identifier is the (class, constructed flag, tag number) triple from the
// identifier octets of a BER value.  Identifier is a value type: the
// identifiers of the universal primitive types are shared constants and
// are never mutated after construction.
type Identifier struct {
	Class       Class
	Constructed bool
	Tag         uint32
}

// Shared identifiers for the universal types.
var (
	idBoolean     = Identifier{ClassUniversal, false, TagBoolean}
	idInteger     = Identifier{ClassUniversal, false, TagInteger}
	idOctetString = Identifier{ClassUniversal, false, TagOctetString}
	idNull        = Identifier{ClassUniversal, false, TagNull}
	idEnumerated  = Identifier{ClassUniversal, false, TagEnumerated}
	idSequence    = Identifier{ClassUniversal, true, TagSequence}
	idSet         = Identifier{ClassUniversal, true, TagSet}
)

func (id Identifier) String() string {
	if id.Constructed {
		return fmt.Sprintf("%s %d (constructed)", id.Class, id.Tag)
	}
	return fmt.Sprintf("%s %d", id.Class, id.Tag)
}

// highTagNumber is the low-five-bit sentinel indicating the tag number
// continues in subsequent octets.
const highTagNumber = 0x1F

// EncodedLen returns the number of octets the identifier occupies on the
// wire.
func (id Identifier) EncodedLen() int {
	if id.Tag < highTagNumber {
		return 1
	}
	n := 2
	for t := id.Tag >> 7; t != 0; t >>= 7 {
		n++
	}
	return n
}

func appendIdentifier(dst []byte, id Identifier) []byte {
	lead := byte(id.Class)
	if id.Constructed {
		lead |= 0x20
	}
	if id.Tag < highTagNumber {
		return append(dst, lead|byte(id.Tag))
	}
	dst = append(dst, lead|highTagNumber)

	// 7-bit groups, most significant first, continuation bit on all but
	// the last
	var groups [5]byte
	n := 0
	for t := id.Tag; ; t >>= 7 {
		groups[n] = byte(t & 0x7F)
		n++
		if t < 0x80 {
			break
		}
	}
	for i := n - 1; i > 0; i-- {
		dst = append(dst, groups[i]|0x80)
	}
	return append(dst, groups[0])
}

// WriteIdentifier writes the identifier octets for id to w.
func WriteIdentifier(w io.Writer, id Identifier) error {
	_, err := w.Write(appendIdentifier(nil, id))
	return merry.Wrap(err)
}

// ReadIdentifier reads the identifier octets of one BER value from r,
// returning the identifier and the number of octets consumed.  If the
// stream is cleanly at EOF before the first octet, the error is io.EOF;
// a stream that ends mid-identifier returns ErrUnexpectedEOF.
func ReadIdentifier(r io.Reader) (Identifier, int, error) {
	var id Identifier
	b, err := readByte(r)
	if err != nil {
		if err == io.EOF {
			return id, 0, io.EOF
		}
		return id, 0, merry.Wrap(err)
	}
	n := 1
	id.Class = Class(b & 0xC0)
	id.Constructed = b&0x20 != 0
	id.Tag = uint32(b & highTagNumber)
	if id.Tag != highTagNumber {
		return id, n, nil
	}

	id.Tag = 0
	for {
		b, err = readByte(r)
		if err != nil {
			return id, n, wrapEOF(err)
		}
		n++
		if id.Tag > (1<<25)-1 {
			// another 7 bits would overflow uint32
			return id, n, merry.Here(ErrTagTooLarge)
		}
		id.Tag = id.Tag<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return id, n, nil
		}
	}
}

func readByte(r io.Reader) (byte, error) {
	if br, ok := r.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var buf [1]byte
	_, err := io.ReadFull(r, buf[:])
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}
