package ber

import (
	"io"
	"math"

	"github.com/ansel1/merry"
)

// Length is the decoded content length of a BER value.  LengthIndefinite
// marks the indefinite form, which decodes without error but is rejected
// when a value's content is actually read.
type Length int

const LengthIndefinite Length = -1

// EncodedLen returns the number of octets the length occupies on the
// wire.
func (l Length) EncodedLen() int {
	if l == LengthIndefinite || l < 0x80 {
		return 1
	}
	n := 2
	for v := uint32(l) >> 8; v != 0; v >>= 8 {
		n++
	}
	return n
}

func appendLength(dst []byte, n int) []byte {
	if n < 0x80 {
		return append(dst, byte(n))
	}

	// long form: minimal big-endian octet count
	var octets [4]byte
	i := len(octets)
	for v := uint32(n); v != 0; v >>= 8 {
		i--
		octets[i] = byte(v)
	}
	dst = append(dst, 0x80|byte(len(octets)-i))
	return append(dst, octets[i:]...)
}

// WriteLength writes the definite-form length octets for n to w.  Lengths
// below 128 use the short form, all others the minimal long form.
func WriteLength(w io.Writer, n int) error {
	_, err := w.Write(appendLength(nil, n))
	return merry.Wrap(err)
}

// ReadLength reads the length octets of one BER value from r, returning
// the length and the number of octets consumed.  The single octet 0x80
// decodes as LengthIndefinite.
func ReadLength(r io.Reader) (Length, int, error) {
	b, err := readByte(r)
	if err != nil {
		return 0, 0, wrapEOF(err)
	}
	if b == 0x80 {
		return LengthIndefinite, 1, nil
	}
	if b < 0x80 {
		return Length(b), 1, nil
	}

	nbytes := int(b & 0x7F)
	if nbytes > 4 {
		return 0, 1, merry.Here(ErrLengthTooLarge).Appendf("%d length octets", nbytes)
	}
	n := 1
	var v uint64
	for i := 0; i < nbytes; i++ {
		b, err = readByte(r)
		if err != nil {
			return 0, n, wrapEOF(err)
		}
		n++
		v = v<<8 | uint64(b)
	}
	if v > math.MaxInt32 {
		return 0, n, merry.Here(ErrLengthTooLarge).Appendf("%d", v)
	}
	return Length(v), n, nil
}
