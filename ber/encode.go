package ber

import (
	"io"

	"github.com/ansel1/merry"
)

// Append appends the full encoding of v (identifier, definite length,
// content) to dst.
func Append(dst []byte, v Value) []byte {
	content := v.appendContent(nil)
	dst = appendIdentifier(dst, v.Ident())
	dst = appendLength(dst, len(content))
	return append(dst, content...)
}

// Encode returns the full encoding of v.
func Encode(v Value) []byte {
	return Append(nil, v)
}

// Write writes the full encoding of v to w.
func Write(w io.Writer, v Value) error {
	_, err := w.Write(Encode(v))
	return merry.Wrap(err)
}
