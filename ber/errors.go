package ber

import (
	"errors"
	"io"

	"github.com/ansel1/merry"
)

// Is reports whether err is, or was caused by, one of originals.
func Is(err error, originals ...error) bool {
	return merry.Is(err, originals...)
}

var ErrUnexpectedEOF = errors.New("unexpected end of stream")
var ErrUnsupportedTag = errors.New("unsupported universal tag")
var ErrIndefiniteLength = errors.New("indefinite length not supported")
var ErrIndexOutOfRange = errors.New("index out of range")
var ErrIntegerTooLarge = errors.New("integer too large")
var ErrLengthTooLarge = errors.New("length too large")
var ErrTagTooLarge = errors.New("tag number too large")
var ErrInvalidContent = errors.New("invalid content octets")

// wrapEOF converts io errors from a partially read value into
// ErrUnexpectedEOF.  A stream that ends in the middle of an identifier,
// length, or content is truncated, regardless of which io error the
// reader reported.
func wrapEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return merry.WrapSkipping(ErrUnexpectedEOF, 1).WithCause(err)
	}
	return merry.WrapSkipping(err, 1)
}
