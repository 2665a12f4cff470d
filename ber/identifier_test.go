package ber

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		id   Identifier
		exp  []byte
	}{
		{"boolean", idBoolean, []byte{0x01}},
		{"sequence", idSequence, []byte{0x30}},
		{"set", idSet, []byte{0x31}},
		{"context 0 constructed", Identifier{ClassContext, true, 0}, []byte{0xA0}},
		{"application 16 primitive", Identifier{ClassApplication, false, 16}, []byte{0x50}},
		{"max low tag", Identifier{ClassUniversal, false, 30}, []byte{0x1E}},
		{"tag 31", Identifier{ClassUniversal, false, 31}, []byte{0x1F, 0x1F}},
		{"tag 127", Identifier{ClassContext, false, 127}, []byte{0x9F, 0x7F}},
		{"tag 128", Identifier{ClassContext, false, 128}, []byte{0x9F, 0x81, 0x00}},
		{"tag 2^14", Identifier{ClassPrivate, true, 1 << 14}, []byte{0xFF, 0x81, 0x80, 0x00}},
		{"tag 2^21", Identifier{ClassUniversal, false, 1 << 21}, []byte{0x1F, 0x81, 0x80, 0x80, 0x00}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := appendIdentifier(nil, test.id)
			require.Equal(t, test.exp, b)
			assert.Equal(t, len(test.exp), test.id.EncodedLen())

			id, n, err := ReadIdentifier(bytes.NewReader(b))
			require.NoError(t, err)
			assert.Equal(t, test.id, id)
			assert.Equal(t, len(b), n)
		})
	}
}

func TestIdentifierLowTagsAreOneOctet(t *testing.T) {
	for tag := uint32(0); tag < 31; tag++ {
		id := Identifier{ClassUniversal, false, tag}
		assert.Len(t, appendIdentifier(nil, id), 1)
	}
}

func TestReadIdentifierEOF(t *testing.T) {
	// a stream cleanly at EOF is io.EOF, not a truncation
	_, n, err := ReadIdentifier(bytes.NewReader(nil))
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 0, n)

	// ending mid-identifier is a truncation
	_, _, err = ReadIdentifier(bytes.NewReader([]byte{0x1F, 0x81}))
	assert.True(t, Is(err, ErrUnexpectedEOF), "expected ErrUnexpectedEOF, got %v", err)
}

func TestReadIdentifierTagTooLarge(t *testing.T) {
	// six continuation groups overflow uint32
	_, _, err := ReadIdentifier(bytes.NewReader([]byte{0x1F, 0x8F, 0xFF, 0xFF, 0xFF, 0xFF, 0x7F}))
	assert.True(t, Is(err, ErrTagTooLarge), "expected ErrTagTooLarge, got %v", err)
}

func TestWriteIdentifier(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	require.NoError(t, WriteIdentifier(buf, idSequence))
	assert.Equal(t, []byte{0x30}, buf.Bytes())
}
