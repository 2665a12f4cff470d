package ber

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hexs decodes a hex sample, ignoring spaces.
func hexs(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	require.NoError(t, err)
	return b
}

var knownGoodSamples = []struct {
	name string
	v    Value
	exp  string
}{
	{"true", NewBoolean(true), "01 01 ff"},
	{"false", NewBoolean(false), "01 01 00"},
	{"int 0", NewInteger(0), "02 01 00"},
	{"int 1", NewInteger(1), "02 01 01"},
	{"int 127", NewInteger(127), "02 01 7f"},
	{"int 128", NewInteger(128), "02 02 00 80"},
	{"int 256", NewInteger(256), "02 02 01 00"},
	{"int -1", NewInteger(-1), "02 01 ff"},
	{"int -128", NewInteger(-128), "02 01 80"},
	{"int -129", NewInteger(-129), "02 02 ff 7f"},
	{"int max32", NewInteger(2147483647), "02 04 7f ff ff ff"},
	{"enumerated 32", NewEnumerated(32), "0a 01 20"},
	{"null", NewNull(), "05 00"},
	{"empty string", NewString(""), "04 00"},
	{"string", NewString("cn=admin"), "04 08 63 6e 3d 61 64 6d 69 6e"},
	{"empty sequence", NewSequence(), "30 00"},
	{
		"sequence",
		NewSequence(NewInteger(1), NewString("hi")),
		"30 07 02 01 01 04 02 68 69",
	},
	{
		"nested sequence",
		NewSequence(NewSequence(NewBoolean(true))),
		"30 05 30 03 01 01 ff",
	},
	{"set", NewSet(NewInteger(5)), "31 03 02 01 05"},
	{
		"implicit tag keeps only content",
		NewTagged(ClassContext, 0, NewString("secret"), false),
		"80 06 73 65 63 72 65 74",
	},
	{
		"explicit tag wraps full encoding",
		NewTagged(ClassContext, 3, NewString("ab"), true),
		"a3 04 04 02 61 62",
	},
	{
		"implicit constructed tag",
		NewTagged(ClassApplication, 3, NewSequence(NewInteger(2)), false),
		"63 03 02 01 02",
	},
	{
		"choice is transparent",
		NewChoice(NewInteger(7)),
		"02 01 07",
	},
}

func TestKnownGoodSamples(t *testing.T) {
	for _, sample := range knownGoodSamples {
		t.Run(sample.name, func(t *testing.T) {
			assert.Equal(t, hexs(t, sample.exp), Encode(sample.v))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	// decode(encode(v)) must reproduce the comparable content: value,
	// tag, constructed flag
	tests := []Value{
		NewBoolean(true),
		NewBoolean(false),
		NewInteger(0),
		NewInteger(127),
		NewInteger(128),
		NewInteger(-1),
		NewInteger(-32768),
		NewInteger(2147483647),
		NewEnumerated(49),
		NewNull(),
		NewString("uid=jdoe,dc=example,dc=com"),
		NewOctetString([]byte{0x00, 0xFF, 0x7F}),
		NewSequence(),
		NewSequence(NewInteger(3), NewString("objectClass"), NewBoolean(false)),
		NewSet(NewString("a"), NewString("b")),
		NewSequence(NewSet(NewSequence(NewNull()))),
	}

	for _, v := range tests {
		t.Run(Sprint(v), func(t *testing.T) {
			b := Encode(v)
			got, n, err := Decode(b)
			require.NoError(t, err)
			assert.Equal(t, len(b), n)
			assert.Equal(t, v, got)
		})
	}
}

func TestRoundTripHighTagNumbers(t *testing.T) {
	// lossless for tag numbers up to at least 2^21
	for _, tag := range []uint32{31, 100, 127, 128, 16383, 16384, 1 << 21} {
		v := NewTagged(ClassPrivate, tag, NewOctetString([]byte{0xAB}), false)
		b := Encode(v)

		got, n, err := Decode(b)
		require.NoError(t, err)
		assert.Equal(t, len(b), n)

		tagged, ok := got.(*Tagged)
		require.True(t, ok)
		assert.Equal(t, v.Ident(), tagged.Ident())
		raw, ok := tagged.RawContent()
		require.True(t, ok)
		assert.Equal(t, []byte{0xAB}, raw)
	}
}

func TestStructuredMutators(t *testing.T) {
	seq := NewSequence()
	assert.Equal(t, 0, seq.Len())

	seq.Add(NewInteger(1))
	seq.Add(NewInteger(2))
	assert.Equal(t, 2, seq.Len())

	v, err := seq.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.(*Integer).Val)

	require.NoError(t, seq.Set(0, NewString("x")))
	v, err = seq.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "x", v.(*OctetString).String())

	// bounds checks
	assert.True(t, Is(seq.Set(2, NewNull()), ErrIndexOutOfRange))
	assert.True(t, Is(seq.Set(-1, NewNull()), ErrIndexOutOfRange))
	_, err = seq.Get(2)
	assert.True(t, Is(err, ErrIndexOutOfRange))
}

func TestSequenceOfSharesSequenceTag(t *testing.T) {
	so := NewSequenceOf(NewString("a"), NewString("b"))
	b := Encode(so)

	// decodes as Sequence; caller re-wraps
	got, _, err := Decode(b)
	require.NoError(t, err)
	seq, ok := got.(*Sequence)
	require.True(t, ok)

	var so2 SequenceOf
	so2.FromSequence(seq)
	assert.Equal(t, so.Items(), so2.Items())
	assert.Equal(t, b, Encode(&so2))
}

func TestImplicitTagDiscardsChildIdentifier(t *testing.T) {
	tagged := NewTagged(ClassContext, 7, NewString("phone"), false)
	b := Encode(tagged)
	// primitive context 7, length, then raw content only
	assert.Equal(t, hexs(t, "87 05 70 68 6f 6e 65"), b)
}

func TestExplicitTagRoundTrip(t *testing.T) {
	tagged := NewTagged(ClassContext, 3, NewSequence(NewString("ldap://other/")), true)
	b := Encode(tagged)

	got, _, err := Decode(b)
	require.NoError(t, err)

	// explicit tags decode opaque; the content is the child's full encoding
	opaque, ok := got.(*Tagged)
	require.True(t, ok)
	raw, ok := opaque.RawContent()
	require.True(t, ok)

	child, n, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, NewSequence(NewString("ldap://other/")), child)
}
