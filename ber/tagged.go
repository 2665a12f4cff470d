package ber

// Tagged wraps exactly one child value under a class/tag of the caller's
// choosing.
//
// Explicit tagging wraps the child's full encoding (identifier, length
// and content) as the tag's content.  Implicit tagging discards the
// child's own identifier and encodes only the child's content under the
// tag's identifier.
//
// The decoder produces implicit Tagged values for every non-universal
// identifier it meets, with the raw content octets held in an
// OctetString child; the caller reinterprets them (see RawContent).
type Tagged struct {
	ident    Identifier
	Child    Value
	Explicit bool
}

// NewTagged wraps child under the given class and tag number.  The
// constructed flag is inherited from the child for implicit tags;
// explicit tags are always constructed.
func NewTagged(class Class, tag uint32, child Value, explicit bool) *Tagged {
	constructed := explicit || child.Ident().Constructed
	return &Tagged{
		ident:    Identifier{Class: class, Constructed: constructed, Tag: tag},
		Child:    child,
		Explicit: explicit,
	}
}

func (t *Tagged) Ident() Identifier      { return t.ident }
func (t *Tagged) SetIdent(id Identifier) { t.ident = id }

func (t *Tagged) appendContent(dst []byte) []byte {
	if t.Explicit {
		return Append(dst, t.Child)
	}
	return t.Child.appendContent(dst)
}

// RawContent returns the undecoded content octets of a Tagged value whose
// child is an opaque OctetString, as produced by the decoder for
// non-universal identifiers.  ok is false when the child holds anything
// else.
func (t *Tagged) RawContent() (content []byte, ok bool) {
	o, ok := t.Child.(*OctetString)
	if !ok {
		return nil, false
	}
	return o.Data, true
}

// Choice is a transparent wrapper for an ASN.1 CHOICE position.  It has
// no identity of its own: identifier and content always delegate to the
// held value.
type Choice struct {
	Val Value
}

func NewChoice(v Value) *Choice {
	return &Choice{Val: v}
}

func (c *Choice) Ident() Identifier      { return c.Val.Ident() }
func (c *Choice) SetIdent(id Identifier) { c.Val.SetIdent(id) }

func (c *Choice) appendContent(dst []byte) []byte {
	return c.Val.appendContent(dst)
}
