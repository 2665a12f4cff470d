package ber

import (
	"bytes"
	"fmt"
	"io"
)

func tagName(id Identifier) string {
	if id.Class != ClassUniversal {
		return fmt.Sprintf("[%s %d]", id.Class, id.Tag)
	}
	switch id.Tag {
	case TagBoolean:
		return "BOOLEAN"
	case TagInteger:
		return "INTEGER"
	case TagOctetString:
		return "OCTET STRING"
	case TagNull:
		return "NULL"
	case TagEnumerated:
		return "ENUMERATED"
	case TagSequence:
		return "SEQUENCE"
	case TagSet:
		return "SET"
	}
	return fmt.Sprintf("[universal %d]", id.Tag)
}

// Print writes a human-readable rendering of v to w, one value per line,
// nesting structured values under the given indent.
func Print(w io.Writer, indent string, v Value) (err error) {
	id := v.Ident()
	fmt.Fprintf(w, "%s%s:", indent, tagName(id))

	switch t := v.(type) {
	case *Boolean:
		fmt.Fprintf(w, " %v", t.Val)
	case *Integer:
		fmt.Fprintf(w, " %d", t.Val)
	case *Enumerated:
		fmt.Fprintf(w, " %d", t.Val)
	case *Null:
	case *OctetString:
		if printable(t.Data) {
			fmt.Fprintf(w, " %q", string(t.Data))
		} else {
			fmt.Fprintf(w, " %#x", t.Data)
		}
	case *Sequence:
		err = printItems(w, indent, t.Items())
	case *SequenceOf:
		err = printItems(w, indent, t.Items())
	case *Set:
		err = printItems(w, indent, t.Items())
	case *SetOf:
		err = printItems(w, indent, t.Items())
	case *Tagged:
		if raw, ok := t.RawContent(); ok {
			if len(raw) == 0 {
				break
			}
			// opaque content: show nested values when it parses cleanly,
			// raw octets otherwise
			if items, derr := DecodeAll(raw); derr == nil && len(items) > 0 {
				err = printItems(w, indent, items)
			} else {
				fmt.Fprintf(w, " %#x", raw)
			}
		} else {
			fmt.Fprint(w, "\n")
			err = Print(w, indent+"  ", t.Child)
		}
	case *Choice:
		return Print(w, indent, t.Val)
	}
	return err
}

func printItems(w io.Writer, indent string, items []Value) error {
	indent += "  "
	for _, item := range items {
		fmt.Fprint(w, "\n")
		if err := Print(w, indent, item); err != nil {
			return err
		}
	}
	return nil
}

func printable(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			return false
		}
	}
	return len(b) > 0
}

// Sprint renders v with Print and returns it as a string.
func Sprint(v Value) string {
	buf := bytes.NewBuffer(nil)
	Print(buf, "", v)
	return buf.String()
}
