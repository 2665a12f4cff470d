package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/gemalto/ldap-go/ber"
)

func main() {

	flag.Usage = func() {
		s := `ppber - BER pretty printer

Usage:  ppber [options] [input]

Pretty prints BER-encoded ASN.1 values, such as captured LDAP
messages.

The input argument should be a hex string.  If not present, input
will be read from standard in.  Any non-hex characters, such as
whitespace or embedded formatting characters, will be ignored, so
output from tools like "xxd -p" or wireshark hex dumps can be piped
in directly.

Example:

    ppber 300c020101600702010304008000

Output:

    SEQUENCE:
      INTEGER: 1
      [application 0]:
        INTEGER: 3
        OCTET STRING: 0x
        [context 0]:
`
		_, _ = fmt.Fprintln(flag.CommandLine.Output(), s)
		flag.PrintDefaults()
	}

	var inFile string
	flag.StringVar(&inFile, "f", "", "input file name, defaults to stdin")

	flag.Parse()

	buf := bytes.NewBuffer(nil)

	if inFile != "" {
		file, err := ioutil.ReadFile(inFile)
		if err != nil {
			fail("error reading input file", err)
		}
		buf = bytes.NewBuffer(file)
	} else if inArg := flag.Arg(0); inArg != "" {
		buf.WriteString(inArg)
	} else {
		scanner := bufio.NewScanner(os.Stdin)

		for scanner.Scan() {
			buf.Write(scanner.Bytes())
		}

		if err := scanner.Err(); err != nil {
			fail("error reading standard input", err)
		}
	}

	raw := hex2bytes(buf.String())
	values, err := ber.DecodeAll(raw)
	if err != nil {
		fail("error decoding", err)
	}

	for i, v := range values {
		if i > 0 {
			fmt.Println("")
		}
		if err := ber.Print(os.Stdout, "", v); err != nil {
			fail("error printing", err)
		}
	}
}

// hex2bytes decodes a hex string, ignoring any non-hex characters.
func hex2bytes(s string) []byte {
	cleaned := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
			cleaned = append(cleaned, c)
		}
	}
	b, err := hex.DecodeString(string(cleaned))
	if err != nil {
		fail("invalid hex input", err)
	}
	return b
}

func fail(msg string, err error) {
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, msg+":", err)
	} else {
		_, _ = fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(1)
}
