package runner

import (
	"strconv"
	"strings"
)

// Encoder turns a collected value into the text substituted for its token.
type Encoder func(value string, options []string) string

// Identity substitutes the value verbatim.
func Identity(value string, _ []string) string {
	return value
}

// IndexLookup substitutes the 1-based position of value in options. A value
// that is not an option, or an empty option list, falls back to the literal value.
func IndexLookup(value string, options []string) string {
	for i, opt := range options {
		if opt == value {
			return strconv.Itoa(i + 1)
		}
	}
	return value
}

// Encoding binds an encoder to a param name for templates that begin with Prefix.
type Encoding struct {
	Prefix string
	Param  string
	Encode Encoder
}

// DefaultEncodings covers the stat commands that take an index instead of a name.
var DefaultEncodings = []Encoding{
	{Prefix: ".bl cst", Param: "BloodStat", Encode: IndexLookup},
	{Prefix: ".wep cst", Param: "WeaponStat", Encode: IndexLookup},
}

func (r Resolver) encoderFor(template, param string) Encoder {
	for _, e := range r.Encodings {
		if e.Param == param && strings.HasPrefix(template, e.Prefix) {
			return e.Encode
		}
	}
	return Identity
}
