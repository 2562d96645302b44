// Package transform encodes validated tool invocations into asset transform
// descriptors and decodes descriptors back into labelled steps.
//
// A descriptor is a comma-separated list of tokens. A token is
// operator_value, optionally followed by ':' and a ';'-separated list of
// name_value arguments, e.g.
//
//	c_fill,g_auto,w_800,h_600
//	e_gen_replace:from_the%20cup;to_a%20vase;preserve-geometry_true
//
// Argument values are percent-escaped so free text can never introduce one of
// the reserved delimiters , / : ;
package transform

import (
	"net/url"
	"strings"
)

const (
	segmentSep = ","
	argsSep    = ":"
	argSep     = ";"
	valueSep   = "_"
)

// Arg is one sub-field of a compound token. Value is unescaped.
type Arg struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Token is one transform step.
type Token struct {
	Operator string
	Value    string
	Args     []Arg
}

// String renders the token in descriptor syntax with argument values escaped.
func (t Token) String() string {
	var b strings.Builder
	b.WriteString(t.Operator)
	b.WriteString(valueSep)
	b.WriteString(t.Value)
	for i, a := range t.Args {
		if i == 0 {
			b.WriteString(argsSep)
		} else {
			b.WriteString(argSep)
		}
		b.WriteString(a.Name)
		b.WriteString(valueSep)
		b.WriteString(Escape(a.Value))
	}
	return b.String()
}

// Descriptor is the encoded form of one invocation: ordered tokens applied to
// a target asset. Descriptors are built by Encode and not modified afterwards.
type Descriptor struct {
	assetID string
	tokens  []Token
}

// AssetID returns the public ID the descriptor applies to.
func (d Descriptor) AssetID() string { return d.assetID }

// Tokens returns a copy of the ordered tokens.
func (d Descriptor) Tokens() []Token {
	out := make([]Token, len(d.tokens))
	copy(out, d.tokens)
	return out
}

// Segments returns the rendered tokens in order.
func (d Descriptor) Segments() []string {
	out := make([]string, len(d.tokens))
	for i, t := range d.tokens {
		out[i] = t.String()
	}
	return out
}

// String joins the segments with the top-level delimiter.
func (d Descriptor) String() string {
	return strings.Join(d.Segments(), segmentSep)
}

// Escape percent-encodes s so that it contains none of , / : ; and no spaces.
func Escape(s string) string {
	// QueryEscape encodes a literal '+' as %2B, so the only '+' left stands for a space.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Unescape reverses Escape.
func Unescape(s string) (string, error) {
	return url.PathUnescape(s)
}
