package transform

import (
	"fmt"
	"strings"
)

// Segment is one decoded step of a descriptor.
type Segment struct {
	// Token is the segment exactly as it appeared in the descriptor.
	Token    string `json:"token"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
	Args     []Arg  `json:"args,omitempty"`
	Label    string `json:"label"`
}

// Decode splits a descriptor into its segments, unescaping argument values and
// attaching a human label to each. It is the left inverse of Encode.
func Decode(descriptor string) ([]Segment, error) {
	descriptor = strings.TrimSpace(descriptor)
	if descriptor == "" {
		return nil, fmt.Errorf("transform: empty descriptor")
	}
	parts := strings.Split(descriptor, segmentSep)
	out := make([]Segment, 0, len(parts))
	for i, raw := range parts {
		seg, err := decodeSegment(raw)
		if err != nil {
			return nil, fmt.Errorf("transform: segment %d %q: %w", i, raw, err)
		}
		out = append(out, seg)
	}
	return out, nil
}

func decodeSegment(raw string) (Segment, error) {
	if raw == "" {
		return Segment{}, fmt.Errorf("empty segment")
	}
	head, argStr, compound := strings.Cut(raw, argsSep)
	op, value, ok := strings.Cut(head, valueSep)
	if !ok || op == "" || value == "" {
		return Segment{}, fmt.Errorf("expected operator_value")
	}
	seg := Segment{Token: raw, Operator: op, Value: value}
	if compound {
		if argStr == "" {
			return Segment{}, fmt.Errorf("empty argument list")
		}
		for _, a := range strings.Split(argStr, argSep) {
			name, escaped, ok := strings.Cut(a, valueSep)
			if !ok || name == "" {
				return Segment{}, fmt.Errorf("argument %q: expected name_value", a)
			}
			v, err := Unescape(escaped)
			if err != nil {
				return Segment{}, fmt.Errorf("argument %q: %w", name, err)
			}
			seg.Args = append(seg.Args, Arg{Name: name, Value: v})
		}
	}
	seg.Label = label(seg)
	return seg, nil
}

var effectLabels = map[string]string{
	"background_removal": "Remove background",
	"improve":            "Auto-enhance",
	"gen_fill":           "Generative fill",
	"gen_replace":        "Generative replace",
	"gen_remove":         "Generative remove",
	"gen_recolor":        "Generative recolor",
}

var formatLabels = map[string]string{
	"webp": "WebP",
	"avif": "AVIF",
	"jpg":  "JPEG",
	"png":  "PNG",
}

func label(s Segment) string {
	var base string
	switch s.Operator {
	case "c":
		base = "Crop mode: " + s.Value
	case "g":
		base = "Gravity: " + s.Value
	case "w":
		base = "Width: " + s.Value + "px"
	case "h":
		base = "Height: " + s.Value + "px"
	case "f":
		if name, ok := formatLabels[s.Value]; ok {
			base = "Convert to " + name
		} else {
			base = "Format: " + s.Value
		}
	case "e":
		if name, ok := effectLabels[s.Value]; ok {
			base = name
		} else {
			base = "Effect: " + s.Value
		}
	default:
		base = s.Operator + ": " + s.Value
	}
	if len(s.Args) == 0 {
		return base
	}
	parts := make([]string, len(s.Args))
	for i, a := range s.Args {
		parts[i] = fmt.Sprintf("%s: %q", a.Name, a.Value)
	}
	return base + " (" + strings.Join(parts, "; ") + ")"
}

// Explain renders segments as a bulleted list for the user.
func Explain(segments []Segment) string {
	var b strings.Builder
	for i, s := range segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "• %s (`%s`)", s.Label, s.Token)
	}
	return b.String()
}
