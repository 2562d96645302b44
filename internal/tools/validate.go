package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

// Validate checks raw JSON arguments against the spec for kind and returns the
// typed invocation. Empty arguments are treated as {}. Errors are
// ErrUnknownKind (wrapped), *DiscriminantError, or *ValidationError.
func (r *Registry) Validate(kind Kind, argsJSON string) (Invocation, error) {
	spec, ok := r.Lookup(kind)
	if !ok {
		return Invocation{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	raw, err := decodeArgs(argsJSON)
	if err != nil {
		return Invocation{}, &ValidationError{Kind: kind, Reason: err.Error()}
	}

	disc, present := raw[DiscriminantField]
	if !present || disc == nil {
		return Invocation{}, &ValidationError{Kind: kind, Field: DiscriminantField, Reason: "required"}
	}
	got, isString := disc.(string)
	if !isString {
		return Invocation{}, &ValidationError{Kind: kind, Field: DiscriminantField, Reason: "must be a string"}
	}
	if got != string(kind) {
		return Invocation{}, &DiscriminantError{Kind: kind, Got: got}
	}

	var unknown []string
	for name := range raw {
		if name == DiscriminantField {
			continue
		}
		if _, ok := spec.field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Invocation{}, &ValidationError{Kind: kind, Field: unknown[0], Reason: "unknown field"}
	}

	args := make(map[string]interface{}, len(spec.Fields))
	for _, f := range spec.Fields {
		v, present := raw[f.Name]
		if !present || v == nil {
			if f.Required {
				return Invocation{}, &ValidationError{Kind: kind, Field: f.Name, Reason: "required"}
			}
			continue
		}
		norm, reason := checkField(f, v)
		if reason != "" {
			return Invocation{}, &ValidationError{Kind: kind, Field: f.Name, Reason: reason}
		}
		args[f.Name] = norm
	}

	params := buildParams(kind, args)
	if params == nil {
		return Invocation{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return Invocation{params: params}, nil
}

func decodeArgs(argsJSON string) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(argsJSON)
	if trimmed == "" {
		return map[string]interface{}{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %v", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after arguments")
	}
	if raw == nil {
		return map[string]interface{}{}, nil
	}
	return raw, nil
}

// checkField returns the normalized value or a non-empty reason.
func checkField(f Field, v interface{}) (interface{}, string) {
	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, "must be a string"
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, "must not be empty"
		}
		return s, ""
	case TypeEnum:
		s, ok := v.(string)
		if !ok {
			return nil, "must be a string"
		}
		s = strings.ToLower(strings.TrimSpace(s))
		for _, allowed := range f.Enum {
			if s == allowed {
				return s, ""
			}
		}
		return nil, fmt.Sprintf("must be one of %s", strings.Join(f.Enum, ", "))
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, "must be a boolean"
		}
		return b, ""
	case TypeInteger:
		n, reason := toInt(v)
		if reason != "" {
			return nil, reason
		}
		switch f.Bound {
		case Positive:
			if n <= 0 {
				return nil, "must be a positive integer"
			}
		case NonNegative:
			if n < 0 {
				return nil, "must not be negative"
			}
		}
		return n, ""
	}
	return nil, "unsupported field type"
}

// toInt accepts JSON numbers with an integral value (800 or 800.0).
func toInt(v interface{}) (int, string) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, "must be an integer"
	}
	if i, err := num.Int64(); err == nil {
		if i > math.MaxInt32 || i < math.MinInt32 {
			return 0, "out of range"
		}
		return int(i), ""
	}
	f, err := num.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, "must be an integer"
	}
	if f != math.Trunc(f) {
		return 0, "must be an integer"
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, "out of range"
	}
	return int(f), ""
}
