package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Issue is a tracker record as returned by the issue tracker adapter. The
// core only reads it.
type Issue struct {
	Key         string
	Self        string
	Summary     string
	TypeName    string
	IsSubtask   bool
	ParentKey   string
	Status      string
	Priority    string // Empty when the tracker reports no priority.
	Labels      []string
	FixVersions []string

	// Fields holds custom field values keyed by display name and by field id.
	// Values keep the shape the tracker returned: string, number, bool,
	// option object ({"value": ...}) or a list of those.
	Fields map[string]any
}

// HasPriority reports whether the tracker assigned a priority to the issue.
func (i Issue) HasPriority() bool {
	return i.Priority != ""
}

// FirstLabelIn returns the first label of the issue contained in set.
func (i Issue) FirstLabelIn(set map[string]struct{}) (string, bool) {
	for _, label := range i.Labels {
		if _, ok := set[label]; ok {
			return label, true
		}
	}
	return "", false
}

// HasField reports whether the named field is present with a non-null value.
// An empty string or an empty list still counts.
func (i Issue) HasField(name string) bool {
	return i.Fields[name] != nil
}

// FieldValue returns the named custom field as a string. ok is false when the
// field is absent or present without a value. Option objects exposing a
// "value" entry yield that entry; any other shape is stringified.
func (i Issue) FieldValue(name string) (string, bool) {
	raw, ok := i.Fields[name]
	if !ok || raw == nil {
		return "", false
	}
	return stringifyField(raw)
}

// optionValue matches the select-list shape {"self": ..., "value": ..., "id": ...}.
type optionValue struct {
	Value any `mapstructure:"value"`
}

func stringifyField(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case map[string]any:
		if inner, ok := decodeOption(v); ok {
			return stringifyField(inner)
		}
		return fmt.Sprint(v), true
	case []any:
		parts := make([]string, 0, len(v))
		for _, elem := range v {
			if s, ok := stringifyField(elem); ok && s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, ", "), true
	default:
		return fmt.Sprint(v), true
	}
}

// decodeOption extracts the "value" entry of an option object. ok is false
// when the object has no such entry.
func decodeOption(raw map[string]any) (any, bool) {
	var opt optionValue
	var md mapstructure.Metadata

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:   &opt,
		Metadata: &md,
	})
	if err != nil {
		return nil, false
	}
	if err := dec.Decode(raw); err != nil {
		return nil, false
	}

	return opt.Value, slices.Contains(md.Keys, "value")
}
