package model

import (
	"sort"
	"strings"
)

// SplitDefectIDs splits a defect id field on commas and spaces. Tokens are
// trimmed, empty tokens dropped and the original order kept. The result is
// never nil.
func SplitDefectIDs(raw string) []string {
	ids := []string{}
	for _, token := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if token = strings.TrimSpace(token); token != "" {
			ids = append(ids, token)
		}
	}
	return ids
}

// NormalizeDefectID upper-cases a defect token and then restores the
// lower-case "efect" suffix of the prefix, so "DEFECT_9" and "defect_9" both
// become "Defect_9". Applying it twice yields the same result as once.
func NormalizeDefectID(id string) string {
	return strings.ReplaceAll(strings.ToUpper(id), "EFECT", "efect")
}

// JoinNonEmpty joins the non-empty parts with sep.
func JoinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// JoinPullRequestIDs returns the ids sorted and space-joined, or an empty
// string when there are none.
func JoinPullRequestIDs(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}
