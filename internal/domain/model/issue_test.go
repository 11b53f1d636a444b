package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
)

func TestIssue_FieldValue(t *testing.T) {
	issue := model.Issue{
		Key: "HA-1",
		Fields: map[string]any{
			"Release Notes": "Fixed login",
			"Empty":         "",
			"Missing value": nil,
			"Impact":        map[string]any{"self": "https://jira/option/1", "value": "High", "id": "1"},
			"Components":    []any{map[string]any{"value": "UI"}, "API", nil},
			"Story Points":  float64(3),
			"No value key":  map[string]any{"name": "x"},
		},
	}

	tests := []struct {
		name   string
		field  string
		want   string
		wantOK bool
	}{
		{name: "plain string", field: "Release Notes", want: "Fixed login", wantOK: true},
		{name: "empty string is present", field: "Empty", want: "", wantOK: true},
		{name: "null value", field: "Missing value", want: "", wantOK: false},
		{name: "absent field", field: "Nope", want: "", wantOK: false},
		{name: "option object", field: "Impact", want: "High", wantOK: true},
		{name: "list of options", field: "Components", want: "UI, API", wantOK: true},
		{name: "number", field: "Story Points", want: "3", wantOK: true},
		{name: "object without value", field: "No value key", want: "map[name:x]", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := issue.FieldValue(tt.field)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIssue_FieldValue_NilFields(t *testing.T) {
	v, ok := model.Issue{}.FieldValue("anything")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestIssue_HasField(t *testing.T) {
	issue := model.Issue{Fields: map[string]any{
		"Release Notes": "",
		"Impact":        []any{},
		"Details":       nil,
	}}

	assert.True(t, issue.HasField("Release Notes"))
	assert.True(t, issue.HasField("Impact"))
	assert.False(t, issue.HasField("Details"))
	assert.False(t, issue.HasField("Missing"))
	assert.False(t, model.Issue{}.HasField("Release Notes"))
}

func TestIssue_FirstLabelIn(t *testing.T) {
	issue := model.Issue{Labels: []string{"backend", "noreleasenotes", "internal"}}
	set := map[string]struct{}{"internal": {}, "noreleasenotes": {}}

	label, ok := issue.FirstLabelIn(set)
	assert.True(t, ok)
	assert.Equal(t, "noreleasenotes", label)

	_, ok = issue.FirstLabelIn(map[string]struct{}{"other": {}})
	assert.False(t, ok)
}

func TestIssue_HasPriority(t *testing.T) {
	assert.True(t, model.Issue{Priority: "Low"}.HasPriority())
	assert.False(t, model.Issue{}.HasPriority())
}
