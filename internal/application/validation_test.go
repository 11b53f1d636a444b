package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/relnotesgen/internal/application"
	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
)

func TestIssueValidator_FixVersionValid(t *testing.T) {
	v := application.NewIssueValidator([]string{"1.2.0", "1.2.1"}, nil)

	tests := []struct {
		name        string
		fixVersions string
		want        bool
	}{
		{name: "single match", fixVersions: "1.2.0", want: true},
		{name: "one of many", fixVersions: "1.1.0, 1.2.1", want: true},
		{name: "no match", fixVersions: "1.3.0", want: false},
		{name: "prefix is not a match", fixVersions: "1.2", want: false},
		{name: "empty", fixVersions: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.FixVersionValid(&model.ReportIssue{FixVersions: tt.fixVersions}))
		})
	}
}

func TestIssueValidator_FixVersionValid_NoConfiguredVersions(t *testing.T) {
	v := application.NewIssueValidator(nil, nil)

	assert.True(t, v.FixVersionValid(&model.ReportIssue{FixVersions: "anything"}))
	assert.True(t, v.FixVersionValid(&model.ReportIssue{}))
}

func TestIssueValidator_StateValid(t *testing.T) {
	v := application.NewIssueValidator(nil, []string{"Done", " Closed "})

	assert.True(t, v.StateValid(&model.ReportIssue{Status: "done"}))
	assert.True(t, v.StateValid(&model.ReportIssue{Status: "CLOSED "}))
	assert.False(t, v.StateValid(&model.ReportIssue{Status: "In Progress"}))
	assert.False(t, v.StateValid(&model.ReportIssue{}))
	assert.False(t, v.StateValid(nil))
}
