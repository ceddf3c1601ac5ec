package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntegrityScore(t *testing.T) {
	tests := []struct {
		name   string
		issues []AuditIssue
		want   int
	}{
		{"no issues", nil, 100},
		{"critical and medium", []AuditIssue{{Severity: SeverityCritical}, {Severity: SeverityMedium}}, 70},
		{"one of each", []AuditIssue{
			{Severity: SeverityCritical}, {Severity: SeverityHigh},
			{Severity: SeverityMedium}, {Severity: SeverityLow},
		}, 50},
		{"unknown severity is free", []AuditIssue{{Severity: "cosmetic"}}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IntegrityScore(tt.issues))
		})
	}
}

func TestIntegrityScoreFloorsAtZero(t *testing.T) {
	issues := make([]AuditIssue, 12)
	for i := range issues {
		issues[i].Severity = SeverityCritical
	}
	assert.Equal(t, 0, IntegrityScore(issues))
}
