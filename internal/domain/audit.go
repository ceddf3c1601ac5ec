package domain

// Severity classifies an audit finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Penalty is the integrity-score deduction for one finding of this severity.
func (s Severity) Penalty() int {
	switch s {
	case SeverityCritical:
		return 20
	case SeverityHigh:
		return 15
	case SeverityMedium:
		return 10
	case SeverityLow:
		return 5
	default:
		return 0
	}
}

// IntegrityScore subtracts severity penalties from 100, floored at 0.
func IntegrityScore(issues []AuditIssue) int {
	score := 100
	for _, issue := range issues {
		score -= issue.Severity.Penalty()
	}
	if score < 0 {
		return 0
	}
	return score
}

// AuditIssue is a data-integrity finding.
type AuditIssue struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Table          string   `json:"table"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
	AffectedRows   int      `json:"affectedRows"`
}

// SecurityIssue is a security-audit finding.
type SecurityIssue struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Table          string   `json:"table,omitempty"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}

// QueryStat summarizes one query shape.
type QueryStat struct {
	Query         string  `json:"query"`
	Calls         int     `json:"calls"`
	AvgDurationMs float64 `json:"avgDurationMs"`
}

// SlowQuery is a query exceeding the slow threshold.
type SlowQuery struct {
	Query      string  `json:"query"`
	DurationMs float64 `json:"durationMs"`
	Table      string  `json:"table"`
}

// IndexRecommendation suggests a missing index.
type IndexRecommendation struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	Reason  string   `json:"reason"`
	Impact  Level    `json:"impact"`
}

// PerformanceAudit is the performance_audit section.
type PerformanceAudit struct {
	Tables               []string              `json:"tables"`
	QueryPerformance     []QueryStat           `json:"queryPerformance"`
	SlowQueries          []SlowQuery           `json:"slowQueries"`
	IndexRecommendations []IndexRecommendation `json:"indexRecommendations"`
}

// IntegrityAudit is the data_integrity_audit section.
type IntegrityAudit struct {
	Issues         []AuditIssue `json:"issues"`
	IntegrityScore int          `json:"integrityScore"`
}

// SecurityAudit is the security_audit section.
type SecurityAudit struct {
	RLSStatus   map[string]bool `json:"rlsStatus"`
	PolicyCount int             `json:"policyCount"`
	Issues      []SecurityIssue `json:"issues"`
}

// AuditReport merges whichever sections an audit operation produced.
type AuditReport struct {
	AnalysisBase
	Performance *PerformanceAudit `json:"performance,omitempty"`
	Integrity   *IntegrityAudit   `json:"integrity,omitempty"`
	Security    *SecurityAudit    `json:"security,omitempty"`
}

func (*AuditReport) Kind() AgentType { return AgentAudit }
