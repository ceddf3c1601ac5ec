package audit

import "salesintel/internal/domain"

// Fixed audit samples. They are illustrative until the data store exposes
// real query statistics and policy metadata.

var sampleQueryStats = []domain.QueryStat{
	{Query: "SELECT * FROM deals WHERE owner_id = $1", Calls: 18420, AvgDurationMs: 42.5},
	{Query: "SELECT * FROM icp_profiles WHERE user_id = $1", Calls: 9310, AvgDurationMs: 3.1},
	{Query: "INSERT INTO activity_log (...) VALUES (...)", Calls: 55120, AvgDurationMs: 1.4},
}

var sampleSlowQueries = []domain.SlowQuery{
	{Query: "SELECT * FROM deals WHERE owner_id = $1 ORDER BY updated_at DESC", DurationMs: 1250, Table: "deals"},
	{Query: "SELECT count(*) FROM activity_log WHERE created_at > $1", DurationMs: 870, Table: "activity_log"},
}

var sampleIndexRecommendations = []domain.IndexRecommendation{
	{Table: "deals", Columns: []string{"owner_id", "updated_at"}, Reason: "Sequential scan on owner lookups sorted by recency", Impact: domain.LevelHigh},
	{Table: "activity_log", Columns: []string{"created_at"}, Reason: "Range scans over creation time", Impact: domain.LevelMedium},
}

// sampleIntegrityIssues scores 100 - 20 - 10 = 70.
var sampleIntegrityIssues = []domain.AuditIssue{
	{
		ID:             "orphaned-deals",
		Type:           "orphaned records",
		Table:          "deals",
		Severity:       domain.SeverityCritical,
		Description:    "Deals reference profiles that no longer exist",
		Recommendation: "Add a foreign key with ON DELETE CASCADE after cleaning orphans",
		AffectedRows:   37,
	},
	{
		ID:             "duplicate-icp-profiles",
		Type:           "duplicate records",
		Table:          "icp_profiles",
		Severity:       domain.SeverityMedium,
		Description:    "Multiple ICP profiles share the same user and name",
		Recommendation: "Deduplicate and add a unique constraint on (user_id, name)",
		AffectedRows:   12,
	},
}

var sampleRLSStatus = map[string]bool{
	"users":           true,
	"profiles":        true,
	"deals":           true,
	"icp_generations": false,
}

const samplePolicyCount = 14

var sampleSecurityIssues = []domain.SecurityIssue{
	{
		ID:             "rls-icp-generations",
		Type:           "row level security disabled",
		Table:          "icp_generations",
		Severity:       domain.SeverityHigh,
		Description:    "Rows are readable by any authenticated user",
		Recommendation: "Enable RLS and add an owner-only select policy",
	},
}
