// Package backup implements the backup agent. It reports what a backup of
// the selected tables would look like; no data is read or written.
package backup

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"salesintel/internal/domain"
	"salesintel/internal/usecase/agent"
)

// Supported operations.
const (
	OpFull          = "full_backup"
	OpIncremental   = "incremental_backup"
	OpSafety        = "safety_backup"
	OpComprehensive = "comprehensive_backup"
)

const (
	bytesPerTable    = 1 << 20
	recordsPerTable  = 1000
	compressionRatio = 0.7

	// IncrementalScheduleThreshold is the table count above which full
	// backups should be replaced by an incremental schedule.
	IncrementalScheduleThreshold = 50
	largeBackupBytes             = 100 << 20
)

// CriticalTables is the static allow-list backed up by safety_backup.
// Only entries present in the catalog are included.
var CriticalTables = []string{"users", "profiles", "subscriptions", "icp_profiles", "deals"}

// RecentTables is the static allow-list backed up by incremental_backup.
// It stands in for real change tracking.
var RecentTables = []string{"icp_generations", "market_reports", "activity_log"}

// Options configures the backup agent.
type Options struct {
	Catalog    domain.Catalog
	Schema     string // default "public"
	Random     agent.Random
	ApplyDelay time.Duration
	Events     domain.EventPublisher
	Logger     *slog.Logger
}

type phases struct {
	catalog domain.Catalog
	schema  string
	rng     agent.Random
	sim     agent.Simulator
	now     func() time.Time
}

// New creates the backup agent.
func New(o Options) *agent.Runner {
	rng := o.Random
	if rng == nil {
		rng = agent.NewTimeSeededRandom()
	}
	schema := o.Schema
	if schema == "" {
		schema = "public"
	}
	return agent.NewRunner(agent.Config{
		Type:             domain.AgentBackup,
		DefaultOperation: OpFull,
		Operations:       []string{OpFull, OpIncremental, OpSafety, OpComprehensive},
		Phases: &phases{
			catalog: o.Catalog,
			schema:  schema,
			rng:     rng,
			sim:     agent.Simulator{BaseDelay: o.ApplyDelay, Random: rng},
			now:     time.Now,
		},
		Events: o.Events,
		Logger: o.Logger,
	})
}

func (p *phases) tablesFor(ctx context.Context, operation string) ([]string, error) {
	var allow []string
	switch operation {
	case OpSafety:
		allow = CriticalTables
	case OpIncremental:
		allow = RecentTables
	}
	if p.catalog == nil {
		if allow != nil {
			return append([]string(nil), allow...), nil
		}
		return nil, domain.NewSubSystemError("backup", "backup.tablesFor", domain.ErrCatalog, "no catalog configured")
	}
	tables, err := p.catalog.ListTables(ctx, p.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	if allow == nil {
		return tables, nil
	}
	// Allow-listed tables missing from the schema are skipped.
	present := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		present[t] = struct{}{}
	}
	out := make([]string, 0, len(allow))
	for _, t := range allow {
		if _, ok := present[t]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (p *phases) Analyze(ctx context.Context, operation string, _ domain.AgentContext) (domain.Analysis, error) {
	tables, err := p.tablesFor(ctx, operation)
	if err != nil {
		return nil, err
	}

	n := len(tables)
	size := float64(n) * bytesPerTable
	switch operation {
	case OpComprehensive:
		size *= 1.5
	case OpIncremental:
		size *= 0.3
	}

	now := p.now()
	desc := domain.BackupDescriptor{
		ID:               newBackupID(now),
		Operation:        operation,
		Tables:           tables,
		TableCount:       n,
		SizeBytes:        int64(size),
		CompressedBytes:  int64(size * compressionRatio),
		RecordCount:      int64(n) * recordsPerTable,
		CompressionRatio: compressionRatio,
		Checksum:         p.checksum(),
		CreatedAt:        now,
	}

	analysis := &domain.BackupAnalysis{Backup: desc}
	if n > IncrementalScheduleThreshold {
		analysis.Bottlenecks = append(analysis.Bottlenecks, "full backups scan every table")
		analysis.Opportunities = append(analysis.Opportunities, "incremental scheduling")
	}
	if desc.SizeBytes > largeBackupBytes {
		analysis.Bottlenecks = append(analysis.Bottlenecks, "backup window exceeds maintenance slot")
	}
	if operation == OpComprehensive {
		analysis.Opportunities = append(analysis.Opportunities, "tiered retention")
	}
	return analysis, nil
}

func (p *phases) Generate(_ context.Context, operation string, analysis domain.Analysis) ([]domain.Optimization, error) {
	a, ok := analysis.(*domain.BackupAnalysis)
	if !ok {
		return nil, fmt.Errorf("unexpected analysis %T", analysis)
	}
	var opts []domain.Optimization
	if a.Backup.TableCount > IncrementalScheduleThreshold {
		opts = append(opts, domain.Optimization{
			ID:          "backup-incremental-schedule-1",
			Type:        domain.OptimizationProcess,
			Title:       "Switch to incremental backups",
			Description: fmt.Sprintf("%d tables are copied on every full backup.", a.Backup.TableCount),
			Impact:      domain.LevelHigh,
			Effort:      domain.LevelMedium,
			Implementation: []string{
				"Run a weekly full backup",
				"Run incremental backups nightly",
			},
			Target: "database",
		})
	}
	if a.Backup.SizeBytes > largeBackupBytes {
		opts = append(opts, domain.Optimization{
			ID:             "backup-compression-1",
			Type:           domain.OptimizationProcess,
			Title:          "Raise backup compression level",
			Description:    fmt.Sprintf("Backup size is %d bytes before compression.", a.Backup.SizeBytes),
			Impact:         domain.LevelMedium,
			Effort:         domain.LevelLow,
			Implementation: []string{"Enable a stronger codec for archive tiers"},
			Target:         "storage",
		})
	}
	if operation == OpComprehensive {
		opts = append(opts, domain.Optimization{
			ID:          "backup-retention-1",
			Type:        domain.OptimizationRetention,
			Title:       "Define a tiered retention policy",
			Description: "Comprehensive backups accumulate without expiry.",
			Impact:      domain.LevelMedium,
			Effort:      domain.LevelLow,
			Implementation: []string{
				"Keep daily backups for 7 days",
				"Keep weekly backups for 4 weeks",
				"Keep monthly backups for 12 months",
			},
			Target: "storage",
		})
	}
	return append(opts, agent.BottleneckOptimizations(a)...), nil
}

func (p *phases) Apply(ctx context.Context, _ string, _ domain.Analysis, opts []domain.Optimization) (*domain.ApplyResults, error) {
	return p.sim.Apply(ctx, opts)
}

// checksum returns 64 random hex characters.
func (p *phases) checksum() string {
	var buf [32]byte
	for i := range buf {
		buf[i] = byte(p.rng.IntN(256))
	}
	return hex.EncodeToString(buf[:])
}

func newBackupID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return "bkp_" + ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
