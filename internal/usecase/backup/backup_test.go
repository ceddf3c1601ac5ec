package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesintel/internal/domain"
	"salesintel/internal/usecase/agent"
)

type fakeCatalog struct {
	tables []string
	err    error
	calls  int
}

func (f *fakeCatalog) ListTables(context.Context, string) ([]string, error) {
	f.calls++
	return f.tables, f.err
}

func tables(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("t%02d", i)
	}
	return out
}

func newTestAgent(cat domain.Catalog) *agent.Runner {
	return New(Options{
		Catalog: cat,
		Random:  agent.NewRandom(3),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func backupOf(t *testing.T, res *domain.AgentResult) domain.BackupDescriptor {
	t.Helper()
	a, ok := res.Analysis.(*domain.BackupAnalysis)
	require.True(t, ok)
	return a.Backup
}

func TestBackupDescriptorShape(t *testing.T) {
	// Ten tables, every allow-listed one among them.
	all := append(append(tables(2), CriticalTables...), RecentTables...)
	cat := &fakeCatalog{tables: all}
	tests := []struct {
		op     string
		tables int
		size   int64
	}{
		{OpFull, 10, 10 << 20},
		{OpComprehensive, 10, 15 << 20},
		{OpSafety, len(CriticalTables), int64(len(CriticalTables)) << 20},
		{OpIncremental, len(RecentTables), int64(float64(len(RecentTables)) * (1 << 20) * 0.3)},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			cat.calls = 0
			res, err := newTestAgent(cat).Execute(context.Background(), tt.op, domain.AgentContext{})
			require.NoError(t, err)

			b := backupOf(t, res)
			assert.Equal(t, tt.tables, b.TableCount)
			assert.Equal(t, tt.size, b.SizeBytes)
			assert.Equal(t, int64(tt.tables)*1000, b.RecordCount)
			assert.Equal(t, 0.7, b.CompressionRatio)
			assert.Equal(t, int64(float64(b.SizeBytes)*0.7), b.CompressedBytes)
			assert.Len(t, b.Checksum, 64)
			assert.Regexp(t, `^bkp_[0-9A-Z]{26}$`, b.ID)
			assert.Equal(t, 1, cat.calls)
		})
	}
}

func TestAllowListBackupsSkipMissingTables(t *testing.T) {
	cat := &fakeCatalog{tables: []string{"deals", "t00", "activity_log", "users"}}

	res, err := newTestAgent(cat).Execute(context.Background(), OpSafety, domain.AgentContext{})
	require.NoError(t, err)
	b := backupOf(t, res)
	assert.Equal(t, []string{"users", "deals"}, b.Tables)
	assert.Equal(t, 2, b.TableCount)
	assert.Equal(t, int64(2)<<20, b.SizeBytes)

	res, err = newTestAgent(cat).Execute(context.Background(), OpIncremental, domain.AgentContext{})
	require.NoError(t, err)
	b = backupOf(t, res)
	assert.Equal(t, []string{"activity_log"}, b.Tables)
	assert.Equal(t, 1, b.TableCount)
}

func TestBackupCatalogFailurePropagates(t *testing.T) {
	boom := errors.New("connection refused")
	r := newTestAgent(&fakeCatalog{err: boom})

	res, err := r.Execute(context.Background(), OpFull, domain.AgentContext{})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, 1, r.Status().ErrorCount)
}

func TestBackupWithoutCatalog(t *testing.T) {
	r := newTestAgent(nil)
	_, err := r.Execute(context.Background(), OpComprehensive, domain.AgentContext{})
	require.ErrorIs(t, err, domain.ErrCatalog)

	// Allow-list operations fall back to the full list without a catalog.
	res, err := r.Execute(context.Background(), OpSafety, domain.AgentContext{})
	require.NoError(t, err)
	assert.Equal(t, CriticalTables, backupOf(t, res).Tables)
}

func TestBackupUnknownOperation(t *testing.T) {
	_, err := newTestAgent(&fakeCatalog{}).Execute(context.Background(), "restore", domain.AgentContext{})
	require.ErrorIs(t, err, domain.ErrUnknownOperation)
	assert.Equal(t, domain.CodeBackupOperation, domain.ErrorCodeOf(err))
}

func TestBackupRecommendations(t *testing.T) {
	res, err := newTestAgent(&fakeCatalog{tables: tables(120)}).Execute(context.Background(), OpComprehensive, domain.AgentContext{})
	require.NoError(t, err)

	var got []string
	for _, o := range res.Optimizations {
		got = append(got, o.ID)
	}
	assert.Equal(t, []string{
		"backup-incremental-schedule-1",
		"backup-compression-1",
		"backup-retention-1",
		"bottleneck-full-backups-scan-every-table",
		"bottleneck-backup-window-exceeds-maintenance-slot",
	}, got)
	assert.Equal(t, 5, res.Results.Applied+res.Results.Failed)

	res, err = newTestAgent(&fakeCatalog{tables: tables(5)}).Execute(context.Background(), OpFull, domain.AgentContext{})
	require.NoError(t, err)
	assert.Empty(t, res.Optimizations)
}

func TestBackupBottleneckRecommendations(t *testing.T) {
	res, err := newTestAgent(&fakeCatalog{tables: tables(51)}).Execute(context.Background(), OpFull, domain.AgentContext{})
	require.NoError(t, err)

	a, ok := res.Analysis.(*domain.BackupAnalysis)
	require.True(t, ok)
	require.Equal(t, []string{"full backups scan every table"}, a.Bottlenecks)
	require.Len(t, res.Optimizations, 1+len(a.Bottlenecks))
	assert.Equal(t, "backup-incremental-schedule-1", res.Optimizations[0].ID)
	assert.Equal(t, "bottleneck-full-backups-scan-every-table", res.Optimizations[1].ID)
	assert.Equal(t, domain.TargetAll, res.Optimizations[1].Target)
}
