package domain

import (
	"context"
	"time"
)

// BackupDescriptor describes a simulated backup. No data is copied.
type BackupDescriptor struct {
	ID               string    `json:"id"`
	Operation        string    `json:"operation"`
	Tables           []string  `json:"tables"`
	TableCount       int       `json:"tableCount"`
	SizeBytes        int64     `json:"sizeBytes"`
	CompressedBytes  int64     `json:"compressedBytes"`
	RecordCount      int64     `json:"recordCount"`
	CompressionRatio float64   `json:"compressionRatio"`
	Checksum         string    `json:"checksum"`
	CreatedAt        time.Time `json:"createdAt"`
}

// BackupAnalysis is produced by the backup agent.
type BackupAnalysis struct {
	AnalysisBase
	Backup BackupDescriptor `json:"backup"`
}

func (*BackupAnalysis) Kind() AgentType { return AgentBackup }

// Catalog lists the tables of the managed data store.
// Failures are returned as errors, never as an empty list.
type Catalog interface {
	ListTables(ctx context.Context, schema string) ([]string, error)
}
