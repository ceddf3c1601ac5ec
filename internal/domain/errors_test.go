package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Backup.Analyze", ErrUnknownOperation, "operation \"nightly\"")
	want := "Backup.Analyze: operation \"nightly\": unknown agent operation"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorFormatNoDetail(t *testing.T) {
	err := NewDomainError("Catalog.ListTables", ErrCatalog, "")
	want := "Catalog.ListTables: catalog query failed"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("Research.Conduct", ErrResearch, "searxng")
	if !errors.Is(err, ErrResearch) {
		t.Error("errors.Is should match ErrResearch")
	}
}

func TestErrorCodeOf_DirectSentinel(t *testing.T) {
	assert.Equal(t, CodeCatalog, ErrorCodeOf(ErrCatalog))
	assert.Equal(t, CodeRateLimit, ErrorCodeOf(ErrRateLimit))
	assert.Equal(t, CodeUnknown, ErrorCodeOf(nil))
	assert.Equal(t, CodeUnknown, ErrorCodeOf(errors.New("something else")))
}

func TestErrorCodeOf_CategorySentinels(t *testing.T) {
	tests := map[error]ErrorCode{
		ErrNotFound:     CodeNotFound,
		ErrInvalidInput: CodeInvalidInput,
		ErrTimeout:      CodeTimeout,
		ErrDuplicate:    CodeDuplicate,
		ErrUnauthorized: CodeUnauthorized,
	}
	for err, want := range tests {
		assert.Equal(t, want, ErrorCodeOf(fmt.Errorf("wrapped: %w", err)), err.Error())
	}
	assert.Len(t, errorCodeMap, 14, "one entry per declared sentinel")
}

func TestErrorCodeOf_SubSystem(t *testing.T) {
	err := NewSubSystemError("backup", "Backup.Analyze", ErrUnknownOperation, "x")
	assert.Equal(t, CodeBackupOperation, ErrorCodeOf(err))

	err = NewSubSystemError("market", "Pipeline.Stage", ErrUnknownOperation, "x")
	assert.Equal(t, CodeUnknownOperation, ErrorCodeOf(err))
}

func TestErrorCodeOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("run: %w", WrapOp("ListTables", ErrCatalog))
	assert.Equal(t, CodeCatalog, ErrorCodeOf(err))
	require.ErrorIs(t, err, ErrCatalog)
}

func TestWrapOpNil(t *testing.T) {
	assert.NoError(t, WrapOp("op", nil))
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(fmt.Errorf("x: %w", ErrResearchOpen)))
	assert.True(t, IsRetryableError(ErrRateLimit))
	assert.False(t, IsRetryableError(ErrUnknownOperation))
}
