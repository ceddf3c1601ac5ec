package agent

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesintel/internal/domain"
)

func newRegistryRunner(t domain.AgentType) *Runner {
	return NewRunner(Config{Type: t, DefaultOperation: "optimize", Phases: &fakePhases{}, Logger: newTestLogger()})
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry(newTestLogger())
	r := newRegistryRunner(domain.AgentDealValue)
	require.NoError(t, reg.Register(r))

	got, err := reg.Get(domain.AgentDealValue)
	require.NoError(t, err)
	assert.Same(t, r, got)
}

func TestRegistryDuplicate(t *testing.T) {
	reg := NewRegistry(newTestLogger())
	require.NoError(t, reg.Register(newRegistryRunner(domain.AgentAudit)))
	err := reg.Register(newRegistryRunner(domain.AgentAudit))
	require.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestRegistryGetNotFound(t *testing.T) {
	_, err := NewRegistry(newTestLogger()).Get(domain.AgentBackup)
	require.ErrorIs(t, err, domain.ErrAgentNotFound)
	assert.Equal(t, domain.CodeAgentNotFound, domain.ErrorCodeOf(err))
}

func TestRegistryListSorted(t *testing.T) {
	reg := NewRegistry(newTestLogger())
	for _, typ := range []domain.AgentType{domain.AgentSalesMaterials, domain.AgentAudit, domain.AgentDealValue} {
		require.NoError(t, reg.Register(newRegistryRunner(typ)))
	}
	dv, _ := reg.Get(domain.AgentDealValue)
	_, err := dv.Execute(context.Background(), "optimize", domain.AgentContext{})
	require.NoError(t, err)

	list := reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, domain.AgentAudit, list[0].AgentType)
	assert.Equal(t, domain.AgentDealValue, list[1].AgentType)
	assert.Equal(t, 1, list[1].SuccessCount)
	assert.Equal(t, []domain.AgentType{domain.AgentAudit, domain.AgentDealValue, domain.AgentSalesMaterials}, reg.Types())
}

func TestRegistryConcurrent(t *testing.T) {
	reg := NewRegistry(newTestLogger())
	require.NoError(t, reg.Register(newRegistryRunner(domain.AgentBackup)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = reg.Get(domain.AgentBackup)
			_ = reg.List()
		}()
	}
	wg.Wait()
}
