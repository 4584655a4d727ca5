package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockBatchMutator adds batch relational backfill to mockMutator.
type mockBatchMutator struct {
	mockMutator
	batchCalls [][]string
}

func (m *mockBatchMutator) BackfillRelationalBatch(_ context.Context, actions []Action) error {
	keys := make([]string, 0, len(actions))
	for _, a := range actions {
		keys = append(keys, a.Key)
	}
	m.batchCalls = append(m.batchCalls, keys)
	return nil
}

func TestApplyPlan_UsesBatchBackfill(t *testing.T) {
	mutator := &mockBatchMutator{mockMutator: mockMutator{mockAdapter: &mockAdapter{
		relational: map[string]Item{},
		legacy:     map[string]Item{},
	}}}
	spec := &Spec{Adapter: mutator}

	plan := &ReconcilePlan{
		Actions: []Action{
			{Type: ActionBackfillRelational, Key: "1"},
			{Type: ActionBackfillRelational, Key: "2"},
			{Type: ActionBackfillLegacy, Key: "3"},
			{Type: ActionSyncLegacy, Key: "4"},
		},
	}

	executed, err := ApplyPlan(context.Background(), spec, plan, ReconcileOptions{Confirmed: true})
	assert.NoError(t, err)
	assert.Equal(t, 4, executed)

	assert.Len(t, mutator.batchCalls, 1, "Should use batch relational backfill")
	assert.Equal(t, []string{"1", "2"}, mutator.batchCalls[0])
	assert.Empty(t, mutator.backfilled, "Should NOT use individual backfill")
	assert.Equal(t, []string{"3", "4"}, mutator.written)
}
