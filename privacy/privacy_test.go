package privacy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/privacy"
)

// mockMutation implements tabula.Mutation for testing.
type mockMutation struct {
	op           tabula.Op
	entity       string
	data         tabula.EntityData
	system       bool
	systemWrites bool
}

func (m *mockMutation) Op() tabula.Op             { return m.op }
func (m *mockMutation) EntityName() string        { return m.entity }
func (m *mockMutation) Data() tabula.EntityData   { return m.data }
func (m *mockMutation) SystemEntity() bool        { return m.system }
func (m *mockMutation) SystemWritesEnabled() bool { return m.systemWrites }

func TestDecisionErrors(t *testing.T) {
	assert.True(t, errors.Is(privacy.Allowf("user %s", "a8m"), privacy.Allow))
	assert.True(t, errors.Is(privacy.Denyf("user %s", "a8m"), privacy.Deny))
	assert.True(t, errors.Is(privacy.Skipf("user %s", "a8m"), privacy.Skip))
	assert.Contains(t, privacy.Denyf("user %s", "a8m").Error(), "user a8m")
}

func TestFixedRules(t *testing.T) {
	ctx := context.Background()
	q := &tabula.Query{Entity: "users"}
	m := &mockMutation{op: tabula.OpCreate, entity: "users"}

	assert.True(t, errors.Is(privacy.AlwaysAllowRule().EvalQuery(ctx, q), privacy.Allow))
	assert.True(t, errors.Is(privacy.AlwaysDenyRule().EvalMutation(ctx, m), privacy.Deny))
}

func TestQueryPolicy(t *testing.T) {
	ctx := context.Background()
	q := &tabula.Query{Entity: "users"}

	tests := []struct {
		name    string
		policy  privacy.QueryPolicy
		wantErr error
	}{
		{
			name:    "empty policy allows",
			policy:  privacy.QueryPolicy{},
			wantErr: nil,
		},
		{
			name: "allow short-circuits deny",
			policy: privacy.QueryPolicy{
				privacy.AlwaysAllowRule(),
				privacy.AlwaysDenyRule(),
			},
			wantErr: nil,
		},
		{
			name: "skip falls through to deny",
			policy: privacy.QueryPolicy{
				privacy.ContextQueryMutationRule(func(context.Context) error { return privacy.Skip }),
				privacy.AlwaysDenyRule(),
			},
			wantErr: privacy.Deny,
		},
		{
			name: "all skips allow",
			policy: privacy.QueryPolicy{
				privacy.ContextQueryMutationRule(func(context.Context) error { return privacy.Skip }),
			},
			wantErr: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.EvalQuery(ctx, q)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tt.wantErr))
			}
		})
	}
}

func TestMutationPolicy(t *testing.T) {
	ctx := context.Background()
	m := &mockMutation{op: tabula.OpDeleteOne, entity: "users"}

	policy := privacy.MutationPolicy{
		privacy.DenyMutationOperationRule(tabula.OpDelete | tabula.OpDeleteOne),
		privacy.AlwaysAllowRule(),
	}
	err := policy.EvalMutation(ctx, m)
	assert.True(t, errors.Is(err, privacy.Deny))

	// Non-delete operations skip the deny rule.
	err = policy.EvalMutation(ctx, &mockMutation{op: tabula.OpCreate, entity: "users"})
	assert.NoError(t, err)
}

func TestOnEntity(t *testing.T) {
	ctx := context.Background()
	rule := privacy.OnEntity("orders", privacy.AlwaysDenyRule())

	err := rule.EvalQuery(ctx, &tabula.Query{Entity: "orders"})
	assert.True(t, errors.Is(err, privacy.Deny))
	err = rule.EvalQuery(ctx, &tabula.Query{Entity: "users"})
	assert.True(t, errors.Is(err, privacy.Skip))

	err = rule.EvalMutation(ctx, &mockMutation{entity: "orders"})
	assert.True(t, errors.Is(err, privacy.Deny))
	err = rule.EvalMutation(ctx, &mockMutation{entity: "users"})
	assert.True(t, errors.Is(err, privacy.Skip))
}

func TestPolicies(t *testing.T) {
	ctx := context.Background()
	q := &tabula.Query{Entity: "users"}

	allowAll := privacy.Policy{Query: privacy.QueryPolicy{privacy.AlwaysAllowRule()}}
	denyAll := privacy.Policy{Query: privacy.QueryPolicy{privacy.AlwaysDenyRule()}}

	// The first allow wins over a later deny.
	require.NoError(t, privacy.Policies{allowAll, denyAll}.EvalQuery(ctx, q))
	err := privacy.Policies{denyAll, allowAll}.EvalQuery(ctx, q)
	assert.True(t, errors.Is(err, privacy.Deny))
}

func TestDecisionContext(t *testing.T) {
	ctx := context.Background()
	q := &tabula.Query{Entity: "users"}
	policies := privacy.Policies{
		privacy.Policy{Query: privacy.QueryPolicy{privacy.AlwaysDenyRule()}},
	}

	// An Allow decision on the context overrides the policy chain.
	allowCtx := privacy.DecisionContext(ctx, privacy.Allow)
	require.NoError(t, policies.EvalQuery(allowCtx, q))

	// A Deny decision rejects before any rule runs.
	denyCtx := privacy.DecisionContext(ctx, privacy.Deny)
	err := privacy.Policies{}.EvalQuery(denyCtx, q)
	assert.True(t, errors.Is(err, privacy.Deny))

	// Skip and nil leave the context untouched.
	assert.Equal(t, ctx, privacy.DecisionContext(ctx, privacy.Skip))
	assert.Equal(t, ctx, privacy.DecisionContext(ctx, nil))
}

func TestFilterFunc(t *testing.T) {
	ctx := context.Background()
	rule := privacy.FilterFunc(func(_ context.Context, q *tabula.Query) error {
		q.Filter["tenant_id"] = "t1"
		return privacy.Skip
	})

	q := &tabula.Query{Entity: "users"}
	err := rule.EvalQuery(ctx, q)
	assert.True(t, errors.Is(err, privacy.Skip))
	assert.Equal(t, "t1", q.Filter["tenant_id"])
}
