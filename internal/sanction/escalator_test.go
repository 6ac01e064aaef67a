package sanction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-sentinel/internal/config"
	"go-sentinel/internal/exempt"
	"go-sentinel/internal/hierarchy"
)

type fakeExecutor struct {
	banErr    error
	kickErr   error
	revokeErr error
	calls     []string
}

func (f *fakeExecutor) Ban(_ context.Context, _, _, _ string) error {
	f.calls = append(f.calls, "ban")
	return f.banErr
}

func (f *fakeExecutor) Kick(_ context.Context, _, _, _ string) error {
	f.calls = append(f.calls, "kick")
	return f.kickErr
}

func (f *fakeExecutor) RevokePrivileges(_ context.Context, _, _, _ string) error {
	f.calls = append(f.calls, "revoke")
	return f.revokeErr
}

func newTestEscalator(exec Executor, profiles *config.ProfileStore) *Escalator {
	return NewEscalator(
		exec,
		exempt.NewOracle(nil),
		hierarchy.NewGuard(nil),
		profiles,
		time.Second,
		zap.NewNop(),
	)
}

func request() Request {
	return Request{
		GuildID: "g1",
		Reason:  "Mass ban (3 in window)",
		Actor:   hierarchy.Subject{ID: "bot", TopRole: 50},
		Target:  hierarchy.Subject{ID: "attacker", TopRole: 5},
		Enforcer: hierarchy.Subject{
			ID:      "bot",
			TopRole: 50,
		},
	}
}

func TestPunishBanSucceedsFirst(t *testing.T) {
	exec := &fakeExecutor{}
	e := newTestEscalator(exec, config.NewProfileStore())

	out := e.Punish(context.Background(), request())

	require.True(t, out.Succeeded)
	assert.Equal(t, KindBan, out.Attempted)
	assert.Equal(t, []string{"ban"}, exec.calls)
}

func TestPunishFallsThroughToKick(t *testing.T) {
	exec := &fakeExecutor{banErr: ErrInsufficientAuthority}
	e := newTestEscalator(exec, config.NewProfileStore())

	out := e.Punish(context.Background(), request())

	require.True(t, out.Succeeded)
	assert.Equal(t, KindKick, out.Attempted)
	assert.Equal(t, []string{"ban", "kick"}, exec.calls)
}

func TestPunishFallsThroughToRevoke(t *testing.T) {
	exec := &fakeExecutor{
		banErr:  errors.New("missing permissions"),
		kickErr: errors.New("missing permissions"),
	}
	e := newTestEscalator(exec, config.NewProfileStore())

	out := e.Punish(context.Background(), request())

	require.True(t, out.Succeeded)
	assert.Equal(t, KindRevokePrivileges, out.Attempted)
	assert.Equal(t, []string{"ban", "kick", "revoke"}, exec.calls)
}

func TestPunishChainExhausted(t *testing.T) {
	exec := &fakeExecutor{
		banErr:    errors.New("no"),
		kickErr:   errors.New("no"),
		revokeErr: errors.New("still no"),
	}
	e := newTestEscalator(exec, config.NewProfileStore())

	out := e.Punish(context.Background(), request())

	assert.False(t, out.Succeeded)
	assert.False(t, out.Skipped)
	assert.Contains(t, out.Reason, "still no")
	assert.Equal(t, []string{"ban", "kick", "revoke"}, exec.calls)
}

func TestPunishSkipsExemptTarget(t *testing.T) {
	exec := &fakeExecutor{}
	profiles := config.NewProfileStore()
	require.NoError(t, profiles.Update("g1", func(p *config.Profile) {
		p.WhitelistUsers["attacker"] = struct{}{}
	}))
	e := newTestEscalator(exec, profiles)

	out := e.Punish(context.Background(), request())

	assert.True(t, out.Skipped)
	assert.Equal(t, KindNone, out.Attempted)
	assert.Equal(t, "target is exempt", out.Reason)
	assert.Empty(t, exec.calls)
}

func TestPunishSkipsOnHierarchyDenial(t *testing.T) {
	exec := &fakeExecutor{}
	e := newTestEscalator(exec, config.NewProfileStore())

	req := request()
	req.Target.TopRole = 90 // outranks the bot

	out := e.Punish(context.Background(), req)

	assert.True(t, out.Skipped)
	assert.Empty(t, exec.calls)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "ban succeeded", succeeded(KindBan).Describe())
	assert.Equal(t, "skipped: target is exempt", skipped("target is exempt").Describe())
	assert.Contains(t, allFailed("last error: x").Describe(), "all sanctions failed")
}
