package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-sentinel/internal/clock"
	"go-sentinel/internal/config"
	"go-sentinel/internal/event"
	"go-sentinel/internal/exempt"
	"go-sentinel/internal/hierarchy"
	"go-sentinel/internal/notifier"
	"go-sentinel/internal/sanction"
	"go-sentinel/internal/strikes"
	"go-sentinel/internal/window"
)

type fakeResolver struct {
	ownerID  string
	subjects map[string]hierarchy.Subject
	err      error
}

func (f *fakeResolver) GuildOwnerID(string) (string, error) {
	return f.ownerID, f.err
}

func (f *fakeResolver) Subject(_, userID string) (hierarchy.Subject, error) {
	if f.err != nil {
		return hierarchy.Subject{}, f.err
	}
	if s, ok := f.subjects[userID]; ok {
		return s, nil
	}
	return hierarchy.Subject{ID: userID, TopRole: 1}, nil
}

func (f *fakeResolver) BotSubject(string) (hierarchy.Subject, error) {
	return hierarchy.Subject{ID: "bot", TopRole: 50}, f.err
}

type fakePunisher struct {
	outcomes []sanction.Outcome
	requests []sanction.Request
}

func (f *fakePunisher) Punish(_ context.Context, req sanction.Request) sanction.Outcome {
	f.requests = append(f.requests, req)
	if len(f.outcomes) > 0 {
		out := f.outcomes[0]
		f.outcomes = f.outcomes[1:]
		return out
	}
	return sanction.Outcome{Attempted: sanction.KindBan, Succeeded: true}
}

type fakeReporter struct {
	incidents []notifier.Incident
}

func (f *fakeReporter) Send(inc notifier.Incident) {
	f.incidents = append(f.incidents, inc)
}

type harness struct {
	engine   *Engine
	clock    *clock.Fake
	profiles *config.ProfileStore
	punisher *fakePunisher
	reporter *fakeReporter
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clk := clock.NewFake(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	profiles := config.NewProfileStore()
	punisher := &fakePunisher{}
	reporter := &fakeReporter{}
	resolver := &fakeResolver{ownerID: "guild-owner"}

	eng := New(
		clk,
		profiles,
		window.NewCounter(),
		strikes.NewLedger(nil),
		exempt.NewOracle(nil),
		punisher,
		resolver,
		reporter,
		nil,
		zap.NewNop(),
	)

	return &harness{
		engine:   eng,
		clock:    clk,
		profiles: profiles,
		punisher: punisher,
		reporter: reporter,
	}
}

func (h *harness) ban(actorID string, offset time.Duration) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	h.engine.HandleEvent(context.Background(), event.ActionEvent{
		GuildID:    "g1",
		ActorID:    actorID,
		Type:       event.ActionBan,
		TargetID:   "victim",
		OccurredAt: base.Add(offset),
	})
}

func TestThirdBanInWindowTriggersSanction(t *testing.T) {
	h := newHarness(t)

	h.ban("attacker", 0)
	h.ban("attacker", 2*time.Second)
	assert.Empty(t, h.punisher.requests)

	h.ban("attacker", 9*time.Second)

	require.Len(t, h.punisher.requests, 1)
	req := h.punisher.requests[0]
	assert.Equal(t, "g1", req.GuildID)
	assert.Equal(t, "attacker", req.Target.ID)
	assert.Equal(t, "guild-owner", req.GuildOwnerID)
	assert.Equal(t, "Mass ban (3 in window)", req.Reason)

	// One strike recorded, below the default limit of three.
	assert.Equal(t, 1, h.engine.Ledger().Count("g1", "attacker", config.DefaultStrikeExpiry, h.clock.Now()))
	require.Len(t, h.reporter.incidents, 1)
	assert.Equal(t, "Mass ban detected", h.reporter.incidents[0].Title)
}

func TestBansOutsideWindowDoNotAccumulate(t *testing.T) {
	h := newHarness(t)

	h.ban("attacker", 0)
	h.ban("attacker", 11*time.Second)
	h.ban("attacker", 22*time.Second)

	assert.Empty(t, h.punisher.requests)
	assert.Zero(t, h.engine.Ledger().Count("g1", "attacker", config.DefaultStrikeExpiry, h.clock.Now()))
}

func TestContinuedAbuseTriggersAgain(t *testing.T) {
	h := newHarness(t)

	h.ban("attacker", 0)
	h.ban("attacker", 2*time.Second)
	h.ban("attacker", 9*time.Second)
	require.Len(t, h.punisher.requests, 1)

	// A fourth ban still inside the window re-detects immediately.
	h.ban("attacker", 10*time.Second)

	require.Len(t, h.punisher.requests, 2)
	assert.Equal(t, "Mass ban (4 in window)", h.punisher.requests[1].Reason)
	assert.Equal(t, 2, h.engine.Ledger().Count("g1", "attacker", config.DefaultStrikeExpiry, h.clock.Now()))
}

func TestStrikeLimitEscalates(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.profiles.Update("g1", func(p *config.Profile) {
		p.StrikesToBan = 2
	}))

	h.ban("attacker", 0)
	h.ban("attacker", 2*time.Second)
	h.ban("attacker", 9*time.Second)
	require.Len(t, h.punisher.requests, 1)

	h.ban("attacker", 10*time.Second)

	// Second detection records the second strike, which crosses the
	// limit: exactly one extra punish call.
	require.Len(t, h.punisher.requests, 3)
	assert.Equal(t, "Exceeded strikes (2)", h.punisher.requests[2].Reason)
	require.Len(t, h.reporter.incidents, 3)
}

func TestWhitelistedActorNeverSanctioned(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.profiles.Update("g1", func(p *config.Profile) {
		p.WhitelistUsers["attacker"] = struct{}{}
	}))

	h.ban("attacker", 0)
	h.ban("attacker", 2*time.Second)
	h.ban("attacker", 4*time.Second)

	assert.Empty(t, h.punisher.requests)
	assert.Zero(t, h.engine.Ledger().Count("g1", "attacker", config.DefaultStrikeExpiry, h.clock.Now()))

	// Crossing the threshold while exempt still produces a notice.
	require.Len(t, h.reporter.incidents, 1)
	assert.Contains(t, h.reporter.incidents[0].Title, "whitelisted")
	assert.Equal(t, "ignored (exempt)", h.reporter.incidents[0].Outcome)
}

func TestExemptActorNotRecordedWhenDisabled(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.profiles.Update("g1", func(p *config.Profile) {
		p.WhitelistUsers["attacker"] = struct{}{}
		p.RecordExempt = false
	}))

	h.ban("attacker", 0)
	h.ban("attacker", 1*time.Second)
	h.ban("attacker", 2*time.Second)

	assert.Empty(t, h.reporter.incidents)
	assert.Zero(t, h.engine.Windows().TrackedKeys())
}

func TestGuildOwnerExemptByDefault(t *testing.T) {
	h := newHarness(t)

	h.ban("guild-owner", 0)
	h.ban("guild-owner", 1*time.Second)
	h.ban("guild-owner", 2*time.Second)

	assert.Empty(t, h.punisher.requests)
}

func TestUnknownActorDropped(t *testing.T) {
	h := newHarness(t)

	h.ban("", 0)
	h.ban("", time.Second)
	h.ban("", 2*time.Second)

	assert.Empty(t, h.punisher.requests)
	assert.Empty(t, h.reporter.incidents)
	assert.Zero(t, h.engine.Windows().TrackedKeys())
}

func TestResolverFailureStillSanctions(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	punisher := &fakePunisher{}
	eng := New(
		clk,
		config.NewProfileStore(),
		window.NewCounter(),
		strikes.NewLedger(nil),
		exempt.NewOracle(nil),
		punisher,
		&fakeResolver{err: errors.New("member not found")},
		&fakeReporter{},
		nil,
		zap.NewNop(),
	)

	base := clk.Now()
	for i := 0; i < 3; i++ {
		eng.HandleEvent(context.Background(), event.ActionEvent{
			GuildID:    "g1",
			ActorID:    "attacker",
			Type:       event.ActionBan,
			OccurredAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	require.Len(t, punisher.requests, 1)
	assert.Equal(t, "attacker", punisher.requests[0].Target.ID)
}

func TestActionTypesCountedSeparately(t *testing.T) {
	h := newHarness(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// Two bans and two kicks: neither threshold (3 and 5) is met.
	for i, typ := range []event.ActionType{event.ActionBan, event.ActionKick, event.ActionBan, event.ActionKick} {
		h.engine.HandleEvent(context.Background(), event.ActionEvent{
			GuildID:    "g1",
			ActorID:    "attacker",
			Type:       typ,
			OccurredAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	assert.Empty(t, h.punisher.requests)
}
