package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelfTargetAlwaysDenied(t *testing.T) {
	g := NewGuard([]string{"root"})

	// Even an absolute owner cannot target themselves.
	ok, denial := g.CanAct(
		Subject{ID: "root", TopRole: 100},
		Subject{ID: "root", TopRole: 1},
		Subject{ID: "bot", TopRole: 50},
	)
	assert.False(t, ok)
	assert.Equal(t, SelfTargetDenied, denial)
}

func TestProtectedTargetDeniedForRegularActor(t *testing.T) {
	g := NewGuard([]string{"root"})

	ok, denial := g.CanAct(
		Subject{ID: "mod", TopRole: 10},
		Subject{ID: "owner", IsOwner: true, TopRole: 1},
		Subject{ID: "bot", TopRole: 50},
	)
	assert.False(t, ok)
	assert.Equal(t, ProtectedTarget, denial)

	ok, denial = g.CanAct(
		Subject{ID: "mod", TopRole: 10},
		Subject{ID: "root", TopRole: 1},
		Subject{ID: "bot", TopRole: 50},
	)
	assert.False(t, ok)
	assert.Equal(t, ProtectedTarget, denial)
}

func TestPrivilegedActorMayTargetProtected(t *testing.T) {
	g := NewGuard([]string{"root"})

	// Absolute owner acting on the guild owner passes the protected
	// check; only bot rank still applies.
	ok, denial := g.CanAct(
		Subject{ID: "root", TopRole: 0},
		Subject{ID: "owner", IsOwner: true, TopRole: 10},
		Subject{ID: "bot", TopRole: 50},
	)
	assert.True(t, ok)
	assert.Equal(t, DenialNone, denial)
}

func TestActorMustOutrankTarget(t *testing.T) {
	g := NewGuard(nil)

	ok, denial := g.CanAct(
		Subject{ID: "mod", TopRole: 5},
		Subject{ID: "member", TopRole: 5},
		Subject{ID: "bot", TopRole: 50},
	)
	assert.False(t, ok)
	assert.Equal(t, InsufficientRank, denial)

	ok, _ = g.CanAct(
		Subject{ID: "mod", TopRole: 6},
		Subject{ID: "member", TopRole: 5},
		Subject{ID: "bot", TopRole: 50},
	)
	assert.True(t, ok)
}

func TestGuildOwnerBypassesRankCheck(t *testing.T) {
	g := NewGuard(nil)

	ok, _ := g.CanAct(
		Subject{ID: "owner", IsOwner: true, TopRole: 0},
		Subject{ID: "admin", TopRole: 90},
		Subject{ID: "bot", TopRole: 100},
	)
	assert.True(t, ok)
}

func TestEnforcerMustOutrankTarget(t *testing.T) {
	g := NewGuard(nil)

	ok, denial := g.CanAct(
		Subject{ID: "owner", IsOwner: true, TopRole: 0},
		Subject{ID: "admin", TopRole: 90},
		Subject{ID: "bot", TopRole: 10},
	)
	assert.False(t, ok)
	assert.Equal(t, EnforcerInsufficientRank, denial)
}
