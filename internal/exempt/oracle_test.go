package exempt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-sentinel/internal/config"
)

func TestAbsoluteOwnerAlwaysExempt(t *testing.T) {
	o := NewOracle([]string{"owner-1", "owner-2"})

	assert.True(t, o.IsAbsoluteOwner("owner-1"))
	assert.False(t, o.IsAbsoluteOwner("someone"))

	// Exempt even with no profile and no guild owner known.
	assert.True(t, o.IsExempt(nil, "", "owner-2", nil))
}

func TestGuildOwnerExempt(t *testing.T) {
	o := NewOracle(nil)
	p := config.NewProfile("g1")

	assert.True(t, o.IsExempt(p, "guild-owner", "guild-owner", nil))
	assert.False(t, o.IsExempt(p, "guild-owner", "member", nil))
}

func TestWhitelistedUserExempt(t *testing.T) {
	o := NewOracle(nil)
	p := config.NewProfile("g1")
	p.WhitelistUsers["trusted"] = struct{}{}

	assert.True(t, o.IsExempt(p, "owner", "trusted", nil))
	assert.False(t, o.IsExempt(p, "owner", "stranger", nil))
}

func TestWhitelistedRoleExempt(t *testing.T) {
	o := NewOracle(nil)
	p := config.NewProfile("g1")
	p.WhitelistRoles["mod-role"] = struct{}{}

	assert.True(t, o.IsExempt(p, "owner", "member", []string{"other", "mod-role"}))
	assert.False(t, o.IsExempt(p, "owner", "member", []string{"other"}))
	assert.False(t, o.IsExempt(p, "owner", "member", nil))
}

func TestNilProfileOnlyOwnersExempt(t *testing.T) {
	o := NewOracle([]string{"root"})

	assert.True(t, o.IsExempt(nil, "guild-owner", "guild-owner", nil))
	assert.True(t, o.IsExempt(nil, "", "root", nil))
	assert.False(t, o.IsExempt(nil, "", "member", []string{"role"}))
}
