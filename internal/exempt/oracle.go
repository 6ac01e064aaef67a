// Package exempt decides whether an actor is immune to sanction.
package exempt

import (
	"go-sentinel/internal/config"
)

// Oracle gates every sanction decision. An exempt actor's actions are
// still recorded for audit visibility; they just never trigger a
// punishment.
type Oracle struct {
	absoluteOwners map[string]struct{}
}

func NewOracle(ownerIDs []string) *Oracle {
	owners := make(map[string]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = struct{}{}
	}
	return &Oracle{absoluteOwners: owners}
}

// IsAbsoluteOwner reports whether the actor is a bot owner, exempt in
// every guild.
func (o *Oracle) IsAbsoluteOwner(actorID string) bool {
	_, ok := o.absoluteOwners[actorID]
	return ok
}

// IsExempt reports whether the actor may not be sanctioned in the
// guild described by the profile: absolute bot owner, guild owner,
// whitelisted user, or holder of any whitelisted role.
func (o *Oracle) IsExempt(p *config.Profile, guildOwnerID, actorID string, actorRoleIDs []string) bool {
	if o.IsAbsoluteOwner(actorID) {
		return true
	}
	if guildOwnerID != "" && actorID == guildOwnerID {
		return true
	}
	if p == nil {
		return false
	}
	if _, ok := p.WhitelistUsers[actorID]; ok {
		return true
	}
	for _, roleID := range actorRoleIDs {
		if _, ok := p.WhitelistRoles[roleID]; ok {
			return true
		}
	}
	return false
}
