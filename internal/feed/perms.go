package feed

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// dangerousPerms is the permission set whose grant counts as an
// escalation: anything that lets a role nuke the guild or grant
// itself more power.
const dangerousPerms = discordgo.PermissionAdministrator |
	discordgo.PermissionManageServer |
	discordgo.PermissionBanMembers |
	discordgo.PermissionKickMembers |
	discordgo.PermissionManageRoles |
	discordgo.PermissionManageChannels |
	discordgo.PermissionManageWebhooks |
	discordgo.PermissionManageEmojis

// addedPermissions returns the bits present in updated but not in
// prior.
func addedPermissions(prior, updated int64) int64 {
	return (prior ^ updated) & updated
}

// hasDangerousElevation reports whether the diff grants any
// dangerous permission.
func hasDangerousElevation(prior, updated int64) bool {
	return addedPermissions(prior, updated)&dangerousPerms != 0
}

// rolePermCache remembers each role's last known permission bits so a
// role-update event can be diffed against its prior state. The
// session state has already applied the update by the time handlers
// run.
type rolePermCache struct {
	mu    sync.RWMutex
	perms map[string]int64
}

func newRolePermCache() *rolePermCache {
	return &rolePermCache{perms: make(map[string]int64)}
}

func (c *rolePermCache) get(roleID string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.perms[roleID]
	return p, ok
}

func (c *rolePermCache) set(roleID string, perms int64) {
	c.mu.Lock()
	c.perms[roleID] = perms
	c.mu.Unlock()
}

func (c *rolePermCache) delete(roleID string) {
	c.mu.Lock()
	delete(c.perms, roleID)
	c.mu.Unlock()
}
