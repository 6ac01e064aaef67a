package feed

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"go-sentinel/internal/hierarchy"
)

// StateResolver implements engine.Resolver over the discordgo session
// state cache, falling back to the REST API when the cache misses.
type StateResolver struct {
	session *discordgo.Session
}

func NewStateResolver(session *discordgo.Session) *StateResolver {
	return &StateResolver{session: session}
}

func (r *StateResolver) GuildOwnerID(guildID string) (string, error) {
	guild, err := r.guild(guildID)
	if err != nil {
		return "", err
	}
	return guild.OwnerID, nil
}

func (r *StateResolver) Subject(guildID, userID string) (hierarchy.Subject, error) {
	guild, err := r.guild(guildID)
	if err != nil {
		return hierarchy.Subject{ID: userID}, err
	}

	member, err := r.session.State.Member(guildID, userID)
	if err != nil {
		member, err = r.session.GuildMember(guildID, userID)
		if err != nil {
			return hierarchy.Subject{ID: userID}, fmt.Errorf("member %s: %w", userID, err)
		}
	}

	return hierarchy.Subject{
		ID:      userID,
		RoleIDs: member.Roles,
		TopRole: topRolePosition(guild, member.Roles),
		IsOwner: guild.OwnerID == userID,
	}, nil
}

func (r *StateResolver) BotSubject(guildID string) (hierarchy.Subject, error) {
	if r.session.State.User == nil {
		return hierarchy.Subject{}, fmt.Errorf("bot identity not ready")
	}
	return r.Subject(guildID, r.session.State.User.ID)
}

func (r *StateResolver) guild(guildID string) (*discordgo.Guild, error) {
	guild, err := r.session.State.Guild(guildID)
	if err != nil {
		guild, err = r.session.Guild(guildID)
		if err != nil {
			return nil, fmt.Errorf("guild %s: %w", guildID, err)
		}
	}
	return guild, nil
}

func topRolePosition(guild *discordgo.Guild, roleIDs []string) int {
	positions := make(map[string]int, len(guild.Roles))
	for _, role := range guild.Roles {
		positions[role.ID] = role.Position
	}

	top := 0
	for _, id := range roleIDs {
		if pos, ok := positions[id]; ok && pos > top {
			top = pos
		}
	}
	return top
}

// RemoveRole implements sweep.RoleRemover for timed role removals.
func (r *StateResolver) RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return r.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
}
