package event

import "time"

// ActionType identifies a category of privileged operation being
// rate-limited.
type ActionType uint8

const (
	ActionUnknown ActionType = iota
	ActionBan
	ActionKick
	ActionChannelCreate
	ActionChannelDelete
	ActionRoleCreate
	ActionRoleDelete
	ActionWebhookCreate
	ActionEmojiCreate
	ActionPermissionGrant
	ActionBotAdded
	ActionProtectedRoleGranted
)

// All lists every tracked action type, in a stable order.
var All = []ActionType{
	ActionBan,
	ActionKick,
	ActionChannelCreate,
	ActionChannelDelete,
	ActionRoleCreate,
	ActionRoleDelete,
	ActionWebhookCreate,
	ActionEmojiCreate,
	ActionPermissionGrant,
	ActionBotAdded,
	ActionProtectedRoleGranted,
}

func (t ActionType) String() string {
	switch t {
	case ActionBan:
		return "ban"
	case ActionKick:
		return "kick"
	case ActionChannelCreate:
		return "channel_create"
	case ActionChannelDelete:
		return "channel_delete"
	case ActionRoleCreate:
		return "role_create"
	case ActionRoleDelete:
		return "role_delete"
	case ActionWebhookCreate:
		return "webhook_create"
	case ActionEmojiCreate:
		return "emoji_create"
	case ActionPermissionGrant:
		return "permission_grant"
	case ActionBotAdded:
		return "bot_added"
	case ActionProtectedRoleGranted:
		return "protected_role_granted"
	default:
		return "unknown"
	}
}

// Label returns the human-readable incident name used in reasons and
// notification titles.
func (t ActionType) Label() string {
	switch t {
	case ActionBan:
		return "Mass ban"
	case ActionKick:
		return "Mass kick"
	case ActionChannelCreate:
		return "Mass channel create"
	case ActionChannelDelete:
		return "Mass channel delete"
	case ActionRoleCreate:
		return "Mass role create"
	case ActionRoleDelete:
		return "Mass role delete"
	case ActionWebhookCreate:
		return "Mass webhook create"
	case ActionEmojiCreate:
		return "Mass emoji create"
	case ActionPermissionGrant:
		return "Dangerous permission escalation"
	case ActionBotAdded:
		return "Unauthorized bot added"
	case ActionProtectedRoleGranted:
		return "Protected role granted"
	default:
		return "Malicious activity"
	}
}

// ActionEvent is one observed administrative action, already
// attributed to the actor who performed it. Immutable once built.
type ActionEvent struct {
	GuildID    string
	ActorID    string
	Type       ActionType
	TargetID   string
	OccurredAt time.Time
}
