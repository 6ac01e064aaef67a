// Package hierarchy is the single shared rank check used by both the
// automatic escalator and manually invoked moderation actions.
package hierarchy

// Subject is a resolved view of a guild member, sufficient for rank
// and exemption decisions.
type Subject struct {
	ID      string
	RoleIDs []string
	// TopRole is the position of the member's highest role. Higher
	// position outranks lower.
	TopRole int
	// IsOwner marks the guild owner.
	IsOwner bool
}

// Denial explains why an action was refused. Denials are outcomes,
// never errors: callers surface the reason and do nothing.
type Denial uint8

const (
	DenialNone Denial = iota
	SelfTargetDenied
	ProtectedTarget
	InsufficientRank
	EnforcerInsufficientRank
)

func (d Denial) String() string {
	switch d {
	case DenialNone:
		return ""
	case SelfTargetDenied:
		return "actor may not target itself"
	case ProtectedTarget:
		return "target is an owner or protected user"
	case InsufficientRank:
		return "actor rank does not exceed target rank"
	case EnforcerInsufficientRank:
		return "enforcing identity does not outrank target"
	default:
		return "denied"
	}
}

// Guard evaluates whether one subject may act destructively upon
// another.
type Guard struct {
	absoluteOwners map[string]struct{}
}

func NewGuard(ownerIDs []string) *Guard {
	owners := make(map[string]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = struct{}{}
	}
	return &Guard{absoluteOwners: owners}
}

func (g *Guard) isAbsolute(id string) bool {
	_, ok := g.absoluteOwners[id]
	return ok
}

// CanAct applies the rules in order: no self-targeting, no targeting
// owners/protected users unless the actor is itself an owner, actor
// must strictly outrank target (owners bypass this), and the enforcer
// (the bot) must outrank target regardless of who the actor is.
func (g *Guard) CanAct(actor, target, enforcer Subject) (bool, Denial) {
	if actor.ID == target.ID {
		return false, SelfTargetDenied
	}

	actorPrivileged := g.isAbsolute(actor.ID) || actor.IsOwner

	if g.isAbsolute(target.ID) || target.IsOwner {
		if !actorPrivileged {
			return false, ProtectedTarget
		}
	}

	if !actorPrivileged && actor.TopRole <= target.TopRole {
		return false, InsufficientRank
	}

	// The bot's own rank limits everyone, owners included.
	if enforcer.TopRole <= target.TopRole {
		return false, EnforcerInsufficientRank
	}

	return true, DenialNone
}
