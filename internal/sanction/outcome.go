package sanction

import "errors"

// Kind is the sanction being attempted at a step of the chain.
type Kind uint8

const (
	KindNone Kind = iota
	KindBan
	KindKick
	KindRevokePrivileges
)

func (k Kind) String() string {
	switch k {
	case KindBan:
		return "ban"
	case KindKick:
		return "kick"
	case KindRevokePrivileges:
		return "revoke_privileges"
	default:
		return "none"
	}
}

// ErrInsufficientAuthority marks a sanction attempt rejected for
// rank/permission reasons; the chain falls through to the next step.
var ErrInsufficientAuthority = errors.New("insufficient authority")

// Outcome is the terminal result of a punish call. Every call gets
// one; the chain never surfaces an error up the stack.
type Outcome struct {
	// Attempted is the last kind tried. KindNone when skipped.
	Attempted Kind
	Succeeded bool
	// Skipped means exemption or hierarchy denied before any attempt.
	Skipped bool
	// Reason carries the skip reason or, on failure, a summary of why
	// the chain exhausted.
	Reason string
}

func skipped(reason string) Outcome {
	return Outcome{Skipped: true, Reason: reason}
}

func succeeded(kind Kind) Outcome {
	return Outcome{Attempted: kind, Succeeded: true}
}

func allFailed(reason string) Outcome {
	return Outcome{Attempted: KindRevokePrivileges, Reason: reason}
}

// Describe renders the outcome for notifications and the incident
// log.
func (o Outcome) Describe() string {
	switch {
	case o.Skipped:
		return "skipped: " + o.Reason
	case o.Succeeded:
		return o.Attempted.String() + " succeeded"
	default:
		return "all sanctions failed: " + o.Reason
	}
}
