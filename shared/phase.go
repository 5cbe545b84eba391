package shared

// Phase represents the execution phase of the trade lifecycle.
type Phase int

const (
	WaitingForThesis Phase = iota
	WaitingForPullback
	WaitingForEntry
	InTrade
)

// String stringifies the provided phase.
func (p Phase) String() string {
	switch p {
	case WaitingForThesis:
		return "waiting for thesis"
	case WaitingForPullback:
		return "waiting for pullback"
	case WaitingForEntry:
		return "waiting for entry"
	case InTrade:
		return "in trade"
	default:
		return "unknown"
	}
}

// WaitReason represents the reason the execution state is holding in its current phase.
type WaitReason int

const (
	NoWaitReason WaitReason = iota
	AwaitingCandidates
	GatewayPassed
	GatewayUnavailable
	AwaitingPullback
	AwaitingEntryTrigger
	FlipDebounced
	StoppedOut
	TargetHit
)

// String stringifies the provided wait reason.
func (r WaitReason) String() string {
	switch r {
	case NoWaitReason:
		return "none"
	case AwaitingCandidates:
		return "awaiting_candidates"
	case GatewayPassed:
		return "gateway_passed"
	case GatewayUnavailable:
		return "gateway_unavailable"
	case AwaitingPullback:
		return "awaiting_pullback"
	case AwaitingEntryTrigger:
		return "awaiting_entry_trigger"
	case FlipDebounced:
		return "flip_debounced"
	case StoppedOut:
		return "stopped_out"
	case TargetHit:
		return "target_hit"
	default:
		return "unknown"
	}
}
