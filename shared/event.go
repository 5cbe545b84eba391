package shared

import (
	"fmt"
	"time"
)

// EventType represents the type of a domain event.
type EventType int

const (
	MindStateUpdated EventType = iota
	ThesisEstablished
	ThesisCleared
	PullbackCaptured
	TradeEntered
	TradeExited
	AdvisoryPublished
)

// String stringifies the provided event type.
func (t EventType) String() string {
	switch t {
	case MindStateUpdated:
		return "MIND_STATE_UPDATED"
	case ThesisEstablished:
		return "THESIS_ESTABLISHED"
	case ThesisCleared:
		return "THESIS_CLEARED"
	case PullbackCaptured:
		return "PULLBACK_CAPTURED"
	case TradeEntered:
		return "TRADE_ENTERED"
	case TradeExited:
		return "TRADE_EXITED"
	case AdvisoryPublished:
		return "ADVISORY_PUBLISHED"
	default:
		return "UNKNOWN"
	}
}

// MindStatePayload carries the per-tick decision snapshot.
type MindStatePayload struct {
	Market           string
	Phase            Phase
	Regime           Regime
	ThesisDirection  Direction
	ThesisConfidence float64
	WaitReason       WaitReason
	TopCandidate     *Candidate
	CandidateCount   int
}

// ThesisPayload carries thesis establishment and clearing details.
type ThesisPayload struct {
	Market     string
	Direction  Direction
	Confidence float64
	Reason     string
}

// PullbackPayload carries a captured pullback extreme.
type PullbackPayload struct {
	Market       string
	Direction    Direction
	PullbackHigh float64
	PullbackLow  float64
}

// TradePayload carries trade entry and exit details.
type TradePayload struct {
	Market     string
	Direction  Direction
	EntryPrice float64
	ExitPrice  float64
	StopPrice  float64
	Targets    [2]float64
	Reason     WaitReason
}

// AdvisoryPayload carries a published advisory opinion.
type AdvisoryPayload struct {
	Market     string
	Bias       Direction
	Confidence float64
	Flip       bool
	Reason     string
}

// Event represents an outbound domain event. Exactly one payload field matching the
// event type must be set.
type Event struct {
	Type       EventType
	Timestamp  time.Time
	InstanceID string

	MindState *MindStatePayload
	Thesis    *ThesisPayload
	Pullback  *PullbackPayload
	Trade     *TradePayload
	Advisory  *AdvisoryPayload
}

// Validate asserts the event carries exactly the payload variant its type requires.
func (e *Event) Validate() error {
	if e.Timestamp.IsZero() {
		return fmt.Errorf("event timestamp cannot be zero")
	}
	if e.InstanceID == "" {
		return fmt.Errorf("event instance id cannot be an empty string")
	}

	var want int
	set := 0
	if e.MindState != nil {
		set++
	}
	if e.Thesis != nil {
		set++
	}
	if e.Pullback != nil {
		set++
	}
	if e.Trade != nil {
		set++
	}
	if e.Advisory != nil {
		set++
	}
	want = 1

	if set != want {
		return fmt.Errorf("event requires exactly %d payload, got %d", want, set)
	}

	switch e.Type {
	case MindStateUpdated:
		if e.MindState == nil {
			return fmt.Errorf("%s event requires a mind state payload", e.Type.String())
		}
	case ThesisEstablished, ThesisCleared:
		if e.Thesis == nil {
			return fmt.Errorf("%s event requires a thesis payload", e.Type.String())
		}
	case PullbackCaptured:
		if e.Pullback == nil {
			return fmt.Errorf("%s event requires a pullback payload", e.Type.String())
		}
	case TradeEntered, TradeExited:
		if e.Trade == nil {
			return fmt.Errorf("%s event requires a trade payload", e.Type.String())
		}
	case AdvisoryPublished:
		if e.Advisory == nil {
			return fmt.Errorf("%s event requires an advisory payload", e.Type.String())
		}
	default:
		return fmt.Errorf("unknown event type: %d", e.Type)
	}

	return nil
}
