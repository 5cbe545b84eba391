package engine

import (
	"time"

	"github.com/calebres/thesis/shared"
)

// thesisFlipMinInterval is the minimum time between accepted thesis direction flips.
const thesisFlipMinInterval = time.Minute * 2

// ThesisDebouncer rejects thesis direction flips that arrive before the minimum
// interval since the previously accepted direction has elapsed.
type ThesisDebouncer struct {
	direction   shared.Direction
	acceptedOn  time.Time
	minInterval time.Duration
}

// NewThesisDebouncer initializes a new thesis debouncer.
func NewThesisDebouncer(minInterval time.Duration) *ThesisDebouncer {
	if minInterval == 0 {
		minInterval = thesisFlipMinInterval
	}

	return &ThesisDebouncer{minInterval: minInterval}
}

// Accept reports whether the provided direction may become the active thesis at the
// provided time. Re-asserting the active direction never resets the flip window.
func (d *ThesisDebouncer) Accept(direction shared.Direction, now time.Time) bool {
	if direction == shared.Unclear {
		return false
	}

	if d.direction == shared.Unclear {
		d.direction = direction
		d.acceptedOn = now
		return true
	}

	if direction == d.direction {
		return true
	}

	if now.Sub(d.acceptedOn) < d.minInterval {
		return false
	}

	d.direction = direction
	d.acceptedOn = now

	return true
}

// Direction returns the currently accepted direction.
func (d *ThesisDebouncer) Direction() shared.Direction {
	return d.direction
}

// AcceptedOn returns the time the current direction was accepted.
func (d *ThesisDebouncer) AcceptedOn() time.Time {
	return d.acceptedOn
}

// Restore reinstates a previously accepted direction and time.
func (d *ThesisDebouncer) Restore(direction shared.Direction, acceptedOn time.Time) {
	d.direction = direction
	d.acceptedOn = acceptedOn
}
