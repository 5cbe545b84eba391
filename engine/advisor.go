package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/calebres/thesis/gateway"
	"github.com/calebres/thesis/shared"
	"github.com/rs/zerolog"
)

const (
	// advisorRingSize is the number of recent advisory reads tracked for flip votes.
	advisorRingSize = 4
	// advisorFlipMajority is the number of agreeing reads required to publish a flip.
	advisorFlipMajority = 3
	// unstableCallInterval is the advisory call interval while the bias is unstable.
	unstableCallInterval = time.Minute
	// stableCallInterval is the advisory call interval while the bias is stable.
	stableCallInterval = time.Minute * 5
	// strongConfidence is the minimum confidence required to publish an advisory.
	strongConfidence = float64(65)
	// veryHighConfidence lets a flip through without ring agreement.
	veryHighConfidence = float64(90)
	// confidenceJumpDelta is the confidence rise that justifies a fresh publish.
	confidenceJumpDelta = float64(15)
	// minPublishGap is the minimum time between published advisories.
	minPublishGap = time.Minute * 2
	// refreshInterval republishes an unchanged advisory after this long.
	refreshInterval = time.Minute * 10
	// vwapDeadbandATR skips advisory calls while price sits this close to vwap.
	vwapDeadbandATR = 0.1
)

// Governor throttles advisory calls and gates advisory publishes.
type Governor struct {
	ring           [advisorRingSize]shared.Direction
	ringIdx        int
	ringCount      int
	lastCallOn     time.Time
	lastPublishOn  time.Time
	lastBias       shared.Direction
	lastConfidence float64
	lastKey        string
}

// observe records an advisory read in the ring.
func (g *Governor) observe(direction shared.Direction) {
	g.ring[g.ringIdx] = direction
	g.ringIdx = (g.ringIdx + 1) % advisorRingSize
	if g.ringCount < advisorRingSize {
		g.ringCount++
	}
}

// agreement counts how many tracked reads match the provided direction.
func (g *Governor) agreement(direction shared.Direction) int {
	var count int
	for idx := 0; idx < g.ringCount; idx++ {
		if g.ring[idx] == direction {
			count++
		}
	}

	return count
}

// stable reports whether the published bias is being consistently reaffirmed.
func (g *Governor) stable() bool {
	return g.lastBias != shared.Unclear && g.agreement(g.lastBias) >= advisorFlipMajority
}

// GovernorSnapshot represents the persisted governor state.
type GovernorSnapshot struct {
	Ring           []shared.Direction `json:"ring"`
	RingIdx        int                `json:"ringIdx"`
	LastPublishOn  time.Time          `json:"lastPublishOn"`
	LastBias       shared.Direction   `json:"lastBias"`
	LastConfidence float64            `json:"lastConfidence"`
	LastKey        string             `json:"lastKey"`
}

// snapshot captures the governor state for persistence.
func (g *Governor) snapshot() GovernorSnapshot {
	ring := make([]shared.Direction, g.ringCount)
	copy(ring, g.ring[:g.ringCount])

	return GovernorSnapshot{
		Ring:           ring,
		RingIdx:        g.ringIdx,
		LastPublishOn:  g.lastPublishOn,
		LastBias:       g.lastBias,
		LastConfidence: g.lastConfidence,
		LastKey:        g.lastKey,
	}
}

// restore reinstates the governor state from a snapshot.
func (g *Governor) restore(snapshot GovernorSnapshot) {
	g.ringCount = len(snapshot.Ring)
	if g.ringCount > advisorRingSize {
		g.ringCount = advisorRingSize
	}
	copy(g.ring[:], snapshot.Ring)
	g.ringIdx = snapshot.RingIdx % advisorRingSize
	g.lastPublishOn = snapshot.LastPublishOn
	g.lastBias = snapshot.LastBias
	g.lastConfidence = snapshot.LastConfidence
	g.lastKey = snapshot.LastKey
}

// AdvisorConfig represents the advisor configuration.
type AdvisorConfig struct {
	// Market is the market being advised on.
	Market string
	// Advise requests a secondary directional read from the model.
	Advise func(ctx context.Context, req *gateway.AdvisoryRequest) *gateway.Advice
	// PublishAdvisory relays a published advisory for processing.
	PublishAdvisory func(payload *shared.AdvisoryPayload) error
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Advisor maintains the secondary model-driven directional read. Calls are throttled
// on bias stability and publishes are gated so downstream consumers only see
// meaningful changes.
type Advisor struct {
	cfg      *AdvisorConfig
	governor Governor
}

// NewAdvisor initializes a new advisor.
func NewAdvisor(cfg *AdvisorConfig) *Advisor {
	return &Advisor{cfg: cfg}
}

// publishKey builds the dedupe key for an advisory read.
func publishKey(market string, direction shared.Direction, confidence float64) string {
	return fmt.Sprintf("%s|%s|%d", market, direction.String(), int(confidence)/10)
}

// Evaluate runs one advisory cycle: deadband check, call throttle, model call and
// publish gate.
func (a *Advisor) Evaluate(ctx context.Context, candles []*shared.Candlestick, forming *shared.FormingCandle, vwap float64, atr float64, now time.Time) error {
	if len(candles) == 0 {
		return nil
	}

	// Skip advisory churn while price chops around vwap.
	last := candles[len(candles)-1]
	if atr > 0 {
		distance := last.Close - vwap
		if distance < 0 {
			distance = -distance
		}
		if distance < vwapDeadbandATR*atr {
			return nil
		}
	}

	interval := unstableCallInterval
	if a.governor.stable() {
		interval = stableCallInterval
	}
	if now.Sub(a.governor.lastCallOn) < interval {
		return nil
	}
	a.governor.lastCallOn = now

	advice := a.cfg.Advise(ctx, &gateway.AdvisoryRequest{
		Market:     a.cfg.Market,
		ClosedBars: candles,
		Forming:    forming,
	})
	a.governor.observe(advice.Direction)

	if advice.Direction == shared.Unclear || advice.Confidence < strongConfidence {
		return nil
	}
	if now.Sub(a.governor.lastPublishOn) < minPublishGap && !a.governor.lastPublishOn.IsZero() {
		return nil
	}

	flip := a.governor.lastBias != shared.Unclear && advice.Direction != a.governor.lastBias
	jump := advice.Confidence-a.governor.lastConfidence >= confidenceJumpDelta
	refresh := a.governor.lastPublishOn.IsZero() ||
		now.Sub(a.governor.lastPublishOn) >= refreshInterval

	if !flip && !jump && !refresh {
		return nil
	}

	if flip {
		agreed := a.governor.agreement(advice.Direction)
		if agreed < advisorFlipMajority && advice.Confidence < veryHighConfidence && !advice.Override {
			a.cfg.Logger.Info().Msgf("suppressing %s advisory flip: %d/%d agreement",
				advice.Direction.String(), agreed, advisorRingSize)
			return nil
		}
	}

	key := publishKey(a.cfg.Market, advice.Direction, advice.Confidence)
	if key == a.governor.lastKey && !refresh {
		return nil
	}

	payload := &shared.AdvisoryPayload{
		Market:     a.cfg.Market,
		Bias:       advice.Direction,
		Confidence: advice.Confidence,
		Flip:       flip,
		Reason:     advice.Reason,
	}
	if err := a.cfg.PublishAdvisory(payload); err != nil {
		return fmt.Errorf("publishing advisory: %w", err)
	}

	a.governor.lastPublishOn = now
	a.governor.lastBias = advice.Direction
	a.governor.lastConfidence = advice.Confidence
	a.governor.lastKey = key

	return nil
}
