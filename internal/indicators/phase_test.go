package indicators_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/lateshot/internal/domain"
	"github.com/alejandrodnm/lateshot/internal/indicators"
)

func marketClosingAt(close time.Time) domain.Market {
	return domain.Market{
		ConditionID:    "0xphase",
		Asset:          domain.AssetBTC,
		Question:       "Will BTC be up at close?",
		CloseTimestamp: close,
	}
}

func TestPhaseDetector_Boundaries(t *testing.T) {
	d := indicators.NewPhaseDetector()
	start := time.Unix(10000, 0)
	m := marketClosingAt(start.Add(15 * time.Minute))

	cases := []struct {
		elapsed time.Duration
		want    domain.MarketPhase
	}{
		{0, domain.PhaseEarly},
		{4 * time.Minute, domain.PhaseEarly},
		{5 * time.Minute, domain.PhaseTransition},
		{10 * time.Minute, domain.PhaseTransition},
		{11 * time.Minute, domain.PhaseLate},
		{14 * time.Minute, domain.PhaseLate},
	}
	for _, tc := range cases {
		info := d.Detect(m, 0.6, 0.4, start.Add(tc.elapsed))
		assert.Equal(t, tc.want, info.Phase, "elapsed=%s", tc.elapsed)
	}
}

func TestPhaseDetector_Closed(t *testing.T) {
	d := indicators.NewPhaseDetector()
	start := time.Unix(10000, 0)
	m := marketClosingAt(start.Add(15 * time.Minute))

	info := d.Detect(m, 0.6, 0.4, start.Add(16*time.Minute))
	assert.Equal(t, domain.PhaseClosed, info.Phase)
	assert.InDelta(t, 1.0, info.Confidence, 0.001)
	assert.InDelta(t, 1.0, info.ElapsedPct, 0.001)
}

func TestPhaseDetector_StabilityDefaultsWithOneSample(t *testing.T) {
	d := indicators.NewPhaseDetector()
	start := time.Unix(10000, 0)
	m := marketClosingAt(start.Add(15 * time.Minute))

	info := d.Detect(m, 0.6, 0.4, start.Add(12*time.Minute))
	assert.InDelta(t, 0.5, info.LeaderStability, 0.001)
}

func TestPhaseDetector_StabilityTracksLeaderFlips(t *testing.T) {
	d := indicators.NewPhaseDetector()
	start := time.Unix(10000, 0)
	m := marketClosingAt(start.Add(15 * time.Minute))

	// Líder YES durante 9 ticks, luego cambia a NO.
	for i := 0; i < 9; i++ {
		d.Detect(m, 0.6, 0.4, start.Add(time.Duration(11*60+i*5)*time.Second))
	}
	info := d.Detect(m, 0.4, 0.6, start.Add(time.Duration(11*60+45)*time.Second))

	// Solo 1 de 10 muestras tiene al líder actual (NO).
	assert.InDelta(t, 0.1, info.LeaderStability, 0.001)
	assert.Less(t, info.Confidence, 0.5)
}

func TestPhaseDetector_ReversalDecaysWithTimeAndExtremes(t *testing.T) {
	d := indicators.NewPhaseDetector()
	start := time.Unix(10000, 0)
	m := marketClosingAt(start.Add(15 * time.Minute))

	early := d.Detect(m, 0.55, 0.45, start.Add(time.Minute))
	late := d.Detect(m, 0.55, 0.45, start.Add(14*time.Minute))
	assert.Greater(t, early.ReversalProb, late.ReversalProb)

	extreme := d.Detect(m, 0.95, 0.05, start.Add(time.Minute))
	assert.Greater(t, early.ReversalProb, extreme.ReversalProb)
}

func TestPhaseDetector_Cleanup(t *testing.T) {
	d := indicators.NewPhaseDetector()
	start := time.Unix(10000, 0)
	m := marketClosingAt(start.Add(15 * time.Minute))

	d.Detect(m, 0.6, 0.4, start.Add(time.Minute))
	assert.Equal(t, 1, d.TrackedMarkets())

	d.Cleanup(m.ConditionID)
	assert.Zero(t, d.TrackedMarkets())
}
