package indicators

// phase.go — detección de fase para mercados de 15 minutos.
//
// La fase es función pura de la edad del mercado; el único estado es el
// histórico de líder por mercado, necesario para la estabilidad. Ese
// histórico debe liberarse con Cleanup al resolver el mercado o crece sin
// límite en ejecuciones largas.

import (
	"math"
	"time"

	"github.com/alejandrodnm/lateshot/internal/domain"
)

// Límites de fase en segundos sobre la duración total de 900s.
const (
	phaseEarlyEnd      = 300.0 // 5 min
	phaseTransitionEnd = 660.0 // 11 min

	leaderHistoryWindow = 60 // muestras recientes para la estabilidad
)

type leaderSample struct {
	at     time.Time
	leader string
}

// PhaseDetector calcula PhaseInfo por (mercado, tick). No es seguro para
// mutación concurrente: el engine lo posee y lo llama desde un solo goroutine.
type PhaseDetector struct {
	history map[string][]leaderSample
}

// NewPhaseDetector crea un detector sin histórico.
func NewPhaseDetector() *PhaseDetector {
	return &PhaseDetector{history: make(map[string][]leaderSample)}
}

// Detect determina la fase actual del mercado y sus métricas, registrando la
// observación de líder en el histórico del mercado.
func (d *PhaseDetector) Detect(m domain.Market, yesPrice, noPrice float64, now time.Time) domain.PhaseInfo {
	total := domain.MarketDuration.Seconds()
	remaining := m.Remaining(now)

	if remaining <= 0 {
		return domain.PhaseInfo{
			Phase:          domain.PhaseClosed,
			ElapsedSeconds: total,
			ElapsedPct:     1.0,
			Confidence:     1.0,
		}
	}

	elapsed := m.Elapsed(now)
	elapsedPct := elapsed / total

	var phase domain.MarketPhase
	switch {
	case elapsed < phaseEarlyEnd:
		phase = domain.PhaseEarly
	case elapsed < phaseTransitionEnd:
		phase = domain.PhaseTransition
	default:
		phase = domain.PhaseLate
	}

	currentLeader := "YES"
	if yesPrice < noPrice {
		currentLeader = "NO"
	}

	cid := m.ConditionID
	d.history[cid] = append(d.history[cid], leaderSample{at: now, leader: currentLeader})

	// Estabilidad: fracción de las últimas ≤60 muestras con el líder actual.
	stability := 0.5
	if hist := d.history[cid]; len(hist) >= 2 {
		recent := hist
		if len(recent) > leaderHistoryWindow {
			recent = recent[len(recent)-leaderHistoryWindow:]
		}
		same := 0
		for _, s := range recent {
			if s.leader == currentLeader {
				same++
			}
		}
		stability = float64(same) / float64(len(recent))
	}

	// La probabilidad de reversión decae al acercarse el cierre y al
	// extremarse el precio líder.
	baseReversal := 0.5 * (1 - elapsedPct)
	priceFactor := 1.0 - math.Abs(yesPrice-0.5)*2
	reversal := clamp01(baseReversal * priceFactor)

	snr := elapsedPct * stability * (1 + math.Abs(yesPrice-0.5))
	confidence := math.Min(1.0, stability*(0.5+elapsedPct))

	return domain.PhaseInfo{
		Phase:            phase,
		ElapsedSeconds:   elapsed,
		RemainingSeconds: remaining,
		ElapsedPct:       elapsedPct,
		Confidence:       confidence,
		LeaderStability:  stability,
		ReversalProb:     reversal,
		SignalNoiseRatio: snr,
	}
}

// Cleanup libera el histórico de líder de un mercado resuelto.
func (d *PhaseDetector) Cleanup(conditionID string) {
	delete(d.history, conditionID)
}

// TrackedMarkets devuelve cuántos mercados retienen histórico, para métricas.
func (d *PhaseDetector) TrackedMarkets() int {
	return len(d.history)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
