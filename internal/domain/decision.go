package domain

// MarketPhase es la fase temporal de un mercado de 15 minutos.
type MarketPhase string

const (
	PhaseEarly      MarketPhase = "early"      // [0, 5min) — ruido alto, no operar
	PhaseTransition MarketPhase = "transition" // [5min, 11min) — el precio incorpora información
	PhaseLate       MarketPhase = "late"       // [11min, 15min) — ventana de entrada
	PhaseClosed     MarketPhase = "closed"
)

// PhaseInfo son las métricas de fase calculadas en cada tick de evaluación.
type PhaseInfo struct {
	Phase            MarketPhase
	ElapsedSeconds   float64
	RemainingSeconds float64
	ElapsedPct       float64 // 0.0 – 1.0
	Confidence       float64
	LeaderStability  float64 // fracción de muestras recientes con el mismo líder
	ReversalProb     float64 // probabilidad estimada de que el líder cambie
	SignalNoiseRatio float64 // mayor = señal más limpia
}

// EdgeResult es la salida del modelo de fair value para un mercado.
// Función pura de sus inputs — no se persiste.
type EdgeResult struct {
	FairValueYes    float64 // probabilidad estimada del resultado YES
	FairValueNo     float64 // 1 - FairValueYes
	YesPrice        float64 // precio YES cotizado
	NoPrice         float64 // precio NO cotizado
	EdgeYes         float64 // FairValueYes - YesPrice (positivo = infravalorado)
	EdgeNo          float64
	BestSide        string  // "YES" | "NO"
	BestEdge        float64
	FeeAdjustedEdge float64 // BestEdge menos el fee fijo
	PriceChangePct  float64 // movimiento del subyacente en la ventana
	Confidence      float64 // 0 – 1
}

// SignalDirection es la acción discreta que emite el signal engine.
type SignalDirection string

const (
	BuyYes SignalDirection = "BUY_YES"
	BuyNo  SignalDirection = "BUY_NO"
	Hold   SignalDirection = "HOLD"
)

// Signal es la decisión agregada de todos los indicadores.
// Reasons[0] es siempre la razón vinculante (la que decide), por auditabilidad.
type Signal struct {
	Direction  SignalDirection
	Edge       float64
	Confidence float64
	Reasons    []string
}

// TradeDecision es lo que el engine emite por cada (mercado, tick) evaluado.
type TradeDecision struct {
	Market       Market
	Signal       Signal
	PhaseInfo    PhaseInfo
	EdgeResult   EdgeResult
	PositionSize float64 // USDC
	ShouldTrade  bool
	SkipReason   string
}
