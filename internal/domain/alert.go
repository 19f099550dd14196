package domain

// AlertKind identifies which screen produced an alert.
type AlertKind string

const (
	AlertKindMotion AlertKind = "motion"
	AlertKindDeep   AlertKind = "deep"
)

// Valid reports whether the kind is a known screen kind.
func (k AlertKind) Valid() bool {
	return k == AlertKindMotion || k == AlertKindDeep
}

// CriterionResult records one screening criterion evaluation. Failed deep
// screens keep the partial checklist up to the first failing criterion.
type CriterionResult struct {
	Name      string  // criterion identifier
	Threshold float64 // configured bound
	Actual    float64 // observed value
	Pass      bool    // whether the criterion passed
}

// Alert represents a screening pass for a token.
// Corresponds to alerts table in PostgreSQL.
type Alert struct {
	AlertID      string             // PRIMARY KEY, deterministic hash
	Mint         string             // token mint address
	Kind         AlertKind          // motion | deep
	TriggeredAt  int64              // Unix timestamp in milliseconds
	MarketCapSOL float64            // market cap at trigger, SOL
	Features     map[string]float64 // feature vector at trigger
	Criteria     []CriterionResult  // evaluated checklist in order
	CreatedAt    int64              // record creation timestamp (ms)
}
