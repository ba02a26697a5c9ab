package models

import "time"

// Scenario is one (expected move, dispersion, utility) triple of the ACS decoder.
type Scenario struct {
	ExpectedMove float64 `json:"expected_move"`
	Dispersion   float64 `json:"dispersion"`
	Utility      float64 `json:"utility"`
}

// ACS holds action-conditioned scenarios indexed [action][batch][horizon].
type ACS [][][]Scenario

// Actions returns K.
func (a ACS) Actions() int { return len(a) }

// Horizons returns the number of horizons, or 0 for an empty structure.
func (a ACS) Horizons() int {
	if len(a) == 0 || len(a[0]) == 0 {
		return 0
	}
	return len(a[0][0])
}

// Batch returns the batch size, or 0 for an empty structure.
func (a ACS) Batch() int {
	if len(a) == 0 {
		return 0
	}
	return len(a[0])
}

// Inference is the output of one forward pass over the three timescales.
type Inference struct {
	BehaviorProbs [][]float64 `json:"behavior_probs"` // [B][5]
	ActionProbs   [][]float64 `json:"action_probs"`   // [B][3]
	ACS           ACS         `json:"acs"`
	Latent        [][]float64 `json:"latent"` // [B][H]
}

// Uncertainty is the Monte-Carlo predictive mean and its entropy.
type Uncertainty struct {
	BehaviorProbs [][]float64 `json:"behavior_probs"`
	ActionProbs   [][]float64 `json:"action_probs"`
	Entropy       float64     `json:"entropy"`
	Passes        int         `json:"passes"`
}

// GateDecision is the advisory output of the action gate.
type GateDecision struct {
	Best   []int       `json:"best"`   // [B]
	Scores [][]float64 `json:"scores"` // [B][K]
	Act    []bool      `json:"act"`    // [B]
	Tau    float64     `json:"tau"`
}

// SentinelStatus is the per-update drift report.
type SentinelStatus struct {
	Drift       bool    `json:"drift"`
	HighEntropy bool    `json:"high_entropy"`
	Safe        bool    `json:"safe"`
	KS          float64 `json:"ks"`
	Active      bool    `json:"active"`
	Size        int     `json:"size"`
}

// SentinelSnapshot is the persisted buffer of one symbol's sentinel.
type SentinelSnapshot struct {
	Symbol    string    `json:"symbol"`
	WindowRef int       `json:"window_ref"`
	WindowCur int       `json:"window_cur"`
	Buffer    []float64 `json:"buffer"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DecisionBatch bundles the full pipeline result for a batch of windows.
type DecisionBatch struct {
	Inference   Inference    `json:"inference"`
	Uncertainty Uncertainty  `json:"uncertainty"`
	Gate        GateDecision `json:"gate"`
	PhysicsLoss float64      `json:"physics_loss"`
	Regime      string       `json:"regime,omitempty"`
}

// Decision is a single-symbol decision as persisted and published.
type Decision struct {
	ID          string         `json:"id"`
	Symbol      string         `json:"symbol"`
	Regime      string         `json:"regime"`
	Timestamp   time.Time      `json:"timestamp"`
	Action      int            `json:"action"`
	ActionName  string         `json:"action_name"`
	Act         bool           `json:"act"`
	Tau         float64        `json:"tau"`
	Scores      []float64      `json:"scores"`
	Entropy     float64        `json:"entropy"`
	Behavior    []float64      `json:"behavior_probs"`
	ActionProbs []float64      `json:"action_probs"`
	PhysicsLoss float64        `json:"physics_loss"`
	Sentinel    SentinelStatus `json:"sentinel"`
}

// Observation is one scalar sample for the drift sentinel.
type Observation struct {
	Symbol    string    `json:"symbol"`
	Value     float64   `json:"value"`
	Entropy   float64   `json:"entropy"`
	Timestamp time.Time `json:"t"`
}
