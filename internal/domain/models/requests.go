package models

// Requests for the decision HTTP endpoints. Passes, regime and tau are left
// zero when absent so the engine applies its configured values.

// WindowSet carries the three timescale windows as [B][T][F] arrays.
type WindowSet struct {
	Short [][][]float64 `json:"short" validate:"required,min=1"`
	Mid   [][][]float64 `json:"mid" validate:"required,min=1"`
	Long  [][][]float64 `json:"long" validate:"required,min=1"`
}

type InferRequest struct {
	WindowSet
	Stochastic bool  `json:"stochastic"`
	Seed       int64 `json:"seed"`
}

type UncertaintyRequest struct {
	WindowSet
	Passes int   `json:"passes" validate:"omitempty,gte=1,lte=256"`
	Seed   int64 `json:"seed"`
}

type GateRequest struct {
	ACS     ACS      `json:"acs" validate:"required,min=1"`
	Entropy float64  `json:"entropy" validate:"gte=0"`
	Tau     *float64 `json:"tau"`
	Regime  string   `json:"regime" validate:"omitempty,oneof=whale institutional algo retail"`
}

type DecideRequest struct {
	WindowSet
	Passes int      `json:"passes" validate:"omitempty,gte=1,lte=256"`
	Tau    *float64 `json:"tau"`
	Regime string   `json:"regime" validate:"omitempty,oneof=whale institutional algo retail"`
	Seed   int64    `json:"seed"`
}

type DecideSymbolRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Regime string `query:"regime" json:"regime" validate:"omitempty,oneof=whale institutional algo retail"`
	N      int    `query:"n" json:"n" default:"64" validate:"gte=40,lte=512"`
}

type SentinelUpdateRequest struct {
	Symbol  string  `json:"symbol" validate:"required"`
	Value   float64 `json:"value"`
	Entropy float64 `json:"entropy" validate:"gte=0"`
}

type SentinelSymbolRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type PhysicsLossRequest struct {
	ACS     ACS         `json:"acs" validate:"required,min=1"`
	Volume  [][]float64 `json:"volume"`
	MaxMove float64     `json:"max_move" default:"0.2" validate:"gt=0"`
	Lambda  float64     `json:"lambda" validate:"gte=0"`
}

type EntropyVarianceRequest struct {
	Entropies []float64 `json:"entropies" validate:"required,min=2"`
}

type WeakLabelRequest struct {
	Probs  [][]float64 `json:"probs" validate:"required,min=1"`
	Labels []int       `json:"labels" validate:"required,min=1"`
}

type RecentDecisionsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}

type FeatureWindowRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m"`
	N      int    `query:"n" json:"n" default:"64" validate:"gte=40,lte=512"`
}
