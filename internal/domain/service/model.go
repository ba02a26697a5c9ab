package service

import (
	"context"

	"AstraMind/internal/domain/models"
	"AstraMind/pkg/nn"
	"AstraMind/pkg/tensor"
)

// Predictor runs one forward pass over the short, mid and long windows.
type Predictor interface {
	Forward(short, mid, long *tensor.Tensor3, mode nn.Mode) (models.Inference, error)
}

// UncertaintyEstimator averages stochastic passes into a predictive mean and entropy.
type UncertaintyEstimator interface {
	EstimateN(ctx context.Context, short, mid, long *tensor.Tensor3, passes int, seed int64) (models.Uncertainty, error)
}

// ActionGate selects an action per batch element and decides whether to act.
type ActionGate interface {
	Select(acs models.ACS, entropy, tau float64) (models.GateDecision, error)
}
