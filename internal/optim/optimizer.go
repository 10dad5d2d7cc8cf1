package optim

import (
	"github.com/UbiquitousLearning/AutoFedNLP/internal/nn"
)

// ParameterGroup is a named subset of model parameters with its own
// weight-decay treatment and optional learning-rate override (0 means the
// optimizer default applies).
type ParameterGroup struct {
	Params       []nn.NamedParameter
	WeightDecay  float64
	LearningRate float64
}

// Optimizer applies one update step to its parameter groups from the
// gradients accumulated on them.
type Optimizer interface {
	Step()
	SetLearningRate(lr float64)
	LearningRate() float64
	Groups() []ParameterGroup
	StepCount() int
}

func groupLearningRate(group ParameterGroup, defaultLR float64) float64 {
	if group.LearningRate > 0 {
		return group.LearningRate
	}
	return defaultLR
}
