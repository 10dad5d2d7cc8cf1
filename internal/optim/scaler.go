package optim

import (
	"math"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/nn"
)

// GradScaler implements dynamic loss scaling for mixed-precision training.
// The backward pass runs with the loss multiplied by the current scale so
// small gradients survive the reduced-precision format; before clipping the
// gradients are unscaled, and a step that produced non-finite gradients is
// skipped while the scale backs off.
type GradScaler struct {
	scale          float64
	growthFactor   float64
	backoffFactor  float64
	growthInterval int

	goodSteps int
	foundInf  bool
	unscaled  bool
}

func NewGradScaler() *GradScaler {
	return &GradScaler{
		scale:          65536.0,
		growthFactor:   2.0,
		backoffFactor:  0.5,
		growthInterval: 2000,
	}
}

// ScaleFactor returns the multiplier the backward pass must apply to the
// loss.
func (s *GradScaler) ScaleFactor() float64 {
	return s.scale
}

// Unscale divides all gradients by the current scale and records whether any
// gradient is non-finite. It must run before gradient clipping.
func (s *GradScaler) Unscale(params []nn.NamedParameter) {
	inv := 1.0 / s.scale
	for _, p := range params {
		rows, cols := p.Grad.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				g := p.Grad.At(i, j) * inv
				if math.IsInf(g, 0) || math.IsNaN(g) {
					s.foundInf = true
				}
				p.Grad.Set(i, j, g)
			}
		}
	}
	s.unscaled = true
}

// Step applies the optimizer step unless the last unscale found non-finite
// gradients.
func (s *GradScaler) Step(optimizer Optimizer) {
	if s.foundInf {
		return
	}
	optimizer.Step()
}

// Update adjusts the scale after a step: back off when gradients overflowed,
// grow after a run of clean steps.
func (s *GradScaler) Update() {
	if s.foundInf {
		s.scale *= s.backoffFactor
		s.goodSteps = 0
	} else {
		s.goodSteps++
		if s.goodSteps%s.growthInterval == 0 {
			s.scale *= s.growthFactor
		}
	}
	s.foundInf = false
	s.unscaled = false
}
