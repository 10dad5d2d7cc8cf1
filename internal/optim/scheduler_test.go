package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/nn"
)

func singleParamGroups(rows, cols int) []ParameterGroup {
	return []ParameterGroup{{
		Params: []nn.NamedParameter{{
			Name:  "dense.weight",
			Value: mat.NewDense(rows, cols, nil),
			Grad:  mat.NewDense(rows, cols, nil),
		}},
	}}
}

func TestWarmupThenLinearDecay(t *testing.T) {
	optimizer := NewSGD(singleParamGroups(1, 1), 1.0)
	scheduler := NewWarmupLinearSchedule(optimizer, 10, 100)

	// warmup starts at zero
	assert.Equal(t, 0.0, optimizer.LearningRate())

	for step := 0; step < 5; step++ {
		scheduler.Step()
	}
	assert.InDelta(t, 0.5, optimizer.LearningRate(), 1e-12)

	for step := 5; step < 10; step++ {
		scheduler.Step()
	}
	assert.InDelta(t, 1.0, optimizer.LearningRate(), 1e-12)

	for step := 10; step < 55; step++ {
		scheduler.Step()
	}
	assert.InDelta(t, 0.5, optimizer.LearningRate(), 1e-12)

	for step := 55; step < 100; step++ {
		scheduler.Step()
	}
	assert.InDelta(t, 0.0, optimizer.LearningRate(), 1e-12)
}

func TestScheduleBeyondTotalStaysAtZero(t *testing.T) {
	optimizer := NewSGD(singleParamGroups(1, 1), 0.1)
	scheduler := NewWarmupLinearSchedule(optimizer, 0, 4)

	for step := 0; step < 10; step++ {
		scheduler.Step()
	}

	assert.Equal(t, 0.0, optimizer.LearningRate())
	assert.Equal(t, 10, scheduler.CurrentStep())
}

func TestZeroWarmupStartsAtBaseRate(t *testing.T) {
	optimizer := NewSGD(singleParamGroups(1, 1), 0.1)
	scheduler := NewWarmupLinearSchedule(optimizer, 0, 10)
	require.NotNil(t, scheduler)

	assert.InDelta(t, 0.1, optimizer.LearningRate(), 1e-12)
}
