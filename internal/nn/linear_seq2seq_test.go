package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModelConfig() ModelConfig {
	return ModelConfig{
		VocabSize:  8,
		DModel:     4,
		NumLayers:  1,
		PadTokenId: 0,
		BosTokenId: 1,
		EosTokenId: 2,
	}
}

func testInputs() *Inputs {
	return &Inputs{
		InputIds:      FromInts([][]int{{3, 4, 0, 0}, {5, 6, 7, 0}}),
		AttentionMask: FromInts([][]int{{1, 1, 0, 0}, {1, 1, 1, 0}}),
		DecoderInputIds: FromInts([][]int{
			{1, 3, 4},
			{1, 5, 6},
		}),
		Labels: FromInts([][]int{
			{3, 4, 2},
			{5, 6, 2},
		}),
	}
}

func TestForwardRequiresCompleteInputs(t *testing.T) {
	model := NewLinearSeq2Seq(testModelConfig(), 42)

	_, err := model.Forward(&Inputs{InputIds: FromInts([][]int{{3, 4}})})

	require.Error(t, err)
}

func TestForwardFailsWhenAllLabelsMasked(t *testing.T) {
	model := NewLinearSeq2Seq(testModelConfig(), 42)
	inputs := testInputs()
	inputs.Labels = FromInts([][]int{
		{-100, -100, -100},
		{-100, -100, -100},
	})

	_, err := model.Forward(inputs)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no unmasked label positions")
}

func TestMaskedPositionsDoNotChangeLoss(t *testing.T) {
	model := NewLinearSeq2Seq(testModelConfig(), 42)

	full, err := model.Forward(testInputs())
	require.NoError(t, err)

	inputs := testInputs()
	inputs.DecoderInputIds = FromInts([][]int{
		{1, 3, 4, 0},
		{1, 5, 6, 0},
	})
	inputs.Labels = FromInts([][]int{
		{3, 4, 2, -100},
		{5, 6, 2, -100},
	})
	masked, err := model.Forward(inputs)
	require.NoError(t, err)

	assert.InDelta(t, full.Losses[0], masked.Losses[0], 1e-12)
}

func TestLossDecreasesWithGradientSteps(t *testing.T) {
	model := NewLinearSeq2Seq(testModelConfig(), 42)
	inputs := testInputs()

	first, err := model.Forward(inputs)
	require.NoError(t, err)
	initialLoss := first.Losses[0]

	lr := 0.5
	for step := 0; step < 50; step++ {
		model.ZeroGrad()
		_, err := model.Forward(inputs)
		require.NoError(t, err)
		model.Backward(1.0)
		for _, p := range model.NamedParameters() {
			rows, cols := p.Value.Dims()
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					p.Value.Set(i, j, p.Value.At(i, j)-lr*p.Grad.At(i, j))
				}
			}
		}
	}

	final, err := model.Forward(inputs)
	require.NoError(t, err)

	assert.Less(t, final.Losses[0], initialLoss)
}

func TestBackwardScaleIsLinear(t *testing.T) {
	inputs := testInputs()

	gradsAtScale := func(scale float64) []float64 {
		model := NewLinearSeq2Seq(testModelConfig(), 42)
		_, err := model.Forward(inputs)
		require.NoError(t, err)
		model.Backward(scale)

		values := []float64{}
		for _, p := range model.NamedParameters() {
			rows, cols := p.Grad.Dims()
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					values = append(values, p.Grad.At(i, j))
				}
			}
		}
		return values
	}

	single := gradsAtScale(1.0)
	double := gradsAtScale(2.0)

	require.Equal(t, len(single), len(double))
	for i := range single {
		assert.InDelta(t, 2*single[i], double[i], 1e-9)
	}
}

func TestAutocastForwardStaysFinite(t *testing.T) {
	model := NewLinearSeq2Seq(testModelConfig(), 42)
	model.SetAutocast(true)

	output, err := model.Forward(testInputs())

	require.NoError(t, err)
	assert.False(t, math.IsNaN(output.Losses[0]))
	assert.False(t, math.IsInf(output.Losses[0], 0))
}

func TestGenerateRespectsMaxLength(t *testing.T) {
	model := NewLinearSeq2Seq(testModelConfig(), 42)
	inputIds := FromInts([][]int{{3, 4, 0, 0}, {5, 6, 7, 0}})

	outputs := model.Generate(inputIds, 3)

	require.Len(t, outputs, 2)
	for _, sequence := range outputs {
		assert.LessOrEqual(t, len(sequence), 3)
		for _, id := range sequence {
			assert.NotEqual(t, model.Config().EosTokenId, id)
		}
	}
}

func TestCrossEntropyMatchesUniformDistribution(t *testing.T) {
	logits := []float64{0, 0, 0, 0}

	loss, probs := crossEntropyWithIndex(logits, 2)

	assert.InDelta(t, math.Log(4), loss, 1e-12)
	for _, p := range probs {
		assert.InDelta(t, 0.25, p, 1e-12)
	}
}
