package trainer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/common"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/config"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/optim"
)

func groupNames(group optim.ParameterGroup) []string {
	names := []string{}
	for _, p := range group.Params {
		names = append(names, p.Name)
	}
	return names
}

func allGroupNames(groups []optim.ParameterGroup) []string {
	names := []string{}
	for _, group := range groups {
		names = append(names, groupNames(group)...)
	}
	return names
}

func TestDefaultGroupingSplitsDecayAndNoDecay(t *testing.T) {
	args := testArgs(t)
	args.WeightDecay = 0.01
	tr := newTestTrainer(t, args, 4, 2)

	optimizer, _, err := tr.BuildOptimizer(tr.model, 100)
	require.NoError(t, err)

	groups := optimizer.Groups()
	require.Len(t, groups, 2)

	assert.Equal(t, 0.01, groups[0].WeightDecay)
	assert.Equal(t, 0.0, groups[1].WeightDecay)

	assert.Contains(t, groupNames(groups[0]), "lm_head.weight")
	assert.Contains(t, groupNames(groups[1]), "encoder.LayerNorm.weight")
	assert.Contains(t, groupNames(groups[1]), "decoder.layer.0.dense.bias")
	assert.Contains(t, groupNames(groups[1]), "lm_head.bias")

	// every parameter lands in exactly one group
	all := allGroupNames(groups)
	assert.Len(t, all, len(tr.model.NamedParameters()))
	seen := map[string]bool{}
	for _, name := range all {
		assert.False(t, seen[name], name)
		seen[name] = true
	}
}

func TestCustomParameterGroupClaimsByName(t *testing.T) {
	args := testArgs(t)
	args.CustomParameterGroups = []config.ParameterGroupSpec{
		{Params: []string{"lm_head.weight"}, WeightDecay: 0.3},
	}
	tr := newTestTrainer(t, args, 4, 2)

	optimizer, _, err := tr.BuildOptimizer(tr.model, 100)
	require.NoError(t, err)

	groups := optimizer.Groups()
	require.GreaterOrEqual(t, len(groups), 2)

	assert.Equal(t, 0.3, groups[0].WeightDecay)
	assert.Equal(t, []string{"lm_head.weight"}, groupNames(groups[0]))

	for _, group := range groups[1:] {
		assert.NotContains(t, groupNames(group), "lm_head.weight")
	}
}

func TestCustomLayerParametersSplitLayer(t *testing.T) {
	args := testArgs(t)
	args.CustomLayerParameters = []config.LayerParameterSpec{
		{Layer: 0, WeightDecay: 0.2},
	}
	tr := newTestTrainer(t, args, 4, 2)

	optimizer, _, err := tr.BuildOptimizer(tr.model, 100)
	require.NoError(t, err)

	groups := optimizer.Groups()
	require.GreaterOrEqual(t, len(groups), 3)

	assert.Equal(t, 0.2, groups[0].WeightDecay)
	assert.Equal(t, []string{"decoder.layer.0.dense.weight"}, groupNames(groups[0]))
	assert.Equal(t, 0.0, groups[1].WeightDecay)
	assert.Equal(t, []string{"decoder.layer.0.dense.bias"}, groupNames(groups[1]))

	for _, group := range groups[2:] {
		assert.NotContains(t, groupNames(group), "decoder.layer.0.dense.weight")
		assert.NotContains(t, groupNames(group), "decoder.layer.0.dense.bias")
	}
	assert.Contains(t, allGroupNames(groups[2:]), "decoder.layer.1.dense.weight")
}

func TestTrainCustomParametersOnlyDropsTheRest(t *testing.T) {
	args := testArgs(t)
	args.TrainCustomParametersOnly = true
	args.CustomParameterGroups = []config.ParameterGroupSpec{
		{Params: []string{"lm_head.weight", "lm_head.bias"}, WeightDecay: 0.0},
	}
	tr := newTestTrainer(t, args, 4, 2)

	optimizer, _, err := tr.BuildOptimizer(tr.model, 100)
	require.NoError(t, err)

	all := allGroupNames(optimizer.Groups())
	assert.ElementsMatch(t, []string{"lm_head.weight", "lm_head.bias"}, all)
}

func TestTrainCustomParametersOnlyWithoutGroupsFails(t *testing.T) {
	args := testArgs(t)
	args.TrainCustomParametersOnly = true
	tr := newTestTrainer(t, args, 4, 2)

	_, _, err := tr.BuildOptimizer(tr.model, 100)

	require.Error(t, err)
}

func TestWarmupStepsComputedFromRatio(t *testing.T) {
	args := testArgs(t)
	args.WarmupRatio = 0.1
	args.WarmupSteps = 0
	tr := newTestTrainer(t, args, 4, 2)

	_, _, err := tr.BuildOptimizer(tr.model, 1000)
	require.NoError(t, err)
	assert.Equal(t, 100, tr.WarmupSteps())

	// the ratio rounds up
	args.WarmupRatio = 0.5
	_, _, err = tr.BuildOptimizer(tr.model, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, tr.WarmupSteps())
}

func TestExplicitWarmupStepsWin(t *testing.T) {
	args := testArgs(t)
	args.WarmupRatio = 0.1
	args.WarmupSteps = 50
	tr := newTestTrainer(t, args, 4, 2)

	_, _, err := tr.BuildOptimizer(tr.model, 1000)

	require.NoError(t, err)
	assert.Equal(t, 50, tr.WarmupSteps())
}

func TestOptimizerSelectionByAlgorithm(t *testing.T) {
	cases := map[string]interface{}{
		"":                          &optim.AdamW{},
		common.FL_ALGORITHM_FEDOPT:  &optim.AdamW{},
		common.FL_ALGORITHM_FEDAVG:  &optim.SGD{},
		common.FL_ALGORITHM_FEDPROX: &optim.SGD{},
	}

	for algorithm, expected := range cases {
		args := testArgs(t)
		args.FlAlgorithm = algorithm
		tr := newTestTrainer(t, args, 4, 2)

		optimizer, scheduler, err := tr.BuildOptimizer(tr.model, 100)

		require.NoError(t, err)
		require.NotNil(t, scheduler)
		assert.IsType(t, expected, optimizer, "algorithm %q", algorithm)
	}
}
