package experiment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/common"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/config"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/events"
)

const testDataset = `{
	"attributes": {"label_vocab": ["O", "B-PER"]},
	"examples": [
		{"input_text": "a b", "output_text": "O O"},
		{"input_text": "c d", "output_text": "B-PER O"},
		{"input_text": "a c", "output_text": "O B-PER"},
		{"input_text": "b d", "output_text": "O O"},
		{"input_text": "a d", "output_text": "O O"},
		{"input_text": "b c", "output_text": "O O"},
		{"input_text": "c a", "output_text": "B-PER O"},
		{"input_text": "d b", "output_text": "O O"},
		{"input_text": "a a", "output_text": "O O"},
		{"input_text": "b b", "output_text": "O O"},
		{"input_text": "c c", "output_text": "B-PER B-PER"},
		{"input_text": "d d", "output_text": "O O"},
		{"input_text": "a b c", "output_text": "O O B-PER"},
		{"input_text": "b c d", "output_text": "O B-PER O"},
		{"input_text": "c d a", "output_text": "B-PER O O"},
		{"input_text": "d a b", "output_text": "O O O"},
		{"input_text": "a c d", "output_text": "O B-PER O"},
		{"input_text": "b d a", "output_text": "O O O"},
		{"input_text": "c a b", "output_text": "B-PER O O"},
		{"input_text": "d b c", "output_text": "O O B-PER"}
	]
}`

func testRunArgs(t *testing.T) *config.TrainingArgs {
	dataPath := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(dataPath, []byte(testDataset), 0666))

	args := config.NewTrainingArgs()
	args.Dataset = "toy"
	args.DataFilePath = dataPath
	args.ModelType = common.MODEL_TYPE_SEQ2SEQ
	args.ModelName = t.TempDir() // no pretrained tokenizer, word-level fallback
	args.MaxSeqLength = 8
	args.TrainBatchSize = 4
	args.EvalBatchSize = 4
	args.Epochs = 1
	args.LearningRate = 0.1
	args.FlAlgorithm = common.FL_ALGORITHM_FEDAVG
	args.NGpu = 0
	args.OutputDir = t.TempDir()
	args.RunId = "orchestrator-test"
	return args
}

func TestRunCentralizedProducesResultsAndFiles(t *testing.T) {
	args := testRunArgs(t)
	orchestrator := NewOrchestrator(hclog.NewNullLogger(), events.NewEventBus())

	results, err := orchestrator.RunCentralized(args)

	require.NoError(t, err)
	require.Contains(t, results, "eval_loss")
	assert.Greater(t, results["eval_loss"], 0.0)

	assert.FileExists(t, filepath.Join(args.OutputDir, common.EVAL_RESULTS_FILE_NAME))
}

func TestRunCentralizedWithGeneratedTextMetrics(t *testing.T) {
	args := testRunArgs(t)
	args.EvaluateGeneratedText = true
	args.MaxGenerationLength = 4
	orchestrator := NewOrchestrator(hclog.NewNullLogger(), events.NewEventBus())

	results, err := orchestrator.RunCentralized(args)

	require.NoError(t, err)
	assert.Contains(t, results, "f1_score")
}

func TestRunCentralizedFailsOnMissingDataFile(t *testing.T) {
	args := testRunArgs(t)
	args.DataFilePath = filepath.Join(t.TempDir(), "missing.json")
	orchestrator := NewOrchestrator(hclog.NewNullLogger(), events.NewEventBus())

	_, err := orchestrator.RunCentralized(args)

	require.Error(t, err)
}
