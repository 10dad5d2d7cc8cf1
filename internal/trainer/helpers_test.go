package trainer

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/common"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/config"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/data"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/events"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/nn"
)

func testArgs(t *testing.T) *config.TrainingArgs {
	args := config.NewTrainingArgs()
	args.ModelType = common.MODEL_TYPE_SEQ2SEQ
	args.MaxSeqLength = 8
	args.TrainBatchSize = 2
	args.EvalBatchSize = 2
	args.Epochs = 1
	args.LearningRate = 0.1
	args.FlAlgorithm = common.FL_ALGORITHM_FEDAVG
	args.NGpu = 0
	args.OutputDir = t.TempDir()
	args.RunId = "test-run"
	return args
}

func testTokenizer() data.Tokenizer {
	return data.NewWhitespaceTokenizer([]string{"a", "b", "c", "d", "e"})
}

func testExamplesList(count int) []data.InputExample {
	inputs := []string{"a b", "c d", "a c e", "b d"}
	examples := make([]data.InputExample, count)
	for i := range examples {
		examples[i] = data.InputExample{
			Guid:       i,
			InputText:  inputs[i%len(inputs)],
			OutputText: "b c",
		}
	}
	return examples
}

func newTestTrainer(t *testing.T, args *config.TrainingArgs, numTrain, numTest int) *Seq2SeqTrainer {
	tokenizer := testTokenizer()
	preprocessor := data.NewPreprocessor(args, tokenizer, tokenizer)

	trainExamples := testExamplesList(numTrain)
	testExamples := testExamplesList(numTest)

	trainLoader, err := preprocessor.TransformExamples(trainExamples, args.TrainBatchSize)
	require.NoError(t, err)
	testLoader, err := preprocessor.TransformExamples(testExamples, args.EvalBatchSize)
	require.NoError(t, err)

	model := nn.NewLinearSeq2Seq(nn.ModelConfig{
		VocabSize:  tokenizer.VocabSize(),
		DModel:     4,
		NumLayers:  2,
		PadTokenId: tokenizer.PadTokenId(),
		BosTokenId: tokenizer.BosTokenId(),
		EosTokenId: tokenizer.EosTokenId(),
	}, args.ManualSeed)

	return NewSeq2SeqTrainer(hclog.NewNullLogger(), events.NewEventBus(), args, model,
		tokenizer, trainLoader, testLoader, testExamples)
}
