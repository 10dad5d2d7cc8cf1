package hub

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/common"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/config"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/data"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/nn"
)

const TOKENIZER_FILE_NAME = "tokenizer.json"

// TokenizerPair carries the tokenizers for the two sides of a seq2seq model.
// Most model families share one tokenizer for both.
type TokenizerPair struct {
	Encoder data.Tokenizer
	Decoder data.Tokenizer
}

// CreateModelAndTokenizer builds the model and tokenizer pair for the
// configured model family. ModelName is a model directory; when it holds a
// tokenizer.json the pretrained tokenizer is used, otherwise a word-level
// tokenizer is built from the dataset vocabulary.
func CreateModelAndTokenizer(logger hclog.Logger, args *config.TrainingArgs, dataFile *data.DataFile) (nn.Seq2SeqModel, *TokenizerPair, error) {
	switch args.ModelType {
	case common.MODEL_TYPE_BART, common.MODEL_TYPE_MARIAN, common.MODEL_TYPE_MBART, common.MODEL_TYPE_SEQ2SEQ:
	default:
		return nil, nil, fmt.Errorf("unknown model type: %s", args.ModelType)
	}

	tokenizer, err := loadTokenizer(logger, args, dataFile)
	if err != nil {
		return nil, nil, err
	}

	modelConfig := nn.ModelConfig{
		VocabSize:  tokenizer.VocabSize(),
		DModel:     dModelFor(args.ModelName),
		NumLayers:  numLayersFor(args.ModelName),
		PadTokenId: tokenizer.PadTokenId(),
		BosTokenId: tokenizer.BosTokenId(),
		EosTokenId: tokenizer.EosTokenId(),
	}
	model := nn.NewLinearSeq2Seq(modelConfig, args.ManualSeed)

	logger.Info(fmt.Sprintf("Created %s model %s with vocab size %d",
		args.ModelType, args.ModelName, modelConfig.VocabSize))

	return model, &TokenizerPair{Encoder: tokenizer, Decoder: tokenizer}, nil
}

// HELPERS

func loadTokenizer(logger hclog.Logger, args *config.TrainingArgs, dataFile *data.DataFile) (data.Tokenizer, error) {
	tokenizerPath := filepath.Join(args.ModelName, TOKENIZER_FILE_NAME)
	if _, err := os.Stat(tokenizerPath); err == nil {
		logger.Debug(fmt.Sprintf("Loading pretrained tokenizer from %s", tokenizerPath))
		return LoadPretrainedTokenizer(tokenizerPath)
	}

	if dataFile == nil {
		return nil, fmt.Errorf("no tokenizer file at %s and no dataset to build one from", tokenizerPath)
	}
	logger.Debug(fmt.Sprintf("No tokenizer file at %s, building a word-level tokenizer from the dataset", tokenizerPath))
	return data.NewWhitespaceTokenizer(dataFile.Vocabulary()), nil
}

func dModelFor(modelName string) int {
	if strings.Contains(modelName, "large") {
		return 64
	}
	return 32
}

func numLayersFor(modelName string) int {
	if strings.Contains(modelName, "large") {
		return 4
	}
	return 2
}
