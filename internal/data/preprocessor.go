package data

import (
	"fmt"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/common"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/config"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/nn"
)

// Preprocessor turns raw examples into padded id batches for one model
// family. Source texts go through the encoder tokenizer, target texts
// through the decoder tokenizer.
type Preprocessor struct {
	args             *config.TrainingArgs
	encoderTokenizer Tokenizer
	decoderTokenizer Tokenizer
}

func NewPreprocessor(args *config.TrainingArgs, encoderTokenizer, decoderTokenizer Tokenizer) *Preprocessor {
	return &Preprocessor{
		args:             args,
		encoderTokenizer: encoderTokenizer,
		decoderTokenizer: decoderTokenizer,
	}
}

func (p *Preprocessor) DecoderTokenizer() Tokenizer {
	return p.decoderTokenizer
}

// TransformExamples preprocesses the examples into a batch loader. The final
// partial batch is kept.
func (p *Preprocessor) TransformExamples(examples []InputExample, batchSize int) (*BatchLoader, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	batches := []*Batch{}
	for start := 0; start < len(examples); start += batchSize {
		end := min(start+batchSize, len(examples))
		batch, err := p.transformBatch(examples[start:end])
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}

	return NewBatchLoader(batches, len(examples), batchSize), nil
}

func (p *Preprocessor) transformBatch(examples []InputExample) (*Batch, error) {
	sourceIds := make([][]int, len(examples))
	sourceMask := make([][]int, len(examples))
	targetIds := make([][]int, len(examples))

	for i, example := range examples {
		ids, mask, err := p.encodeSource(example.InputText)
		if err != nil {
			return nil, fmt.Errorf("encoding example %d failed: %w", example.Guid, err)
		}
		sourceIds[i] = ids
		sourceMask[i] = mask

		target, err := p.encodeTarget(example.OutputText)
		if err != nil {
			return nil, fmt.Errorf("encoding example %d failed: %w", example.Guid, err)
		}
		targetIds[i] = target
	}

	batch := &Batch{Size: len(examples)}
	switch {
	case p.args.ModelType == common.MODEL_TYPE_MBART:
		// shifting happens here, so the training loop can feed the
		// batch to the model unchanged
		decoderInput := make([][]int, len(examples))
		labels := make([][]int, len(examples))
		padId := p.decoderTokenizer.PadTokenId()
		for i, target := range targetIds {
			decoderInput[i] = target[:len(target)-1]
			labels[i] = make([]int, len(target)-1)
			for j, id := range target[1:] {
				if id == padId {
					labels[i][j] = common.IGNORE_INDEX
				} else {
					labels[i][j] = id
				}
			}
		}
		batch.Named = map[string]*nn.Tensor{
			"input_ids":         nn.FromInts(sourceIds),
			"attention_mask":    nn.FromInts(sourceMask),
			"decoder_input_ids": nn.FromInts(decoderInput),
			"labels":            nn.FromInts(labels),
		}
	case common.IsEncoderDecoderShifted(p.args.ModelType):
		batch.Named = map[string]*nn.Tensor{
			"source_ids":  nn.FromInts(sourceIds),
			"source_mask": nn.FromInts(sourceMask),
			"target_ids":  nn.FromInts(targetIds),
		}
	default:
		batch.Tuple = []*nn.Tensor{
			nn.FromInts(sourceIds),
			nn.FromInts(targetIds),
		}
	}

	return batch, nil
}

// HELPERS

func (p *Preprocessor) encodeSource(text string) ([]int, []int, error) {
	ids, err := p.encoderTokenizer.Encode(text)
	if err != nil {
		return nil, nil, err
	}

	maxLen := p.args.MaxSeqLength
	if len(ids) > maxLen {
		ids = ids[:maxLen]
	}

	mask := make([]int, maxLen)
	padded := make([]int, maxLen)
	padId := p.encoderTokenizer.PadTokenId()
	for i := 0; i < maxLen; i++ {
		if i < len(ids) {
			padded[i] = ids[i]
			mask[i] = 1
		} else {
			padded[i] = padId
		}
	}

	return padded, mask, nil
}

// encodeTarget wraps the target ids in BOS/EOS and pads to the maximum
// sequence length.
func (p *Preprocessor) encodeTarget(text string) ([]int, error) {
	ids, err := p.decoderTokenizer.Encode(text)
	if err != nil {
		return nil, err
	}

	maxLen := p.args.MaxSeqLength
	if len(ids) > maxLen-2 {
		ids = ids[:maxLen-2]
	}

	padded := make([]int, 0, maxLen)
	padded = append(padded, p.decoderTokenizer.BosTokenId())
	padded = append(padded, ids...)
	padded = append(padded, p.decoderTokenizer.EosTokenId())
	padId := p.decoderTokenizer.PadTokenId()
	for len(padded) < maxLen {
		padded = append(padded, padId)
	}

	return padded, nil
}
