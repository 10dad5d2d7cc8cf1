package trainer

import (
	"fmt"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/common"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/data"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/nn"
)

// buildInputs adapts one preprocessed batch to the input layout of the
// configured model family and places the tensors on the trainer's device.
//
// For bart and marian the decoder input is the target shifted right
// (target[:, :-1]) and the labels are the target shifted left
// (target[:, 1:]) with pad positions excluded from the loss. mbart batches
// already carry the shifted tensors. The plain seq2seq family feeds the raw
// labels as decoder input and masks a copy for the loss.
func (t *Seq2SeqTrainer) buildInputs(batch *data.Batch) (*nn.Inputs, error) {
	switch {
	case common.IsEncoderDecoderShifted(t.args.ModelType):
		source, found := batch.Named["source_ids"]
		if !found {
			return nil, fmt.Errorf("batch is missing source_ids for model type %s", t.args.ModelType)
		}
		mask := batch.Named["source_mask"]
		target, found := batch.Named["target_ids"]
		if !found {
			return nil, fmt.Errorf("batch is missing target_ids for model type %s", t.args.ModelType)
		}

		labels := target.DropFirstCol().MaskedFillEqual(float64(t.padTokenId), common.IGNORE_INDEX)
		inputs := &nn.Inputs{
			InputIds:        source.To(t.device),
			DecoderInputIds: target.DropLastCol().To(t.device),
			Labels:          labels.To(t.device),
		}
		if mask != nil {
			inputs.AttentionMask = mask.To(t.device)
		}
		return inputs, nil

	case t.args.ModelType == common.MODEL_TYPE_MBART:
		inputs := &nn.Inputs{}
		for key, tensor := range batch.Named {
			switch key {
			case "input_ids":
				inputs.InputIds = tensor.To(t.device)
			case "attention_mask":
				inputs.AttentionMask = tensor.To(t.device)
			case "decoder_input_ids":
				inputs.DecoderInputIds = tensor.To(t.device)
			case "labels":
				inputs.Labels = tensor.To(t.device)
			default:
				return nil, fmt.Errorf("unexpected batch tensor %s for model type %s", key, t.args.ModelType)
			}
		}
		if inputs.InputIds == nil || inputs.Labels == nil {
			return nil, fmt.Errorf("incomplete batch for model type %s", t.args.ModelType)
		}
		return inputs, nil

	default:
		if len(batch.Tuple) < 2 {
			return nil, fmt.Errorf("batch tuple has %d tensors, want 2", len(batch.Tuple))
		}
		rawLabels := batch.Tuple[1]
		labels := rawLabels.Clone().MaskedFillEqual(float64(t.padTokenId), common.IGNORE_INDEX)
		return &nn.Inputs{
			InputIds:        batch.Tuple[0].To(t.device),
			DecoderInputIds: rawLabels.To(t.device),
			Labels:          labels.To(t.device),
		}, nil
	}
}
