package nn

import (
	"fmt"
)

// DataParallel replicates a model across n logical devices by sharding each
// batch row-wise. Forward returns one loss per shard; the trainer reduces the
// vector to its mean before backpropagation, matching the behavior of
// runtime-level data parallelism.
type DataParallel struct {
	base    Seq2SeqModel
	devices int

	shards []*Inputs
}

func NewDataParallel(base Seq2SeqModel, devices int) *DataParallel {
	if devices < 1 {
		devices = 1
	}
	return &DataParallel{
		base:    base,
		devices: devices,
	}
}

func (dp *DataParallel) Forward(inputs *Inputs) (*Output, error) {
	dp.shards = shardInputs(inputs, dp.devices)

	losses := []float64{}
	for _, shard := range dp.shards {
		out, err := dp.base.Forward(shard)
		if err != nil {
			return nil, fmt.Errorf("data parallel shard forward: %w", err)
		}
		losses = append(losses, out.Losses...)
	}

	return &Output{Losses: losses}, nil
}

// Backward replays each shard's forward and accumulates its gradients scaled
// by 1/numShards, which equals backpropagating the mean of the per-device
// loss vector.
func (dp *DataParallel) Backward(scale float64) {
	if len(dp.shards) == 0 {
		return
	}
	shardScale := scale / float64(len(dp.shards))
	for _, shard := range dp.shards {
		if _, err := dp.base.Forward(shard); err != nil {
			continue
		}
		dp.base.Backward(shardScale)
	}
}

func (dp *DataParallel) NamedParameters() []NamedParameter {
	return dp.base.NamedParameters()
}

func (dp *DataParallel) ZeroGrad() {
	dp.base.ZeroGrad()
}

func (dp *DataParallel) SetTraining(training bool) {
	dp.base.SetTraining(training)
}

func (dp *DataParallel) SetAutocast(enabled bool) {
	dp.base.SetAutocast(enabled)
}

func (dp *DataParallel) Generate(inputIds *Tensor, maxLength int) [][]int {
	return dp.base.Generate(inputIds, maxLength)
}

func (dp *DataParallel) To(device Device) {
	dp.base.To(device)
}

func shardInputs(inputs *Inputs, devices int) []*Inputs {
	rows, _ := inputs.InputIds.Dims()
	shardSize := (rows + devices - 1) / devices

	shards := []*Inputs{}
	for start := 0; start < rows; start += shardSize {
		end := start + shardSize
		if end > rows {
			end = rows
		}
		shard := &Inputs{
			InputIds:        inputs.InputIds.SliceRows(start, end),
			DecoderInputIds: inputs.DecoderInputIds.SliceRows(start, end),
			Labels:          inputs.Labels.SliceRows(start, end),
		}
		if inputs.AttentionMask != nil {
			shard.AttentionMask = inputs.AttentionMask.SliceRows(start, end)
		}
		shards = append(shards, shard)
	}

	return shards
}
