package data

import "github.com/UbiquitousLearning/AutoFedNLP/internal/nn"

// Batch is one preprocessed mini-batch. Shifted-decoder model families use
// the named tensors; the plain seq2seq family uses the positional tuple.
type Batch struct {
	Named map[string]*nn.Tensor
	Tuple []*nn.Tensor
	Size  int
}

// BatchLoader holds the fully preprocessed batches of one data split. The
// final batch may be smaller than the batch size; it is kept, not dropped.
type BatchLoader struct {
	batches    []*Batch
	numSamples int
	batchSize  int
}

func NewBatchLoader(batches []*Batch, numSamples, batchSize int) *BatchLoader {
	return &BatchLoader{
		batches:    batches,
		numSamples: numSamples,
		batchSize:  batchSize,
	}
}

func (l *BatchLoader) Batches() []*Batch {
	return l.batches
}

func (l *BatchLoader) NumBatches() int {
	return len(l.batches)
}

func (l *BatchLoader) NumSamples() int {
	return l.numSamples
}

func (l *BatchLoader) BatchSize() int {
	return l.batchSize
}
