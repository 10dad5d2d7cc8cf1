package nn

import (
	"gonum.org/v1/gonum/mat"
)

// Inputs is the named-tensor mapping every model family consumes. Decoder
// inputs and labels are already aligned by the trainer's batch adapter.
type Inputs struct {
	InputIds        *Tensor
	AttentionMask   *Tensor
	DecoderInputIds *Tensor
	Labels          *Tensor
}

// Output of a forward pass. Losses carries one mean loss per logical device;
// with a single device it holds exactly one entry.
type Output struct {
	Losses []float64
	Logits *Tensor
}

// NamedParameter exposes one model parameter and its gradient accumulator.
// The optimizer mutates Value in place; Backward accumulates into Grad.
type NamedParameter struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

// Seq2SeqModel is the contract the trainer drives: an opaque parameterized
// function that turns adapted inputs into a loss, accumulates gradients for
// the most recent forward, and decodes greedily for generation.
type Seq2SeqModel interface {
	Forward(inputs *Inputs) (*Output, error)
	// Backward accumulates gradients of the last forward's loss into the
	// parameter Grad buffers, multiplied by scale (used for gradient
	// accumulation and loss scaling).
	Backward(scale float64)
	NamedParameters() []NamedParameter
	ZeroGrad()
	SetTraining(training bool)
	// SetAutocast toggles the reduced-precision path around the forward pass.
	SetAutocast(enabled bool)
	Generate(inputIds *Tensor, maxLength int) [][]int
	To(device Device)
}
