package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ModelConfig describes the reference encoder-decoder runtime.
type ModelConfig struct {
	VocabSize  int
	DModel     int
	NumLayers  int
	PadTokenId int
	BosTokenId int
	EosTokenId int
}

// LinearSeq2Seq is the reference sequence-to-sequence runtime: a log-linear
// encoder-decoder with analytic gradients. The encoder is a scaled
// bag-of-tokens mean; the decoder applies residual linear layers per position
// and a vocabulary projection. Parameter names follow the pretrained-model
// convention so that no-decay patterns ("bias", "LayerNorm.weight") and
// per-layer selectors ("layer.N.") match real checkpoints.
type LinearSeq2Seq struct {
	config ModelConfig
	device Device

	encEmb *mat.Dense // encoder.embed_tokens.weight (V x d)
	decEmb *mat.Dense // decoder.embed_tokens.weight (V x d)
	encLN  *mat.Dense // encoder.LayerNorm.weight (1 x d)
	layerW []*mat.Dense
	layerB []*mat.Dense
	lmW    *mat.Dense // lm_head.weight (V x d)
	lmB    *mat.Dense // lm_head.bias (1 x V)

	grads map[string]*mat.Dense

	training bool
	autocast bool

	state *forwardState
}

// forwardState keeps the activations of the most recent forward pass for the
// recompute-free backward.
type forwardState struct {
	positions []positionState
	examples  []exampleState
	lossCount int
}

type exampleState struct {
	encMean  []float64 // e: mean source embedding
	context  []float64 // c = encLN * e
	srcIds   []int
	srcCount int
}

type positionState struct {
	example int
	decId   int
	counted bool
	label   int
	xs      [][]float64 // activations per layer, xs[0] .. xs[L]
	probs   []float64   // softmax of logits, only when counted
}

func NewLinearSeq2Seq(config ModelConfig, seed int64) *LinearSeq2Seq {
	rng := rand.New(rand.NewSource(seed))
	initDense := func(rows, cols int) *mat.Dense {
		d := mat.NewDense(rows, cols, nil)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				d.Set(i, j, rng.NormFloat64()*0.02)
			}
		}
		return d
	}

	model := &LinearSeq2Seq{
		config: config,
		device: CPU,
		encEmb: initDense(config.VocabSize, config.DModel),
		decEmb: initDense(config.VocabSize, config.DModel),
		encLN:  mat.NewDense(1, config.DModel, nil),
		lmW:    initDense(config.VocabSize, config.DModel),
		lmB:    mat.NewDense(1, config.VocabSize, nil),
		grads:  make(map[string]*mat.Dense),
	}
	for j := 0; j < config.DModel; j++ {
		model.encLN.Set(0, j, 1.0)
	}
	for i := 0; i < config.NumLayers; i++ {
		model.layerW = append(model.layerW, initDense(config.DModel, config.DModel))
		model.layerB = append(model.layerB, mat.NewDense(1, config.DModel, nil))
	}

	// materialize all gradient buffers up front
	model.NamedParameters()

	return model
}

func (m *LinearSeq2Seq) Config() ModelConfig {
	return m.config
}

func (m *LinearSeq2Seq) NamedParameters() []NamedParameter {
	params := []NamedParameter{
		{Name: "encoder.embed_tokens.weight", Value: m.encEmb, Grad: m.grad("encoder.embed_tokens.weight", m.encEmb)},
		{Name: "decoder.embed_tokens.weight", Value: m.decEmb, Grad: m.grad("decoder.embed_tokens.weight", m.decEmb)},
		{Name: "encoder.LayerNorm.weight", Value: m.encLN, Grad: m.grad("encoder.LayerNorm.weight", m.encLN)},
	}
	for i := range m.layerW {
		wName := fmt.Sprintf("decoder.layer.%d.dense.weight", i)
		bName := fmt.Sprintf("decoder.layer.%d.dense.bias", i)
		params = append(params,
			NamedParameter{Name: wName, Value: m.layerW[i], Grad: m.grad(wName, m.layerW[i])},
			NamedParameter{Name: bName, Value: m.layerB[i], Grad: m.grad(bName, m.layerB[i])},
		)
	}
	params = append(params,
		NamedParameter{Name: "lm_head.weight", Value: m.lmW, Grad: m.grad("lm_head.weight", m.lmW)},
		NamedParameter{Name: "lm_head.bias", Value: m.lmB, Grad: m.grad("lm_head.bias", m.lmB)},
	)
	return params
}

func (m *LinearSeq2Seq) grad(name string, value *mat.Dense) *mat.Dense {
	if g, ok := m.grads[name]; ok {
		return g
	}
	rows, cols := value.Dims()
	g := mat.NewDense(rows, cols, nil)
	m.grads[name] = g
	return g
}

func (m *LinearSeq2Seq) ZeroGrad() {
	for _, g := range m.grads {
		g.Zero()
	}
}

func (m *LinearSeq2Seq) SetTraining(training bool) {
	m.training = training
}

func (m *LinearSeq2Seq) SetAutocast(enabled bool) {
	m.autocast = enabled
}

func (m *LinearSeq2Seq) To(device Device) {
	m.device = device
}

// cast emulates the reduced-precision path: under autocast every activation
// entry is rounded through float32.
func (m *LinearSeq2Seq) cast(v float64) float64 {
	if m.autocast {
		return float64(float32(v))
	}
	return v
}

func (m *LinearSeq2Seq) Forward(inputs *Inputs) (*Output, error) {
	if inputs.InputIds == nil || inputs.DecoderInputIds == nil || inputs.Labels == nil {
		return nil, fmt.Errorf("incomplete inputs: input ids, decoder input ids and labels are required")
	}
	batch, srcLen := inputs.InputIds.Dims()
	decBatch, decLen := inputs.DecoderInputIds.Dims()
	if decBatch != batch {
		return nil, fmt.Errorf("batch size mismatch: %d input rows vs %d decoder rows", batch, decBatch)
	}

	state := &forwardState{}
	lossSum := 0.0

	for b := 0; b < batch; b++ {
		example := m.encodeExample(inputs, b, srcLen)
		state.examples = append(state.examples, example)

		for t := 0; t < decLen; t++ {
			decId := inputs.DecoderInputIds.IntAt(b, t)
			label := inputs.Labels.IntAt(b, t)

			xs := m.decodeActivations(decId, example.context)
			pos := positionState{
				example: b,
				decId:   decId,
				label:   label,
				xs:      xs,
			}

			if label != ignoreIndex {
				logits := m.projectVocab(xs[len(xs)-1])
				loss, probs := crossEntropyWithIndex(logits, label)
				lossSum += loss
				pos.counted = true
				pos.probs = probs
				state.lossCount++
			}

			state.positions = append(state.positions, pos)
		}
	}

	if state.lossCount == 0 {
		return nil, fmt.Errorf("no unmasked label positions in batch")
	}

	meanLoss := lossSum / float64(state.lossCount)
	m.state = state

	return &Output{
		Losses: []float64{meanLoss},
		Logits: m.lastLogits(state),
	}, nil
}

func (m *LinearSeq2Seq) encodeExample(inputs *Inputs, b, srcLen int) exampleState {
	d := m.config.DModel
	encMean := make([]float64, d)
	srcIds := []int{}
	for j := 0; j < srcLen; j++ {
		if inputs.AttentionMask != nil {
			if inputs.AttentionMask.At(b, j) == 0 {
				continue
			}
		} else if inputs.InputIds.IntAt(b, j) == m.config.PadTokenId {
			continue
		}
		id := inputs.InputIds.IntAt(b, j)
		srcIds = append(srcIds, id)
		for k := 0; k < d; k++ {
			encMean[k] += m.encEmb.At(id, k)
		}
	}
	count := len(srcIds)
	if count > 0 {
		for k := 0; k < d; k++ {
			encMean[k] = m.cast(encMean[k] / float64(count))
		}
	}

	context := make([]float64, d)
	for k := 0; k < d; k++ {
		context[k] = m.cast(m.encLN.At(0, k) * encMean[k])
	}

	return exampleState{
		encMean:  encMean,
		context:  context,
		srcIds:   srcIds,
		srcCount: count,
	}
}

// decodeActivations runs the residual layer stack for one decoder position
// and returns the activation chain xs[0..L].
func (m *LinearSeq2Seq) decodeActivations(decId int, context []float64) [][]float64 {
	d := m.config.DModel
	x := make([]float64, d)
	for k := 0; k < d; k++ {
		x[k] = m.cast(m.decEmb.At(decId, k) + context[k])
	}

	xs := [][]float64{x}
	for i := 0; i < m.config.NumLayers; i++ {
		next := make([]float64, d)
		for r := 0; r < d; r++ {
			sum := m.layerB[i].At(0, r)
			for c := 0; c < d; c++ {
				sum += m.layerW[i].At(r, c) * x[c]
			}
			next[r] = m.cast(x[r] + sum)
		}
		xs = append(xs, next)
		x = next
	}
	return xs
}

func (m *LinearSeq2Seq) projectVocab(x []float64) []float64 {
	logits := make([]float64, m.config.VocabSize)
	for v := 0; v < m.config.VocabSize; v++ {
		sum := m.lmB.At(0, v)
		for k := 0; k < m.config.DModel; k++ {
			sum += m.lmW.At(v, k) * x[k]
		}
		logits[v] = m.cast(sum)
	}
	return logits
}

func (m *LinearSeq2Seq) lastLogits(state *forwardState) *Tensor {
	logits := NewTensor(len(state.positions), m.config.VocabSize)
	for i, pos := range state.positions {
		row := m.projectVocab(pos.xs[len(pos.xs)-1])
		for v, value := range row {
			logits.Set(i, v, value)
		}
	}
	logits.device = m.device
	return logits
}

// Backward accumulates gradients of the last forward's mean loss, multiplied
// by scale. Calling it again adds on top of existing gradients.
func (m *LinearSeq2Seq) Backward(scale float64) {
	if m.state == nil {
		return
	}
	d := m.config.DModel
	n := float64(m.state.lossCount)

	lmWGrad := m.grads["lm_head.weight"]
	lmBGrad := m.grads["lm_head.bias"]
	decEmbGrad := m.grads["decoder.embed_tokens.weight"]
	encEmbGrad := m.grads["encoder.embed_tokens.weight"]
	encLNGrad := m.grads["encoder.LayerNorm.weight"]

	contextGrads := make([][]float64, len(m.state.examples))

	for _, pos := range m.state.positions {
		if !pos.counted {
			continue
		}

		// dlogits = (softmax - onehot) / N
		dLogits := make([]float64, m.config.VocabSize)
		for v := range dLogits {
			dLogits[v] = pos.probs[v] * scale / n
		}
		dLogits[pos.label] -= scale / n

		xLast := pos.xs[len(pos.xs)-1]
		dx := make([]float64, d)
		for v, dl := range dLogits {
			if dl == 0 {
				continue
			}
			lmBGrad.Set(0, v, lmBGrad.At(0, v)+dl)
			for k := 0; k < d; k++ {
				lmWGrad.Set(v, k, lmWGrad.At(v, k)+dl*xLast[k])
				dx[k] += m.lmW.At(v, k) * dl
			}
		}

		// back through residual layers: x' = x + Wx + b
		for i := m.config.NumLayers - 1; i >= 0; i-- {
			xIn := pos.xs[i]
			wGrad := m.grads[fmt.Sprintf("decoder.layer.%d.dense.weight", i)]
			bGrad := m.grads[fmt.Sprintf("decoder.layer.%d.dense.bias", i)]
			dxIn := make([]float64, d)
			copy(dxIn, dx)
			for r := 0; r < d; r++ {
				bGrad.Set(0, r, bGrad.At(0, r)+dx[r])
				for c := 0; c < d; c++ {
					wGrad.Set(r, c, wGrad.At(r, c)+dx[r]*xIn[c])
					dxIn[c] += m.layerW[i].At(r, c) * dx[r]
				}
			}
			dx = dxIn
		}

		// x0 = decEmb[decId] + context
		for k := 0; k < d; k++ {
			decEmbGrad.Set(pos.decId, k, decEmbGrad.At(pos.decId, k)+dx[k])
		}
		if contextGrads[pos.example] == nil {
			contextGrads[pos.example] = make([]float64, d)
		}
		for k := 0; k < d; k++ {
			contextGrads[pos.example][k] += dx[k]
		}
	}

	// context = encLN * encMean; encMean = mean of source embeddings
	for b, dContext := range contextGrads {
		if dContext == nil {
			continue
		}
		example := m.state.examples[b]
		for k := 0; k < d; k++ {
			encLNGrad.Set(0, k, encLNGrad.At(0, k)+dContext[k]*example.encMean[k])
		}
		if example.srcCount == 0 {
			continue
		}
		for _, id := range example.srcIds {
			for k := 0; k < d; k++ {
				dMean := dContext[k] * m.encLN.At(0, k)
				encEmbGrad.Set(id, k, encEmbGrad.At(id, k)+dMean/float64(example.srcCount))
			}
		}
	}
}

// Generate decodes greedily per row, starting from BOS and stopping at EOS or
// maxLength. The returned sequences exclude BOS and EOS.
func (m *LinearSeq2Seq) Generate(inputIds *Tensor, maxLength int) [][]int {
	batch, srcLen := inputIds.Dims()
	outputs := make([][]int, batch)

	for b := 0; b < batch; b++ {
		example := m.encodeExample(&Inputs{InputIds: inputIds}, b, srcLen)

		generated := []int{}
		last := m.config.BosTokenId
		for len(generated) < maxLength {
			xs := m.decodeActivations(last, example.context)
			logits := m.projectVocab(xs[len(xs)-1])
			next := argmax(logits)
			if next == m.config.EosTokenId {
				break
			}
			generated = append(generated, next)
			last = next
		}
		outputs[b] = generated
	}

	return outputs
}

// HELPERS

const ignoreIndex = -100

func crossEntropyWithIndex(logits []float64, label int) (float64, []float64) {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if l > maxLogit {
			maxLogit = l
		}
	}

	sumExp := 0.0
	probs := make([]float64, len(logits))
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		sumExp += probs[i]
	}
	for i := range probs {
		probs[i] /= sumExp
	}

	loss := math.Log(sumExp) + maxLogit - logits[label]
	return loss, probs
}

func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
