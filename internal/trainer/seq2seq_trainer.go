package trainer

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"gonum.org/v1/gonum/mat"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/common"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/config"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/data"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/events"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/metrics"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/nn"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/optim"
)

// Parameter names excluded from weight decay
var noDecayNames = []string{"bias", "LayerNorm.weight"}

// Seq2SeqTrainer drives training and evaluation of one seq2seq model over
// preprocessed batch loaders. Evaluation results accumulate across calls and
// are written to eval_results.txt in the output directory.
type Seq2SeqTrainer struct {
	logger   hclog.Logger
	eventBus *events.EventBus
	args     *config.TrainingArgs
	device   nn.Device

	model            nn.Seq2SeqModel
	decoderTokenizer data.Tokenizer
	padTokenId       int

	trainLoader  *data.BatchLoader
	testLoader   *data.BatchLoader
	testExamples []data.InputExample

	results     map[string]float64
	warmupSteps int
}

func NewSeq2SeqTrainer(logger hclog.Logger, eventBus *events.EventBus, args *config.TrainingArgs,
	model nn.Seq2SeqModel, decoderTokenizer data.Tokenizer,
	trainLoader, testLoader *data.BatchLoader, testExamples []data.InputExample) *Seq2SeqTrainer {

	device := nn.CPU
	if args.NGpu > 0 {
		device = nn.CudaDevice(0)
	}
	model.To(device)

	return &Seq2SeqTrainer{
		logger:           logger,
		eventBus:         eventBus,
		args:             args,
		device:           device,
		model:            model,
		decoderTokenizer: decoderTokenizer,
		padTokenId:       decoderTokenizer.PadTokenId(),
		trainLoader:      trainLoader,
		testLoader:       testLoader,
		testExamples:     testExamples,
		results:          map[string]float64{},
	}
}

// BuildOptimizer partitions the model parameters into weight-decay groups and
// returns the optimizer and schedule for a run of iterationInTotal steps.
//
// Custom parameter groups claim parameters by exact name, custom layer groups
// claim the rest of their layer split into decay and no-decay halves, and the
// remaining parameters fall into two catch-all groups unless only the custom
// parameters are trained. Every parameter lands in at most one group.
func (t *Seq2SeqTrainer) BuildOptimizer(model nn.Seq2SeqModel, iterationInTotal int) (optim.Optimizer, *optim.WarmupLinearSchedule, error) {
	parameters := model.NamedParameters()
	claimed := map[string]bool{}
	groups := []optim.ParameterGroup{}

	for _, spec := range t.args.CustomParameterGroups {
		wanted := map[string]bool{}
		for _, name := range spec.Params {
			wanted[name] = true
		}

		group := optim.ParameterGroup{WeightDecay: spec.WeightDecay}
		for _, p := range parameters {
			if wanted[p.Name] {
				group.Params = append(group.Params, p)
				claimed[p.Name] = true
			}
		}
		if len(group.Params) > 0 {
			groups = append(groups, group)
		}
	}

	for _, spec := range t.args.CustomLayerParameters {
		layerMarker := fmt.Sprintf("layer.%d.", spec.Layer)
		decayGroup := optim.ParameterGroup{WeightDecay: spec.WeightDecay}
		noDecayGroup := optim.ParameterGroup{WeightDecay: 0.0}

		for _, p := range parameters {
			if claimed[p.Name] || !strings.Contains(p.Name, layerMarker) {
				continue
			}
			if isNoDecay(p.Name) {
				noDecayGroup.Params = append(noDecayGroup.Params, p)
			} else {
				decayGroup.Params = append(decayGroup.Params, p)
			}
			claimed[p.Name] = true
		}

		if len(decayGroup.Params) > 0 {
			groups = append(groups, decayGroup)
		}
		if len(noDecayGroup.Params) > 0 {
			groups = append(groups, noDecayGroup)
		}
	}

	if !t.args.TrainCustomParametersOnly {
		decayGroup := optim.ParameterGroup{WeightDecay: t.args.WeightDecay}
		noDecayGroup := optim.ParameterGroup{WeightDecay: 0.0}
		for _, p := range parameters {
			if claimed[p.Name] {
				continue
			}
			if isNoDecay(p.Name) {
				noDecayGroup.Params = append(noDecayGroup.Params, p)
			} else {
				decayGroup.Params = append(decayGroup.Params, p)
			}
		}
		if len(decayGroup.Params) > 0 {
			groups = append(groups, decayGroup)
		}
		if len(noDecayGroup.Params) > 0 {
			groups = append(groups, noDecayGroup)
		}
	}

	if len(groups) == 0 {
		return nil, nil, fmt.Errorf("no trainable parameters after grouping")
	}

	t.warmupSteps = int(math.Ceil(float64(iterationInTotal) * t.args.WarmupRatio))
	if t.args.WarmupSteps > 0 {
		t.warmupSteps = t.args.WarmupSteps
	}

	var optimizer optim.Optimizer
	switch t.args.FlAlgorithm {
	case "", common.FL_ALGORITHM_FEDOPT:
		optimizer = optim.NewAdamW(groups, t.args.LearningRate, t.args.AdamEpsilon)
	default:
		optimizer = optim.NewSGD(groups, t.args.LearningRate)
	}
	scheduler := optim.NewWarmupLinearSchedule(optimizer, t.warmupSteps, iterationInTotal)

	return optimizer, scheduler, nil
}

// WarmupSteps returns the warmup length of the last built optimizer.
func (t *Seq2SeqTrainer) WarmupSteps() int {
	return t.warmupSteps
}

// TrainModel runs the full training loop and returns the number of optimizer
// steps taken and the average training loss per step.
func (t *Seq2SeqTrainer) TrainModel() (int, float64, error) {
	batches := t.trainLoader.Batches()
	accumulationSteps := max(1, t.args.GradientAccumulationSteps)
	iterationInTotal := len(batches) / accumulationSteps * t.args.Epochs

	optimizer, scheduler, err := t.BuildOptimizer(t.model, iterationInTotal)
	if err != nil {
		return 0, 0, err
	}

	trainModel := t.model
	if t.args.NGpu > 1 {
		trainModel = nn.NewDataParallel(t.model, t.args.NGpu)
	}

	var scaler *optim.GradScaler
	if t.args.Fp16 {
		scaler = optim.NewGradScaler()
		trainModel.SetAutocast(true)
	}

	var globalParameters map[string]*mat.Dense
	if t.args.FlAlgorithm == common.FL_ALGORITHM_FEDPROX {
		globalParameters = snapshotParameters(t.model.NamedParameters())
	}

	t.logger.Info(fmt.Sprintf("Starting training run %s: %d batches, %d epochs, %d total steps, %d warmup steps",
		t.args.RunId, len(batches), t.args.Epochs, iterationInTotal, t.warmupSteps))

	globalStep := 0
	trLoss := 0.0
	trainStart := time.Now()

	for epoch := 0; epoch < t.args.Epochs; epoch++ {
		trainModel.SetTraining(true)

		for batchIdx, batch := range batches {
			inputs, err := t.buildInputs(batch)
			if err != nil {
				return globalStep, 0, err
			}

			output, err := trainModel.Forward(inputs)
			if err != nil {
				return globalStep, 0, fmt.Errorf("forward pass failed at epoch %d batch %d: %w", epoch, batchIdx, err)
			}
			loss := common.CalculateAverageFloat64(output.Losses)

			if globalParameters != nil {
				loss += proximalTerm(t.model.NamedParameters(), globalParameters, t.args.FedProxMu)
			}

			currentLoss := loss
			if accumulationSteps > 1 {
				loss /= float64(accumulationSteps)
			}

			backwardScale := 1.0 / float64(accumulationSteps)
			if scaler != nil {
				backwardScale *= scaler.ScaleFactor()
			}
			trainModel.Backward(backwardScale)
			if globalParameters != nil {
				addProximalGradients(t.model.NamedParameters(), globalParameters, t.args.FedProxMu, backwardScale)
			}

			trLoss += loss

			if (batchIdx+1)%accumulationSteps == 0 {
				namedParameters := trainModel.NamedParameters()
				if scaler != nil {
					scaler.Unscale(namedParameters)
				}
				optim.ClipGradNorm(namedParameters, t.args.MaxGradNorm)
				if scaler != nil {
					scaler.Step(optimizer)
					scaler.Update()
				} else {
					optimizer.Step()
				}
				scheduler.Step()
				trainModel.ZeroGrad()
				globalStep++
			}

			if t.args.IsDebugMode {
				t.logger.Debug(fmt.Sprintf("Epoch %d batch %d loss %f", epoch, batchIdx, currentLoss))
			}
		}

		t.eventBus.Publish(events.Event{
			Type:      common.EPOCH_FINISHED_EVENT_TYPE,
			Timestamp: time.Now(),
			Data: events.EpochFinishedEvent{
				RunId:      t.args.RunId,
				Epoch:      epoch,
				GlobalStep: globalStep,
				TrainLoss:  averageStepLoss(trLoss, globalStep),
			},
		})
		t.logger.Info(fmt.Sprintf("Finished epoch %d of run %s at global step %d", epoch, t.args.RunId, globalStep))
	}

	averageLoss := averageStepLoss(trLoss, globalStep)
	t.eventBus.Publish(events.Event{
		Type:      common.TRAIN_FINISHED_EVENT_TYPE,
		Timestamp: time.Now(),
		Data: events.TrainFinishedEvent{
			RunId:      t.args.RunId,
			GlobalStep: globalStep,
			TrainLoss:  averageLoss,
		},
	})
	t.logger.Info(fmt.Sprintf("Training run %s finished after %s: %d steps, average loss %f",
		t.args.RunId, time.Since(trainStart), globalStep, averageLoss))

	return globalStep, averageLoss, nil
}

// EvalModel evaluates the model on the test loader, merges the metrics into
// the cumulative results, and rewrites eval_results.txt.
func (t *Seq2SeqTrainer) EvalModel() (map[string]float64, error) {
	batches := t.testLoader.Batches()
	if len(batches) == 0 {
		return nil, fmt.Errorf("evaluation requires at least one batch")
	}

	t.model.SetTraining(false)
	defer t.model.SetTraining(true)

	numSamples := t.testLoader.NumSamples()
	indexRanges := batchIndexRanges(len(batches), t.args.EvalBatchSize, numSamples)

	evalLoss := 0.0
	for i, batch := range batches {
		inputs, err := t.buildInputs(batch)
		if err != nil {
			return nil, err
		}
		output, err := t.model.Forward(inputs)
		if err != nil {
			return nil, fmt.Errorf("forward pass failed at eval batch %d: %w", i, err)
		}
		evalLoss += common.CalculateAverageFloat64(output.Losses)
	}
	evalLoss /= float64(len(batches))

	results := map[string]float64{"eval_loss": evalLoss}

	if t.args.EvaluateGeneratedText {
		generated, err := t.evaluateGeneratedText(batches, indexRanges)
		if err != nil {
			return nil, err
		}
		for key, value := range generated {
			results[key] = value
		}
	}

	for key, value := range results {
		t.results[key] = value
	}

	if err := t.writeEvalResults(); err != nil {
		return nil, err
	}

	t.eventBus.Publish(events.Event{
		Type:      common.EVAL_FINISHED_EVENT_TYPE,
		Timestamp: time.Now(),
		Data: events.EvalFinishedEvent{
			RunId:   t.args.RunId,
			Results: results,
		},
	})
	t.logger.Info(fmt.Sprintf("Evaluation of run %s finished with loss %f over %d samples",
		t.args.RunId, evalLoss, numSamples))

	return results, nil
}

// Results returns the cumulative evaluation results of this trainer.
func (t *Seq2SeqTrainer) Results() map[string]float64 {
	return t.results
}

// HELPERS

// evaluateGeneratedText decodes greedy generations for the test set and
// scores them against the reference outputs with entity-level metrics.
func (t *Seq2SeqTrainer) evaluateGeneratedText(batches []*data.Batch, indexRanges [][2]int) (map[string]float64, error) {
	references := [][]string{}
	predictions := [][]string{}

	for i, batch := range batches {
		inputs, err := t.buildInputs(batch)
		if err != nil {
			return nil, err
		}
		maxLength := max(1, t.args.MaxGenerationLength)
		generatedIds := t.model.Generate(inputs.InputIds, maxLength)

		start, end := indexRanges[i][0], indexRanges[i][1]
		for k := start; k < end; k++ {
			if k >= len(t.testExamples) || k-start >= len(generatedIds) {
				break
			}
			references = append(references, strings.Fields(t.testExamples[k].OutputText))
			predicted := t.decoderTokenizer.Decode(generatedIds[k-start])
			predictions = append(predictions, strings.Fields(predicted))
		}
	}

	if len(references) == 0 {
		return nil, fmt.Errorf("generated-text evaluation requires test examples")
	}

	t.logger.Debug("\n" + metrics.ClassificationReport(references, predictions))

	return map[string]float64{
		"precision": metrics.PrecisionScore(references, predictions),
		"recall":    metrics.RecallScore(references, predictions),
		"f1_score":  metrics.F1Score(references, predictions),
	}, nil
}

// writeEvalResults overwrites eval_results.txt with the cumulative results,
// one sorted "key = value" line each.
func (t *Seq2SeqTrainer) writeEvalResults() error {
	if err := os.MkdirAll(t.args.OutputDir, 0777); err != nil {
		return fmt.Errorf("creating output dir %s failed: %w", t.args.OutputDir, err)
	}

	keys := make([]string, 0, len(t.results))
	for key := range t.results {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		b.WriteString(fmt.Sprintf("%s = %s\n", key, strconv.FormatFloat(t.results[key], 'g', -1, 64)))
	}

	path := filepath.Join(t.args.OutputDir, common.EVAL_RESULTS_FILE_NAME)
	if err := os.WriteFile(path, []byte(b.String()), 0666); err != nil {
		return fmt.Errorf("writing %s failed: %w", path, err)
	}

	return nil
}

// batchIndexRanges returns the [start, end) sample range of every batch; the
// final range is clamped to the sample count.
func batchIndexRanges(numBatches, batchSize, numSamples int) [][2]int {
	ranges := make([][2]int, numBatches)
	for i := 0; i < numBatches; i++ {
		start := i * batchSize
		end := min(start+batchSize, numSamples)
		ranges[i] = [2]int{start, end}
	}
	return ranges
}

func averageStepLoss(trLoss float64, globalStep int) float64 {
	if globalStep == 0 {
		return 0
	}
	return trLoss / float64(globalStep)
}

func isNoDecay(name string) bool {
	for _, marker := range noDecayNames {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// snapshotParameters deep-copies the current parameter values, taken once
// before local training starts.
func snapshotParameters(parameters []nn.NamedParameter) map[string]*mat.Dense {
	snapshot := make(map[string]*mat.Dense, len(parameters))
	for _, p := range parameters {
		clone := &mat.Dense{}
		clone.CloneFrom(p.Value)
		snapshot[p.Name] = clone
	}
	return snapshot
}

// proximalTerm computes (mu/2) * sum of squared distances between the current
// parameters and the training-start snapshot.
func proximalTerm(parameters []nn.NamedParameter, global map[string]*mat.Dense, mu float64) float64 {
	term := 0.0
	for _, p := range parameters {
		globalValue, found := global[p.Name]
		if !found {
			continue
		}
		rows, cols := p.Value.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				d := p.Value.At(i, j) - globalValue.At(i, j)
				term += d * d
			}
		}
	}
	return mu / 2 * term
}

// addProximalGradients accumulates the gradient of the proximal term,
// mu * (p - p0), scaled the same way as the data loss.
func addProximalGradients(parameters []nn.NamedParameter, global map[string]*mat.Dense, mu, scale float64) {
	for _, p := range parameters {
		globalValue, found := global[p.Name]
		if !found {
			continue
		}
		rows, cols := p.Value.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				g := mu * (p.Value.At(i, j) - globalValue.At(i, j)) * scale
				p.Grad.Set(i, j, p.Grad.At(i, j)+g)
			}
		}
	}
}
