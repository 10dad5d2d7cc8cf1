package experiment

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/config"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/data"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/events"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/hub"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/trainer"
)

// Orchestrator wires the dataset, model factory, preprocessor and trainer
// together and runs complete experiments.
type Orchestrator struct {
	logger   hclog.Logger
	eventBus *events.EventBus
}

func NewOrchestrator(logger hclog.Logger, eventBus *events.EventBus) *Orchestrator {
	return &Orchestrator{
		logger:   logger,
		eventBus: eventBus,
	}
}

// RunCentralized trains and evaluates one model on this process's data shard
// and returns the evaluation results.
func (o *Orchestrator) RunCentralized(args *config.TrainingArgs) (map[string]float64, error) {
	dataFile, err := data.LoadDataFile(args.DataFilePath)
	if err != nil {
		return nil, err
	}

	model, tokenizers, err := hub.CreateModelAndTokenizer(o.logger, args, dataFile)
	if err != nil {
		return nil, err
	}

	preprocessor := data.NewPreprocessor(args, tokenizers.Encoder, tokenizers.Decoder)
	dataManager := data.NewDataManager(o.logger, args, preprocessor)
	if err := dataManager.LoadNextRoundData(); err != nil {
		return nil, err
	}

	trainLoader, testLoader, err := dataManager.GetDataLoader()
	if err != nil {
		return nil, err
	}

	seq2seqTrainer := trainer.NewSeq2SeqTrainer(o.logger, o.eventBus, args, model,
		tokenizers.Decoder, trainLoader, testLoader, dataManager.TestExamples())

	globalStep, trainLoss, err := seq2seqTrainer.TrainModel()
	if err != nil {
		return nil, fmt.Errorf("training run %s failed: %w", args.RunId, err)
	}
	o.logger.Info(fmt.Sprintf("Run %s trained for %d steps with average loss %f", args.RunId, globalStep, trainLoss))

	results, err := seq2seqTrainer.EvalModel()
	if err != nil {
		return nil, fmt.Errorf("evaluation of run %s failed: %w", args.RunId, err)
	}

	return results, nil
}
