package main

import (
	"flag"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/config"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/events"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/experiment"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/monitor"
)

func main() {
	args := config.NewTrainingArgs()

	flag.StringVar(&args.Dataset, "dataset", args.Dataset, "dataset name")
	flag.StringVar(&args.DataFilePath, "data_file_path", args.DataFilePath, "path to the dataset file")
	flag.StringVar(&args.PartitionFilePath, "partition_file_path", args.PartitionFilePath, "path to the partition file")
	flag.StringVar(&args.PartitionMethod, "partition_method", args.PartitionMethod, "partition method")
	flag.StringVar(&args.ModelType, "model_type", args.ModelType, "model family: bart, marian, mbart or seq2seq")
	flag.StringVar(&args.ModelName, "model_name", args.ModelName, "model directory")
	flag.IntVar(&args.MaxSeqLength, "max_seq_length", args.MaxSeqLength, "maximum sequence length")
	flag.IntVar(&args.TrainBatchSize, "train_batch_size", args.TrainBatchSize, "training batch size")
	flag.IntVar(&args.EvalBatchSize, "eval_batch_size", args.EvalBatchSize, "evaluation batch size")
	flag.Float64Var(&args.LearningRate, "lr", args.LearningRate, "learning rate")
	flag.Float64Var(&args.WeightDecay, "weight_decay", args.WeightDecay, "weight decay")
	flag.Float64Var(&args.AdamEpsilon, "adam_epsilon", args.AdamEpsilon, "AdamW epsilon")
	flag.IntVar(&args.Epochs, "epochs", args.Epochs, "number of training epochs")
	flag.IntVar(&args.GradientAccumulationSteps, "gradient_accumulation_steps", args.GradientAccumulationSteps, "gradient accumulation steps")
	flag.Float64Var(&args.MaxGradNorm, "max_grad_norm", args.MaxGradNorm, "gradient clipping norm")
	flag.Float64Var(&args.WarmupRatio, "warmup_ratio", args.WarmupRatio, "warmup ratio of the total steps")
	flag.IntVar(&args.WarmupSteps, "warmup_steps", args.WarmupSteps, "explicit warmup steps, overrides the ratio when nonzero")
	flag.IntVar(&args.NGpu, "n_gpu", args.NGpu, "number of GPUs")
	flag.BoolVar(&args.Fp16, "fp16", args.Fp16, "mixed-precision training")
	flag.Int64Var(&args.ManualSeed, "manual_seed", args.ManualSeed, "random seed")
	flag.StringVar(&args.FlAlgorithm, "fl_algorithm", args.FlAlgorithm, "federated algorithm: FedOPT, FedAvg or FedProx")
	flag.Float64Var(&args.FedProxMu, "fedprox_mu", args.FedProxMu, "FedProx proximal coefficient")
	flag.BoolVar(&args.TrainCustomParametersOnly, "train_custom_parameters_only", args.TrainCustomParametersOnly, "train only the custom parameter groups")
	flag.BoolVar(&args.EvaluateGeneratedText, "evaluate_generated_text", args.EvaluateGeneratedText, "score generated text during evaluation")
	flag.IntVar(&args.MaxGenerationLength, "max_generation_length", args.MaxGenerationLength, "maximum generation length")
	flag.StringVar(&args.OutputDir, "output_dir", args.OutputDir, "directory for evaluation results")
	flag.BoolVar(&args.IsDebugMode, "debug", args.IsDebugMode, "verbose batch-level logging")
	flag.IntVar(&args.DeviceId, "device_id", args.DeviceId, "partition client id of this process")
	flag.Parse()

	logLevel := "INFO"
	if args.IsDebugMode {
		logLevel = "DEBUG"
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "fednlp",
		Level: hclog.LevelFromString(logLevel),
	})

	if args.RunId == "" {
		args.RunId = uuid.New().String()
	}

	eventBus := events.NewEventBus()

	trainingMonitor, err := monitor.NewTrainingMonitor(logger, eventBus, args.OutputDir)
	if err != nil {
		logger.Error("Error creating training monitor", "error", err)
		return
	}
	trainingMonitor.Start()
	defer trainingMonitor.Stop()

	orchestrator := experiment.NewOrchestrator(logger, eventBus)

	results, err := orchestrator.RunCentralized(args)
	if err != nil {
		logger.Error("Error running experiment", "error", err)
		return
	}

	logger.Info(fmt.Sprintf("Run %s finished with results %v", args.RunId, results))
}
