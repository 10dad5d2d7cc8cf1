package config

// ParameterGroupSpec names a set of model parameters that receives its own
// weight-decay treatment in the optimizer.
type ParameterGroupSpec struct {
	Params      []string `json:"params"`
	WeightDecay float64  `json:"weightDecay"`
}

// LayerParameterSpec selects every parameter of one layer index for its own
// weight-decay treatment.
type LayerParameterSpec struct {
	Layer       int     `json:"layer"`
	WeightDecay float64 `json:"weightDecay"`
}

// TrainingArgs holds the hyperparameters of a single run. It is created once
// from CLI flags or an HTTP request and read-only afterwards; derived values
// (e.g. the computed warmup steps) are cached by the trainer, not written back
// here.
type TrainingArgs struct {
	// Data related
	Dataset           string `json:"dataset"`
	DataFilePath      string `json:"dataFilePath"`
	PartitionFilePath string `json:"partitionFilePath"`
	PartitionMethod   string `json:"partitionMethod"`

	// Model related
	ModelType    string `json:"modelType"`
	ModelName    string `json:"modelName"`
	MaxSeqLength int    `json:"maxSeqLength"`

	// Learning related
	TrainBatchSize            int                  `json:"trainBatchSize"`
	EvalBatchSize             int                  `json:"evalBatchSize"`
	LearningRate              float64              `json:"learningRate"`
	WeightDecay               float64              `json:"weightDecay"`
	AdamEpsilon               float64              `json:"adamEpsilon"`
	Epochs                    int                  `json:"epochs"`
	GradientAccumulationSteps int                  `json:"gradientAccumulationSteps"`
	MaxGradNorm               float64              `json:"maxGradNorm"`
	WarmupRatio               float64              `json:"warmupRatio"`
	WarmupSteps               int                  `json:"warmupSteps"`
	NGpu                      int                  `json:"nGpu"`
	Fp16                      bool                 `json:"fp16"`
	ManualSeed                int64                `json:"manualSeed"`
	FlAlgorithm               string               `json:"flAlgorithm"`
	FedProxMu                 float64              `json:"fedProxMu"`
	CustomParameterGroups     []ParameterGroupSpec `json:"customParameterGroups"`
	CustomLayerParameters     []LayerParameterSpec `json:"customLayerParameters"`
	TrainCustomParametersOnly bool                 `json:"trainCustomParametersOnly"`
	EvaluateGeneratedText     bool                 `json:"evaluateGeneratedText"`
	MaxGenerationLength       int                  `json:"maxGenerationLength"`

	// IO related
	OutputDir   string `json:"outputDir"`
	IsDebugMode bool   `json:"isDebugMode"`
	RunId       string `json:"runId"`
	DeviceId    int    `json:"deviceId"`
}

// NewTrainingArgs returns args with the defaults of the centralized
// experiments; entry points overwrite fields from flags before handing the
// record to the trainer.
func NewTrainingArgs() *TrainingArgs {
	return &TrainingArgs{
		Dataset:                   "agnews",
		PartitionMethod:           "uniform",
		ModelType:                 "bart",
		ModelName:                 "bart-base",
		MaxSeqLength:              128,
		TrainBatchSize:            8,
		EvalBatchSize:             8,
		LearningRate:              1e-5,
		WeightDecay:               0.0,
		AdamEpsilon:               1e-8,
		Epochs:                    3,
		GradientAccumulationSteps: 1,
		MaxGradNorm:               1.0,
		WarmupRatio:               0.06,
		WarmupSteps:               0,
		NGpu:                      1,
		ManualSeed:                42,
		FlAlgorithm:               "",
		FedProxMu:                 0.01,
		MaxGenerationLength:       64,
		OutputDir:                 "/tmp/",
	}
}
