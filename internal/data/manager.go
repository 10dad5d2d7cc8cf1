package data

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/common"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/config"
)

// DataManager loads the dataset and partition files and hands out batch
// loaders for the process's own data shard.
type DataManager struct {
	logger       hclog.Logger
	args         *config.TrainingArgs
	preprocessor *Preprocessor

	dataFile      *DataFile
	trainExamples []InputExample
	testExamples  []InputExample
}

func NewDataManager(logger hclog.Logger, args *config.TrainingArgs, preprocessor *Preprocessor) *DataManager {
	return &DataManager{
		logger:       logger,
		args:         args,
		preprocessor: preprocessor,
	}
}

// LoadNextRoundData reads the dataset and selects the examples assigned to
// this process. Without a partition file the whole dataset is treated as one
// uniform partition.
func (dm *DataManager) LoadNextRoundData() error {
	dataFile, err := LoadDataFile(dm.args.DataFilePath)
	if err != nil {
		return err
	}
	dm.dataFile = dataFile

	partitionFile, err := dm.loadPartition(len(dataFile.Examples))
	if err != nil {
		return err
	}

	method := dm.args.PartitionMethod
	if method == "" {
		method = common.PARTITION_METHOD_UNIFORM
	}
	trainIndices, testIndices, err := partitionFile.ClientIndices(method, dm.args.DeviceId)
	if err != nil {
		return err
	}

	dm.trainExamples, err = selectExamples(dataFile.Examples, trainIndices)
	if err != nil {
		return err
	}
	dm.testExamples, err = selectExamples(dataFile.Examples, testIndices)
	if err != nil {
		return err
	}

	dm.logger.Info(fmt.Sprintf("Loaded dataset %s: %d train and %d test examples for device %d",
		dm.args.Dataset, len(dm.trainExamples), len(dm.testExamples), dm.args.DeviceId))

	return nil
}

// GetDataLoader preprocesses the selected examples into train and test batch
// loaders.
func (dm *DataManager) GetDataLoader() (*BatchLoader, *BatchLoader, error) {
	if dm.trainExamples == nil {
		return nil, nil, fmt.Errorf("no data loaded, call LoadNextRoundData first")
	}

	trainLoader, err := dm.preprocessor.TransformExamples(dm.trainExamples, dm.args.TrainBatchSize)
	if err != nil {
		return nil, nil, fmt.Errorf("preprocessing train examples failed: %w", err)
	}
	testLoader, err := dm.preprocessor.TransformExamples(dm.testExamples, dm.args.EvalBatchSize)
	if err != nil {
		return nil, nil, fmt.Errorf("preprocessing test examples failed: %w", err)
	}

	return trainLoader, testLoader, nil
}

func (dm *DataManager) TestExamples() []InputExample {
	return dm.testExamples
}

func (dm *DataManager) Attributes() *Attributes {
	if dm.dataFile == nil {
		return nil
	}
	return &dm.dataFile.Attributes
}

// HELPERS

func (dm *DataManager) loadPartition(numSamples int) (*PartitionFile, error) {
	if dm.args.PartitionFilePath == "" {
		dm.logger.Debug("No partition file given, using a single uniform partition")
		return UniformPartition(numSamples, 1), nil
	}
	return LoadPartitionFile(dm.args.PartitionFilePath)
}

func selectExamples(examples []InputExample, indices []int) ([]InputExample, error) {
	selected := make([]InputExample, 0, len(indices))
	for _, index := range indices {
		if index < 0 || index >= len(examples) {
			return nil, fmt.Errorf("partition index %d out of range for %d examples", index, len(examples))
		}
		selected = append(selected, examples[index])
	}
	return selected, nil
}
