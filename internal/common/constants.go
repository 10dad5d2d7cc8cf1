package common

// Model families
const MODEL_TYPE_BART = "bart"
const MODEL_TYPE_MARIAN = "marian"
const MODEL_TYPE_MBART = "mbart"
const MODEL_TYPE_SEQ2SEQ = "seq2seq"

// Federated optimization algorithms
const FL_ALGORITHM_FEDOPT = "FedOPT"
const FL_ALGORITHM_FEDAVG = "FedAvg"
const FL_ALGORITHM_FEDPROX = "FedProx"

// Partition methods
const PARTITION_METHOD_UNIFORM = "uniform"

// Label positions excluded from the loss
const IGNORE_INDEX = -100

// Events
const EPOCH_FINISHED_EVENT_TYPE = "EpochFinished"
const EVAL_FINISHED_EVENT_TYPE = "EvalFinished"
const TRAIN_FINISHED_EVENT_TYPE = "TrainFinished"

// Output files
const EVAL_RESULTS_FILE_NAME = "eval_results.txt"
const TRAIN_HISTORY_FILE_PREFIX = "train_history"
