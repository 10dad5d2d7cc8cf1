package monitor

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/common"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/events"
)

var historyHeader = []string{"timestamp", "run_id", "event", "epoch", "global_step", "train_loss", "eval_loss"}

// TrainingMonitor records training progress events into a CSV history file
// and periodically logs the latest state.
type TrainingMonitor struct {
	logger      hclog.Logger
	historyFile string

	eventChannel chan events.Event
	cron         *cron.Cron

	mu             sync.Mutex
	lastRunId      string
	lastEpoch      int
	lastGlobalStep int
	lastTrainLoss  float64
}

func NewTrainingMonitor(logger hclog.Logger, eventBus *events.EventBus, outputDir string) (*TrainingMonitor, error) {
	monitor := &TrainingMonitor{
		logger:       logger,
		historyFile:  common.GetHistoryFileName(outputDir),
		eventChannel: make(chan events.Event, 100),
		cron:         cron.New(),
	}

	if err := monitor.appendRow(historyHeader); err != nil {
		return nil, err
	}

	eventBus.Subscribe(common.EPOCH_FINISHED_EVENT_TYPE, monitor.eventChannel)
	eventBus.Subscribe(common.EVAL_FINISHED_EVENT_TYPE, monitor.eventChannel)
	eventBus.Subscribe(common.TRAIN_FINISHED_EVENT_TYPE, monitor.eventChannel)

	return monitor, nil
}

// Start launches the event loop and the periodic progress log.
func (m *TrainingMonitor) Start() {
	go m.monitorEvents()

	m.cron.AddFunc("@every 1m", m.logProgress)
	m.cron.Start()
}

func (m *TrainingMonitor) Stop() {
	m.cron.Stop()
}

func (m *TrainingMonitor) HistoryFile() string {
	return m.historyFile
}

// HELPERS

func (m *TrainingMonitor) monitorEvents() {
	for event := range m.eventChannel {
		switch payload := event.Data.(type) {
		case events.EpochFinishedEvent:
			m.recordProgress(payload.RunId, payload.Epoch, payload.GlobalStep, payload.TrainLoss)
			m.writeRow(event, payload.RunId, payload.Epoch, payload.GlobalStep, payload.TrainLoss, 0)
		case events.TrainFinishedEvent:
			m.recordProgress(payload.RunId, -1, payload.GlobalStep, payload.TrainLoss)
			m.writeRow(event, payload.RunId, -1, payload.GlobalStep, payload.TrainLoss, 0)
		case events.EvalFinishedEvent:
			m.writeRow(event, payload.RunId, -1, -1, 0, payload.Results["eval_loss"])
		default:
			m.logger.Warn(fmt.Sprintf("Unexpected monitor event payload of type %s", event.Type))
		}
	}
}

func (m *TrainingMonitor) recordProgress(runId string, epoch, globalStep int, trainLoss float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRunId = runId
	m.lastEpoch = epoch
	m.lastGlobalStep = globalStep
	m.lastTrainLoss = trainLoss
}

func (m *TrainingMonitor) writeRow(event events.Event, runId string, epoch, globalStep int, trainLoss, evalLoss float64) {
	row := []string{
		event.Timestamp.Format(time.RFC3339),
		runId,
		event.Type,
		strconv.Itoa(epoch),
		strconv.Itoa(globalStep),
		strconv.FormatFloat(trainLoss, 'g', -1, 64),
		strconv.FormatFloat(evalLoss, 'g', -1, 64),
	}
	if err := m.appendRow(row); err != nil {
		m.logger.Error(fmt.Sprintf("Writing history row failed: %s", err))
	}
}

func (m *TrainingMonitor) appendRow(row []string) error {
	file, err := os.OpenFile(m.historyFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(row); err != nil {
		return err
	}
	writer.Flush()

	return writer.Error()
}

func (m *TrainingMonitor) logProgress() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastRunId == "" {
		return
	}
	m.logger.Info(fmt.Sprintf("Run %s progress: epoch %d, global step %d, train loss %f",
		m.lastRunId, m.lastEpoch, m.lastGlobalStep, m.lastTrainLoss))
}
