package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/config"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/experiment"
)

type Handler struct {
	logger       hclog.Logger
	orchestrator *experiment.Orchestrator

	mu   sync.Mutex
	runs map[string]*RunStatus
}

func NewHandler(logger hclog.Logger, orchestrator *experiment.Orchestrator) *Handler {
	return &Handler{
		logger:       logger,
		orchestrator: orchestrator,
		runs:         map[string]*RunStatus{},
	}
}

func (handler *Handler) StartTraining(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	runId := uuid.New().String()

	request := &StartTrainingRequest{Args: *config.NewTrainingArgs()}
	err := fromJSON(request, r.Body)
	if err != nil {
		handler.logger.Error("Error starting training", "error", err)
		rw.WriteHeader(http.StatusBadRequest)
		toJSON("invalid training request", rw)
		return
	}

	args := request.Args
	args.RunId = runId
	if args.DataFilePath == "" {
		rw.WriteHeader(http.StatusBadRequest)
		toJSON("dataFilePath is required", rw)
		return
	}

	handler.setStatus(&RunStatus{RunId: runId, Status: RUN_STATUS_RUNNING})
	handler.logger.Info(fmt.Sprintf("Starting training run %s for dataset %s with model %s/%s",
		runId, args.Dataset, args.ModelType, args.ModelName))

	go func() {
		results, err := handler.orchestrator.RunCentralized(&args)
		if err != nil {
			handler.logger.Error("Training run failed", "runId", runId, "error", err)
			handler.setStatus(&RunStatus{RunId: runId, Status: RUN_STATUS_FAILED, Error: err.Error()})
			return
		}
		handler.setStatus(&RunStatus{RunId: runId, Status: RUN_STATUS_FINISHED, Results: results})
	}()

	rw.WriteHeader(http.StatusOK)
	toJSON(runId, rw)
}

func (handler *Handler) TrainingStatus(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	runId := getURLParameter(r, "runId")

	handler.mu.Lock()
	status := handler.runs[runId]
	handler.mu.Unlock()

	if status == nil {
		rw.WriteHeader(http.StatusNotFound)
		toJSON("no run with the given ID", rw)
		return
	}

	rw.WriteHeader(http.StatusOK)
	toJSON(status, rw)
}

func (handler *Handler) setStatus(status *RunStatus) {
	handler.mu.Lock()
	defer handler.mu.Unlock()
	handler.runs[status.RunId] = status
}

func getURLParameter(r *http.Request, parameter string) string {
	vars := mux.Vars(r)
	id := vars[parameter]
	return id
}
