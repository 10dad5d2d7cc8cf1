package main

import (
	"io"
	"os"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/events"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/experiment"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/monitor"
	"github.com/UbiquitousLearning/AutoFedNLP/internal/server"
)

func main() {
	_ = os.Mkdir("log", 0777)
	logFile, err := os.OpenFile("log/run.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0777)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			panic(err)
		}
	}()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "fednlp",
		Level:  hclog.LevelFromString("DEBUG"),
		Output: io.MultiWriter(os.Stdout, logFile),
	})

	eventBus := events.NewEventBus()

	outputDir := "output"
	if len(os.Args) == 2 {
		outputDir = os.Args[1]
	}

	trainingMonitor, err := monitor.NewTrainingMonitor(logger, eventBus, outputDir)
	if err != nil {
		logger.Error("Error creating training monitor", "error", err)
		return
	}
	trainingMonitor.Start()
	defer trainingMonitor.Stop()

	orchestrator := experiment.NewOrchestrator(logger, eventBus)
	handler := server.NewHandler(logger, orchestrator)

	defaultRouter := mux.NewRouter()
	defaultRouter.HandleFunc("/train/start", handler.StartTraining).Methods("POST")
	defaultRouter.HandleFunc("/train/status/{runId}", handler.TrainingStatus).Methods("GET")

	server.StartHttpServer(logger, defaultRouter)
}
