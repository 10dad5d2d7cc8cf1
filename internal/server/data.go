package server

import (
	"encoding/json"
	"io"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/config"
)

func toJSON(i interface{}, w io.Writer) error {
	e := json.NewEncoder(w)
	return e.Encode(i)
}

func fromJSON(i interface{}, r io.Reader) error {
	d := json.NewDecoder(r)
	return d.Decode(i)
}

type StartTrainingRequest struct {
	Args config.TrainingArgs `json:"args"`
}

const (
	RUN_STATUS_RUNNING  = "RUNNING"
	RUN_STATUS_FINISHED = "FINISHED"
	RUN_STATUS_FAILED   = "FAILED"
)

type RunStatus struct {
	RunId   string             `json:"runId"`
	Status  string             `json:"status"`
	Results map[string]float64 `json:"results,omitempty"`
	Error   string             `json:"error,omitempty"`
}
