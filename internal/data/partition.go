package data

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/UbiquitousLearning/AutoFedNLP/internal/common"
)

// ClientPartition lists the example indices assigned to one client.
type ClientPartition struct {
	Train []int `json:"train"`
	Test  []int `json:"test"`
}

// PartitionFile maps partition methods to per-client index lists.
type PartitionFile struct {
	NClients   int                          `json:"n_clients"`
	Partitions map[string][]ClientPartition `json:"partitions"`
}

// LoadPartitionFile reads a partition file from disk.
func LoadPartitionFile(path string) (*PartitionFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading partition file %s failed: %w", path, err)
	}

	partitionFile := &PartitionFile{}
	if err := json.Unmarshal(raw, partitionFile); err != nil {
		return nil, fmt.Errorf("parsing partition file %s failed: %w", path, err)
	}
	if len(partitionFile.Partitions) == 0 {
		return nil, fmt.Errorf("partition file %s contains no partitions", path)
	}

	return partitionFile, nil
}

// ClientIndices returns the train and test example indices for one client
// under the given partition method.
func (pf *PartitionFile) ClientIndices(method string, clientId int) ([]int, []int, error) {
	clients, found := pf.Partitions[method]
	if !found {
		return nil, nil, fmt.Errorf("partition method %s not present in partition file", method)
	}
	if clientId < 0 || clientId >= len(clients) {
		return nil, nil, fmt.Errorf("client id %d out of range for %d partitions", clientId, len(clients))
	}
	return clients[clientId].Train, clients[clientId].Test, nil
}

// UniformPartition splits sample indices evenly across nClients, holding out
// every tenth sample of each client share as test data. Deterministic so all
// processes agree on the assignment.
func UniformPartition(numSamples, nClients int) *PartitionFile {
	if nClients < 1 {
		nClients = 1
	}

	clients := make([]ClientPartition, nClients)
	for index := 0; index < numSamples; index++ {
		client := index % nClients
		if (index/nClients)%10 == 9 {
			clients[client].Test = append(clients[client].Test, index)
		} else {
			clients[client].Train = append(clients[client].Train, index)
		}
	}

	return &PartitionFile{
		NClients: nClients,
		Partitions: map[string][]ClientPartition{
			common.PARTITION_METHOD_UNIFORM: clients,
		},
	}
}
