package slurm

import "strings"

// Resources is the per-partition capacity record derived from the scheduler
// status output, before any configuration override is applied.
type Resources struct {
	MaxCoresPerNode   int    `json:"maxCoresPerNode"`
	MaxMemoryMB       int    `json:"maxMemoryMB"`
	GPUTemplate       string `json:"gpuTemplate"`
	MaxGPUs           int    `json:"maxGPUs"`
	MaxRuntimeSeconds int    `json:"maxRuntimeSeconds"`
}

// DisplayCounts are informational node and core tallies shown to users. They
// are never used to validate a request.
type DisplayCounts struct {
	NodesTotal int `json:"nodesTotal"`
	NodesIdle  int `json:"nodesIdle"`
	CoresTotal int `json:"coresTotal"`
	CoresIdle  int `json:"coresIdle"`
}

// PartitionStatus couples the capacity record and the display tallies for one
// partition key.
type PartitionStatus struct {
	Resources
	DisplayCounts
}

// JoinKey builds the composite map key for a partition, qualified by cluster
// when the status output carries one.
func JoinKey(cluster, partition string) string {
	if cluster == "" {
		return partition
	}
	return cluster + "." + partition
}

// SplitKey splits a composite key at the first dot. Keys without a dot are
// plain partition names. Cluster names containing dots are not supported.
func SplitKey(key string) (cluster, partition string) {
	if i := strings.Index(key, "."); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}
