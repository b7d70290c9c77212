package testdata

import (
	"hatchery-backend/internal/partition"
	"hatchery-backend/internal/slurm"
)

type PartitionFactoryParams struct {
	Name              string
	Architecture      string
	Description       string
	Simple            bool
	MaxCoresPerNode   int
	MaxMemoryMB       int
	GPUTemplate       string
	MaxGPUs           int
	MaxRuntimeSeconds int
	Environments      []partition.JupyterEnvironment
}

type PartitionOption func(*PartitionFactoryParams)

func PartitionWithName(name string) PartitionOption {
	return func(p *PartitionFactoryParams) {
		p.Name = name
	}
}

func PartitionWithGPU(template string, max int) PartitionOption {
	return func(p *PartitionFactoryParams) {
		p.GPUTemplate = template
		p.MaxGPUs = max
	}
}

func PartitionWithMaxCores(n int) PartitionOption {
	return func(p *PartitionFactoryParams) {
		p.MaxCoresPerNode = n
	}
}

func PartitionWithMaxRuntime(seconds int) PartitionOption {
	return func(p *PartitionFactoryParams) {
		p.MaxRuntimeSeconds = seconds
	}
}

func PartitionWithEnvironments(envs ...partition.JupyterEnvironment) PartitionOption {
	return func(p *PartitionFactoryParams) {
		p.Environments = envs
	}
}

// NewPartitionInfo builds a reconciled partition record with sensible cluster
// defaults, adjusted by the given options.
func NewPartitionInfo(opts ...PartitionOption) partition.Info {
	params := PartitionFactoryParams{
		Name:              "defq",
		Architecture:      "x86_64",
		Description:       "General purpose compute nodes",
		Simple:            true,
		MaxCoresPerNode:   35,
		MaxMemoryMB:       196000,
		MaxRuntimeSeconds: 86400,
		Environments: []partition.JupyterEnvironment{
			{ID: "datascience", Description: "Python data science stack", Modules: "anaconda3", AddToPath: true},
		},
	}
	for _, opt := range opts {
		opt(&params)
	}

	return partition.Info{
		Name: params.Name,
		Resources: slurm.Resources{
			MaxCoresPerNode:   params.MaxCoresPerNode,
			MaxMemoryMB:       params.MaxMemoryMB,
			GPUTemplate:       params.GPUTemplate,
			MaxGPUs:           params.MaxGPUs,
			MaxRuntimeSeconds: params.MaxRuntimeSeconds,
		},
		DisplayCounts: slurm.DisplayCounts{
			NodesTotal: 48,
			NodesIdle:  46,
			CoresTotal: 1680,
			CoresIdle:  1642,
		},
		Architecture: params.Architecture,
		Description:  params.Description,
		Simple:       params.Simple,
		Environments: params.Environments,
	}
}
