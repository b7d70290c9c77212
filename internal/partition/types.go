package partition

import "hatchery-backend/internal/slurm"

// JupyterEnvironment is one selectable runtime inside a partition: either a
// directory holding the single-user server binaries, a set of modules to load,
// or a container image.
type JupyterEnvironment struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Path        string `json:"path"`
	Modules     string `json:"modules"`
	AddToPath   bool   `json:"addToPath"`
	Prologue    string `json:"prologue,omitempty"`
}

// Overrides are the optional static resource limits of a catalogue entry. A
// nil field defers to the live scheduler value; a present field wins, even
// when it is more permissive. An explicit empty GPUTemplate declares the
// partition GPU-less regardless of what the scheduler reports.
type Overrides struct {
	GPUTemplate       *string
	MaxGPUs           *int
	MaxCoresPerNode   *int
	MaxRuntimeSeconds *int
}

// Config is one administrator-declared partition catalogue entry.
type Config struct {
	Name         string
	Architecture string
	Description  string
	Simple       bool
	Environments []JupyterEnvironment
	Overrides    Overrides
}

// Environment returns the environment with the given id.
func (c Config) Environment(id string) (JupyterEnvironment, bool) {
	for _, env := range c.Environments {
		if env.ID == id {
			return env, true
		}
	}
	return JupyterEnvironment{}, false
}

// Info is the reconciled authoritative record for one partition: live
// scheduler data overlaid with the catalogue entry.
type Info struct {
	Name string `json:"name"`
	slurm.Resources
	slurm.DisplayCounts
	Architecture string               `json:"architecture"`
	Description  string               `json:"description"`
	Simple       bool                 `json:"simple"`
	Environments []JupyterEnvironment `json:"environments"`
}

// DefaultEnvironment is the first declared environment. Declaration order is
// meaning, not cosmetics, which is why catalogues preserve it.
func (i Info) DefaultEnvironment() JupyterEnvironment {
	return i.Environments[0]
}

// Environment looks an environment up by id.
func (i Info) Environment(id string) (JupyterEnvironment, bool) {
	for _, env := range i.Environments {
		if env.ID == id {
			return env, true
		}
	}
	return JupyterEnvironment{}, false
}
