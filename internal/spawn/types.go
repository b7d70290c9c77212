package spawn

import (
	"net/url"
	"strconv"
	"strings"

	"hatchery-backend/internal"
)

// UserOptions is a spawn request after form coercion, before validation. The
// json tags double as the form field names violations are reported under.
type UserOptions struct {
	Partition          string `json:"partition" validate:"required,nonewline"`
	Runtime            string `json:"runtime" validate:"nonewline"`
	NProcs             int    `json:"nprocs" validate:"min=1"`
	Memory             string `json:"memory" validate:"nonewline,slurmmem"`
	Reservation        string `json:"reservation" validate:"nonewline"`
	NGPUs              int    `json:"ngpus" validate:"min=0"`
	Options            string `json:"options" validate:"nonewline"`
	Output             string `json:"output"`
	EnvironmentID      string `json:"environment_id" validate:"nonewline"`
	EnvironmentPath    string `json:"environment_path" validate:"nonewline"`
	EnvironmentModules string `json:"environment_modules" validate:"nonewline"`
	DefaultURL         string `json:"default_url" validate:"nonewline,urlpath"`
	RootDir            string `json:"root_dir" validate:"nonewline"`
}

const (
	outputLogFile = "slurm-%j.out"
	outputDevNull = "/dev/null"
)

// OptionsFromForm coerces raw form data into UserOptions. Only the first value
// of a field counts, values are trimmed, and empty values fall back to the
// field default as if absent. Unknown fields are ignored so form frontends can
// carry extra state. Coercion failures name the offending field; anything
// beyond shape, such as limits, is validation's job.
func OptionsFromForm(form url.Values) (UserOptions, error) {
	opts := UserOptions{
		NProcs: 1,
		Output: outputDevNull,
	}

	first := func(name string) string {
		values := form[name]
		if len(values) == 0 {
			return ""
		}
		return strings.TrimSpace(values[0])
	}

	opts.Partition = first("partition")
	opts.Runtime = first("runtime")
	opts.Reservation = first("reservation")
	opts.Options = first("options")
	opts.EnvironmentID = first("environment_id")
	opts.EnvironmentPath = first("environment_path")
	opts.EnvironmentModules = first("environment_modules")
	opts.DefaultURL = first("default_url")
	opts.RootDir = first("root_dir")

	opts.Memory = first("memory")
	if opts.Memory == "" {
		// Accepted for compatibility with forms that still post "mem".
		opts.Memory = first("mem")
	}

	if raw := first("nprocs"); raw != "" {
		value, err := parseIntField("nprocs", raw)
		if err != nil {
			return UserOptions{}, err
		}
		opts.NProcs = value
	}
	if raw := first("ngpus"); raw != "" {
		value, err := parseIntField("ngpus", raw)
		if err != nil {
			return UserOptions{}, err
		}
		opts.NGPUs = value
	}
	if raw := first("output"); raw != "" {
		if raw == "true" {
			opts.Output = outputLogFile
		} else {
			opts.Output = outputDevNull
		}
	}

	return opts, nil
}

func parseIntField(name, raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &internal.ParseError{
			Field:  name,
			Value:  raw,
			Reason: "must be an integer",
		}
	}
	return value, nil
}

// ResolvedEnvironment records which runtime a spawn resolved to, mostly so
// clients and tests can see what the builder decided.
type ResolvedEnvironment struct {
	ID        string `json:"id,omitempty"`
	Path      string `json:"path,omitempty"`
	Modules   string `json:"modules,omitempty"`
	Container bool   `json:"container"`
	Custom    bool   `json:"custom"`
}

// LaunchSpec is the final launch contract handed to the job submission layer.
// Everything a batch script needs is spelled out here; nothing downstream
// re-derives limits or paths.
type LaunchSpec struct {
	RequestID       string              `json:"requestId"`
	Partition       string              `json:"partition"`
	Command         []string            `json:"command"`
	Prologue        string              `json:"prologue,omitempty"`
	KeepEnvironment []string            `json:"keepEnvironment,omitempty"`
	Environment     ResolvedEnvironment `json:"environment"`
	Gres            string              `json:"gres,omitempty"`
	Exclusive       bool                `json:"exclusive"`
	Options         string              `json:"options,omitempty"`
	Output          string              `json:"output"`
	Runtime         string              `json:"runtime,omitempty"`
	Memory          string              `json:"memory,omitempty"`
	Reservation     string              `json:"reservation,omitempty"`
	NProcs          int                 `json:"nprocs"`
	NGPUs           int                 `json:"ngpus,omitempty"`
	DefaultURL      string              `json:"defaultUrl,omitempty"`
	RootDir         string              `json:"rootDir,omitempty"`
}
