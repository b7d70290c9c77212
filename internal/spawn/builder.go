package spawn

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"hatchery-backend/internal"
	"hatchery-backend/internal/partition"
)

// BuilderOptions carries the deployment-wide launch settings. Zero values fall
// back to the conventional Jupyter-on-Slurm setup.
type BuilderOptions struct {
	SingleuserCommand string
	ContainerExec     []string
	ContainerSuffix   string
	BasePrologue      string
	KeepEnvironment   []string
}

// Builder turns a validated request and its partition record into the final
// launch parameters.
type Builder struct {
	singleuserCommand string
	containerExec     []string
	containerSuffix   string
	basePrologue      string
	keepEnvironment   []string
}

func NewBuilder(opts BuilderOptions) *Builder {
	if opts.SingleuserCommand == "" {
		opts.SingleuserCommand = "jupyterhub-singleuser"
	}
	if len(opts.ContainerExec) == 0 {
		opts.ContainerExec = []string{"singularity", "exec"}
	}
	if opts.ContainerSuffix == "" {
		opts.ContainerSuffix = ".sif"
	}
	return &Builder{
		singleuserCommand: opts.SingleuserCommand,
		containerExec:     opts.ContainerExec,
		containerSuffix:   opts.ContainerSuffix,
		basePrologue:      opts.BasePrologue,
		keepEnvironment:   opts.KeepEnvironment,
	}
}

// resolvedEnvironment is the builder's working view of the chosen runtime.
type resolvedEnvironment struct {
	id        string
	path      string
	modules   string
	prologue  string
	addToPath bool
	container bool
	custom    bool
}

// Build assumes opts already passed validation; it still refuses GPU requests
// on GPU-less partitions because that depends on the reconciled record, and a
// stale record between validation and build must not slip through.
func (b *Builder) Build(opts UserOptions, info partition.Info) (LaunchSpec, error) {
	exclusive := false
	options := opts.Options
	if opts.NProcs == info.MaxCoresPerNode || opts.Memory == "0" {
		exclusive = true
		if options == "" {
			options = "--exclusive"
		} else {
			options = "--exclusive " + options
		}
	}

	gres := ""
	if opts.NGPUs > 0 {
		if info.GPUTemplate == "" {
			return LaunchSpec{}, &internal.ResourceUnavailableError{
				Partition: info.Name,
				Resource:  "GPU(s)",
			}
		}
		gres = strings.Replace(info.GPUTemplate, "{}", strconv.Itoa(opts.NGPUs), 1)
	}

	env := b.resolveEnvironment(opts, info)

	return LaunchSpec{
		Partition:       opts.Partition,
		Command:         b.command(env),
		Prologue:        b.prologue(env),
		KeepEnvironment: b.keepEnvironment,
		Environment: ResolvedEnvironment{
			ID:        env.id,
			Path:      env.path,
			Modules:   env.modules,
			Container: env.container,
			Custom:    env.custom,
		},
		Gres:        gres,
		Exclusive:   exclusive,
		Options:     options,
		Output:      opts.Output,
		Runtime:     opts.Runtime,
		Memory:      opts.Memory,
		Reservation: opts.Reservation,
		NProcs:      opts.NProcs,
		NGPUs:       opts.NGPUs,
		DefaultURL:  opts.DefaultURL,
		RootDir:     opts.RootDir,
	}, nil
}

// resolveEnvironment picks the runtime for a spawn. A request naming a known
// environment id uses the catalogue entry as declared; a request with no
// environment fields at all uses the partition's first declared environment;
// anything else is a custom environment built from the submitted path and
// modules. Custom environments always get their path on PATH and never run a
// catalogue prologue.
func (b *Builder) resolveEnvironment(opts UserOptions, info partition.Info) resolvedEnvironment {
	var env resolvedEnvironment

	switch {
	case opts.EnvironmentID == "" && opts.EnvironmentPath == "" && opts.EnvironmentModules == "":
		declared := info.DefaultEnvironment()
		env = resolvedEnvironment{
			id:        declared.ID,
			path:      declared.Path,
			modules:   declared.Modules,
			prologue:  declared.Prologue,
			addToPath: declared.AddToPath,
		}
	default:
		if declared, ok := info.Environment(opts.EnvironmentID); opts.EnvironmentID != "" && ok {
			env = resolvedEnvironment{
				id:        declared.ID,
				path:      declared.Path,
				modules:   declared.Modules,
				prologue:  declared.Prologue,
				addToPath: declared.AddToPath,
			}
		} else {
			env = resolvedEnvironment{
				path:      opts.EnvironmentPath,
				modules:   opts.EnvironmentModules,
				addToPath: true,
				custom:    true,
			}
		}
	}

	// Container images are executed, not prepended to PATH.
	if strings.HasSuffix(env.path, b.containerSuffix) {
		env.container = true
		env.addToPath = false
	}
	return env
}

func (b *Builder) prologue(env resolvedEnvironment) string {
	var lines []string
	if b.basePrologue != "" {
		lines = append(lines, b.basePrologue)
	}
	if env.prologue != "" {
		lines = append(lines, env.prologue)
	}
	if env.modules != "" {
		lines = append(lines, "module load "+env.modules)
	}
	if env.addToPath && env.path != "" {
		lines = append(lines, fmt.Sprintf(`export PATH="%s:$PATH"`, env.path))
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) command(env resolvedEnvironment) []string {
	if env.container {
		command := make([]string, 0, len(b.containerExec)+2)
		command = append(command, b.containerExec...)
		return append(command, env.path, b.singleuserCommand)
	}
	return []string{path.Join(env.path, b.singleuserCommand)}
}
