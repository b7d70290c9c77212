package spawn_test

import (
	"errors"
	"testing"

	"hatchery-backend/internal"
	"hatchery-backend/internal/partition"
	"hatchery-backend/internal/spawn"
	"hatchery-backend/test/testdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogueEnvironments() []partition.JupyterEnvironment {
	return []partition.JupyterEnvironment{
		{
			ID:          "datascience",
			Description: "Python data science stack",
			Modules:     "anaconda3",
			AddToPath:   true,
		},
		{
			ID:          "lab",
			Description: "Shared JupyterLab install",
			Path:        "/opt/jupyter/bin",
			AddToPath:   true,
			Prologue:    "export JUPYTER_PATH=/shared/jupyter",
		},
		{
			ID:          "cuda",
			Description: "CUDA runtime image",
			Path:        "/containers/jupyter-cuda.sif",
		},
	}
}

func TestBuilder_Build(t *testing.T) {
	testCases := []struct {
		name        string
		builderOpts spawn.BuilderOptions
		mutate      func(opts *spawn.UserOptions)
		info        partition.Info
		validate    func(t *testing.T, spec spawn.LaunchSpec)
	}{
		{
			name: "Should pick the default environment when none is requested",
			info: testdata.NewPartitionInfo(testdata.PartitionWithEnvironments(catalogueEnvironments()...)),
			validate: func(t *testing.T, spec spawn.LaunchSpec) {
				assert.Equal(t, []string{"jupyterhub-singleuser"}, spec.Command)
				assert.Equal(t, "module load anaconda3", spec.Prologue)
				assert.Equal(t, "datascience", spec.Environment.ID)
				assert.False(t, spec.Environment.Custom)
				assert.False(t, spec.Environment.Container)
			},
		},
		{
			name: "Should use the declared environment when its id is requested",
			mutate: func(opts *spawn.UserOptions) {
				opts.EnvironmentID = "lab"
			},
			info: testdata.NewPartitionInfo(testdata.PartitionWithEnvironments(catalogueEnvironments()...)),
			validate: func(t *testing.T, spec spawn.LaunchSpec) {
				assert.Equal(t, []string{"/opt/jupyter/bin/jupyterhub-singleuser"}, spec.Command)
				assert.Equal(t, "export JUPYTER_PATH=/shared/jupyter\nexport PATH=\"/opt/jupyter/bin:$PATH\"", spec.Prologue)
				assert.Equal(t, "lab", spec.Environment.ID)
				assert.False(t, spec.Environment.Custom)
			},
		},
		{
			name: "Should build a custom environment from the submitted fields",
			mutate: func(opts *spawn.UserOptions) {
				opts.EnvironmentPath = "/home/user/envs/jlab/bin"
				opts.EnvironmentModules = "gcc"
			},
			info: testdata.NewPartitionInfo(testdata.PartitionWithEnvironments(catalogueEnvironments()...)),
			validate: func(t *testing.T, spec spawn.LaunchSpec) {
				assert.Equal(t, []string{"/home/user/envs/jlab/bin/jupyterhub-singleuser"}, spec.Command)
				assert.Equal(t, "module load gcc\nexport PATH=\"/home/user/envs/jlab/bin:$PATH\"", spec.Prologue)
				assert.True(t, spec.Environment.Custom)
				assert.Equal(t, "", spec.Environment.ID)
			},
		},
		{
			name: "Should fall back to a custom environment for an unknown id",
			mutate: func(opts *spawn.UserOptions) {
				opts.EnvironmentID = "phantom"
				opts.EnvironmentPath = "/home/user/envs/jlab/bin"
			},
			info: testdata.NewPartitionInfo(testdata.PartitionWithEnvironments(catalogueEnvironments()...)),
			validate: func(t *testing.T, spec spawn.LaunchSpec) {
				assert.True(t, spec.Environment.Custom)
				assert.Equal(t, "/home/user/envs/jlab/bin", spec.Environment.Path)
			},
		},
		{
			name: "Should execute container images instead of extending the path",
			mutate: func(opts *spawn.UserOptions) {
				opts.EnvironmentID = "cuda"
			},
			info: testdata.NewPartitionInfo(testdata.PartitionWithEnvironments(catalogueEnvironments()...)),
			validate: func(t *testing.T, spec spawn.LaunchSpec) {
				assert.Equal(t, []string{"singularity", "exec", "/containers/jupyter-cuda.sif", "jupyterhub-singleuser"}, spec.Command)
				assert.True(t, spec.Environment.Container)
				assert.NotContains(t, spec.Prologue, "export PATH=")
			},
		},
		{
			name: "Should detect a submitted container image",
			mutate: func(opts *spawn.UserOptions) {
				opts.EnvironmentPath = "/home/user/images/custom.sif"
			},
			info: testdata.NewPartitionInfo(testdata.PartitionWithEnvironments(catalogueEnvironments()...)),
			validate: func(t *testing.T, spec spawn.LaunchSpec) {
				assert.Equal(t, []string{"singularity", "exec", "/home/user/images/custom.sif", "jupyterhub-singleuser"}, spec.Command)
				assert.True(t, spec.Environment.Container)
				assert.True(t, spec.Environment.Custom)
			},
		},
		{
			name: "Should order the prologue deployment first",
			builderOpts: spawn.BuilderOptions{
				BasePrologue: "source /etc/profile.d/modules.sh",
			},
			mutate: func(opts *spawn.UserOptions) {
				opts.EnvironmentID = "lab"
			},
			info: testdata.NewPartitionInfo(testdata.PartitionWithEnvironments(
				partition.JupyterEnvironment{
					ID:          "lab",
					Description: "Everything at once",
					Path:        "/opt/conda/bin",
					Modules:     "anaconda3",
					AddToPath:   true,
					Prologue:    "export JUPYTER_PATH=/shared/jupyter",
				},
			)),
			validate: func(t *testing.T, spec spawn.LaunchSpec) {
				assert.Equal(t,
					"source /etc/profile.d/modules.sh\n"+
						"export JUPYTER_PATH=/shared/jupyter\n"+
						"module load anaconda3\n"+
						"export PATH=\"/opt/conda/bin:$PATH\"",
					spec.Prologue)
			},
		},
		{
			name: "Should request exclusive access at the core ceiling",
			mutate: func(opts *spawn.UserOptions) {
				opts.NProcs = 35
			},
			info: testdata.NewPartitionInfo(testdata.PartitionWithEnvironments(catalogueEnvironments()...)),
			validate: func(t *testing.T, spec spawn.LaunchSpec) {
				assert.True(t, spec.Exclusive)
				assert.Equal(t, "--exclusive", spec.Options)
			},
		},
		{
			name: "Should request exclusive access for a zero memory request",
			mutate: func(opts *spawn.UserOptions) {
				opts.Memory = "0"
				opts.Options = "--qos=debug"
			},
			info: testdata.NewPartitionInfo(testdata.PartitionWithEnvironments(catalogueEnvironments()...)),
			validate: func(t *testing.T, spec spawn.LaunchSpec) {
				assert.True(t, spec.Exclusive)
				assert.Equal(t, "--exclusive --qos=debug", spec.Options)
			},
		},
		{
			name: "Should fill the gres template",
			mutate: func(opts *spawn.UserOptions) {
				opts.NGPUs = 2
			},
			info: testdata.NewPartitionInfo(
				testdata.PartitionWithGPU("gpu:tesla:{}", 8),
				testdata.PartitionWithEnvironments(catalogueEnvironments()...),
			),
			validate: func(t *testing.T, spec spawn.LaunchSpec) {
				assert.Equal(t, "gpu:tesla:2", spec.Gres)
				assert.Equal(t, 2, spec.NGPUs)
			},
		},
		{
			name: "Should carry the passthrough fields",
			builderOpts: spawn.BuilderOptions{
				KeepEnvironment: []string{"PATH", "LANG"},
			},
			mutate: func(opts *spawn.UserOptions) {
				opts.Runtime = "2:00"
				opts.Memory = "8G"
				opts.Reservation = "maintenance"
				opts.DefaultURL = "/lab"
				opts.RootDir = "/home/user"
			},
			info: testdata.NewPartitionInfo(testdata.PartitionWithEnvironments(catalogueEnvironments()...)),
			validate: func(t *testing.T, spec spawn.LaunchSpec) {
				assert.Equal(t, "defq", spec.Partition)
				assert.Equal(t, "2:00", spec.Runtime)
				assert.Equal(t, "8G", spec.Memory)
				assert.Equal(t, "maintenance", spec.Reservation)
				assert.Equal(t, "/lab", spec.DefaultURL)
				assert.Equal(t, "/home/user", spec.RootDir)
				assert.Equal(t, "/dev/null", spec.Output)
				assert.Equal(t, []string{"PATH", "LANG"}, spec.KeepEnvironment)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			builder := spawn.NewBuilder(tc.builderOpts)
			opts := validOptions()
			opts.Runtime = ""
			opts.Memory = ""
			if tc.mutate != nil {
				tc.mutate(&opts)
			}

			spec, err := builder.Build(opts, tc.info)
			require.NoError(t, err)
			tc.validate(t, spec)
		})
	}
}

func TestBuilder_Build_RefusesGPUsWithoutTemplate(t *testing.T) {
	builder := spawn.NewBuilder(spawn.BuilderOptions{})
	opts := validOptions()
	opts.NGPUs = 1
	info := testdata.NewPartitionInfo(testdata.PartitionWithEnvironments(catalogueEnvironments()...))

	_, err := builder.Build(opts, info)
	assert.Error(t, err)
	var unavailableErr *internal.ResourceUnavailableError
	if assert.True(t, errors.As(err, &unavailableErr), "expected a resource availability error, got %v", err) {
		assert.Equal(t, "defq", unavailableErr.Partition)
	}
}

func TestBuilder_Build_CustomSingleuserCommand(t *testing.T) {
	builder := spawn.NewBuilder(spawn.BuilderOptions{
		SingleuserCommand: "batchspawner-singleuser jupyterhub-singleuser",
	})
	opts := validOptions()
	info := testdata.NewPartitionInfo(testdata.PartitionWithEnvironments(
		partition.JupyterEnvironment{ID: "base", Description: "System python", Path: "/usr/bin", AddToPath: true},
	))

	spec, err := builder.Build(opts, info)
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/bin/batchspawner-singleuser jupyterhub-singleuser"}, spec.Command)
}
