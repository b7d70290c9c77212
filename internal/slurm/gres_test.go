package slurm_test

import (
	"errors"
	"testing"

	"hatchery-backend/internal"
	"hatchery-backend/internal/slurm"

	"github.com/stretchr/testify/assert"
)

func TestParseGPUGres(t *testing.T) {
	testCases := []struct {
		name     string
		value    string
		expected slurm.GPUResource
		wantErr  bool
	}{
		{
			name:     "Should parse a plain gpu entry",
			value:    "gpu:tesla_v100:4",
			expected: slurm.GPUResource{Template: "gpu:tesla_v100:{}", Count: 4},
		},
		{
			name:     "Should strip a socket index suffix",
			value:    "gpu:a100:8(S:0-1)",
			expected: slurm.GPUResource{Template: "gpu:a100:{}", Count: 8},
		},
		{
			name:     "Should skip non-gpu entries",
			value:    "craynetwork:4,gpu:k80:2",
			expected: slurm.GPUResource{Template: "gpu:k80:{}", Count: 2},
		},
		{
			name:     "Should keep the first gpu entry when several appear",
			value:    "gpu:v100:4,gpu:p100:2",
			expected: slurm.GPUResource{Template: "gpu:v100:{}", Count: 4},
		},
		{
			name:     "Should trim whitespace around entries",
			value:    "craynetwork:1, gpu:rtx6000:3",
			expected: slurm.GPUResource{Template: "gpu:rtx6000:{}", Count: 3},
		},
		{
			name:    "Should reject the null placeholder",
			value:   "(null)",
			wantErr: true,
		},
		{
			name:    "Should reject a gpu entry without a type",
			value:   "gpu:2",
			wantErr: true,
		},
		{
			name:    "Should reject an empty value",
			value:   "",
			wantErr: true,
		},
		{
			name:    "Should reject a list without gpus",
			value:   "craynetwork:4,hbm:0",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := slurm.ParseGPUGres(tc.value)
			if tc.wantErr {
				assert.Error(t, err)
				var parseErr *internal.ParseError
				assert.True(t, errors.As(err, &parseErr), "expected a parse error, got %v", err)
				assert.Equal(t, "gres", parseErr.Field)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
