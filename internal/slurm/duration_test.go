package slurm_test

import (
	"errors"
	"testing"
	"time"

	"hatchery-backend/internal"
	"hatchery-backend/internal/slurm"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeLimit(t *testing.T) {
	testCases := []struct {
		name     string
		value    string
		expected time.Duration
		wantErr  bool
	}{
		{
			name:     "Should parse a full days-hours:minutes:seconds limit",
			value:    "1-00:00:00",
			expected: 24 * time.Hour,
		},
		{
			name:     "Should parse hours and minutes",
			value:    "2:30",
			expected: 2*time.Hour + 30*time.Minute,
		},
		{
			name:     "Should parse a bare hour count",
			value:    "30",
			expected: 30 * time.Hour,
		},
		{
			name:     "Should parse hours minutes and seconds",
			value:    "0:45:30",
			expected: 45*time.Minute + 30*time.Second,
		},
		{
			name:     "Should parse days with bare hours",
			value:    "5-12",
			expected: 5*24*time.Hour + 12*time.Hour,
		},
		{
			name:     "Should parse single digit components",
			value:    "1-2:3:4",
			expected: 26*time.Hour + 3*time.Minute + 4*time.Second,
		},
		{
			name:     "Should allow hours beyond a day",
			value:    "24:00:00",
			expected: 24 * time.Hour,
		},
		{
			name:     "Should parse a zero limit",
			value:    "0",
			expected: 0,
		},
		{
			name:     "Should map infinite to the maximum duration",
			value:    "infinite",
			expected: slurm.MaxDuration,
		},
		{
			name:    "Should reject an empty value",
			value:   "",
			wantErr: true,
		},
		{
			name:    "Should reject minutes above fifty nine",
			value:   "25:99",
			wantErr: true,
		},
		{
			name:    "Should reject seconds above fifty nine",
			value:   "1:30:60",
			wantErr: true,
		},
		{
			name:    "Should reject a dangling day separator",
			value:   "1-",
			wantErr: true,
		},
		{
			name:    "Should reject a leading colon",
			value:   ":30",
			wantErr: true,
		},
		{
			name:    "Should reject negative values",
			value:   "-1",
			wantErr: true,
		},
		{
			name:    "Should reject non-numeric values",
			value:   "soon",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := slurm.ParseTimeLimit(tc.value)
			if tc.wantErr {
				assert.Error(t, err)
				var parseErr *internal.ParseError
				assert.True(t, errors.As(err, &parseErr), "expected a parse error, got %v", err)
				assert.Equal(t, "timelimit", parseErr.Field)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
