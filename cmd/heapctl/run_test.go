package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommand(t *testing.T) {
	tests := []struct {
		name        string
		traces      []string
		check       bool
		maxHeap     string
		wantErr     string
		wantContain []string
	}{
		{
			name:        "single trace",
			traces:      []string{"short1.rep"},
			wantContain: []string{"TRACE", "short1.rep", "total"},
		},
		{
			name:        "several traces with checker",
			traces:      []string{"short1.rep", "realloc.rep"},
			check:       true,
			wantContain: []string{"short1.rep", "realloc.rep", "Checker violations: 0"},
		},
		{
			name:    "heap too small",
			traces:  []string{"short1.rep"},
			maxHeap: "4KiB",
			wantErr: "no free chunk large enough",
		},
		{
			name:    "bad max heap",
			traces:  []string{"short1.rep"},
			maxHeap: "lots",
			wantErr: "invalid --max-heap",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			runCheck = tt.check
			if tt.maxHeap != "" {
				runMaxHeap = tt.maxHeap
			}

			var args []string
			for _, name := range tt.traces {
				args = append(args, tracePath(t, name))
			}

			output, err := captureOutput(t, func() error {
				return runRun(context.Background(), args)
			})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, want := range tt.wantContain {
				assert.Contains(t, output, want)
			}
		})
	}
}

func TestRunCommand_JSON(t *testing.T) {
	resetFlags(t)
	jsonOut = true

	output, err := captureOutput(t, func() error {
		return runRun(context.Background(), []string{tracePath(t, "short1.rep")})
	})
	require.NoError(t, err)

	var sum runSummary
	decodeJSON(t, output, &sum)
	require.Len(t, sum.Results, 1)
	assert.Equal(t, "short1.rep", sum.Results[0].Name)
	assert.Equal(t, 12, sum.Results[0].Ops)
	assert.Equal(t, 12, sum.TotalOps)
	assert.Zero(t, sum.Violations)
	assert.Greater(t, sum.AvgUtilization, 0.0)
}

func TestRunCommand_MissingTrace(t *testing.T) {
	resetFlags(t)
	_, err := captureOutput(t, func() error {
		return runRun(context.Background(), []string{"does-not-exist.rep"})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load trace")
}
