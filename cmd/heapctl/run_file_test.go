//go:build linux || darwin

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/verify"
)

func TestRunCommand_HeapFile(t *testing.T) {
	resetFlags(t)
	runHeapFile = filepath.Join(t.TempDir(), "short1.heap")
	jsonOut = true

	output, err := captureOutput(t, func() error {
		return runRun(context.Background(), []string{tracePath(t, "short1.rep")})
	})
	require.NoError(t, err)

	var sum runSummary
	decodeJSON(t, output, &sum)
	require.Len(t, sum.Results, 1)

	image, err := os.ReadFile(runHeapFile)
	require.NoError(t, err)
	require.Len(t, image, sum.Results[0].HeapSize)
	require.NoError(t, verify.AllInvariants(image))
}
