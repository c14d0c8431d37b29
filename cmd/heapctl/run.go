package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/dirty"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/trace"
)

var (
	runCheck    bool
	runMaxHeap  string
	runHeapFile string
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <trace>...",
		Short: "Replay trace files and report utilization and throughput",
		Long: `The run command replays each trace file against a fresh heap, checks every
block the allocator returns, and reports space utilization (peak live payload
over final heap size) and throughput.

With --heap-file the heap lives in a memory-mapped file; modified pages are
flushed when the replay finishes and the file keeps the final heap image.

Example:
  heapctl run traces/short1.rep
  heapctl run traces/*.rep --check --max-heap 64MiB
  heapctl run traces/short1.rep --heap-file /tmp/short1.heap --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), args)
		},
	}

	cmd.Flags().BoolVar(&runCheck, "check", false, "Run the heap consistency checker around every operation")
	cmd.Flags().StringVar(&runMaxHeap, "max-heap", "20MiB", "Largest size the heap may grow to")
	cmd.Flags().StringVar(&runHeapFile, "heap-file", "", "Back the heap with a memory-mapped file at this path")
	return cmd
}

// runSummary is the JSON shape of a run.
type runSummary struct {
	Results        []*trace.Result `json:"results"`
	AvgUtilization float64         `json:"avg_utilization"`
	TotalOps       int             `json:"total_ops"`
	Throughput     float64         `json:"ops_per_sec"`
	Violations     int             `json:"violations"`
}

func runRun(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	maxHeap, err := humanize.ParseBytes(runMaxHeap)
	if err != nil {
		return fmt.Errorf("invalid --max-heap %q: %w", runMaxHeap, err)
	}
	// Offsets are 32-bit; a larger reservation could never be used.
	maxHeap = min(maxHeap, format.MaxHeapSize)

	var sum runSummary
	var elapsed float64
	for i, path := range args {
		heapFile := runHeapFile
		if heapFile != "" && len(args) > 1 {
			heapFile = fmt.Sprintf("%s.%d", runHeapFile, i)
		}

		res, violations, err := replayOne(ctx, path, int(maxHeap), heapFile)
		if err != nil {
			return err
		}
		sum.Results = append(sum.Results, res)
		sum.TotalOps += res.Ops
		sum.AvgUtilization += res.Utilization
		sum.Violations += violations
		elapsed += res.Elapsed.Seconds()
	}
	sum.AvgUtilization /= float64(len(sum.Results))
	if elapsed > 0 {
		sum.Throughput = float64(sum.TotalOps) / elapsed
	}

	if jsonOut {
		return printJSON(sum)
	}

	printInfo("\n%-20s %10s %12s %8s %14s\n", "TRACE", "OPS", "HEAP", "UTIL", "OPS/SEC")
	for _, r := range sum.Results {
		printInfo("%-20s %10s %12s %7.1f%% %14s\n",
			r.Name,
			numbers.Sprintf("%d", r.Ops),
			humanize.IBytes(uint64(r.HeapSize)),
			r.Utilization*100,
			numbers.Sprintf("%.0f", r.Throughput),
		)
	}
	printInfo("%-20s %10s %12s %7.1f%% %14s\n",
		"total",
		numbers.Sprintf("%d", sum.TotalOps),
		"",
		sum.AvgUtilization*100,
		numbers.Sprintf("%.0f", sum.Throughput),
	)
	if runCheck {
		printInfo("\nChecker violations: %d\n", sum.Violations)
	}
	if sum.Violations > 0 {
		return fmt.Errorf("%d heap invariant violation(s) reported", sum.Violations)
	}
	return nil
}

// replayOne replays a single trace on a fresh heap and returns the result and
// the number of checker violations.
func replayOne(ctx context.Context, path string, maxHeap int, heapFile string) (*trace.Result, int, error) {
	printVerbose("Loading trace: %s\n", path)
	tr, err := trace.Load(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load trace: %w", err)
	}

	var (
		r  heap.Region
		dt *dirty.Tracker
	)
	if heapFile != "" {
		printVerbose("Mapping heap file: %s (max %s)\n", heapFile, humanize.IBytes(uint64(maxHeap)))
		f, err := heap.OpenFile(heapFile, maxHeap)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to open heap file: %w", err)
		}
		defer f.Close()
		r, dt = f, dirty.NewTracker(f)
	} else {
		r = heap.NewMemory(maxHeap)
	}

	opts := &alloc.Options{Logger: newLogger(), Check: runCheck}
	if dt != nil {
		opts.Tracker = dt
	}
	a, err := alloc.New(r, opts)
	if err != nil {
		return nil, 0, err
	}

	res, err := trace.Replay(a, tr)
	if err != nil {
		return nil, 0, err
	}

	// Final full check, independent of --check.
	a.Check(filepath.Base(path) + " end")
	violations := a.Stats().Violations

	if dt != nil {
		printVerbose("Flushing %d dirty range(s)\n", dt.Len())
		if err := dt.Flush(ctx); err != nil {
			return nil, 0, fmt.Errorf("failed to flush heap file: %w", err)
		}
	}

	st := a.Stats()
	printVerbose("%s: %d grows (%s), %d splits, %d+%d coalesces\n",
		tr.Name, st.GrowCalls, humanize.IBytes(uint64(st.GrowBytes)),
		st.SplitCount, st.CoalesceBackward, st.CoalesceForward)
	return res, violations, nil
}
