package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/verify"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/trace"
)

var (
	dumpStopAt  int
	dumpMaxHeap string
)

func init() {
	rootCmd.AddCommand(newDumpCmd())
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <trace>",
		Short: "Replay a trace and print the resulting chunk map",
		Long: `The dump command replays a trace (optionally only its first N requests)
and prints every chunk of the heap in address order, followed by free-list
statistics and the result of the invariant checks.

Example:
  heapctl dump traces/short1.rep
  heapctl dump traces/short1.rep --stop-at 6
  heapctl dump traces/short1.rep --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args)
		},
	}

	cmd.Flags().IntVar(&dumpStopAt, "stop-at", 0, "Replay only the first N requests (0 = all)")
	cmd.Flags().StringVar(&dumpMaxHeap, "max-heap", "20MiB", "Largest size the heap may grow to")
	return cmd
}

// chunkRow is the JSON shape of one chunk.
type chunkRow struct {
	Offset   int    `json:"offset"`
	Size     int    `json:"size"`
	State    string `json:"state"`
	Payload  uint32 `json:"payload"`
	Capacity int    `json:"capacity"`
}

// dumpOutput is the JSON shape of a dump.
type dumpOutput struct {
	Trace       string     `json:"trace"`
	Requests    int        `json:"requests"`
	HeapSize    int        `json:"heap_size"`
	Chunks      []chunkRow `json:"chunks"`
	FreeChunks  int        `json:"free_chunks"`
	FreeBytes   int        `json:"free_bytes"`
	LargestFree int        `json:"largest_free"`
	Violations  []string   `json:"violations"`
}

func runDump(args []string) error {
	path := args[0]

	maxHeap, err := humanize.ParseBytes(dumpMaxHeap)
	if err != nil {
		return fmt.Errorf("invalid --max-heap %q: %w", dumpMaxHeap, err)
	}
	// Offsets are 32-bit; a larger reservation could never be used.
	maxHeap = min(maxHeap, format.MaxHeapSize)

	printVerbose("Loading trace: %s\n", path)
	tr, err := trace.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load trace: %w", err)
	}
	if dumpStopAt < 0 {
		return fmt.Errorf("--stop-at must not be negative, got %d", dumpStopAt)
	}
	if dumpStopAt > 0 && dumpStopAt < len(tr.Ops) {
		tr.Ops = tr.Ops[:dumpStopAt]
	}

	a, err := alloc.New(heap.NewMemory(int(maxHeap)), &alloc.Options{Logger: newLogger()})
	if err != nil {
		return err
	}
	if _, err := trace.Replay(a, tr); err != nil {
		return err
	}

	out := dumpOutput{
		Trace:      tr.Name,
		Requests:   len(tr.Ops),
		HeapSize:   a.Size(),
		Violations: []string{},
	}
	for c := range a.Chunks() {
		state := "alloc"
		if c.Free {
			state = "free"
		}
		out.Chunks = append(out.Chunks, chunkRow{
			Offset:   c.Offset,
			Size:     c.Size,
			State:    state,
			Payload:  uint32(c.Payload()),
			Capacity: c.Capacity(),
		})
	}
	for c := range a.FreeChunks() {
		out.FreeChunks++
		out.FreeBytes += c.Size
		out.LargestFree = max(out.LargestFree, c.Size)
	}
	for _, v := range verify.Heap(a.Region().Bytes()) {
		out.Violations = append(out.Violations, v.Error())
	}

	if jsonOut {
		return printJSON(out)
	}

	printInfo("\nHeap after %s request(s) of %s:\n",
		numbers.Sprintf("%d", out.Requests), out.Trace)
	printInfo("  Size: %s (%s bytes)\n",
		humanize.IBytes(uint64(out.HeapSize)), numbers.Sprintf("%d", out.HeapSize))

	printInfo("\n  %-10s %10s %-6s %10s\n", "OFFSET", "SIZE", "STATE", "PAYLOAD")
	for _, c := range out.Chunks {
		printInfo("  0x%08X %10d %-6s 0x%08X\n", c.Offset, c.Size, c.State, c.Payload)
	}

	printInfo("\nFree list:\n")
	printInfo("  Chunks:  %d\n", out.FreeChunks)
	printInfo("  Bytes:   %s\n", humanize.IBytes(uint64(out.FreeBytes)))
	printInfo("  Largest: %s\n", humanize.IBytes(uint64(out.LargestFree)))

	printInfo("\nValidation:\n")
	if len(out.Violations) == 0 {
		printInfo("  ✓ All heap invariants hold\n")
		return nil
	}
	for _, v := range out.Violations {
		printInfo("  ✗ %s\n", v)
	}
	return fmt.Errorf("%d heap invariant violation(s)", len(out.Violations))
}
