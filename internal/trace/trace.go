package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrSyntax indicates a malformed trace file.
	ErrSyntax = errors.New("trace: syntax error")

	// ErrMismatch indicates that the allocator returned a block that fails a
	// replay check.
	ErrMismatch = errors.New("trace: replay check failed")
)

// Kind is the request type of one trace line.
type Kind byte

const (
	KindAlloc   Kind = 'a'
	KindRealloc Kind = 'r'
	KindFree    Kind = 'f'
)

func (k Kind) String() string {
	switch k {
	case KindAlloc:
		return "alloc"
	case KindRealloc:
		return "realloc"
	case KindFree:
		return "free"
	default:
		return fmt.Sprintf("Kind(%q)", byte(k))
	}
}

// Op is one request.
type Op struct {
	Kind Kind
	ID   int
	Size int // zero for frees
	Line int // 1-based line in the source file
}

// Trace is a parsed trace file.
type Trace struct {
	Name          string
	SuggestedHeap int
	NumIDs        int
	Weight        int
	Ops           []Op
}

// Load parses the trace file at path.
func Load(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, filepath.Base(path))
}

const (
	// MaxIDs is the largest block id count a trace header may declare.
	MaxIDs = 1 << 24

	// opsHint caps the request slice preallocated from the header count.
	opsHint = 1 << 16
)

// blockState tracks a block id while a trace is parsed.
type blockState uint8

const (
	blockUnused   blockState = iota
	blockLive                // allocated and not yet released
	blockReleased            // released by a zero-size realloc; a free is still allowed
)

// Parse reads a trace. name is only used in error messages.
//
// Besides syntax, Parse checks that the request sequence is well formed:
// ids are in range, a block is not allocated twice while live, only live
// blocks are reallocated or freed, and the header's request count matches.
// A zero-size realloc releases the block: the id may be allocated again, and
// a later free of it is accepted and skipped by Replay.
func Parse(r io.Reader, name string) (*Trace, error) {
	p := &parser{sc: bufio.NewScanner(r), name: name}
	tr := &Trace{Name: name}

	header := []*int{&tr.SuggestedHeap, &tr.NumIDs, new(int), &tr.Weight}
	for i, dst := range header {
		line, ok := p.next()
		if !ok {
			return nil, p.errorf("missing header field %d of %d", i+1, len(header))
		}
		v, err := strconv.Atoi(line)
		if err != nil || v < 0 {
			return nil, p.errorf("header field %d: %q is not a non-negative integer", i+1, line)
		}
		*dst = v
	}
	numOps := *header[2]
	if tr.NumIDs > MaxIDs {
		return nil, p.errorf("header declares %d block ids, limit is %d", tr.NumIDs, MaxIDs)
	}
	tr.Ops = make([]Op, 0, min(numOps, opsHint))

	state := make([]blockState, tr.NumIDs)
	for {
		line, ok := p.next()
		if !ok {
			break
		}
		op, err := p.op(line, tr.NumIDs)
		if err != nil {
			return nil, err
		}

		switch op.Kind {
		case KindAlloc:
			if state[op.ID] == blockLive {
				return nil, p.errorf("block %d allocated twice", op.ID)
			}
			state[op.ID] = blockLive
		case KindRealloc:
			if state[op.ID] != blockLive {
				return nil, p.errorf("realloc of block %d which is not live", op.ID)
			}
			if op.Size == 0 {
				state[op.ID] = blockReleased
			}
		case KindFree:
			if state[op.ID] == blockUnused {
				return nil, p.errorf("free of block %d which is not live", op.ID)
			}
			state[op.ID] = blockUnused
		}
		tr.Ops = append(tr.Ops, op)
	}
	if err := p.sc.Err(); err != nil {
		return nil, fmt.Errorf("trace: %s: %w", name, err)
	}
	if len(tr.Ops) != numOps {
		return nil, fmt.Errorf("%w: %s: header declares %d requests, found %d",
			ErrSyntax, name, numOps, len(tr.Ops))
	}
	return tr, nil
}

type parser struct {
	sc   *bufio.Scanner
	name string
	line int
}

// next returns the next non-blank, non-comment line, trimmed.
func (p *parser) next() (string, bool) {
	for p.sc.Scan() {
		p.line++
		s := strings.TrimSpace(p.sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		return s, true
	}
	return "", false
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s:%d: %s", ErrSyntax, p.name, p.line, fmt.Sprintf(format, args...))
}

func (p *parser) op(line string, numIDs int) (Op, error) {
	fields := strings.Fields(line)
	if len(fields[0]) != 1 {
		return Op{}, p.errorf("unknown request %q", fields[0])
	}
	op := Op{Kind: Kind(fields[0][0]), Line: p.line}

	want := 3
	switch op.Kind {
	case KindAlloc, KindRealloc:
	case KindFree:
		want = 2
	default:
		return Op{}, p.errorf("unknown request %q", fields[0])
	}
	if len(fields) != want {
		return Op{}, p.errorf("%s takes %d fields, got %d", op.Kind, want, len(fields))
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil || id < 0 || id >= numIDs {
		return Op{}, p.errorf("block id %q out of range [0, %d)", fields[1], numIDs)
	}
	op.ID = id

	if want == 3 {
		size, err := strconv.Atoi(fields[2])
		if err != nil || size < 0 {
			return Op{}, p.errorf("size %q is not a non-negative integer", fields[2])
		}
		op.Size = size
	}
	return op, nil
}

// Format writes tr in the trace file format.
func (tr *Trace) Format(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n%d\n%d\n%d\n", tr.SuggestedHeap, tr.NumIDs, len(tr.Ops), tr.Weight)
	for _, op := range tr.Ops {
		if op.Kind == KindFree {
			fmt.Fprintf(bw, "%c %d\n", op.Kind, op.ID)
			continue
		}
		fmt.Fprintf(bw, "%c %d %d\n", op.Kind, op.ID, op.Size)
	}
	return bw.Flush()
}
