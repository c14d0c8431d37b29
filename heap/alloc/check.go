package alloc

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/joshuapare/heapkit/heap/verify"
)

// Check runs every heap invariant check and logs each violation at error
// level, tagged with site. It never changes the heap and never aborts; the
// violations are also returned so tests can assert on them.
//
// An empty site is replaced by the caller's file:line.
func (a *Allocator) Check(site string) []*verify.ValidationError {
	if site == "" {
		site = callerSite(2)
	}

	errs := verify.Heap(a.r.Bytes())
	a.stats.Violations += len(errs)
	for _, e := range errs {
		a.log.Error("heap check failed",
			"site", site,
			"type", e.Type,
			"offset", e.Offset,
			"msg", e.Message,
		)
	}
	return errs
}

// callerSite formats the file:line of the frame skip levels up.
func callerSite(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
