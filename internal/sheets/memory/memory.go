// Package memory is an in-process result exporter for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"ledgerview/internal/results"
	ports "ledgerview/internal/sheets"
)

type Exporter struct {
	mu      sync.Mutex
	exports [][][]any
}

var _ ports.ResultExporter = (*Exporter)(nil)

func New() *Exporter { return &Exporter{} }

// Export keeps the rows and returns a synthetic reference.
func (e *Exporter) Export(_ context.Context, in results.RenderInstruction) (string, error) {
	rows := ports.ToValues(in)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exports = append(e.exports, rows)
	return fmt.Sprintf("mem:%d", len(e.exports)), nil
}

// Last returns the rows of the latest export, or nil.
func (e *Exporter) Last() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.exports) == 0 {
		return nil
	}
	return e.exports[len(e.exports)-1]
}

func (e *Exporter) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.exports)
}
