package sheets

import (
	"context"

	"ledgerview/internal/results"
)

// ResultExporter writes a render instruction somewhere outside the process
// and returns a reference to what it wrote.
type ResultExporter interface {
	Export(ctx context.Context, in results.RenderInstruction) (ref string, err error)
}
