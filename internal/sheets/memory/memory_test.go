package memory

import (
	"context"
	"testing"

	"ledgerview/internal/results"
)

func TestExporter_ExportAndLast(t *testing.T) {
	e := New()
	if e.Last() != nil {
		t.Fatal("Last() should be nil before any export")
	}

	ref, err := e.Export(context.Background(), results.Awaiting())
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}
	ref, err = e.Export(context.Background(), results.Dispatch(results.New(results.TextPayload{Text: "hi"})))
	if err != nil || ref != "mem:2" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}

	last := e.Last()
	if len(last) != 2 || last[1][0] != "hi" {
		t.Errorf("Last() = %v", last)
	}
	if e.Len() != 2 {
		t.Errorf("Len() = %d, want 2", e.Len())
	}
}
