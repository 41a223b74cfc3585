package core

import (
	"context"
	"testing"
)

func TestMapVariables(t *testing.T) {
	vars := NewVariables()
	vars.Set("key", "value")
	val, ok := vars.Get("key")
	if !ok || val != "value" {
		t.Errorf("expected 'value', got %v", val)
	}
	_, ok = vars.Get("missing")
	if ok {
		t.Error("expected not found")
	}
}

func TestMapVariables_SetAllAndClear(t *testing.T) {
	vars := NewVariables()
	vars.SetAll(map[string]string{"a": "1", "b": "2"})
	if vars.Len() != 2 {
		t.Fatalf("expected 2 bindings, got %d", vars.Len())
	}
	vars.Clear()
	if vars.Len() != 0 {
		t.Errorf("expected no bindings after Clear, got %d", vars.Len())
	}
}

func TestContextWithWorkerID(t *testing.T) {
	ctx := context.Background()
	if id := WorkerIDFromContext(ctx); id != 0 {
		t.Errorf("expected 0, got %d", id)
	}
	ctx = ContextWithWorkerID(ctx, 42)
	if id := WorkerIDFromContext(ctx); id != 42 {
		t.Errorf("expected 42, got %d", id)
	}
}

func TestSample_Normalize(t *testing.T) {
	s := Sample{Records: -1, DurationMillis: -5}.Normalize()
	if s.Records != 0 || s.DurationMillis != 0 {
		t.Errorf("expected zeroed sample, got %+v", s)
	}
}
