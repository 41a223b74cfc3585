package core

import "context"

// Well-known iteration context keys.
const (
	VarIteration  = "iteration"
	VarBatchIndex = "batchIndex"
	VarWorkload   = "workload"
)

// Variables is the per-worker iteration context read by document templates.
type Variables interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MapVariables is a simple map-based Variables implementation.
// It is owned by a single worker and is not safe for concurrent use.
type MapVariables struct {
	data map[string]any
}

func NewVariables() *MapVariables {
	return &MapVariables{data: make(map[string]any)}
}

func (v *MapVariables) Get(key string) (any, bool) {
	val, ok := v.data[key]
	return val, ok
}

func (v *MapVariables) Set(key string, value any) {
	v.data[key] = value
}

// SetAll copies every entry of m into v.
func (v *MapVariables) SetAll(m map[string]string) {
	for k, val := range m {
		v.data[k] = val
	}
}

// Clear removes all bindings.
func (v *MapVariables) Clear() {
	clear(v.data)
}

// Len returns the number of bindings.
func (v *MapVariables) Len() int {
	return len(v.data)
}

type contextKey string

const workerIDContextKey contextKey = "workerID"

func ContextWithWorkerID(ctx context.Context, workerID int) context.Context {
	return context.WithValue(ctx, workerIDContextKey, workerID)
}

func WorkerIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(workerIDContextKey).(int); ok {
		return id
	}
	return 0
}
