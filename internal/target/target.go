// Package target implements the database operations workers repeat: hash
// inserts, lookups and updates against Redis.
package target

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/redis/go-redis/v9"

	"loadsim/internal/config"
	"loadsim/internal/core"
	"loadsim/internal/template"
)

// scanCount is the COUNT hint for each SCAN page when dropping keys.
const scanCount = 1000

const (
	defaultInsertKey = "${uuid()}"
	defaultLookupKey = "${random(0,9999)}"
)

var ErrUnknownOp = errors.New("unknown target op")

// defaultTemplate is written when a workload defines no template.
var defaultTemplate = map[string]string{
	"workload":   "${workload}",
	"iteration":  "${iteration}",
	"batchIndex": "${batchIndex}",
}

// operation holds what every op needs to address and render documents.
type operation struct {
	client    redis.UniversalClient
	keyPrefix string
	key       string
	template  map[string]string
	batch     int
}

// New returns the unit of work for w.Op. Keys are
// prefix + workload + ":" + rendered key template.
func New(client redis.UniversalClient, w config.Workload, prefix string) (core.UnitOfWork, error) {
	op := operation{
		client:    client,
		keyPrefix: KeyPrefix(prefix, w.Name),
		key:       w.Key,
		template:  w.Template,
		batch:     max(w.Batch, 1),
	}
	if len(op.template) == 0 {
		op.template = defaultTemplate
	}

	switch w.Op {
	case config.OpInsert, "":
		if op.key == "" {
			op.key = defaultInsertKey
		}
		return &insert{op}, nil
	case config.OpUpdate:
		if op.key == "" {
			op.key = defaultLookupKey
		}
		return &update{op}, nil
	case config.OpFind:
		if op.key == "" {
			op.key = defaultLookupKey
		}
		return &find{op}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOp, w.Op)
}

// KeyPrefix returns the namespace of a workload's keys.
func KeyPrefix(prefix, workload string) string {
	return prefix + workload + ":"
}

func (o *operation) renderKey(vars core.Variables) (string, error) {
	k, err := template.Substitute(o.key, vars)
	if err != nil {
		return "", fmt.Errorf("rendering key: %w", err)
	}
	return o.keyPrefix + k, nil
}

// writeBatch renders and pipelines one HSET per batch slot.
func (o *operation) writeBatch(ctx context.Context, vars core.Variables) (int64, error) {
	pipe := o.client.Pipeline()
	for i := 0; i < o.batch; i++ {
		vars.Set(core.VarBatchIndex, i)
		key, err := o.renderKey(vars)
		if err != nil {
			return 0, err
		}
		doc, err := template.Render(o.template, vars)
		if err != nil {
			return 0, fmt.Errorf("rendering document: %w", err)
		}
		pipe.HSet(ctx, key, fieldArgs(doc)...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int64(o.batch), nil
}

// fieldArgs flattens doc into field/value pairs in field order.
func fieldArgs(doc map[string]string) []any {
	args := make([]any, 0, 2*len(doc))
	for _, k := range slices.Sorted(maps.Keys(doc)) {
		args = append(args, k, doc[k])
	}
	return args
}

// insert writes Batch new documents per iteration.
type insert struct{ operation }

func (op *insert) Do(ctx context.Context, vars core.Variables) (int64, error) {
	return op.writeBatch(ctx, vars)
}

// update overwrites the fields of Batch existing keys per iteration.
type update struct{ operation }

func (op *update) Do(ctx context.Context, vars core.Variables) (int64, error) {
	return op.writeBatch(ctx, vars)
}

// find reads one document; the iteration touched one record if it exists.
type find struct{ operation }

func (op *find) Do(ctx context.Context, vars core.Variables) (int64, error) {
	key, err := op.renderKey(vars)
	if err != nil {
		return 0, err
	}
	doc, err := op.client.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if len(doc) == 0 {
		return 0, nil
	}
	return 1, nil
}

// Drop deletes every key matching pattern and returns how many were removed.
// On a cluster client only the node serving the SCAN is covered.
func Drop(ctx context.Context, client redis.UniversalClient, pattern string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return deleted, fmt.Errorf("scanning %q: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("deleting keys: %w", err)
			}
			deleted += n
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}
