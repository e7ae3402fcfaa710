package upgrade

import (
	"context"
	"fmt"

	"github.com/hpungsan/rnupgrade/internal/diff"
	"github.com/hpungsan/rnupgrade/internal/errors"
)

// Result is what applying an Op produced.
type Result struct {
	Op     Op
	Output string      // text returned to the model for read-only ops
	Change diff.Change // resulting file state for mutating ops
	Undo   func() error
}

// Handler applies one kind of Op.
type Handler func(ctx context.Context, op Op) (Result, error)

// Dispatcher routes Ops to handlers by kind.
type Dispatcher struct {
	handlers [opKindCount]Handler
}

// NewDispatcher builds a dispatch table. Every key must be a valid kind
// with a non-nil handler.
func NewDispatcher(handlers map[OpKind]Handler) (*Dispatcher, error) {
	if len(handlers) == 0 {
		return nil, fmt.Errorf("dispatcher needs at least one handler")
	}
	d := &Dispatcher{}
	served := 0
	for k := OpKind(0); k < opKindCount; k++ {
		h, ok := handlers[k]
		if !ok {
			continue
		}
		if h == nil {
			return nil, fmt.Errorf("nil handler for %s", k)
		}
		d.handlers[k] = h
		served++
	}
	if served != len(handlers) {
		return nil, fmt.Errorf("dispatcher has handlers for unknown operation kinds")
	}
	return d, nil
}

// Dispatch applies op.
func (d *Dispatcher) Dispatch(ctx context.Context, op Op) (Result, error) {
	if !op.Kind.Valid() || d.handlers[op.Kind] == nil {
		return Result{}, errors.NewMalformedFunctionCall(op.Kind.String(), "function not available")
	}
	res, err := d.handlers[op.Kind](ctx, op)
	if err != nil {
		return Result{}, err
	}
	res.Op = op
	return res, nil
}
