// Package state owns a loaded ontology together with its model, and hands out
// exclusive access to the live model one operation at a time.
package state

import (
	"fmt"

	"golang.org/x/exp/rand"

	"termeval/internal/domain"
	"termeval/internal/eval"
	"termeval/internal/expr"
	"termeval/internal/model"
	"termeval/internal/ontology"
	"termeval/internal/simulate"
)

// PanicError reports an operation that panicked while the model was checked out.
// The model is left as it was before the operation.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("model operation panicked: %v", e.Value)
}

// ContextState is always resident: models holds a complete serialized model
// except while Perform has it checked out.
type ContextState struct {
	ctx      *ontology.Context
	ctxBytes []byte
	models   *model.Serialized
}

// New builds a ContextState with a freshly initialized model.
func New(ctxBytes []byte, ctx *ontology.Context, hyper model.Hyperparams) (*ContextState, error) {
	m, err := model.New(ctx, hyper)
	if err != nil {
		return nil, err
	}
	return &ContextState{ctx: ctx, ctxBytes: ctxBytes, models: m.Serialize()}, nil
}

func (cs *ContextState) Context() *ontology.Context { return cs.ctx }

// ContextBytes returns the serialized ontology the state was created from.
func (cs *ContextState) ContextBytes() []byte { return cs.ctxBytes }

// Perform checks the model out, runs op against the live model and checks the
// (possibly mutated) model back in. Errors returned by op do not abort the
// checkout. If op panics, the model checked out is restored unchanged.
func Perform[R any](cs *ContextState, op func(*model.Model) (R, error)) (result R, err error) {
	checkedOut := cs.models
	cs.models = model.Empty()

	live, err := model.Deserialize(checkedOut, cs.ctx)
	if err != nil {
		cs.models = checkedOut
		return result, fmt.Errorf("check out model: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			cs.models = checkedOut
			err = &PanicError{Value: r}
			return
		}
		cs.models = live.Serialize()
	}()
	return op(live)
}

// Eval evaluates e against the live model, growing its tables as a side effect.
func (cs *ContextState) Eval(e expr.Expression) (domain.TermReference, error) {
	return Perform(cs, func(m *model.Model) (domain.TermReference, error) {
		return eval.Expression(m, e)
	})
}

// UpdateModels runs one Bayesian update step and clears the pending queue.
func (cs *ContextState) UpdateModels() (model.UpdateSummary, error) {
	return Perform(cs, func(m *model.Model) (model.UpdateSummary, error) {
		sum := m.BayesianUpdateStep()
		m.ClearNewlyReceived()
		return sum, nil
	})
}

// Simulate draws one sample of e from the model's embeddings.
func (cs *ContextState) Simulate(e expr.Expression, src rand.Source) (domain.TypedVector, error) {
	return Perform(cs, func(m *model.Model) (domain.TypedVector, error) {
		return simulate.New(m, src).Expression(e)
	})
}

// TermValues lists the known terms of a function type.
func (cs *ContextState) TermValues(t domain.TypeID) ([]model.TermValue, error) {
	return Perform(cs, func(m *model.Model) ([]model.TermValue, error) {
		if !cs.ctx.IsFunctionType(t) {
			return nil, fmt.Errorf("type %d is not a function type", t)
		}
		return m.TermValues(t), nil
	})
}

// Snapshot returns a deep copy of the resident model.
func (cs *ContextState) Snapshot() (*model.Serialized, error) {
	return Perform(cs, func(m *model.Model) (*model.Serialized, error) {
		return m.Serialize(), nil
	})
}

// Restore replaces the resident model after validating s against the ontology.
func (cs *ContextState) Restore(s *model.Serialized) error {
	m, err := model.Deserialize(s, cs.ctx)
	if err != nil {
		return fmt.Errorf("restore model: %w", err)
	}
	cs.models = m.Serialize()
	return nil
}
