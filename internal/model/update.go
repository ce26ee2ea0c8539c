package model

import (
	"github.com/hashicorp/go-set/v3"

	"termeval/internal/domain"
)

// UpdateSummary reports what one update step consumed.
type UpdateSummary struct {
	Observations int
	Terms        int
}

// BayesianUpdateStep folds every pending observation into its callee's
// embedding. Each output row of the callee matrix is a linear regression on
// the argument features; the update is the Kalman step for that row with the
// covariance kept diagonal.
func (m *Model) BayesianUpdateStep() UpdateSummary {
	touched := set.New[domain.TermPointer](len(m.pending))
	applied := 0
	for _, obs := range m.pending {
		emb, ok := m.embeddings[obs.Callee]
		if !ok {
			continue
		}
		f := len(obs.Features)
		for row, y := range obs.Target {
			lo, hi := row*f, (row+1)*f
			if hi > len(emb.Mean) {
				break
			}
			updateRow(emb.Mean[lo:hi], emb.Variance[lo:hi], obs.Features, y, m.hyper.NoiseVariance)
		}
		touched.Insert(obs.Callee)
		applied++
	}
	return UpdateSummary{Observations: applied, Terms: touched.Size()}
}

func updateRow(mean, variance, x []float64, y, noise float64) {
	s := noise
	pred := 0.0
	for j, xj := range x {
		s += variance[j] * xj * xj
		pred += mean[j] * xj
	}
	residual := y - pred
	for j, xj := range x {
		gain := variance[j] * xj / s
		mean[j] += gain * residual
		variance[j] -= gain * xj * variance[j]
	}
}

// ClearNewlyReceived drops all pending observations.
func (m *Model) ClearNewlyReceived() {
	m.pending = nil
}
