package workflow

import (
	"fmt"

	"gradschool/internal/models"
)

// AAOutcome is the result of an AA verification status change
type AAOutcome struct {
	From models.AAStatus
	To   models.AAStatus
	// Noop is set when the status did not change; no effects are produced
	Noop    bool
	Effects []Effect
}

// Has reports whether the outcome contains an effect of the given kind
func (o AAOutcome) Has(kind EffectKind) bool {
	for _, e := range o.Effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// ApplyAAStatus validates an AA status change against the persisted previous status.
// The change is edge-triggered: repeating the current status is a no-op, and
// honoraria are materialized only when the status first reaches ready_for_finance.
// Statuses may move forward past several steps but never backward.
func ApplyAAStatus(prev, next models.AAStatus) (AAOutcome, error) {
	if !next.Valid() {
		return AAOutcome{}, fmt.Errorf("%w: unknown AA status %q", ErrIllegalTransition, next)
	}
	if !prev.Valid() {
		return AAOutcome{}, fmt.Errorf("%w: unknown persisted AA status %q", ErrIllegalTransition, prev)
	}

	if prev == next {
		return AAOutcome{From: prev, To: next, Noop: true}, nil
	}
	if next.Rank() < prev.Rank() {
		return AAOutcome{}, fmt.Errorf("%w: AA status cannot move back from %s to %s", ErrIllegalTransition, prev, next)
	}

	out := AAOutcome{From: prev, To: next}

	rff := models.AAReadyForFinance.Rank()
	if prev.Rank() < rff && next.Rank() >= rff {
		out.Effects = append(out.Effects, Effect{Kind: EffectMaterializeHonoraria})
		out.Effects = append(out.Effects, notify(models.EventHonorariaReady, RecipientAA)...)
	}
	out.Effects = append(out.Effects, notify(models.EventAAStatusChanged, RecipientStudent)...)
	out.Effects = append(out.Effects, Effect{Kind: EffectSyncRecords})

	return out, nil
}
