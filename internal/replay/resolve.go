package replay

import (
	"github.com/egpivo/ethereum-account-state/internal/event"
)

// action is the resolver's verdict for one event.
type action int

const (
	// actionApply applies the event as-is.
	actionApply action = iota

	// actionApplyAsBurn applies a transfer-to-zero as a burn of the
	// sender's balance.
	actionApplyAsBurn

	// actionSkipRedundant skips an explicit Burn that restates a
	// canonical signal in the same unit.
	actionSkipRedundant
)

// resolvedEvent pairs an event with its verdict.
type resolvedEvent struct {
	event  event.Event
	action action
}

// resolveUnit decides, per event in an already-ordered unit, whether it
// is canonical or a redundant restatement.
//
// First pass: if any transfer-to-zero exists, the unit has a canonical
// signal. Second pass, in sorted order: transfer-to-zero always applies
// as a burn; explicit Burn events apply only when the unit has no
// canonical signal (the fallback path: tolerated, though a well-formed
// source always emits the canonical form). The rule generalizes to
// batches: k canonical signals plus k redundant Burns yield exactly k
// applied burns regardless of their relative log indexes.
//
// The flag is unit-scoped rather than a per-event pairing:
// the two restatements of one logical burn carry different log indexes
// and share no key, so co-membership in the unit is the only reliable
// link. A unit mixing Burns that do and do not have a matching
// canonical signal is undefined in the source data; this resolver skips
// all explicit Burns once any canonical signal is present, a documented
// limitation.
func resolveUnit(u *causalUnit) []resolvedEvent {
	for _, ev := range u.events {
		if t, ok := ev.(event.Transfer); ok && t.ToZero() {
			u.hasCanonicalSignal = true
			break
		}
	}

	resolved := make([]resolvedEvent, 0, len(u.events))
	for _, ev := range u.events {
		switch e := ev.(type) {
		case event.Transfer:
			if e.ToZero() {
				resolved = append(resolved, resolvedEvent{event: ev, action: actionApplyAsBurn})
				continue
			}
			resolved = append(resolved, resolvedEvent{event: ev, action: actionApply})
		case event.Burn:
			if u.hasCanonicalSignal {
				resolved = append(resolved, resolvedEvent{event: ev, action: actionSkipRedundant})
				continue
			}
			resolved = append(resolved, resolvedEvent{event: ev, action: actionApply})
		case event.Mint:
			resolved = append(resolved, resolvedEvent{event: ev, action: actionApply})
		}
	}

	u.advance(stageResolved)
	return resolved
}
