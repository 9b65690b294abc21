package replay

import (
	"sort"

	"github.com/egpivo/ethereum-account-state/internal/event"
)

// unitStage tracks a causal unit's progress through the pipeline.
// Transitions are strictly monotonic; there are no retries within a
// single reconstruction call.
type unitStage int

const (
	stageUnloaded unitStage = iota
	stageNormalized
	stageOrdered
	stageResolved
	stageApplied
)

// String names the stage for diagnostics.
func (s unitStage) String() string {
	switch s {
	case stageUnloaded:
		return "unloaded"
	case stageNormalized:
		return "normalized"
	case stageOrdered:
		return "ordered"
	case stageResolved:
		return "resolved"
	case stageApplied:
		return "applied"
	}
	return "unknown"
}

// causalUnit is the set of events sharing a causal unit id, with the
// unit's effective global order: the minimum (block, txIndex) among its
// members.
type causalUnit struct {
	id        string
	events    []event.Event
	effective event.Coordinates
	stage     unitStage

	// hasCanonicalSignal is set by the resolver's first pass when any
	// transfer-to-zero is present in the unit.
	hasCanonicalSignal bool
}

// advance moves the unit to the next stage. Skipping or revisiting a
// stage is a programming error.
func (u *causalUnit) advance(to unitStage) {
	if to != u.stage+1 {
		panic("causal unit stage must advance monotonically")
	}
	u.stage = to
}

// orderEvents groups normalized events by causal unit and returns the
// units in deterministic replay order, each with its members sorted.
//
// Unit order: ascending by effective (block, txIndex); units with equal
// effective order tiebreak on unit id so the result never depends on
// arrival order. Member order: ascending by log index; members without
// one keep their relative input position.
func orderEvents(events []event.Event) []*causalUnit {
	byID := make(map[string]*causalUnit)
	var units []*causalUnit

	for _, ev := range events {
		coord := ev.Coord()
		u, ok := byID[coord.Unit]
		if !ok {
			u = &causalUnit{id: coord.Unit, effective: coord, stage: stageNormalized}
			byID[coord.Unit] = u
			units = append(units, u)
		}
		if coord.CompareGlobal(u.effective) < 0 {
			u.effective = coord
		}
		u.events = append(u.events, ev)
	}

	sort.Slice(units, func(i, j int) bool {
		if c := units[i].effective.CompareGlobal(units[j].effective); c != 0 {
			return c < 0
		}
		return units[i].id < units[j].id
	})

	for _, u := range units {
		sortUnitEvents(u.events)
		u.advance(stageOrdered)
	}

	return units
}

// sortUnitEvents orders a unit's members by log index. Events lacking a
// log index keep their relative input order as the stable tiebreak, as
// do events with equal indexes.
func sortUnitEvents(events []event.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Coord(), events[j].Coord()
		if a.HasLogIndex && b.HasLogIndex {
			return a.LogIndex < b.LogIndex
		}
		return false
	})
}
