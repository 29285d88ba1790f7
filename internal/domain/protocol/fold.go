package protocol

import (
	"fmt"
	"sort"

	"github.com/turtacn/platemap/internal/domain/plate"
)

// Fold resolves the recognized statements into a destination map.
//
// Definitions (liquids, loads and destination lists) are collected into the
// scope first, then transfers are resolved in source order, so a transfer may
// refer to a list defined further down. Transfers that cannot be resolved are
// reported in Result.Excluded and never fail the fold. A second same-class
// write to a well by a later transfer is reported in Result.Conflicts and
// does not overwrite the first. Entries are ordered column-major. When geometry is valid, wells
// outside it are listed in Result.OutOfPlate.
func Fold(statements []Statement, geometry plate.Geometry) *Result {
	scope := NewScope()
	for _, st := range statements {
		switch v := st.(type) {
		case LiquidStatement:
			scope.DefineLiquid(v.Variable, v.DisplayName)
		case LoadStatement:
			scope.Load(v.Load)
		case DestinationListStatement:
			scope.DefineList(v.Name, v.Wells)
		}
	}

	res := &Result{}
	entries := make(map[string]*DestinationMapEntry)

	for _, st := range statements {
		ts, ok := st.(TransferStatement)
		if !ok {
			continue
		}

		dests := ts.Destinations
		if ts.ListName != "" {
			wells, found := scope.List(ts.ListName)
			if !found {
				res.Excluded = append(res.Excluded, ExcludedTransfer{
					Line:       ts.Line,
					SourceWell: ts.SourceWell,
					Reason:     ReasonUnknownList,
					Detail:     ts.ListName,
				})
				continue
			}
			dests = wells
		}

		load, found := scope.SourceLoad(ts.SourceWell.Label)
		if !found {
			res.Excluded = append(res.Excluded, ExcludedTransfer{
				Line:         ts.Line,
				SourceWell:   ts.SourceWell,
				Destinations: dests,
				Reason:       ReasonNoSourceLoad,
			})
			continue
		}
		binding, found := scope.Binding(load.Variable)
		if !found {
			res.Excluded = append(res.Excluded, ExcludedTransfer{
				Line:         ts.Line,
				SourceWell:   ts.SourceWell,
				Destinations: dests,
				Reason:       ReasonUnboundVariable,
				Detail:       load.Variable,
			})
			continue
		}

		res.Transfers = append(res.Transfers, Transfer{SourceWell: ts.SourceWell, DestinationWells: dests})
		contribution := Assignment{Number: binding.Number, SourceWell: ts.SourceWell}

		seen := make(map[string]bool, len(dests))
		for _, well := range dests {
			key := entryKey(well)
			// A well listed twice by one transfer is a single contribution.
			if seen[key] {
				continue
			}
			seen[key] = true
			entry, exists := entries[key]
			if !exists {
				entry = &DestinationMapEntry{Well: well}
				entries[key] = entry
			}
			slot := &entry.Amine
			if binding.Class == ClassSulfonyl {
				slot = &entry.Sulfonyl
			}
			if *slot != nil {
				res.Conflicts = append(res.Conflicts, Conflict{
					Well:     well,
					Class:    binding.Class,
					Kept:     **slot,
					Rejected: contribution,
					Line:     ts.Line,
				})
				continue
			}
			c := contribution
			*slot = &c
		}
	}

	res.Entries = make([]DestinationMapEntry, 0, len(entries))
	for _, e := range entries {
		res.Entries = append(res.Entries, *e)
	}
	sort.SliceStable(res.Entries, func(i, j int) bool {
		return plate.Less(res.Entries[i].Well, res.Entries[j].Well)
	})

	if geometry.Validate() == nil {
		for _, e := range res.Entries {
			if !geometry.Contains(e.Well) {
				res.OutOfPlate = append(res.OutOfPlate, e.Well)
			}
		}
	}

	res.Bindings = scope.Bindings()
	res.SourceLayout = scope.SourceLayout()
	return res
}

func entryKey(w plate.Well) string {
	return fmt.Sprintf("%d/%s", w.Plate, w.Label)
}

func sortBindings(b []ReagentBinding) {
	sort.Slice(b, func(i, j int) bool {
		if b[i].Class != b[j].Class {
			return b[i].Class > b[j].Class // sulfonyl before amine
		}
		if b[i].Number != b[j].Number {
			return b[i].Number < b[j].Number
		}
		return b[i].Variable < b[j].Variable
	})
}

//Personal.AI order the ending
