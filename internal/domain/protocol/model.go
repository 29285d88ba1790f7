// Package protocol holds the symbolic model recovered from a liquid-handling
// protocol script and the fold that turns it into a destination map.
//
// The front end (internal/intelligence/protocol_analyzer) classifies script
// statements into the closed set of Statement variants below. Everything the
// front end cannot classify is dropped before it reaches this package.
package protocol

import (
	"regexp"
	"strconv"

	"github.com/turtacn/platemap/internal/domain/plate"
)

// ReagentClass names the two reaction partners.
type ReagentClass string

const (
	ClassSulfonyl ReagentClass = "sulfonyl"
	ClassAmine    ReagentClass = "amine"
	ClassUnknown  ReagentClass = "unknown"
)

var (
	amineName    = regexp.MustCompile(`(?i)^Amine\s+(\d+)\s*$`)
	sulfonylName = regexp.MustCompile(`(?i)^SulfonylCl\s+(\d+)\s*$`)
)

// MatchReagentName classifies a liquid display name such as "Amine 3" or
// "SulfonylCl 12". ok is false for any other name.
func MatchReagentName(display string) (class ReagentClass, number int, ok bool) {
	if m := amineName.FindStringSubmatch(display); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return ClassAmine, n, true
		}
	}
	if m := sulfonylName.FindStringSubmatch(display); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return ClassSulfonyl, n, true
		}
	}
	return ClassUnknown, 0, false
}

// ReagentBinding ties a script variable to a classified reagent.
type ReagentBinding struct {
	Variable    string       `json:"variable"`
	Class       ReagentClass `json:"class"`
	Number      int          `json:"number"`
	DisplayName string       `json:"display_name"`
}

// SourceLoad records that a liquid variable was placed in a source well.
type SourceLoad struct {
	Well     plate.Well `json:"well"`
	Variable string     `json:"variable"`
	Volume   *float64   `json:"volume,omitempty"`
}

// Transfer moves the reagent of one source well into destination wells.
type Transfer struct {
	SourceWell       plate.Well   `json:"source_well"`
	DestinationWells []plate.Well `json:"destination_wells"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Statement variants
// ─────────────────────────────────────────────────────────────────────────────

// Position is the 1-based source line of a statement.
type Position struct {
	Line int `json:"line"`
}

// Pos returns the position itself so variants embedding it satisfy Statement.
func (p Position) Pos() Position { return p }

// Statement is one recognized script statement. The set of implementations
// is closed: LiquidStatement, LoadStatement, DestinationListStatement and
// TransferStatement.
type Statement interface {
	Pos() Position
	isStatement()
}

// LiquidStatement is `var = <protocol>.define_liquid(name='…')`.
type LiquidStatement struct {
	Position
	Variable    string
	DisplayName string
}

// LoadStatement is `<source>['A1'].load_liquid(liquid=var, volume=…)`.
type LoadStatement struct {
	Position
	Load SourceLoad
}

// DestinationListStatement is `name = [<dest>[w] for w in ['A1', …]]`.
type DestinationListStatement struct {
	Position
	Name  string
	Wells []plate.Well
}

// TransferStatement is `<pipette>.transfer(vol, <source>['A1'], dest, …)`.
// Exactly one of Destinations and ListName is set.
type TransferStatement struct {
	Position
	SourceWell   plate.Well
	Destinations []plate.Well
	ListName     string
}

func (LiquidStatement) isStatement()          {}
func (LoadStatement) isStatement()            {}
func (DestinationListStatement) isStatement() {}
func (TransferStatement) isStatement()        {}

// ─────────────────────────────────────────────────────────────────────────────
// Fold output
// ─────────────────────────────────────────────────────────────────────────────

// Assignment is one class contribution to a destination well.
type Assignment struct {
	Number     int        `json:"number"`
	SourceWell plate.Well `json:"source_well"`
}

// DestinationMapEntry is the per-well result of the fold. Sulfonyl and Amine
// are nil when no transfer of that class reached the well.
type DestinationMapEntry struct {
	Well     plate.Well  `json:"well"`
	Sulfonyl *Assignment `json:"sulfonyl,omitempty"`
	Amine    *Assignment `json:"amine,omitempty"`
}

// Assignment returns the contribution for class, or nil.
func (e DestinationMapEntry) Assignment(class ReagentClass) *Assignment {
	switch class {
	case ClassSulfonyl:
		return e.Sulfonyl
	case ClassAmine:
		return e.Amine
	default:
		return nil
	}
}

// Conflict is a second same-class write to a well. The first write is kept.
type Conflict struct {
	Well     plate.Well   `json:"well"`
	Class    ReagentClass `json:"class"`
	Kept     Assignment   `json:"kept"`
	Rejected Assignment   `json:"rejected"`
	Line     int          `json:"line"`
}

// ExclusionReason explains why a transfer did not reach the destination map.
type ExclusionReason string

const (
	ReasonNoSourceLoad    ExclusionReason = "no liquid loaded in source well"
	ReasonUnboundVariable ExclusionReason = "liquid has no recognized reagent name"
	ReasonUnknownList     ExclusionReason = "unknown destination list"
)

// ExcludedTransfer is a transfer the fold could not resolve.
type ExcludedTransfer struct {
	Line         int             `json:"line"`
	SourceWell   plate.Well      `json:"source_well"`
	Destinations []plate.Well    `json:"destinations,omitempty"`
	Reason       ExclusionReason `json:"reason"`
	Detail       string          `json:"detail,omitempty"`
}

// SourceLayoutRow describes what was loaded into one source well.
type SourceLayoutRow struct {
	SourceWell string       `json:"source_well"`
	Class      ReagentClass `json:"class"`
	Number     int          `json:"number,omitempty"`
	Name       string       `json:"name"`
	Volume     *float64     `json:"volume,omitempty"`
}

// Result is the complete outcome of one fold.
type Result struct {
	Entries      []DestinationMapEntry `json:"entries"`
	SourceLayout []SourceLayoutRow     `json:"source_layout"`
	Bindings     []ReagentBinding      `json:"bindings"`
	Transfers    []Transfer            `json:"transfers"`
	Excluded     []ExcludedTransfer    `json:"excluded,omitempty"`
	Conflicts    []Conflict            `json:"conflicts,omitempty"`
	OutOfPlate   []plate.Well          `json:"out_of_plate,omitempty"`
}

// Wells returns the labels of all destination entries in output order.
func (r *Result) Wells() []string {
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Well.Label
	}
	return out
}

//Personal.AI order the ending
