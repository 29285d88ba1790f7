package protocol

import (
	"github.com/turtacn/platemap/internal/domain/plate"
)

// Scope is the symbol table of one analysis pass: liquid variables, their
// reagent bindings, source loads by well label and named destination lists.
// Later definitions of the same name replace earlier ones; loads keep the
// position of their first occurrence.
type Scope struct {
	liquids   map[string]string
	bindings  map[string]ReagentBinding
	loads     map[string]SourceLoad
	loadOrder []string
	lists     map[string][]plate.Well
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{
		liquids:  make(map[string]string),
		bindings: make(map[string]ReagentBinding),
		loads:    make(map[string]SourceLoad),
		lists:    make(map[string][]plate.Well),
	}
}

// DefineLiquid records a liquid variable and, when its display name is a
// recognized reagent name, a binding. It reports whether a binding was made.
func (s *Scope) DefineLiquid(variable, displayName string) bool {
	s.liquids[variable] = displayName
	class, number, ok := MatchReagentName(displayName)
	if !ok {
		delete(s.bindings, variable)
		return false
	}
	s.bindings[variable] = ReagentBinding{
		Variable:    variable,
		Class:       class,
		Number:      number,
		DisplayName: displayName,
	}
	return true
}

// Load records a source load keyed by its well label.
func (s *Scope) Load(load SourceLoad) {
	if _, seen := s.loads[load.Well.Label]; !seen {
		s.loadOrder = append(s.loadOrder, load.Well.Label)
	}
	s.loads[load.Well.Label] = load
}

// DefineList records a named destination list.
func (s *Scope) DefineList(name string, wells []plate.Well) {
	s.lists[name] = wells
}

// Binding looks up the reagent bound to a variable.
func (s *Scope) Binding(variable string) (ReagentBinding, bool) {
	b, ok := s.bindings[variable]
	return b, ok
}

// SourceLoad looks up the load of a source well label.
func (s *Scope) SourceLoad(label string) (SourceLoad, bool) {
	l, ok := s.loads[label]
	return l, ok
}

// List looks up a named destination list.
func (s *Scope) List(name string) ([]plate.Well, bool) {
	wells, ok := s.lists[name]
	return wells, ok
}

// Bindings returns all bindings ordered by class and number.
func (s *Scope) Bindings() []ReagentBinding {
	out := make([]ReagentBinding, 0, len(s.bindings))
	for _, b := range s.bindings {
		out = append(out, b)
	}
	sortBindings(out)
	return out
}

// SourceLayout describes every loaded source well in first-load order.
func (s *Scope) SourceLayout() []SourceLayoutRow {
	rows := make([]SourceLayoutRow, 0, len(s.loadOrder))
	for _, label := range s.loadOrder {
		load := s.loads[label]
		row := SourceLayoutRow{
			SourceWell: label,
			Class:      ClassUnknown,
			Name:       load.Variable,
			Volume:     load.Volume,
		}
		if b, ok := s.bindings[load.Variable]; ok {
			row.Class = b.Class
			row.Number = b.Number
			row.Name = b.DisplayName
		} else if display, ok := s.liquids[load.Variable]; ok && display != "" {
			row.Name = display
		}
		rows = append(rows, row)
	}
	return rows
}

//Personal.AI order the ending
