package molecule

import (
	"fmt"

	"github.com/turtacn/platemap/pkg/errors"
)

// bondCounts splits the bonds of atom into aromatic bonds and the summed
// integer order of all other bonds.
func (m *Molecule) bondCounts(atom int) (aromatic, other int) {
	for _, b := range m.adj[atom] {
		if m.Bonds[b].Order == BondAromatic {
			aromatic++
			continue
		}
		other += m.Bonds[b].Order.valenceContribution()
	}
	return aromatic, other
}

// ImplicitHydrogens returns the hydrogens an organic-subset atom carries.
// Bracket atoms and '*' have none.
func (m *Molecule) ImplicitHydrogens(atom int) int {
	a := m.Atoms[atom]
	if a.Bracket || a.Element == "*" {
		return 0
	}
	valences, ok := organicSubset[a.Element]
	if !ok {
		return 0
	}
	aromatic, other := m.bondCounts(atom)
	if a.Aromatic {
		used := aromatic + other
		if piDonorOne[a.Element] {
			used++
		}
		if h := valences[0] - used; h > 0 {
			return h
		}
		return 0
	}
	used := aromatic + other
	for _, v := range valences {
		if v >= used {
			return v - used
		}
	}
	return 0
}

// TotalHydrogens is the explicit plus implicit hydrogen count of atom.
func (m *Molecule) TotalHydrogens(atom int) int {
	if m.Atoms[atom].Bracket {
		return m.Atoms[atom].HCount
	}
	return m.ImplicitHydrogens(atom)
}

// Sanitize checks that every main-group atom has an allowed valence and that
// aromatic atoms sit in an aromatic ring. It returns the first violation.
func (m *Molecule) Sanitize() error {
	if len(m.Atoms) == 0 {
		return errors.New(errors.ErrCodeStructureInvalid, "molecule has no atoms")
	}
	for i, a := range m.Atoms {
		if a.Element == "*" {
			continue
		}
		aromatic, other := m.bondCounts(i)
		h := m.TotalHydrogens(i)
		if a.Aromatic {
			if aromatic < 2 {
				return m.violation(i, "aromatic atom outside an aromatic ring")
			}
			allowed, ok := effectiveValences(a.Element, a.Charge)
			if ok && aromatic+other+h > maxOf(allowed) {
				return m.violation(i, fmt.Sprintf("aromatic valence %d exceeds %d", aromatic+other+h, maxOf(allowed)))
			}
			continue
		}
		if aromatic > 0 {
			return m.violation(i, "aromatic bond on a non-aromatic atom")
		}
		allowed, ok := effectiveValences(a.Element, a.Charge)
		if !ok {
			continue
		}
		total := other + h
		if !contains(allowed, total) {
			return m.violation(i, fmt.Sprintf("valence %d not in %v", total, allowed))
		}
	}
	return nil
}

func (m *Molecule) violation(atom int, msg string) error {
	a := m.Atoms[atom]
	return errors.New(errors.ErrCodeStructureInvalid, "valence check failed").
		WithDetailf("atom %d (%s): %s", atom, a.Element, msg)
}

func maxOf(v []int) int {
	best := 0
	for _, x := range v {
		if x > best {
			best = x
		}
	}
	return best
}

func contains(v []int, x int) bool {
	for _, y := range v {
		if y == x {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
