package reaction_oracle

import (
	"github.com/turtacn/platemap/internal/domain/molecule"
)

// Role is the reagent side a structure is loaded for.
type Role string

const (
	RoleSulfonyl Role = "sulfonyl"
	RoleAmine    Role = "amine"
)

// LooksReactive reports whether structure carries the functional group its
// role expects: S(=O)(=O)Cl for sulfonyls, an N with one or two hydrogens
// for amines. The result is advisory; enumeration still runs either way.
// Unparsable structures return false.
func LooksReactive(structure string, role Role) bool {
	m, err := molecule.Parse(structure)
	if err != nil {
		return false
	}
	switch role {
	case RoleSulfonyl:
		return hasSulfonylChloride(m)
	case RoleAmine:
		return hasPrimaryOrSecondaryAmine(m)
	default:
		return false
	}
}

func hasSulfonylChloride(m *molecule.Molecule) bool {
	for i, a := range m.Atoms {
		if a.Element != "S" || a.Aromatic {
			continue
		}
		oxo, cl := 0, 0
		for _, n := range m.Neighbors(i) {
			nb := m.Atoms[n.Atom]
			switch {
			case nb.Element == "O" && m.Bonds[n.Bond].Order == molecule.BondDouble:
				oxo++
			case nb.Element == "Cl" && m.Bonds[n.Bond].Order == molecule.BondSingle:
				cl++
			}
		}
		if oxo >= 2 && cl >= 1 {
			return true
		}
	}
	return false
}

func hasPrimaryOrSecondaryAmine(m *molecule.Molecule) bool {
	for i, a := range m.Atoms {
		if a.Element != "N" || a.Aromatic {
			continue
		}
		if h := m.TotalHydrogens(i); h == 1 || h == 2 {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
