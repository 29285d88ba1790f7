package molecule

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Descriptors are simple structural descriptors reported with each product.
type Descriptors struct {
	Formula    string  `json:"formula"`
	MolWt      float64 `json:"mol_wt"`
	HeavyAtoms int     `json:"heavy_atoms"`
	HBD        int     `json:"hbd"`
	HBA        int     `json:"hba"`
	TPSA       float64 `json:"tpsa"`
	RotBonds   int     `json:"rot_bonds"`
	RingCount  int     `json:"ring_count"`
	FracCSP3   float64 `json:"frac_csp3"`
}

// Descriptors computes formula, average molecular weight, heavy atom count,
// Lipinski donor and acceptor counts (N/O atoms bearing H, and all N/O
// atoms), topological polar surface area over N and O, rotatable bonds,
// ring count (cycle rank) and the fraction of sp3 carbons.
func (m *Molecule) Descriptors() Descriptors {
	var d Descriptors
	counts := make(map[string]int)
	charge := 0
	carbons, sp3 := 0, 0

	for i, a := range m.Atoms {
		h := m.TotalHydrogens(i)
		charge += a.Charge
		if a.Element != "*" {
			counts[a.Element]++
			if a.Element != "H" {
				d.HeavyAtoms++
			}
			d.MolWt += atomMass(a)
		}
		counts["H"] += h
		d.MolWt += float64(h) * atomicMass["H"]

		switch a.Element {
		case "N", "O":
			d.HBA++
			if h > 0 {
				d.HBD++
			}
		case "C":
			carbons++
			if !a.Aromatic && m.saturated(i) {
				sp3++
			}
		}
	}
	if counts["H"] == 0 {
		delete(counts, "H")
	}

	d.Formula = hillFormula(counts, charge)
	d.MolWt = math.Round(d.MolWt*1000) / 1000
	d.TPSA = math.Round(m.polarSurfaceArea()*100) / 100
	d.RotBonds = m.rotatableBonds()
	d.RingCount = len(m.Bonds) - len(m.Atoms) + len(m.Components())
	if carbons > 0 {
		d.FracCSP3 = math.Round(float64(sp3)/float64(carbons)*1000) / 1000
	}
	return d
}

func atomMass(a Atom) float64 {
	if a.Isotope > 0 {
		return float64(a.Isotope)
	}
	return atomicMass[a.Element]
}

func (m *Molecule) saturated(atom int) bool {
	for _, b := range m.adj[atom] {
		if m.Bonds[b].Order != BondSingle {
			return false
		}
	}
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// Polar surface area
// ─────────────────────────────────────────────────────────────────────────────

// polarEnv is the bonding environment of one N or O atom.
type polarEnv struct {
	single, double, triple, aromatic int
	h, charge                        int
	ring3                            bool
}

func (m *Molecule) polarEnvironment(atom int) polarEnv {
	e := polarEnv{h: m.TotalHydrogens(atom), charge: m.Atoms[atom].Charge}
	var heavy []int
	for _, n := range m.Neighbors(atom) {
		if m.Atoms[n.Atom].Element == "H" {
			e.h++
			continue
		}
		heavy = append(heavy, n.Atom)
		switch m.Bonds[n.Bond].Order {
		case BondDouble:
			e.double++
		case BondTriple:
			e.triple++
		case BondAromatic:
			e.aromatic++
		default:
			e.single++
		}
	}
	for i := range heavy {
		for j := i + 1; j < len(heavy); j++ {
			if m.bonded(heavy[i], heavy[j]) {
				e.ring3 = true
			}
		}
	}
	return e
}

func (m *Molecule) bonded(a, b int) bool {
	for _, n := range m.Neighbors(a) {
		if n.Atom == b {
			return true
		}
	}
	return false
}

// polarSurfaceArea sums Ertl's fragment contributions for nitrogen and
// oxygen. Environments outside the table use a neighbour-count estimate.
func (m *Molecule) polarSurfaceArea() float64 {
	total := 0.0
	for i, a := range m.Atoms {
		switch a.Element {
		case "N":
			total += nitrogenPSA(m.polarEnvironment(i), a.Aromatic)
		case "O":
			total += oxygenPSA(m.polarEnvironment(i), a.Aromatic)
		}
	}
	return total
}

func nitrogenPSA(e polarEnv, aromatic bool) float64 {
	heavy := e.single + e.double + e.triple + e.aromatic
	if aromatic {
		switch {
		case e.charge == 0 && e.h == 0 && e.aromatic == 2 && heavy == 2:
			return 12.89
		case e.charge == 0 && e.h == 0 && e.aromatic == 3:
			return 4.41
		case e.charge == 0 && e.h == 0 && e.aromatic == 2 && e.single == 1:
			return 4.93
		case e.charge == 0 && e.h == 0 && e.aromatic == 2 && e.double == 1:
			return 8.39
		case e.charge == 0 && e.h == 1 && e.aromatic == 2 && heavy == 2:
			return 15.79
		case e.charge == 1 && e.h == 0 && e.aromatic == 3:
			return 4.10
		case e.charge == 1 && e.h == 0 && e.aromatic == 2 && e.single == 1:
			return 3.88
		case e.charge == 1 && e.h == 1 && e.aromatic == 2 && heavy == 2:
			return 14.14
		}
		return fallbackPSA(30.5, 8.2, heavy, e.h)
	}

	switch e.charge {
	case 0:
		switch {
		case e.h == 0 && e.single == 3 && heavy == 3 && e.ring3:
			return 3.01
		case e.h == 0 && e.single == 3 && heavy == 3:
			return 3.24
		case e.h == 0 && e.single == 1 && e.double == 1 && heavy == 2:
			return 12.36
		case e.h == 0 && e.triple == 1 && heavy == 1:
			return 23.79
		case e.h == 0 && e.single == 1 && e.double == 2 && heavy == 3:
			return 11.68
		case e.h == 0 && e.double == 1 && e.triple == 1 && heavy == 2:
			return 13.60
		case e.h == 1 && e.single == 2 && heavy == 2 && e.ring3:
			return 21.94
		case e.h == 1 && e.single == 2 && heavy == 2:
			return 12.03
		case e.h == 1 && e.double == 1 && heavy == 1:
			return 23.85
		case e.h == 2 && e.single == 1 && heavy == 1:
			return 26.02
		case e.h == 3 && heavy == 0:
			return 23.55
		}
	case 1:
		switch {
		case e.h == 0 && e.single == 4 && heavy == 4:
			return 0
		case e.h == 0 && e.single == 2 && e.double == 1 && heavy == 3:
			return 3.01
		case e.h == 0 && e.single == 1 && e.triple == 1 && heavy == 2:
			return 4.36
		case e.h == 0 && e.double == 2 && heavy == 2:
			return 13.60
		case e.h == 1 && e.single == 3 && heavy == 3:
			return 4.44
		case e.h == 1 && e.single == 1 && e.double == 1 && heavy == 2:
			return 13.97
		case e.h == 2 && e.single == 2 && heavy == 2:
			return 16.61
		case e.h == 2 && e.double == 1 && heavy == 1:
			return 25.59
		case e.h == 3 && e.single == 1 && heavy == 1:
			return 27.64
		}
	case -1:
		switch {
		case e.h == 0 && e.single == 2 && heavy == 2:
			return 14.39
		case e.h == 0 && e.double == 1 && heavy == 1:
			return 23.79
		}
	}
	return fallbackPSA(30.5, 8.2, heavy, e.h)
}

func oxygenPSA(e polarEnv, aromatic bool) float64 {
	heavy := e.single + e.double + e.triple + e.aromatic
	switch {
	case aromatic && e.charge == 0 && e.aromatic == 2 && heavy == 2:
		return 13.14
	case e.charge == 0 && e.h == 0 && e.single == 2 && heavy == 2 && e.ring3:
		return 12.53
	case e.charge == 0 && e.h == 0 && e.single == 2 && heavy == 2:
		return 9.23
	case e.charge == 0 && e.h == 0 && e.double == 1 && heavy == 1:
		return 17.07
	case e.charge == 0 && e.h == 1 && e.single == 1 && heavy == 1:
		return 20.23
	case e.charge == -1 && e.h == 0 && e.single == 1 && heavy == 1:
		return 23.06
	}
	return fallbackPSA(28.5, 8.6, heavy, e.h)
}

func fallbackPSA(base, perNeighbour float64, heavy, h int) float64 {
	v := base - perNeighbour*float64(heavy) + 1.5*float64(h)
	if v < 0 {
		return 0
	}
	return v
}

// ─────────────────────────────────────────────────────────────────────────────
// Rotatable bonds
// ─────────────────────────────────────────────────────────────────────────────

// rotatableBonds counts acyclic single bonds between non-terminal heavy
// atoms, skipping bonds to atoms that carry a triple bond.
func (m *Molecule) rotatableBonds() int {
	n := 0
	for i, b := range m.Bonds {
		if b.Order != BondSingle || m.bondInRing(i) {
			continue
		}
		if m.isRotorEnd(b.From) && m.isRotorEnd(b.To) {
			n++
		}
	}
	return n
}

func (m *Molecule) isRotorEnd(atom int) bool {
	if m.Atoms[atom].Element == "H" {
		return false
	}
	heavy := 0
	for _, nb := range m.Neighbors(atom) {
		if m.Bonds[nb.Bond].Order == BondTriple {
			return false
		}
		if m.Atoms[nb.Atom].Element != "H" {
			heavy++
		}
	}
	return heavy > 1
}

// bondInRing reports whether the endpoints of bond stay connected without it.
func (m *Molecule) bondInRing(bond int) bool {
	from, to := m.Bonds[bond].From, m.Bonds[bond].To
	seen := make([]bool, len(m.Atoms))
	seen[from] = true
	queue := []int{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range m.Neighbors(cur) {
			if nb.Bond == bond || seen[nb.Atom] {
				continue
			}
			if nb.Atom == to {
				return true
			}
			seen[nb.Atom] = true
			queue = append(queue, nb.Atom)
		}
	}
	return false
}

// hillFormula orders carbon, hydrogen, then the rest alphabetically; without
// carbon every element is alphabetical.
func hillFormula(counts map[string]int, charge int) string {
	var elems []string
	for el := range counts {
		elems = append(elems, el)
	}
	_, hasC := counts["C"]
	sort.Slice(elems, func(i, j int) bool {
		if hasC {
			ri, rj := hillRank(elems[i]), hillRank(elems[j])
			if ri != rj {
				return ri < rj
			}
		}
		return elems[i] < elems[j]
	})

	var sb strings.Builder
	for _, el := range elems {
		sb.WriteString(el)
		if n := counts[el]; n > 1 {
			fmt.Fprintf(&sb, "%d", n)
		}
	}
	switch {
	case charge == 1:
		sb.WriteByte('+')
	case charge == -1:
		sb.WriteByte('-')
	case charge > 1:
		fmt.Fprintf(&sb, "+%d", charge)
	case charge < -1:
		fmt.Fprintf(&sb, "-%d", -charge)
	}
	return sb.String()
}

func hillRank(el string) int {
	switch el {
	case "C":
		return 0
	case "H":
		return 1
	default:
		return 2
	}
}

//Personal.AI order the ending
