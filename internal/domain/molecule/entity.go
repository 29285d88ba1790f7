// Package molecule is the structural model behind reagent and product SMILES.
//
// A Molecule is an atom/bond graph read from SMILES (Parse) and written back
// (SMILES). Atoms written in the organic subset carry implicit hydrogens that
// are recomputed from their bonds, so editing the graph keeps hydrogen counts
// consistent. Sanitize performs the valence sanity check used to accept or
// reject reaction products.
package molecule

import (
	"sort"
)

// BondOrder is the multiplicity of a bond.
type BondOrder int

const (
	BondSingle BondOrder = iota + 1
	BondDouble
	BondTriple
	BondQuadruple
	BondAromatic
)

// valenceContribution is the integer bond order used for hydrogen counting.
// Aromatic bonds are handled separately by the callers.
func (o BondOrder) valenceContribution() int {
	switch o {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	case BondQuadruple:
		return 4
	default:
		return 1
	}
}

// Atom is a graph vertex. HCount is meaningful only for bracket atoms;
// organic-subset atoms derive their hydrogens from valence.
type Atom struct {
	Element   string
	Aromatic  bool
	Bracket   bool
	Isotope   int
	Charge    int
	HCount    int
	Chirality string
	Class     int
}

// Bond joins From and To. Direction holds '/' or '\\' as read in the From→To
// direction, or 0.
type Bond struct {
	From      int
	To        int
	Order     BondOrder
	Direction byte
	Explicit  bool
}

// Other returns the endpoint of b that is not atom.
func (b Bond) Other(atom int) int {
	if b.From == atom {
		return b.To
	}
	return b.From
}

// Neighbor is an adjacent atom and the bond leading to it.
type Neighbor struct {
	Atom int
	Bond int
}

// Molecule is an undirected multigraph of atoms and bonds.
type Molecule struct {
	Atoms []Atom
	Bonds []Bond
	adj   [][]int
}

// NumAtoms returns the number of heavy (explicit) atoms.
func (m *Molecule) NumAtoms() int { return len(m.Atoms) }

// AddAtom appends an atom and returns its index.
func (m *Molecule) AddAtom(a Atom) int {
	m.Atoms = append(m.Atoms, a)
	m.adj = append(m.adj, nil)
	return len(m.Atoms) - 1
}

// AddBond appends a bond and returns its index.
func (m *Molecule) AddBond(from, to int, order BondOrder) int {
	return m.addBond(Bond{From: from, To: to, Order: order})
}

func (m *Molecule) addBond(b Bond) int {
	m.Bonds = append(m.Bonds, b)
	idx := len(m.Bonds) - 1
	m.adj[b.From] = append(m.adj[b.From], idx)
	m.adj[b.To] = append(m.adj[b.To], idx)
	return idx
}

// Neighbors lists adjacent atoms in bond insertion order.
func (m *Molecule) Neighbors(atom int) []Neighbor {
	out := make([]Neighbor, 0, len(m.adj[atom]))
	for _, b := range m.adj[atom] {
		out = append(out, Neighbor{Atom: m.Bonds[b].Other(atom), Bond: b})
	}
	return out
}

// Degree is the number of explicit neighbours of atom.
func (m *Molecule) Degree(atom int) int { return len(m.adj[atom]) }

// Clone returns a deep copy.
func (m *Molecule) Clone() *Molecule {
	c := &Molecule{
		Atoms: append([]Atom(nil), m.Atoms...),
		Bonds: append([]Bond(nil), m.Bonds...),
		adj:   make([][]int, len(m.adj)),
	}
	for i, a := range m.adj {
		c.adj[i] = append([]int(nil), a...)
	}
	return c
}

// RemoveAtom deletes an atom together with its bonds. Atom and bond indices
// after the removed ones shift down by one.
func (m *Molecule) RemoveAtom(atom int) {
	atoms := make([]Atom, 0, len(m.Atoms)-1)
	remap := make([]int, len(m.Atoms))
	for i, a := range m.Atoms {
		if i == atom {
			remap[i] = -1
			continue
		}
		remap[i] = len(atoms)
		atoms = append(atoms, a)
	}
	bonds := m.Bonds
	m.Atoms = atoms
	m.Bonds = nil
	m.adj = make([][]int, len(atoms))
	for _, b := range bonds {
		if b.From == atom || b.To == atom {
			continue
		}
		b.From, b.To = remap[b.From], remap[b.To]
		m.addBond(b)
	}
}

// Combine returns a new molecule holding a followed by b as disconnected
// components, plus the index offset of b's atoms.
func Combine(a, b *Molecule) (*Molecule, int) {
	out := a.Clone()
	offset := len(out.Atoms)
	for _, atom := range b.Atoms {
		out.AddAtom(atom)
	}
	for _, bond := range b.Bonds {
		bond.From += offset
		bond.To += offset
		out.addBond(bond)
	}
	return out, offset
}

// Components returns connected components as sorted atom index lists.
func (m *Molecule) Components() [][]int {
	seen := make([]bool, len(m.Atoms))
	var comps [][]int
	for start := range m.Atoms {
		if seen[start] {
			continue
		}
		var comp []int
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, u)
			for _, n := range m.Neighbors(u) {
				if !seen[n.Atom] {
					seen[n.Atom] = true
					stack = append(stack, n.Atom)
				}
			}
		}
		sort.Ints(comp)
		comps = append(comps, comp)
	}
	return comps
}

//Personal.AI order the ending
