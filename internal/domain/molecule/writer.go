package molecule

import (
	"strconv"
	"strings"
)

// SMILES writes the molecule as SMILES. Traversal starts at the lowest atom
// index of each component and follows bonds in insertion order, so a graph
// read by Parse and written back keeps its atom order. Ring-closure digits
// are reused once closed. Tetrahedral markers are written as read and are
// not re-derived for the new neighbour order.
func (m *Molecule) SMILES() string {
	w := &smilesWriter{
		mol:      m,
		visited:  make([]bool, len(m.Atoms)),
		children: make([][]int, len(m.Atoms)),
		rings:    make([][]int, len(m.Atoms)),
		isRing:   make(map[int]bool),
		isTree:   make(map[int]bool),
		digit:    make(map[int]int),
		ringDone: make(map[int]bool),
	}
	var sb strings.Builder
	for start := range m.Atoms {
		if w.visited[start] {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		w.discover(start, -1)
		w.emit(&sb, start, -1)
	}
	return sb.String()
}

type smilesWriter struct {
	mol      *Molecule
	visited  []bool
	children [][]int
	rings    [][]int
	isRing   map[int]bool
	isTree   map[int]bool
	digit    map[int]int
	ringDone map[int]bool
	inUse    [100]bool
}

// discover builds the DFS spanning tree and classifies every other bond as a
// ring closure, recorded on both endpoints.
func (w *smilesWriter) discover(atom, parentBond int) {
	w.visited[atom] = true
	for _, b := range w.mol.adj[atom] {
		if b == parentBond || w.isTree[b] || w.isRing[b] {
			continue
		}
		next := w.mol.Bonds[b].Other(atom)
		if !w.visited[next] {
			w.isTree[b] = true
			w.children[atom] = append(w.children[atom], b)
			w.discover(next, b)
			continue
		}
		w.isRing[b] = true
		w.rings[next] = append(w.rings[next], b)
		w.rings[atom] = append(w.rings[atom], b)
	}
}

func (w *smilesWriter) emit(sb *strings.Builder, atom, parentBond int) {
	if parentBond >= 0 {
		sb.WriteString(w.bondSymbol(parentBond, w.mol.Bonds[parentBond].Other(atom)))
	}
	sb.WriteString(w.atomSymbol(atom))

	// close first; digits freed here become reusable only after this atom
	var freed []int
	for _, b := range w.rings[atom] {
		if d, open := w.digit[b]; open {
			writeRingDigit(sb, d)
			freed = append(freed, d)
			delete(w.digit, b)
			w.ringDone[b] = true
		}
	}
	for _, b := range w.rings[atom] {
		if w.ringDone[b] {
			continue
		}
		if _, open := w.digit[b]; open {
			continue
		}
		d := w.nextDigit()
		w.digit[b] = d
		sb.WriteString(w.bondSymbol(b, atom))
		writeRingDigit(sb, d)
	}
	for _, d := range freed {
		w.inUse[d] = false
	}

	kids := w.children[atom]
	for i, b := range kids {
		next := w.mol.Bonds[b].Other(atom)
		if i < len(kids)-1 {
			sb.WriteByte('(')
			w.emit(sb, next, b)
			sb.WriteByte(')')
			continue
		}
		w.emit(sb, next, b)
	}
}

func (w *smilesWriter) nextDigit() int {
	for d := 1; d < len(w.inUse); d++ {
		if !w.inUse[d] {
			w.inUse[d] = true
			return d
		}
	}
	return 99
}

func writeRingDigit(sb *strings.Builder, d int) {
	if d < 10 {
		sb.WriteByte(byte('0' + d))
		return
	}
	sb.WriteByte('%')
	sb.WriteString(strconv.Itoa(d))
}

// bondSymbol renders bond b as written when leaving atom from.
func (w *smilesWriter) bondSymbol(b, from int) string {
	bond := w.mol.Bonds[b]
	a1, a2 := w.mol.Atoms[bond.From], w.mol.Atoms[bond.To]
	bothAromatic := a1.Aromatic && a2.Aromatic
	switch bond.Order {
	case BondDouble:
		return "="
	case BondTriple:
		return "#"
	case BondQuadruple:
		return "$"
	case BondAromatic:
		if bothAromatic {
			return ""
		}
		return ":"
	}
	if bond.Direction != 0 {
		if from == bond.From {
			return string(bond.Direction)
		}
		if bond.Direction == '/' {
			return `\`
		}
		return "/"
	}
	if bothAromatic {
		return "-"
	}
	return ""
}

func (w *smilesWriter) atomSymbol(atom int) string {
	a := w.mol.Atoms[atom]
	symbol := a.Element
	if a.Aromatic {
		symbol = strings.ToLower(symbol)
	}
	if !a.Bracket {
		return symbol
	}
	var sb strings.Builder
	sb.WriteByte('[')
	if a.Isotope > 0 {
		sb.WriteString(strconv.Itoa(a.Isotope))
	}
	sb.WriteString(symbol)
	sb.WriteString(a.Chirality)
	if a.HCount > 0 {
		sb.WriteByte('H')
		if a.HCount > 1 {
			sb.WriteString(strconv.Itoa(a.HCount))
		}
	}
	if a.Charge != 0 {
		sign := byte('+')
		n := a.Charge
		if n < 0 {
			sign, n = '-', -n
		}
		sb.WriteByte(sign)
		if n > 1 {
			sb.WriteString(strconv.Itoa(n))
		}
	}
	if a.Class > 0 {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(a.Class))
	}
	sb.WriteByte(']')
	return sb.String()
}

//Personal.AI order the ending
