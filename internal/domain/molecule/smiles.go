package molecule

import (
	"strconv"
	"strings"

	"github.com/turtacn/platemap/pkg/errors"
)

type bondSpec struct {
	set       bool
	order     BondOrder
	direction byte
	explicit  bool
}

type ringOpening struct {
	atom int
	bond bondSpec
}

type smilesParser struct {
	src     string
	pos     int
	mol     *Molecule
	prev    int
	branch  []int
	pending bondSpec
	rings   map[int]ringOpening
}

// Parse reads a SMILES string into a Molecule. Disconnected components
// separated by '.' are kept in one graph.
func Parse(smiles string) (*Molecule, error) {
	s := strings.TrimSpace(smiles)
	if s == "" {
		return nil, errors.New(errors.ErrCodeStructureInvalid, "empty SMILES")
	}
	p := &smilesParser{src: s, mol: &Molecule{}, prev: -1, rings: make(map[int]ringOpening)}
	if err := p.parse(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureInvalid, "invalid SMILES").WithDetail(s)
	}
	return p.mol, nil
}

func (p *smilesParser) fail(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeStructureInvalid, "position %d: "+format, append([]interface{}{p.pos}, args...)...)
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.fail("branch without a preceding atom")
			}
			p.branch = append(p.branch, p.prev)
			p.pos++
		case c == ')':
			if len(p.branch) == 0 {
				return p.fail("unbalanced ')'")
			}
			if p.pending.set {
				return p.fail("bond before ')'")
			}
			p.prev = p.branch[len(p.branch)-1]
			p.branch = p.branch[:len(p.branch)-1]
			p.pos++
		case c == '.':
			if p.pending.set {
				return p.fail("bond before '.'")
			}
			p.prev = -1
			p.pos++
		case strings.IndexByte("-=#$:/\\", c) >= 0:
			if p.pending.set {
				return p.fail("consecutive bond symbols")
			}
			p.pending = parseBondSymbol(c)
			p.pos++
		case c >= '0' && c <= '9' || c == '%':
			if err := p.ringClosure(); err != nil {
				return err
			}
		case c == '[':
			atom, err := p.bracketAtom()
			if err != nil {
				return err
			}
			if err := p.attach(atom); err != nil {
				return err
			}
		default:
			atom, err := p.organicAtom()
			if err != nil {
				return err
			}
			if err := p.attach(atom); err != nil {
				return err
			}
		}
	}
	switch {
	case len(p.branch) > 0:
		return p.fail("unclosed branch")
	case len(p.rings) > 0:
		return p.fail("unclosed ring")
	case p.pending.set:
		return p.fail("dangling bond")
	case len(p.mol.Atoms) == 0:
		return p.fail("no atoms")
	}
	return nil
}

func parseBondSymbol(c byte) bondSpec {
	spec := bondSpec{set: true, order: BondSingle, explicit: true}
	switch c {
	case '=':
		spec.order = BondDouble
	case '#':
		spec.order = BondTriple
	case '$':
		spec.order = BondQuadruple
	case ':':
		spec.order = BondAromatic
	case '/', '\\':
		spec.direction = c
	}
	return spec
}

func (p *smilesParser) defaultOrder(a, b int) BondOrder {
	if p.mol.Atoms[a].Aromatic && p.mol.Atoms[b].Aromatic {
		return BondAromatic
	}
	return BondSingle
}

func (p *smilesParser) attach(atom Atom) error {
	idx := p.mol.AddAtom(atom)
	if p.prev >= 0 {
		b := Bond{From: p.prev, To: idx, Order: p.defaultOrder(p.prev, idx)}
		if p.pending.set {
			b.Order, b.Direction, b.Explicit = p.pending.order, p.pending.direction, p.pending.explicit
		}
		p.mol.addBond(b)
	} else if p.pending.set {
		return p.fail("bond without a preceding atom")
	}
	p.pending = bondSpec{}
	p.prev = idx
	return nil
}

func (p *smilesParser) ringClosure() error {
	if p.prev < 0 {
		return p.fail("ring closure without a preceding atom")
	}
	var num int
	if p.src[p.pos] == '%' {
		if p.pos+2 >= len(p.src) {
			return p.fail("truncated ring number")
		}
		n, err := strconv.Atoi(p.src[p.pos+1 : p.pos+3])
		if err != nil {
			return p.fail("invalid ring number")
		}
		num = n
		p.pos += 3
	} else {
		num = int(p.src[p.pos] - '0')
		p.pos++
	}

	open, ok := p.rings[num]
	if !ok {
		p.rings[num] = ringOpening{atom: p.prev, bond: p.pending}
		p.pending = bondSpec{}
		return nil
	}
	delete(p.rings, num)
	if open.atom == p.prev {
		return p.fail("ring bond to self")
	}
	spec := open.bond
	if p.pending.set {
		if spec.set && spec.order != p.pending.order {
			return p.fail("conflicting ring bond orders")
		}
		spec = p.pending
	}
	b := Bond{From: open.atom, To: p.prev, Order: p.defaultOrder(open.atom, p.prev)}
	if spec.set {
		b.Order, b.Direction, b.Explicit = spec.order, spec.direction, spec.explicit
	}
	p.mol.addBond(b)
	p.pending = bondSpec{}
	return nil
}

func (p *smilesParser) organicAtom() (Atom, error) {
	rest := p.src[p.pos:]
	if strings.HasPrefix(rest, "Cl") || strings.HasPrefix(rest, "Br") {
		p.pos += 2
		return Atom{Element: rest[:2]}, nil
	}
	c := rest[:1]
	if c == "*" {
		p.pos++
		return Atom{Element: "*"}, nil
	}
	if _, ok := organicSubset[c]; ok {
		p.pos++
		return Atom{Element: c}, nil
	}
	if el, ok := aromaticSymbols[c]; ok && len(c) == 1 {
		if _, organic := organicSubset[el]; organic {
			p.pos++
			return Atom{Element: el, Aromatic: true}, nil
		}
	}
	return Atom{}, p.fail("unexpected character %q", c)
}

func (p *smilesParser) bracketAtom() (Atom, error) {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return Atom{}, p.fail("unclosed bracket atom")
	}
	body := p.src[p.pos+1 : p.pos+end]
	p.pos += end + 1

	var a Atom
	a.Bracket = true
	i := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}
	if i > 0 {
		a.Isotope, _ = strconv.Atoi(body[:i])
	}

	rest := body[i:]
	switch {
	case strings.HasPrefix(rest, "*"):
		a.Element = "*"
		i++
	case len(rest) >= 2 && aromaticSymbols[rest[:2]] != "":
		a.Element, a.Aromatic = aromaticSymbols[rest[:2]], true
		i += 2
	case len(rest) >= 1 && aromaticSymbols[rest[:1]] != "":
		a.Element, a.Aromatic = aromaticSymbols[rest[:1]], true
		i++
	case len(rest) >= 2 && isElement(rest[:2]):
		a.Element = rest[:2]
		i += 2
	case len(rest) >= 1 && isElement(rest[:1]):
		a.Element = rest[:1]
		i++
	default:
		return Atom{}, p.fail("unknown element in [%s]", body)
	}

	if i < len(body) && body[i] == '@' {
		j := i + 1
		if j < len(body) && body[j] == '@' {
			j++
		} else {
			for j < len(body) && (body[j] >= 'A' && body[j] <= 'Z' && body[j] != 'H' || body[j] >= '0' && body[j] <= '9') {
				j++
			}
		}
		a.Chirality = body[i:j]
		i = j
	}

	if i < len(body) && body[i] == 'H' {
		i++
		j := i
		for j < len(body) && body[j] >= '0' && body[j] <= '9' {
			j++
		}
		a.HCount = 1
		if j > i {
			a.HCount, _ = strconv.Atoi(body[i:j])
		}
		i = j
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		sym := body[i]
		i++
		j := i
		for j < len(body) && body[j] >= '0' && body[j] <= '9' {
			j++
		}
		if j > i {
			n, _ := strconv.Atoi(body[i:j])
			a.Charge = sign * n
			i = j
		} else {
			n := 1
			for i < len(body) && body[i] == sym {
				n++
				i++
			}
			a.Charge = sign * n
		}
	}

	if i < len(body) && body[i] == ':' {
		j := i + 1
		for j < len(body) && body[j] >= '0' && body[j] <= '9' {
			j++
		}
		if j == i+1 {
			return Atom{}, p.fail("empty atom class in [%s]", body)
		}
		a.Class, _ = strconv.Atoi(body[i+1 : j])
		i = j
	}

	if i != len(body) {
		return Atom{}, p.fail("unexpected %q in [%s]", body[i:], body)
	}
	return a, nil
}

//Personal.AI order the ending
