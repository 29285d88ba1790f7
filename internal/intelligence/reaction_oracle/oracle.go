// Package reaction_oracle turns reagent structure pairs into candidate
// product structures.
//
// The only chemistry shipped is sulfonamide formation: a sulfonyl chloride
// R-S(=O)(=O)Cl couples with any aliphatic nitrogen, losing the chlorine and
// forming an S-N bond. Candidates are produced in template match order and it
// is the caller's job to pick the first one that passes Validate.
package reaction_oracle

import (
	"context"
	"strings"

	"github.com/turtacn/platemap/internal/domain/molecule"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/pkg/errors"
)

// ---------------------------------------------------------------------------
// SulfonamideOracle
// ---------------------------------------------------------------------------

// SulfonamideOracle applies the sulfonyl chloride + amine template. It
// satisfies library.Oracle and library.Describer.
type SulfonamideOracle struct {
	logger logging.Logger
}

// NewSulfonamideOracle creates the default oracle.
func NewSulfonamideOracle(logger logging.Logger) *SulfonamideOracle {
	return &SulfonamideOracle{logger: logging.OrNop(logger)}
}

// TemplateName is the identifier returned by SulfonamideOracle.Name.
const TemplateName = "sulfonamide/v1"

// Name identifies the template set; cached results are keyed by it.
func (o *SulfonamideOracle) Name() string { return TemplateName }

func (o *SulfonamideOracle) React(ctx context.Context, a, b string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCanceled, "reaction canceled")
	}
	ma, err := molecule.Parse(a)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeOracleFailed, "parse sulfonyl reagent")
	}
	mb, err := molecule.Parse(b)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeOracleFailed, "parse amine reagent")
	}

	sites := sulfonylChlorideSites(ma)
	nitrogens := aliphaticNitrogens(mb)

	seen := make(map[string]bool)
	var out []string
	for _, site := range sites {
		for _, n := range nitrogens {
			p := couple(ma, site, mb, n)
			smi := p.SMILES()
			if seen[smi] {
				continue
			}
			seen[smi] = true
			out = append(out, smi)
		}
	}
	o.logger.Debug("template applied",
		logging.Int("sulfonyl_sites", len(sites)),
		logging.Int("nitrogens", len(nitrogens)),
		logging.Int("candidates", len(out)))
	return out, nil
}

func (o *SulfonamideOracle) Validate(structure string) bool {
	m, err := molecule.Parse(structure)
	if err != nil {
		return false
	}
	return m.Sanitize() == nil
}

func (o *SulfonamideOracle) CombineDisconnected(a, b string) string {
	ma, errA := molecule.Parse(a)
	mb, errB := molecule.Parse(b)
	if errA == nil && errB == nil {
		combined, _ := molecule.Combine(ma, mb)
		return combined.SMILES()
	}
	var parts []string
	for _, s := range []string{a, b} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ".")
}

// Describe computes structural descriptors for a product structure.
func (o *SulfonamideOracle) Describe(structure string) (molecule.Descriptors, error) {
	m, err := molecule.Parse(structure)
	if err != nil {
		return molecule.Descriptors{}, err
	}
	return m.Descriptors(), nil
}

// ---------------------------------------------------------------------------
// Template matching
// ---------------------------------------------------------------------------

// sulfonylSite is one match of R-S(=O)(=O)Cl. Matches that differ only in
// the choice of R or in oxygen order give the same product and are folded.
type sulfonylSite struct {
	sulfur   int
	chlorine int
}

func sulfonylChlorideSites(m *molecule.Molecule) []sulfonylSite {
	var sites []sulfonylSite
	for i, a := range m.Atoms {
		if a.Element != "S" || a.Aromatic {
			continue
		}
		var oxo, chlorines, others []int
		for _, n := range m.Neighbors(i) {
			nb := m.Atoms[n.Atom]
			order := m.Bonds[n.Bond].Order
			switch {
			case nb.Element == "O" && !nb.Aromatic && order == molecule.BondDouble:
				oxo = append(oxo, n.Atom)
			case nb.Element == "Cl" && order == molecule.BondSingle:
				chlorines = append(chlorines, n.Atom)
			default:
				others = append(others, n.Atom)
			}
		}
		if len(oxo) < 2 || len(chlorines) == 0 {
			continue
		}
		// [*:1] needs a neighbour besides the matched O, O and Cl.
		for _, cl := range chlorines {
			if len(others)+len(oxo)-2+len(chlorines)-1 == 0 {
				continue
			}
			sites = append(sites, sulfonylSite{sulfur: i, chlorine: cl})
		}
	}
	return sites
}

func aliphaticNitrogens(m *molecule.Molecule) []int {
	var out []int
	for i, a := range m.Atoms {
		if a.Element == "N" && !a.Aromatic {
			out = append(out, i)
		}
	}
	return out
}

// couple builds one product: the chlorine leaves and sulfur bonds to the
// nitrogen. Bracket nitrogens give up one explicit hydrogen.
func couple(a *molecule.Molecule, site sulfonylSite, b *molecule.Molecule, nitrogen int) *molecule.Molecule {
	left := a.Clone()
	left.RemoveAtom(site.chlorine)
	sulfur := site.sulfur
	if site.chlorine < sulfur {
		sulfur--
	}
	product, offset := molecule.Combine(left, b)
	n := nitrogen + offset
	if product.Atoms[n].Bracket && product.Atoms[n].HCount > 0 {
		product.Atoms[n].HCount--
	}
	product.AddBond(sulfur, n, molecule.BondSingle)
	return product
}

//Personal.AI order the ending
