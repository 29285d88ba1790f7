package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/platemap/pkg/errors"
)

func mustParse(t *testing.T, smiles string) *Molecule {
	t.Helper()
	m, err := Parse(smiles)
	require.NoError(t, err, smiles)
	return m
}

func TestParse_RoundTrip(t *testing.T) {
	cases := []string{
		"CCO",
		"Cc1ccc(S(=O)(=O)Cl)cc1",
		"NCc1ccccc1",
		"C1CCNCC1",
		"c1ccc2ccccc2c1",
		"CC(=O)[O-]",
		"[NH4+]",
		"[13CH4]",
		"[Na+].[Cl-]",
		"c1cc[nH]c1",
		"C/C=C/C",
		"C#N",
		"O=S(=O)(Cl)c1ccc(Br)s1",
		"CN1CCN(CC1)c1ccccc1",
	}
	for _, smi := range cases {
		m := mustParse(t, smi)
		assert.Equal(t, smi, m.SMILES(), smi)
	}
}

func TestParse_RingNumbersAreRenumbered(t *testing.T) {
	assert.Equal(t, "C1CC1", mustParse(t, "C%10CC%10").SMILES())
	assert.Equal(t, "C1CC1.C1CC1", mustParse(t, "C1CC1.C2CC2").SMILES())
}

func TestParse_Errors(t *testing.T) {
	for _, bad := range []string{"", "   ", "C(", "C)", "(C)", "C1CC", "[Xx]", "C==C", "=C", "Q", "[C", "C-", "C11", "[C:]", "C(=)C"} {
		_, err := Parse(bad)
		assert.True(t, errors.IsCode(err, errors.ErrCodeStructureInvalid), "%q should fail", bad)
	}
}

func TestParse_BracketAtom(t *testing.T) {
	m := mustParse(t, "[15NH2+:7]")
	require.Len(t, m.Atoms, 1)
	a := m.Atoms[0]
	assert.Equal(t, "N", a.Element)
	assert.Equal(t, 15, a.Isotope)
	assert.Equal(t, 2, a.HCount)
	assert.Equal(t, 1, a.Charge)
	assert.Equal(t, 7, a.Class)

	m = mustParse(t, "[Fe++]")
	assert.Equal(t, 2, m.Atoms[0].Charge)
	assert.Equal(t, "[Fe+2]", m.SMILES())

	m = mustParse(t, "N[C@@H](C)C(=O)O")
	assert.Equal(t, "@@", m.Atoms[1].Chirality)
	assert.Equal(t, 1, m.Atoms[1].HCount)
}

func TestImplicitHydrogens(t *testing.T) {
	m := mustParse(t, "CC(=O)O")
	assert.Equal(t, []int{3, 0, 0, 1}, []int{
		m.ImplicitHydrogens(0), m.ImplicitHydrogens(1), m.ImplicitHydrogens(2), m.ImplicitHydrogens(3),
	})

	benzene := mustParse(t, "c1ccccc1")
	for i := range benzene.Atoms {
		assert.Equal(t, 1, benzene.TotalHydrogens(i))
	}

	pyridine := mustParse(t, "c1ccncc1")
	assert.Equal(t, 0, pyridine.TotalHydrogens(3))

	thiophene := mustParse(t, "c1ccsc1")
	assert.Equal(t, 0, thiophene.TotalHydrogens(3))
}

func TestSanitize(t *testing.T) {
	valid := []string{"CN(C)C", "C[N+](=O)[O-]", "Cc1ccc(S(=O)(=O)N)cc1", "c1cc[nH]c1", "[NH4+]", "CS(=O)(=O)N1CCCC1"}
	for _, smi := range valid {
		assert.NoError(t, mustParse(t, smi).Sanitize(), smi)
	}

	invalid := []string{"CN(C)(C)C", "C(C)(C)(C)(C)C", "cC", "O(C)(C)C", "FC(F)(F)(F)F"}
	for _, smi := range invalid {
		err := mustParse(t, smi).Sanitize()
		assert.True(t, errors.IsCode(err, errors.ErrCodeStructureInvalid), smi)
	}
}

func TestGraphEditing(t *testing.T) {
	tosyl := mustParse(t, "Cc1ccc(S(=O)(=O)Cl)cc1")
	amine := mustParse(t, "NCc1ccccc1")

	product := tosyl.Clone()
	product.RemoveAtom(8)
	assert.Equal(t, "Cc1ccc(S(=O)=O)cc1", product.SMILES())
	assert.Equal(t, "Cc1ccc(S(=O)(=O)Cl)cc1", tosyl.SMILES(), "clone is independent")

	joined, offset := Combine(product, amine)
	assert.Equal(t, 10, offset)
	assert.Len(t, joined.Components(), 2)

	joined.AddBond(5, offset, BondSingle)
	assert.Len(t, joined.Components(), 1)
	assert.Equal(t, "Cc1ccc(S(=O)(=O)NCc2ccccc2)cc1", joined.SMILES())
	assert.NoError(t, joined.Sanitize())
	assert.Equal(t, 3, joined.Degree(4))
}

func TestDescriptors(t *testing.T) {
	ethanol := mustParse(t, "CCO").Descriptors()
	assert.Equal(t, "C2H6O", ethanol.Formula)
	assert.InDelta(t, 46.069, ethanol.MolWt, 0.001)
	assert.Equal(t, 3, ethanol.HeavyAtoms)
	assert.Equal(t, 1, ethanol.HBD)
	assert.Equal(t, 1, ethanol.HBA)
	assert.Equal(t, 0, ethanol.RingCount)
	assert.Equal(t, 1.0, ethanol.FracCSP3)
	assert.InDelta(t, 20.23, ethanol.TPSA, 1e-9)
	assert.Equal(t, 0, ethanol.RotBonds)

	tosyl := mustParse(t, "Cc1ccc(S(=O)(=O)Cl)cc1").Descriptors()
	assert.Equal(t, "C7H7ClO2S", tosyl.Formula)
	assert.InDelta(t, 190.641, tosyl.MolWt, 0.001)
	assert.Equal(t, 11, tosyl.HeavyAtoms)
	assert.Equal(t, 0, tosyl.HBD)
	assert.Equal(t, 2, tosyl.HBA)
	assert.Equal(t, 1, tosyl.RingCount)
	assert.Equal(t, 0.143, tosyl.FracCSP3)
	assert.InDelta(t, 34.14, tosyl.TPSA, 1e-9)
	assert.Equal(t, 1, tosyl.RotBonds)

	naph := mustParse(t, "c1ccc2ccccc2c1").Descriptors()
	assert.Equal(t, "C10H8", naph.Formula)
	assert.Equal(t, 2, naph.RingCount)
	assert.Equal(t, 0.0, naph.FracCSP3)
	assert.Equal(t, 0.0, naph.TPSA)
	assert.Equal(t, 0, naph.RotBonds)

	assert.Equal(t, "H4N+", mustParse(t, "[NH4+]").Descriptors().Formula)
	assert.Equal(t, "C2H3O2-", mustParse(t, "CC(=O)[O-]").Descriptors().Formula)
	assert.Equal(t, 3, mustParse(t, "CC.O").Descriptors().HeavyAtoms)
}

func TestDescriptors_PolarSurfaceAndRotors(t *testing.T) {
	cases := []struct {
		smiles string
		tpsa   float64
		rot    int
	}{
		{"CS(=O)(=O)NC", 46.17, 1},
		{"c1ccncc1", 12.89, 0},
		{"c1cc[nH]c1", 15.79, 0},
		{"CCC#N", 23.79, 0},
		{"CCCC", 0, 1},
		{"C1CCCCC1", 0, 0},
		{"CCOCC", 9.23, 2},
		{"C1CO1", 12.53, 0},
		{"CC[N+](=O)[O-]", 43.14, 1},
		{"NCCc1ccccc1", 26.02, 2},
	}
	for _, tc := range cases {
		d := mustParse(t, tc.smiles).Descriptors()
		assert.InDelta(t, tc.tpsa, d.TPSA, 1e-9, tc.smiles)
		assert.Equal(t, tc.rot, d.RotBonds, tc.smiles)
	}
}

//Personal.AI order the ending
