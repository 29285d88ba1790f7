package tabular

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/platemap/internal/domain/library"
	"github.com/turtacn/platemap/internal/domain/molecule"
	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/internal/domain/platemap"
	"github.com/turtacn/platemap/internal/domain/protocol"
	"github.com/turtacn/platemap/pkg/errors"
)

func well(label string) plate.Well {
	w, err := plate.ParseWell(1, label)
	if err != nil {
		panic(err)
	}
	return w
}

// -----------------------------------------------------------------------
// Reagents
// -----------------------------------------------------------------------

func TestReadReagents_PreferredColumns(t *testing.T) {
	in := "S_ID,id,Name,smiles,SMILES\n" +
		"S_001,x1,Tosyl,ignored,Cc1ccc(S(=O)(=O)Cl)cc1\n" +
		"S_002,x2,Mesyl,ignored,CS(=O)(=O)Cl\n"
	got, err := ReadReagents(strings.NewReader(in), ReagentReadOptions{Columns: SulfonylColumns})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, library.Reagent{ID: "S_001", Name: "Tosyl", Structure: "Cc1ccc(S(=O)(=O)Cl)cc1", Row: 0}, got[0])
	assert.Equal(t, "S_002", got[1].ID)
}

func TestReadReagents_IDFallbacks(t *testing.T) {
	got, err := ReadReagents(strings.NewReader("id,Smiles\nam7,CN\n"), ReagentReadOptions{Columns: AmineColumns})
	require.NoError(t, err)
	assert.Equal(t, "am7", got[0].ID)

	got, err = ReadReagents(strings.NewReader("smiles\nCN\nCCN\n"), ReagentReadOptions{Columns: AmineColumns})
	require.NoError(t, err)
	assert.Equal(t, []string{"A_000000", "A_000001"}, []string{got[0].ID, got[1].ID})

	_, err = ReadReagents(strings.NewReader("id,SMILES\nam7,CN\n"), ReagentReadOptions{Columns: AmineColumns, StrictIDs: true})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeReagentColumnMissing))
}

func TestReadReagents_SkipsBadRows(t *testing.T) {
	in := "S_ID,SMILES\nS_001,CS(=O)(=O)Cl\nS_002,C1CC\nS_003,\nS_004,CCS(=O)(=O)Cl\n"
	got, err := ReadReagents(strings.NewReader(in), ReagentReadOptions{Columns: SulfonylColumns})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "S_004", got[1].ID)
	assert.Equal(t, 3, got[1].Row)
}

func TestReadReagents_CustomCheck(t *testing.T) {
	check := func(s string) error {
		m, err := molecule.Parse(s)
		if err != nil {
			return err
		}
		return m.Sanitize()
	}
	got, err := ReadReagents(strings.NewReader("SMILES\nC(C)(C)(C)(C)C\nCN\n"),
		ReagentReadOptions{Columns: AmineColumns, Check: check})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A_000001", got[0].ID)
}

func TestReadReagents_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code errors.ErrorCode
	}{
		{"no structure column", "S_ID,structure\nS_001,CS\n", errors.ErrCodeReagentColumnMissing},
		{"empty after parsing", "SMILES\nC1CC\n", errors.ErrCodeReagentListEmpty},
		{"header only", "SMILES\n", errors.ErrCodeReagentListEmpty},
		{"no header", "", errors.ErrCodeReagentRead},
		{"duplicate id", "S_ID,SMILES\nS_001,C\nS_001,CC\n", errors.ErrCodeReagentDuplicateID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadReagents(strings.NewReader(tt.in), ReagentReadOptions{Columns: SulfonylColumns})
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

// -----------------------------------------------------------------------
// Destination map and source layout
// -----------------------------------------------------------------------

func sampleEntries() []protocol.DestinationMapEntry {
	return []protocol.DestinationMapEntry{
		{
			Well:     well("A1"),
			Sulfonyl: &protocol.Assignment{Number: 1, SourceWell: well("A2")},
			Amine:    &protocol.Assignment{Number: 8, SourceWell: well("H1")},
		},
		{
			Well:  well("B1"),
			Amine: &protocol.Assignment{Number: 7, SourceWell: well("G1")},
		},
	}
}

func TestDestinationMap_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDestinationMap(&buf, sampleEntries()))
	assert.Equal(t,
		"Well,Sulfonyl chloride #,Amine #,Sulfonyl source well,Amine source well\n"+
			"A1,1,8,A2,H1\n"+
			"B1,,7,,G1\n",
		buf.String())

	got, err := ReadDestinationMap(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleEntries(), got)
}

func TestReadDestinationMap_Lenient(t *testing.T) {
	got, err := ReadDestinationMap(strings.NewReader("Well,Sulfonyl chloride #,Amine #\nA01,2.0,3\n,,\nB1,,4\n"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A1", got[0].Well.Label)
	assert.Equal(t, 2, got[0].Sulfonyl.Number)
	assert.Equal(t, plate.Well{}, got[0].Sulfonyl.SourceWell)
	assert.Nil(t, got[1].Sulfonyl)
	assert.Equal(t, 4, got[1].Amine.Number)
}

func TestReadDestinationMap_Errors(t *testing.T) {
	_, err := ReadDestinationMap(strings.NewReader("Position\nA1\n"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeMergeColumnMissing))

	for _, hdr := range []string{
		"Well,Sulfonyl chloride,Amine\nA1,1,8\n",
		"Well,Amine #\nA1,8\n",
		"Well,Sulfonyl chloride #\nA1,1\n",
	} {
		_, err = ReadDestinationMap(strings.NewReader(hdr))
		require.Error(t, err, hdr)
		assert.True(t, errors.IsCode(err, errors.ErrCodeMergeColumnMissing), hdr)
	}

	_, err = ReadDestinationMap(strings.NewReader("Well,Sulfonyl chloride #,Amine #\nA1,1,2.5\n"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeMergeValueInvalid))

	_, err = ReadDestinationMap(strings.NewReader("Well,Sulfonyl chloride #,Amine #\n1A,1,1\n"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeMergeValueInvalid))
}

func TestWriteSourceLayout(t *testing.T) {
	vol := 50.0
	var buf bytes.Buffer
	require.NoError(t, WriteSourceLayout(&buf, []protocol.SourceLayoutRow{
		{SourceWell: "A1", Class: protocol.ClassAmine, Number: 1, Name: "Amine 1", Volume: &vol},
		{SourceWell: "B1", Class: protocol.ClassUnknown, Name: "DMSO"},
	}))
	assert.Equal(t,
		"SourceWell,ReagentClass,ReagentNumber,ReagentName,Volume_uL\n"+
			"A1,amine,1,Amine 1,50\n"+
			"B1,unknown,,DMSO,\n",
		buf.String())
}

// -----------------------------------------------------------------------
// Products, plate map, merged output
// -----------------------------------------------------------------------

func sampleProducts() []library.Product {
	return []library.Product{
		{ID: 0, ReagentAID: "S_001", ReagentBID: "Amine_ID_001", Structure: "CS(=O)(=O)NC", Status: library.StatusSuccess,
			Descriptors: &molecule.Descriptors{Formula: "C2H7NO2S", MolWt: 109.146, HeavyAtoms: 6, TPSA: 46.17, HBD: 1, HBA: 3, RotBonds: 1, FracCSP3: 1}},
		{ID: 1, ReagentAID: "S_001", ReagentBID: "Amine_ID_002", Structure: "CS(=O)(=O)Cl.CC", Status: library.StatusFallbackCombined},
	}
}

func TestProducts_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProducts(&buf, sampleProducts()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ProductID,S_ID,Amine_ID,SMILES,Status,Formula,MolWt,HeavyAtoms,TPSA,HBD,HBA,RotBonds,RingCount,FracCSP3", lines[0])
	assert.Equal(t, "0,S_001,Amine_ID_001,CS(=O)(=O)NC,OK_REACTION,C2H7NO2S,109.146,6,46.17,1,3,1,0,1.000", lines[1])
	assert.Equal(t, "1,S_001,Amine_ID_002,CS(=O)(=O)Cl.CC,FALLBACK_COMBINEMOLS,,,,,,,,,", lines[2])

	got, err := ReadProducts(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleProducts(), got)
}

func TestReadProducts_Variants(t *testing.T) {
	got, err := ReadProducts(strings.NewReader("ProductID,S_ID,Amine_ID,SMILES\n4,S_002,Amine_ID_001,CC\n"))
	require.NoError(t, err)
	assert.Equal(t, library.StatusSuccess, got[0].Status)
	assert.Nil(t, got[0].Descriptors)

	got, err = ReadProducts(strings.NewReader("ProductID,S_ID,Amine_ID,SMILES,Status\n4,S_002,Amine_ID_001,CC,fallback\n"))
	require.NoError(t, err)
	assert.Equal(t, library.StatusFallbackCombined, got[0].Status)

	_, err = ReadProducts(strings.NewReader("ProductID,S_ID,SMILES\n0,S_001,C\n"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeMergeColumnMissing))

	_, err = ReadProducts(strings.NewReader("ProductID,S_ID,Amine_ID,SMILES,Status\n0,S_001,A,C,maybe\n"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeMergeValueInvalid))
}

func TestWritePlateMap(t *testing.T) {
	products := sampleProducts()
	assignments, err := library.AssignPlates(products, plate.Geometry{Rows: 1, Cols: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePlateMap(&buf, products, assignments))
	assert.Equal(t,
		"Plate,Row,Col,Well,ProductID,ProductSMILES,S_ID,Amine_ID\n"+
			"1,A,1,A1,0,CS(=O)(=O)NC,S_001,Amine_ID_001\n"+
			"2,A,1,A1,1,CS(=O)(=O)Cl.CC,S_001,Amine_ID_002\n",
		buf.String())

	err = WritePlateMap(&buf, nil, assignments)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInternal))
}

func TestWriteAuthoritative(t *testing.T) {
	products := sampleProducts()
	lib := plate.NewWell(1, 0, 1)
	records := []platemap.ReconciledRecord{
		{Entry: sampleEntries()[0], SulfonylKey: "S_001", AmineKey: "Amine_ID_008", Product: &products[0], LibraryWell: &lib},
		{Entry: sampleEntries()[1], AmineKey: "Amine_ID_007"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteAuthoritative(&buf, records))
	assert.Equal(t,
		"Well,Sulfonyl chloride #,Amine #,Sulfonyl source well,Amine source well,S_ID,Amine_ID,ProductID,SMILES,Status,LibraryPlate,LibraryWell\n"+
			"A1,1,8,A2,H1,S_001,Amine_ID_008,0,CS(=O)(=O)NC,OK_REACTION,1,A1\n"+
			"B1,,7,,G1,,Amine_ID_007,,,,,\n",
		buf.String())
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "lib_final_products.csv", ProductsFileName("lib"))
	assert.Equal(t, "lib_plate_map_1536.csv", PlateMapFileName("lib", 1536))
}

// -----------------------------------------------------------------------
// Files
// -----------------------------------------------------------------------

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.csv")

	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		return WriteDestinationMap(w, sampleEntries())
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "A1,1,8,A2,H1")

	boom := errors.New(errors.ErrCodeInternal, "boom")
	err = WriteFile(filepath.Join(dir, "failed.csv"), func(w io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)
	_, statErr := os.Stat(filepath.Join(dir, "failed.csv"))
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are removed")
}

//Personal.AI order the ending
