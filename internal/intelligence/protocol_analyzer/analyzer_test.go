package protocol_analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/internal/domain/protocol"
	"github.com/turtacn/platemap/pkg/errors"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(DefaultOptions(), nil)
	require.NoError(t, err)
	return a
}

func analyze(t *testing.T, src string) *protocol.Result {
	t.Helper()
	res, err := newTestAnalyzer(t).Analyze(context.Background(), []byte(src))
	require.NoError(t, err)
	return res
}

func TestAnalyze_Dispense96(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("testdata", "dispense_96.py"))
	require.NoError(t, err)

	res, err := newTestAnalyzer(t).Analyze(context.Background(), src)
	require.NoError(t, err)

	sulfonylSources := []string{"A2", "B2", "C2", "D2", "E2", "F2", "G2", "H2", "A3", "B3", "C3", "D3"}
	amineSources := []string{"A1", "B1", "C1", "D1", "E1", "F1", "G1", "H1"}

	require.Len(t, res.Entries, 96)
	assert.Empty(t, res.Excluded)
	assert.Empty(t, res.Conflicts)
	assert.Empty(t, res.OutOfPlate)
	assert.Len(t, res.Bindings, 20)
	assert.Len(t, res.Transfers, 20)
	assert.Len(t, res.SourceLayout, 20)

	for i, e := range res.Entries {
		// column-major output
		w, err := plate.Geometry96.Coordinate(i)
		require.NoError(t, err)
		assert.Equal(t, w.Label, e.Well.Label)

		// the script fills sulfonyls in row-major runs of eight and amines
		// on every eighth well
		j := e.Well.Row*12 + e.Well.Column - 1
		wantS, wantA := j/8+1, 8-j%8
		require.NotNil(t, e.Sulfonyl, e.Well.Label)
		require.NotNil(t, e.Amine, e.Well.Label)
		assert.Equal(t, wantS, e.Sulfonyl.Number, e.Well.Label)
		assert.Equal(t, wantA, e.Amine.Number, e.Well.Label)
		assert.Equal(t, sulfonylSources[wantS-1], e.Sulfonyl.SourceWell.Label)
		assert.Equal(t, amineSources[wantA-1], e.Amine.SourceWell.Label)
	}

	first := res.SourceLayout[0]
	assert.Equal(t, "A1", first.SourceWell)
	assert.Equal(t, protocol.ClassAmine, first.Class)
	assert.Equal(t, 1, first.Number)
	require.NotNil(t, first.Volume)
	assert.Equal(t, 50.0, *first.Volume)
}

const miniHeader = `from opentrons import protocol_api

def run(protocol: protocol_api.ProtocolContext):
    source_plate = protocol.load_labware('plate', 'D1')
    dest_plate = protocol.load_labware('plate', 'D2')
`

func TestAnalyze_LiteralDestinationForms(t *testing.T) {
	res := analyze(t, miniHeader+`
    a1 = protocol.define_liquid(name='Amine 1')
    s3 = protocol.define_liquid(name="sulfonylcl 3")
    source_plate['A1'].load_liquid(liquid=a1, volume=20)
    source_plate['B1'].load_liquid(liquid=s3)
    p.transfer(5, source_plate['A1'], ['A1', 'B1'])
    p.transfer(5, source_plate['B1'], [dest_plate['A1'], dest_plate.wells_by_name()['C1']])
    p.transfer(5, source_plate['A1'], dest_plate['D01'])
`)
	require.Len(t, res.Entries, 4)
	assert.Equal(t, []string{"A1", "B1", "C1", "D1"}, res.Wells())

	a1 := res.Entries[0]
	require.NotNil(t, a1.Amine)
	require.NotNil(t, a1.Sulfonyl)
	assert.Equal(t, 1, a1.Amine.Number)
	assert.Equal(t, 3, a1.Sulfonyl.Number)

	assert.Nil(t, res.Entries[1].Sulfonyl)
	assert.Nil(t, res.Entries[2].Amine)
	assert.NotNil(t, res.Entries[3].Amine)

	require.Len(t, res.SourceLayout, 2)
	assert.Nil(t, res.SourceLayout[1].Volume)
}

func TestAnalyze_UnrecognizedDisplayNameIsExcluded(t *testing.T) {
	res := analyze(t, miniHeader+`
    buffer = protocol.define_liquid(name='DMSO')
    a1 = protocol.define_liquid(name='Amine 1')
    source_plate['A1'].load_liquid(liquid=buffer, volume=50)
    source_plate['B1'].load_liquid(liquid=a1, volume=50)
    p.transfer(5, source_plate['A1'], ['A1', 'A2'])
    p.transfer(5, source_plate['B1'], ['B1'])
    p.transfer(5, source_plate['H9'], ['C1'])
`)
	assert.Equal(t, []string{"B1"}, res.Wells())
	require.Len(t, res.Excluded, 2)
	assert.Equal(t, protocol.ReasonUnboundVariable, res.Excluded[0].Reason)
	assert.Equal(t, "buffer", res.Excluded[0].Detail)
	assert.Equal(t, protocol.ReasonNoSourceLoad, res.Excluded[1].Reason)
	assert.Equal(t, "H9", res.Excluded[1].SourceWell.Label)

	assert.Len(t, res.Bindings, 1)
	require.Len(t, res.SourceLayout, 2)
	assert.Equal(t, protocol.ClassUnknown, res.SourceLayout[0].Class)
}

func TestAnalyze_LoadsInNestedBlocks(t *testing.T) {
	res := analyze(t, miniHeader+`
    a1 = protocol.define_liquid(name='Amine 1')
    if True:
        source_plate['A1'].load_liquid(liquid=a1, volume=1.5)
    p.transfer(5, source_plate['A1'], ['A1'])
`)
	require.Len(t, res.Entries, 1)
	require.NotNil(t, res.SourceLayout[0].Volume)
	assert.Equal(t, 1.5, *res.SourceLayout[0].Volume)
}

func TestAnalyze_NonTopLevelTransfersAndDefinitionsIgnored(t *testing.T) {
	res := analyze(t, miniHeader+`
    a1 = protocol.define_liquid(name='Amine 1')
    source_plate['A1'].load_liquid(liquid=a1)
    for _ in range(2):
        p.transfer(5, source_plate['A1'], ['A1'])
`)
	assert.Empty(t, res.Entries)
	assert.Empty(t, res.Transfers)
}

func TestAnalyze_UnknownListName(t *testing.T) {
	res := analyze(t, miniHeader+`
    a1 = protocol.define_liquid(name='Amine 1')
    source_plate['A1'].load_liquid(liquid=a1)
    p.transfer(5, source_plate['A1'], computed_wells)
`)
	assert.Empty(t, res.Entries)
	require.Len(t, res.Excluded, 1)
	assert.Equal(t, protocol.ReasonUnknownList, res.Excluded[0].Reason)
	assert.Equal(t, "computed_wells", res.Excluded[0].Detail)
}

func TestAnalyze_ShapesOutsideGrammarAreDropped(t *testing.T) {
	res := analyze(t, miniHeader+`
    name = 'Amine 2'
    a2 = protocol.define_liquid(name=name)
    a1 = protocol.define_liquid(name=f'Amine {1}')
    other = protocol.load_labware('plate', 'D3')
    other['A1'].load_liquid(liquid=a2)
    wells = [other[w] for w in ['A1']]
    p.transfer(5, other['A1'], ['A1'])
    p.transfer(5, source_plate['A1'])
`)
	assert.Empty(t, res.Bindings)
	assert.Empty(t, res.SourceLayout)
	assert.Empty(t, res.Transfers)
	assert.Empty(t, res.Excluded)
}

func TestAnalyze_NoRunFunction(t *testing.T) {
	_, err := newTestAnalyzer(t).Analyze(context.Background(), []byte(`
def setup(protocol):
    pass
`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeProtocolNoRun))
}

func TestAnalyze_NestedRunDoesNotCount(t *testing.T) {
	_, err := newTestAnalyzer(t).Analyze(context.Background(), []byte(`
class P:
    def run(self, protocol):
        pass
`))
	assert.True(t, errors.IsCode(err, errors.ErrCodeProtocolNoRun))
}

func TestAnalyze_DecoratedRun(t *testing.T) {
	res := analyze(t, `
@decorator
def run(protocol):
    a1 = protocol.define_liquid(name='Amine 4')
    source_plate['A1'].load_liquid(liquid=a1)
    p.transfer(5, source_plate['A1'], ['H12'])
`)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, 4, res.Entries[0].Amine.Number)
}

func TestAnalyze_SyntaxError(t *testing.T) {
	src := []byte(miniHeader + `
    a1 = protocol.define_liquid(name='Amine 1')

helper(]
`)
	_, err := newTestAnalyzer(t).Analyze(context.Background(), src)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeProtocolSyntax))

	opts := DefaultOptions()
	opts.StrictSyntax = false
	lenient, err := NewAnalyzer(opts, nil)
	require.NoError(t, err)
	_, err = lenient.Analyze(context.Background(), src)
	assert.False(t, errors.IsCode(err, errors.ErrCodeProtocolSyntax))
}

func TestAnalyze_CustomSymbols(t *testing.T) {
	opts := DefaultOptions()
	opts.Symbols.SourcePlate = "reservoir"
	opts.Symbols.DestPlate = "target"
	opts.Symbols.RunFunction = "main"
	a, err := NewAnalyzer(opts, nil)
	require.NoError(t, err)

	res, err := a.Analyze(context.Background(), []byte(`
def main(ctx):
    s1 = ctx.define_liquid(name='SulfonylCl 1')
    reservoir['A1'].load_liquid(liquid=s1)
    dest = [target.wells_by_name()[w] for w in ('B2', 'A2')]
    pip.transfer(5, reservoir['A1'], dest)
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"A2", "B2"}, res.Wells())
}

func TestAnalyze_OutOfPlateWells(t *testing.T) {
	res := analyze(t, miniHeader+`
    a1 = protocol.define_liquid(name='Amine 1')
    source_plate['A1'].load_liquid(liquid=a1)
    p.transfer(5, source_plate['A1'], ['A13', 'I1'])
`)
	assert.Len(t, res.OutOfPlate, 2)
}

func TestStatements_SourceOrderAndLines(t *testing.T) {
	stmts, err := newTestAnalyzer(t).Statements(context.Background(), []byte(`def run(protocol):
    p.transfer(5, source_plate['A1'], later)
    a1 = protocol.define_liquid(name='Amine 1')
    source_plate['A1'].load_liquid(liquid=a1)
    later = [dest_plate[w] for w in ['A1']]
`))
	require.NoError(t, err)
	require.Len(t, stmts, 4)
	assert.IsType(t, protocol.TransferStatement{}, stmts[0])
	assert.IsType(t, protocol.LiquidStatement{}, stmts[1])
	assert.IsType(t, protocol.LoadStatement{}, stmts[2])
	assert.IsType(t, protocol.DestinationListStatement{}, stmts[3])
	assert.Equal(t, 2, stmts[0].Pos().Line)
	assert.Equal(t, 5, stmts[3].Pos().Line)
}

func TestNewAnalyzer_InvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Symbols.Transfer = ""
	_, err := NewAnalyzer(opts, nil)
	assert.Error(t, err)

	opts = DefaultOptions()
	opts.Geometry = plate.Geometry{}
	_, err = NewAnalyzer(opts, nil)
	assert.Error(t, err)
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{`'A1'`, "A1", true},
		{`"B12"`, "B12", true},
		{`r'C\d'`, `C\d`, true},
		{`u"D4"`, "D4", true},
		{`'''E5'''`, "E5", true},
		{`'it\'s'`, "it's", true},
		{`f'A{n}'`, "", false},
		{`'`, "", false},
	}
	for _, tt := range tests {
		got, ok := decodeString(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

//Personal.AI order the ending
