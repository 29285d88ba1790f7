package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/platemap/internal/domain/protocol"
	"github.com/turtacn/platemap/internal/intelligence/protocol_analyzer"
	"github.com/turtacn/platemap/pkg/errors"
)

const script = `def run(protocol):
    a1 = protocol.define_liquid(name='Amine 1')
    s2 = protocol.define_liquid(name='SulfonylCl 2')
    buffer = protocol.define_liquid(name='DMSO')
    source_plate['A1'].load_liquid(liquid=a1, volume=40)
    source_plate['B1'].load_liquid(liquid=s2, volume=40)
    source_plate['C1'].load_liquid(liquid=buffer)
    p.transfer(5, source_plate['A1'], ['A1', 'B1'])
    p.transfer(5, source_plate['B1'], ['A1'])
    p.transfer(5, source_plate['C1'], ['A1'])
`

type mockMetrics struct{ mock.Mock }

func (m *mockMetrics) ObserveStage(stage string, d time.Duration, err error) {
	m.Called(stage, err)
}

func (m *mockMetrics) RecordProtocol(wells int, excluded map[string]int, conflicts int) {
	m.Called(wells, excluded, conflicts)
}

type failingAnalyzer struct{ err error }

func (f failingAnalyzer) Analyze(context.Context, []byte) (*protocol.Result, error) {
	return nil, f.err
}

func newService(t *testing.T, metrics Metrics) Service {
	t.Helper()
	a, err := protocol_analyzer.NewAnalyzer(protocol_analyzer.DefaultOptions(), nil)
	require.NoError(t, err)
	return NewService(a, metrics, nil)
}

func TestRun_FromFileAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protocol.py")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o644))

	m := &mockMetrics{}
	m.On("RecordProtocol", 2, map[string]int{string(protocol.ReasonUnboundVariable): 1}, 0).Once()
	m.On("ObserveStage", "analyze", nil).Once()

	svc := newService(t, m)
	out, err := svc.Run(context.Background(), &Input{ProtocolPath: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B1"}, out.Result.Wells())
	m.AssertExpectations(t)

	written, err := svc.Save(out, DefaultPaths(filepath.Join(dir, "out")))
	require.NoError(t, err)
	require.Len(t, written, 2)

	destMap, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Equal(t,
		"Well,Sulfonyl chloride #,Amine #,Sulfonyl source well,Amine source well\n"+
			"A1,2,1,B1,A1\n"+
			"B1,,1,,A1\n",
		string(destMap))

	layout, err := os.ReadFile(written[1])
	require.NoError(t, err)
	assert.Contains(t, string(layout), "C1,unknown,,DMSO,\n")
}

func TestRun_InlineSource(t *testing.T) {
	out, err := newService(t, nil).Run(context.Background(), &Input{Source: []byte(script)})
	require.NoError(t, err)
	assert.Len(t, out.Result.Entries, 2)
}

func TestRun_Errors(t *testing.T) {
	svc := newService(t, nil)

	_, err := svc.Run(context.Background(), &Input{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = svc.Run(context.Background(), &Input{ProtocolPath: filepath.Join(t.TempDir(), "missing.py")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeProtocolRead))

	_, err = svc.Run(context.Background(), &Input{Source: []byte("x = 1\n")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeProtocolNoRun))
}

func TestRun_AnalyzerFailureIsObserved(t *testing.T) {
	boom := errors.New(errors.ErrCodeProtocolSyntax, "bad")
	m := &mockMetrics{}
	m.On("ObserveStage", "analyze", boom).Once()

	_, err := NewService(failingAnalyzer{err: boom}, m, nil).Run(context.Background(), &Input{Source: []byte("x")})
	assert.ErrorIs(t, err, boom)
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "RecordProtocol", mock.Anything, mock.Anything, mock.Anything)
}

func TestSave_SkipsEmptyPaths(t *testing.T) {
	svc := newService(t, nil)
	written, err := svc.Save(&Output{Result: &protocol.Result{}}, Paths{})
	require.NoError(t, err)
	assert.Empty(t, written)

	_, err = svc.Save(nil, Paths{})
	assert.Error(t, err)
}

//Personal.AI order the ending
