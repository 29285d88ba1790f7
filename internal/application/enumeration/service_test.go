package enumeration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/turtacn/platemap/internal/domain/library"
	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/internal/intelligence/common"
	"github.com/turtacn/platemap/internal/intelligence/reaction_oracle"
	"github.com/turtacn/platemap/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockMetrics struct{ mock.Mock }

func (m *mockMetrics) ObserveStage(stage string, d time.Duration, err error) { m.Called(stage, err) }
func (m *mockMetrics) RecordProducts(byStatus map[string]int)                { m.Called(byStatus) }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func newPoolService(t *testing.T, g plate.Geometry, metrics Metrics) Service {
	t.Helper()
	oracle := reaction_oracle.NewSulfonamideOracle(nil)
	proc := common.NewBatchProcessor[library.Pair, library.Outcome](
		common.WithName("oracle"),
		common.WithMaxConcurrency(3),
		common.WithItemTimeout(5*time.Second),
	)
	t.Cleanup(func() { _ = proc.Shutdown(context.Background()) })
	enum := library.NewEnumerator(oracle,
		library.WithRunner(NewPoolRunner(proc)),
		library.WithDescriber(oracle))
	svc, err := NewService(Config{Geometry: g}, enum, nil, metrics, nil)
	require.NoError(t, err)
	return svc
}

func TestRun_FromFiles(t *testing.T) {
	dir := t.TempDir()
	sPath := writeFile(t, dir, "sulfonyls.csv", "S_ID,SMILES\nS_001,Cc1ccc(S(=O)(=O)Cl)cc1\nS_002,CS(=O)(=O)Cl\nS_003,not-a-smiles\n")
	aPath := writeFile(t, dir, "amines.csv", "Amine_ID,smiles\nAmine_ID_001,NCc1ccccc1\nAmine_ID_002,CCO\n")

	m := &mockMetrics{}
	m.On("RecordProducts", map[string]int{"OK_REACTION": 2, "FALLBACK_COMBINEMOLS": 2}).Once()
	m.On("ObserveStage", "enumerate", nil).Once()

	g := plate.Geometry{Rows: 2, Cols: 2}
	svc := newPoolService(t, g, m)
	out, err := svc.Run(context.Background(), &Input{SulfonylPath: sPath, AminePath: aPath})
	require.NoError(t, err)
	m.AssertExpectations(t)

	require.Len(t, out.Sulfonyls, 2)
	require.Len(t, out.Products, 4)
	assert.Equal(t, library.Summary{Total: 4, Success: 2, Fallback: 2}, out.Summary)

	wantStatus := []library.Status{library.StatusSuccess, library.StatusFallbackCombined, library.StatusSuccess, library.StatusFallbackCombined}
	wantWells := []string{"A1", "B1", "A2", "B2"}
	for i, p := range out.Products {
		assert.Equal(t, i, p.ID)
		assert.Equal(t, wantStatus[i], p.Status, "product %d", i)
		assert.NotNil(t, p.Descriptors, "product %d", i)
		assert.Equal(t, wantWells[i], out.Assignments[i].Well.Label)
	}
	assert.Equal(t, "Cc1ccc(S(=O)(=O)NCc2ccccc2)cc1", out.Products[0].Structure)
	assert.Contains(t, out.Products[1].Structure, ".")
	assert.Equal(t, "S_002", out.Products[3].ReagentAID)
	assert.Equal(t, "Amine_ID_002", out.Products[3].ReagentBID)

	written, err := svc.Save(out, DefaultPaths(dir, "lib", g))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "lib_final_products.csv"),
		filepath.Join(dir, "lib_plate_map_4.csv"),
	}, written)
	plateMap, err := os.ReadFile(written[1])
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(string(plateMap), "\n"))
}

func TestRun_InMemoryReagentsSpillAcrossPlates(t *testing.T) {
	svc := newPoolService(t, plate.Geometry{Rows: 2, Cols: 1}, nil)
	out, err := svc.Run(context.Background(), &Input{
		Sulfonyls: []library.Reagent{{ID: "S_001", Structure: "CS(=O)(=O)Cl"}, {ID: "S_002", Structure: "CCS(=O)(=O)Cl"}},
		Amines:    []library.Reagent{{ID: "Amine_001", Structure: "CN"}},
	})
	require.NoError(t, err)
	require.Len(t, out.Assignments, 2)
	assert.Equal(t, plate.NewWell(1, 0, 1), out.Assignments[0].Well)
	assert.Equal(t, plate.NewWell(1, 1, 1), out.Assignments[1].Well)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	svc := newPoolService(t, plate.Geometry96, nil)

	_, err := svc.Run(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = svc.Run(context.Background(), &Input{AminePath: "x.csv"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = svc.Run(context.Background(), &Input{SulfonylPath: filepath.Join(dir, "missing.csv"), AminePath: "x.csv"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeReagentRead))

	empty := writeFile(t, dir, "empty.csv", "SMILES\n")
	good := writeFile(t, dir, "good.csv", "SMILES\nCN\n")
	_, err = svc.Run(context.Background(), &Input{SulfonylPath: good, AminePath: empty})
	assert.True(t, errors.IsCode(err, errors.ErrCodeReagentListEmpty))

	_, err = svc.Run(context.Background(), &Input{SulfonylPath: good, AminePath: good, StrictIDs: true})
	assert.True(t, errors.IsCode(err, errors.ErrCodeReagentColumnMissing))
}

func TestRun_CanceledContext(t *testing.T) {
	svc := newPoolService(t, plate.Geometry96, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Run(ctx, &Input{
		Sulfonyls: []library.Reagent{{ID: "S_001", Structure: "CS(=O)(=O)Cl"}},
		Amines:    []library.Reagent{{ID: "A_001", Structure: "CN"}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEnumerationFailed))
}

func TestNewService_Validation(t *testing.T) {
	enum := library.NewEnumerator(reaction_oracle.NewSulfonamideOracle(nil))
	_, err := NewService(Config{}, enum, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewService(Config{Geometry: plate.Geometry96}, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestPoolRunner_PerItemErrorsAndOrder(t *testing.T) {
	proc := common.NewBatchProcessor[library.Pair, library.Outcome](common.WithMaxConcurrency(4))
	defer proc.Shutdown(context.Background())

	pairs := library.Pairs(
		[]library.Reagent{{ID: "a0"}, {ID: "a1"}},
		[]library.Reagent{{ID: "b0"}, {ID: "b1"}, {ID: "b2"}},
	)
	results, err := NewPoolRunner(proc).Run(context.Background(), pairs,
		func(_ context.Context, p library.Pair) (library.Outcome, error) {
			if p.Index == 4 {
				return library.Outcome{}, errors.New(errors.ErrCodeOracleFailed, "boom")
			}
			return library.Outcome{Structure: p.A.ID + p.B.ID, Status: library.StatusSuccess}, nil
		})
	require.NoError(t, err)
	require.Len(t, results, 6)
	for i, r := range results {
		if i == 4 {
			assert.True(t, errors.IsCode(r.Err, errors.ErrCodeOracleFailed))
			continue
		}
		assert.NoError(t, r.Err)
		assert.Equal(t, pairs[i].A.ID+pairs[i].B.ID, r.Outcome.Structure)
	}
}

func TestPoolRunner_ShutdownRefuses(t *testing.T) {
	proc := common.NewBatchProcessor[library.Pair, library.Outcome]()
	require.NoError(t, proc.Shutdown(context.Background()))
	_, err := NewPoolRunner(proc).Run(context.Background(), []library.Pair{{}},
		func(context.Context, library.Pair) (library.Outcome, error) { return library.Outcome{}, nil })
	assert.ErrorIs(t, err, common.ErrShutdown)
}

//Personal.AI order the ending
