package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/platemap/internal/domain/library"
	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/internal/domain/platemap"
	"github.com/turtacn/platemap/internal/domain/protocol"
	"github.com/turtacn/platemap/pkg/errors"
)

func testRun() *platemap.Run {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	product := &library.Product{ID: 7, ReagentAID: "S_001", ReagentBID: "Amine_ID_008", Structure: "CS(=O)(=O)NC", Status: library.StatusSuccess}
	return &platemap.Run{
		ID:           "run-1",
		StartedAt:    started,
		FinishedAt:   started.Add(2 * time.Second),
		ProtocolPath: "protocol.py",
		SulfonylPath: "s.csv",
		AminePath:    "a.csv",
		Status:       platemap.RunIncomplete,
		Wells:        2,
		Missing:      1,
		Summary:      library.Summary{Total: 1, Success: 1},
		Records: []platemap.ReconciledRecord{
			{
				Entry: protocol.DestinationMapEntry{
					Well:     plate.Well{Plate: 1, Row: 0, Column: 0, Label: "A1"},
					Sulfonyl: &protocol.Assignment{Number: 1, SourceWell: plate.Well{Label: "A1"}},
					Amine:    &protocol.Assignment{Number: 8, SourceWell: plate.Well{Label: "H2"}},
				},
				SulfonylKey: "S_001",
				AmineKey:    "Amine_ID_008",
				Product:     product,
				LibraryWell: &plate.Well{Plate: 1, Label: "H1"},
			},
			{
				Entry: protocol.DestinationMapEntry{
					Well:  plate.Well{Plate: 1, Row: 1, Column: 0, Label: "B1"},
					Amine: &protocol.Assignment{Number: 2, SourceWell: plate.Well{Label: "B2"}},
				},
				SulfonylKey: "S_",
				AmineKey:    "Amine_ID_002",
			},
		},
	}
}

func TestPlateMapSink_Save(t *testing.T) {
	tx := &fakeTx{}
	sink := NewPlateMapSink(&fakeBeginner{tx: tx}, nil)
	run := testRun()

	require.NoError(t, sink.Save(context.Background(), run))
	assert.True(t, tx.committed)

	require.Len(t, tx.execs, 2)
	assert.Equal(t, upsertRunSQL, tx.execs[0].sql)
	assert.Equal(t, []any{
		"run-1", run.StartedAt, run.FinishedAt, "protocol.py", "s.csv", "a.csv",
		"incomplete", 2, 1, 1, 1, 0, []string{},
	}, tx.execs[0].args)
	assert.Equal(t, deleteRecordsSQL, tx.execs[1].sql)
	assert.Equal(t, []any{"run-1"}, tx.execs[1].args)

	assert.Equal(t, pgx.Identifier{"platemap_records"}, tx.copyTable)
	assert.Equal(t, recordColumns, tx.copyCols)
	assert.Equal(t, [][]any{
		{"run-1", 0, "A1", 1, 8, "A1", "H2", "S_001", "Amine_ID_008", 7, "CS(=O)(=O)NC", "OK_REACTION", 1, "H1"},
		{"run-1", 1, "B1", nil, 2, nil, "B2", "S_", "Amine_ID_002", nil, nil, nil, nil, nil},
	}, tx.copyRows)
}

func TestPlateMapSink_SaveWithoutRecordsSkipsCopy(t *testing.T) {
	tx := &fakeTx{}
	run := testRun()
	run.Records = nil

	require.NoError(t, NewPlateMapSink(&fakeBeginner{tx: tx}, nil).Save(context.Background(), run))
	assert.Nil(t, tx.copyTable)
	assert.True(t, tx.committed)
}

func TestPlateMapSink_SaveFailures(t *testing.T) {
	tests := []struct {
		name string
		tx   *fakeTx
	}{
		{"exec", &fakeTx{execErr: assert.AnError}},
		{"copy", &fakeTx{copyErr: assert.AnError}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPlateMapSink(&fakeBeginner{tx: tt.tx}, nil).Save(context.Background(), testRun())
			assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
			assert.True(t, tt.tx.rolledBack)
			assert.False(t, tt.tx.committed)
		})
	}
}

func TestPlateMapSink_RequiresRunID(t *testing.T) {
	sink := NewPlateMapSink(&fakeBeginner{tx: &fakeTx{}}, nil)
	assert.True(t, errors.IsCode(sink.Save(context.Background(), nil), errors.ErrCodeBadRequest))
	assert.True(t, errors.IsCode(sink.Save(context.Background(), &platemap.Run{}), errors.ErrCodeBadRequest))
}

//Personal.AI order the ending
