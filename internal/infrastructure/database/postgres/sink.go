package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/turtacn/platemap/internal/domain/platemap"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/pkg/errors"
)

const (
	upsertRunSQL = `
INSERT INTO platemap_runs (
    run_id, started_at, finished_at, protocol_path, sulfonyl_path, amine_path,
    status, wells, missing, products_total, products_success, products_fallback, artifacts
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (run_id) DO UPDATE SET
    finished_at = EXCLUDED.finished_at,
    status = EXCLUDED.status,
    wells = EXCLUDED.wells,
    missing = EXCLUDED.missing,
    products_total = EXCLUDED.products_total,
    products_success = EXCLUDED.products_success,
    products_fallback = EXCLUDED.products_fallback,
    artifacts = EXCLUDED.artifacts`

	deleteRecordsSQL = `DELETE FROM platemap_records WHERE run_id = $1`
)

var recordColumns = []string{
	"run_id", "position", "well",
	"sulfonyl_number", "amine_number", "sulfonyl_source", "amine_source",
	"s_id", "amine_id", "product_id", "smiles", "status",
	"library_plate", "library_well",
}

// PlateMapSink stores each run and its reconciled records. Saving the same
// run id twice replaces the earlier rows.
type PlateMapSink struct {
	db     TxBeginner
	logger logging.Logger
}

func NewPlateMapSink(db TxBeginner, log logging.Logger) *PlateMapSink {
	return &PlateMapSink{db: db, logger: logging.OrNop(log)}
}

func (s *PlateMapSink) Save(ctx context.Context, run *platemap.Run) error {
	if run == nil || run.ID == "" {
		return errors.InvalidParam("run with id is required")
	}
	artifacts := run.Artifacts
	if artifacts == nil {
		artifacts = []string{}
	}

	err := WithTransaction(ctx, s.db, func(tx pgx.Tx, ctx context.Context) error {
		if _, err := tx.Exec(ctx, upsertRunSQL,
			run.ID, run.StartedAt, run.FinishedAt, run.ProtocolPath, run.SulfonylPath, run.AminePath,
			string(run.Status), run.Wells, run.Missing,
			run.Summary.Total, run.Summary.Success, run.Summary.Fallback, artifacts,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "upsert run")
		}
		if _, err := tx.Exec(ctx, deleteRecordsSQL, run.ID); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "clear run records")
		}
		if len(run.Records) == 0 {
			return nil
		}
		rows := make([][]any, len(run.Records))
		for i, r := range run.Records {
			rows[i] = recordRow(run.ID, i, r)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"platemap_records"}, recordColumns, pgx.CopyFromRows(rows)); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "copy run records")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Run saved",
		logging.String("run_id", run.ID),
		logging.String("status", string(run.Status)),
		logging.Int("records", len(run.Records)))
	return nil
}

func recordRow(runID string, position int, r platemap.ReconciledRecord) []any {
	row := []any{
		runID, position, r.Entry.Well.Label,
		nil, nil, nil, nil,
		r.SulfonylKey, r.AmineKey,
		nil, nil, nil,
		nil, nil,
	}
	if a := r.Entry.Sulfonyl; a != nil {
		row[3], row[5] = a.Number, a.SourceWell.Label
	}
	if a := r.Entry.Amine; a != nil {
		row[4], row[6] = a.Number, a.SourceWell.Label
	}
	if p := r.Product; p != nil {
		row[9], row[10], row[11] = p.ID, p.Structure, string(p.Status)
	}
	if w := r.LibraryWell; w != nil {
		row[12], row[13] = w.Plate, w.Label
	}
	return row
}

//Personal.AI order the ending
