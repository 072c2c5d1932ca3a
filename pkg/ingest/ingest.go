// Package ingest moves flattened case tables into the sqlite workbench in
// transactional batches, with per-row progress checkpoints so an
// interrupted ingestion resumes where it stopped. It also hosts the worker
// pool used to flatten several regions of one snapshot concurrently.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jdfalcon/covidmx/pkg/db"
	"github.com/jdfalcon/covidmx/pkg/epicurve"
	"github.com/jdfalcon/covidmx/pkg/flatten"
	"github.com/jdfalcon/covidmx/pkg/table"
)

// Ingester writes flattened tables into the case store.
type Ingester struct {
	DB        *sql.DB
	BatchSize int
	// Logger is used for informational messages (e.g. resume status). nil means no logging.
	Logger *log.Logger
	// OnProgress is called periodically with the number of processed rows and total rows.
	OnProgress func(current, total int)
}

// NewIngester creates an Ingester with default batching.
func NewIngester(conn *sql.DB) *Ingester {
	return &Ingester{
		DB:        conn,
		BatchSize: 50,
	}
}

// Ingest writes every row of a flattened table into the store for the given
// run, resuming from the run's checkpoint. It returns the number of rows
// written during this call.
func (ig *Ingester) Ingest(ctx context.Context, run db.Run, flat *table.Table) (int, error) {
	lastProcessed, err := db.GetRunProgress(ig.DB, run.ID)
	if err != nil {
		if ig.Logger != nil {
			ig.Logger.Printf("Warning: failed to retrieve progress: %v", err)
		}
		lastProcessed = -1
	}

	total := flat.NumRows()
	start := lastProcessed + 1
	if start >= total {
		return 0, nil // nothing to do
	}
	if start > 0 && ig.Logger != nil {
		ig.Logger.Printf("Resuming ingestion at row %d of %d", start, total)
	}

	bw := NewBatchWriter(ig.DB, ig.BatchSize, 100*time.Millisecond)

	written := 0
	for i := start; i < total; i++ {
		select {
		case <-ctx.Done():
			if cerr := bw.Close(); cerr != nil && cerr != ErrBatchWriterClosed {
				return written, cerr
			}
			return written, ctx.Err()
		default:
		}

		c := caseFromRow(run.ID, flat, i)
		rowIdx := i
		err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			if err := db.InsertCase(tx, c); err != nil {
				return err
			}
			if err := db.UpdateRunProgress(tx, run.ID, rowIdx); err != nil {
				return fmt.Errorf("save progress: %w", err)
			}
			return nil
		})
		if err != nil {
			_ = bw.Close()
			return written, err
		}
		written++

		if ig.OnProgress != nil && (i+1)%ig.BatchSize == 0 {
			ig.OnProgress(i+1, total)
		}
	}

	if err := bw.Close(); err != nil {
		return written, err
	}
	if ig.OnProgress != nil {
		ig.OnProgress(total, total)
	}
	return written, nil
}

// caseFromRow extracts the persisted column subset from one flattened row.
func caseFromRow(runID string, t *table.Table, i int) db.Case {
	get := func(col string) string {
		if !t.HasColumn(col) {
			return ""
		}
		return t.Cell(i, col)
	}
	age, _ := strconv.Atoi(get(flatten.ColEdad))
	return db.Case{
		RunID:           runID,
		RecordID:        get(flatten.ColIDRegistro),
		Entity:          get(flatten.ColEntidadRes),
		Municipality:    get(flatten.ColMunicipioRes),
		MunicipalityKey: get(flatten.ColClaveMunicipioRes),
		PatientType:     get(flatten.ColTipoPaciente),
		Classification:  get(flatten.ColClasificacionFinal),
		Result:          get(flatten.ColResultado),
		AdmissionDate:   get(flatten.ColFechaIngreso),
		OnsetDate:       get(flatten.ColFechaSintomas),
		DeathDate:       get(flatten.ColFechaDef),
		Deceased:        get(flatten.ColDefuncion) == "1",
		Age:             age,
	}
}

// StoreSeries persists a daily series for a run.
func StoreSeries(conn db.DBExecutor, runID string, s epicurve.Series) error {
	for _, p := range s.Points {
		dc := db.DailyCount{
			RunID:  runID,
			Series: s.Name,
			Day:    p.Date.Format(flatten.DateLayout),
			Count:  p.Count,
		}
		if err := db.UpsertDailyCount(conn, dc); err != nil {
			return fmt.Errorf("store series %s: %w", s.Name, err)
		}
	}
	return nil
}
