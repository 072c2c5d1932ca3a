package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// CreateOrGetRun returns the existing run for the (extraction date, entity,
// policy) triple or inserts a new one with a fresh uuid.
func CreateOrGetRun(db DBExecutor, extractionDate, entity, policy string) (Run, error) {
	if strings.TrimSpace(extractionDate) == "" {
		return Run{}, fmt.Errorf("extractionDate must be non-empty")
	}

	const maxRetries = 3

	for attempt := 0; attempt < maxRetries; attempt++ {
		var r Run
		err := db.QueryRow(
			`SELECT id, extraction_date, entity, policy, last_processed_row FROM runs
			 WHERE extraction_date = ? AND entity = ? AND policy = ?`,
			extractionDate, entity, policy,
		).Scan(&r.ID, &r.ExtractionDate, &r.Entity, &r.Policy, &r.LastProcessedRow)
		if err == nil {
			return r, nil
		}
		if err != sql.ErrNoRows {
			return Run{}, err
		}

		id := uuid.NewString()
		_, err = db.Exec(
			`INSERT INTO runs (id, extraction_date, entity, policy) VALUES (?, ?, ?, ?)`,
			id, extractionDate, entity, policy,
		)
		if err != nil {
			// Another connection created the run concurrently; retry the SELECT.
			if isUniqueConstraintErr(err) {
				continue
			}
			return Run{}, err
		}
		return Run{ID: id, ExtractionDate: extractionDate, Entity: entity, Policy: policy, LastProcessedRow: -1}, nil
	}

	return Run{}, fmt.Errorf("could not create or get run after %d retries", maxRetries)
}

// GetRunProgress returns the last ingested row index for a run.
func GetRunProgress(db DBExecutor, runID string) (int, error) {
	var idx int
	err := db.QueryRow(`SELECT last_processed_row FROM runs WHERE id = ?`, runID).Scan(&idx)
	if err != nil {
		return 0, err
	}
	return idx, nil
}

// UpdateRunProgress checkpoints the last ingested row index.
func UpdateRunProgress(db DBExecutor, runID string, index int) error {
	_, err := db.Exec(`UPDATE runs SET last_processed_row = ? WHERE id = ?`, index, runID)
	return err
}

// InsertCase stores one flattened case. Re-ingesting the same record for a
// run overwrites it, so resumed runs stay idempotent.
func InsertCase(db DBExecutor, c Case) error {
	if c.RunID == "" {
		return fmt.Errorf("case runID must be non-empty")
	}
	if c.RecordID == "" {
		return fmt.Errorf("case recordID must be non-empty")
	}
	_, err := db.Exec(
		`INSERT INTO cases (run_id, record_id, entity, municipality, municipality_key,
		   patient_type, classification, result, admission_date, onset_date, death_date, deceased, age)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, record_id) DO UPDATE SET
		   entity = excluded.entity,
		   municipality = excluded.municipality,
		   municipality_key = excluded.municipality_key,
		   patient_type = excluded.patient_type,
		   classification = excluded.classification,
		   result = excluded.result,
		   admission_date = excluded.admission_date,
		   onset_date = excluded.onset_date,
		   death_date = excluded.death_date,
		   deceased = excluded.deceased,
		   age = excluded.age`,
		c.RunID, c.RecordID, c.Entity, c.Municipality, c.MunicipalityKey,
		c.PatientType, c.Classification, c.Result, c.AdmissionDate, c.OnsetDate,
		c.DeathDate, boolToInt(c.Deceased), c.Age,
	)
	if err != nil {
		return fmt.Errorf("upsert case %s: %w", c.RecordID, err)
	}
	return nil
}

// UpsertDailyCount stores one day of an aggregate series.
func UpsertDailyCount(db DBExecutor, dc DailyCount) error {
	if dc.RunID == "" || dc.Series == "" || dc.Day == "" {
		return fmt.Errorf("daily count needs run, series and day")
	}
	_, err := db.Exec(
		`INSERT INTO daily_counts (run_id, series, day, count) VALUES (?, ?, ?, ?)
		 ON CONFLICT(run_id, series, day) DO UPDATE SET count = excluded.count`,
		dc.RunID, dc.Series, dc.Day, dc.Count,
	)
	return err
}

// CountCases returns the number of cases stored for a run.
func CountCases(db DBExecutor, runID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM cases WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

// MunicipalTotal is a stored per-municipality case count.
type MunicipalTotal struct {
	Key   string
	Name  string
	Count int
}

// CasesByMunicipality returns per-municipality totals for a run, ordered by
// composite key.
func CasesByMunicipality(db DBExecutor, runID string) ([]MunicipalTotal, error) {
	rows, err := db.Query(
		`SELECT municipality_key, municipality, COUNT(*) FROM cases
		 WHERE run_id = ? GROUP BY municipality_key, municipality ORDER BY municipality_key`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MunicipalTotal
	for rows.Next() {
		var mt MunicipalTotal
		if err := rows.Scan(&mt.Key, &mt.Name, &mt.Count); err != nil {
			return nil, err
		}
		out = append(out, mt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DailyCounts returns a stored series for a run in day order.
func DailyCounts(db DBExecutor, runID, series string) ([]DailyCount, error) {
	rows, err := db.Query(
		`SELECT run_id, series, day, count FROM daily_counts
		 WHERE run_id = ? AND series = ? ORDER BY day`,
		runID, series)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyCount
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.RunID, &dc.Series, &dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
