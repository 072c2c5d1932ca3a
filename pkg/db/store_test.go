package db

import (
	"database/sql"
	"testing"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// A :memory: database exists per connection; keep the pool at one.
	conn.SetMaxOpenConns(1)
	if err := InitDB(conn); err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func testCase(runID, recordID string) Case {
	return Case{
		RunID:           runID,
		RecordID:        recordID,
		Entity:          "TABASCO",
		Municipality:    "CENTRO",
		MunicipalityKey: "27004",
		PatientType:     "AMBULATORIO",
		Classification:  "CASO DE SARS-COV-2 CONFIRMADO",
		Result:          "Positivo SARS-CoV-2",
		AdmissionDate:   "2021-07-13",
		OnsetDate:       "2021-07-10",
		Age:             30,
	}
}

func TestCreateOrGetRunIdempotent(t *testing.T) {
	conn := setupTestDB(t)

	r1, err := CreateOrGetRun(conn, "210713", "27", "binarize")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if r1.ID == "" {
		t.Fatal("run has no id")
	}
	if r1.LastProcessedRow != -1 {
		t.Fatalf("fresh run checkpoint = %d, want -1", r1.LastProcessedRow)
	}

	r2, err := CreateOrGetRun(conn, "210713", "27", "binarize")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if r2.ID != r1.ID {
		t.Fatalf("same triple gave a new run: %s vs %s", r2.ID, r1.ID)
	}

	// A different policy is a different run.
	r3, err := CreateOrGetRun(conn, "210713", "27", "augment")
	if err != nil {
		t.Fatalf("create second run: %v", err)
	}
	if r3.ID == r1.ID {
		t.Fatal("different policy reused the run")
	}
}

func TestCreateOrGetRunRejectsEmptyDate(t *testing.T) {
	conn := setupTestDB(t)
	if _, err := CreateOrGetRun(conn, "  ", "27", "substitute"); err == nil {
		t.Fatal("expected error for empty extraction date")
	}
}

func TestRunProgress(t *testing.T) {
	conn := setupTestDB(t)
	r, err := CreateOrGetRun(conn, "210713", "27", "substitute")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	if err := UpdateRunProgress(conn, r.ID, 499); err != nil {
		t.Fatalf("update progress: %v", err)
	}
	idx, err := GetRunProgress(conn, r.ID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if idx != 499 {
		t.Fatalf("progress = %d, want 499", idx)
	}
}

func TestInsertCaseUpsert(t *testing.T) {
	conn := setupTestDB(t)
	r, err := CreateOrGetRun(conn, "210713", "27", "substitute")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	if err := InsertCase(conn, testCase(r.ID, "z1")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Re-ingesting the same record updates in place.
	c := testCase(r.ID, "z1")
	c.Deceased = true
	c.DeathDate = "2021-07-20"
	if err := InsertCase(conn, c); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	n, err := CountCases(conn, r.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("case count = %d, want 1", n)
	}

	var deceased int
	var death string
	err = conn.QueryRow(`SELECT deceased, death_date FROM cases WHERE run_id = ? AND record_id = ?`,
		r.ID, "z1").Scan(&deceased, &death)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if deceased != 1 || death != "2021-07-20" {
		t.Fatalf("upsert did not overwrite: deceased=%d death=%q", deceased, death)
	}
}

func TestInsertCaseValidation(t *testing.T) {
	conn := setupTestDB(t)
	if err := InsertCase(conn, Case{RecordID: "z1"}); err == nil {
		t.Fatal("expected error for missing run id")
	}
	if err := InsertCase(conn, Case{RunID: "r"}); err == nil {
		t.Fatal("expected error for missing record id")
	}
}

func TestInsertCaseWithinTransaction(t *testing.T) {
	conn := setupTestDB(t)
	r, err := CreateOrGetRun(conn, "210713", "27", "substitute")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	tx, err := conn.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := InsertCase(tx, testCase(r.ID, "z1")); err != nil {
		t.Fatalf("insert in tx: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	n, err := CountCases(conn, r.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("rolled-back insert persisted: %d cases", n)
	}
}

func TestDailyCountsRoundTrip(t *testing.T) {
	conn := setupTestDB(t)
	r, err := CreateOrGetRun(conn, "210713", "27", "substitute")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	for _, dc := range []DailyCount{
		{RunID: r.ID, Series: "confirmed", Day: "2021-07-11", Count: 3},
		{RunID: r.ID, Series: "confirmed", Day: "2021-07-10", Count: 1},
		{RunID: r.ID, Series: "deaths", Day: "2021-07-11", Count: 1},
	} {
		if err := UpsertDailyCount(conn, dc); err != nil {
			t.Fatalf("upsert %v: %v", dc, err)
		}
	}
	// Overwrite one day.
	if err := UpsertDailyCount(conn, DailyCount{RunID: r.ID, Series: "confirmed", Day: "2021-07-11", Count: 4}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := DailyCounts(conn, r.ID, "confirmed")
	if err != nil {
		t.Fatalf("read series: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("series length = %d, want 2", len(got))
	}
	if got[0].Day != "2021-07-10" || got[1].Day != "2021-07-11" {
		t.Fatalf("series not in day order: %+v", got)
	}
	if got[1].Count != 4 {
		t.Fatalf("overwritten count = %d, want 4", got[1].Count)
	}
}

func TestUpsertDailyCountValidation(t *testing.T) {
	conn := setupTestDB(t)
	if err := UpsertDailyCount(conn, DailyCount{Series: "confirmed", Day: "2021-07-11"}); err == nil {
		t.Fatal("expected error for missing run id")
	}
}

func TestCasesByMunicipality(t *testing.T) {
	conn := setupTestDB(t)
	r, err := CreateOrGetRun(conn, "210713", "27", "substitute")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	for i, rec := range []struct{ id, key, name string }{
		{"z1", "27004", "CENTRO"},
		{"z2", "27004", "CENTRO"},
		{"z3", "27001", "BALANCÁN"},
	} {
		c := testCase(r.ID, rec.id)
		c.MunicipalityKey = rec.key
		c.Municipality = rec.name
		if err := InsertCase(conn, c); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	totals, err := CasesByMunicipality(conn, r.ID)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	want := []MunicipalTotal{
		{Key: "27001", Name: "BALANCÁN", Count: 1},
		{Key: "27004", Name: "CENTRO", Count: 2},
	}
	if len(totals) != len(want) {
		t.Fatalf("got %d totals, want %d", len(totals), len(want))
	}
	for i, w := range want {
		if totals[i] != w {
			t.Fatalf("total %d = %+v, want %+v", i, totals[i], w)
		}
	}
}
