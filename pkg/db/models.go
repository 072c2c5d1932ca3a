package db

import "time"

// Run identifies one (extraction date, region, policy) flattening run.
type Run struct {
	ID               string // uuid
	ExtractionDate   string // yymmdd snapshot tag
	Entity           string // residence-entity filter, "" for all
	Policy           string
	LastProcessedRow int // checkpoint for resumable ingestion, -1 = none
	CreatedAt        time.Time
}

// Case is the persisted subset of one flattened record.
type Case struct {
	ID              int64
	RunID           string
	RecordID        string
	Entity          string // resolved residence-entity label
	Municipality    string // resolved municipality label
	MunicipalityKey string // composite entity+municipality code
	PatientType     string
	Classification  string
	Result          string
	AdmissionDate   string
	OnsetDate       string
	DeathDate       string // empty when not deceased
	Deceased        bool
	Age             int
}

// DailyCount is one persisted day of an aggregate series.
type DailyCount struct {
	RunID  string
	Series string
	Day    string
	Count  int
}
