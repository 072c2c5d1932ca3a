package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jdfalcon/covidmx/pkg/catalog"
	"github.com/jdfalcon/covidmx/pkg/db"
	"github.com/jdfalcon/covidmx/pkg/epicurve"
	"github.com/jdfalcon/covidmx/pkg/flatten"
	"github.com/jdfalcon/covidmx/pkg/ingest"
	"github.com/jdfalcon/covidmx/pkg/table"

	_ "github.com/mattn/go-sqlite3"
)

// extractionDateLayout is the yymmdd tag the ministry stamps on each snapshot.
const extractionDateLayout = "060102"

func main() {
	dataFlag := flag.String("data", "", "Path to the raw case-tracking CSV")
	catalogsFlag := flag.String("catalogs", "", "Path to the catalog workbook (xlsx)")
	descriptorsFlag := flag.String("descriptors", "", "Path to the descriptor workbook (xlsx)")
	dateFlag := flag.String("date", "", "Extraction date of the snapshot (yymmdd)")
	entityFlag := flag.String("entity", "27", "Residence-entity code to restrict to (empty for all regions)")
	policyFlag := flag.String("policy", string(flatten.Binarize), "Yes/no resolution policy: substitute, augment or binarize")
	dbFlag := flag.String("db", "covidmx.db", "Path to the sqlite workbench database")
	latin1Flag := flag.Bool("latin1", true, "Decode the raw CSV as Latin-1 (ministry default)")
	flag.Parse()

	if *dataFlag == "" || *catalogsFlag == "" || *descriptorsFlag == "" || *dateFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	extractionDate, err := time.Parse(extractionDateLayout, *dateFlag)
	if err != nil {
		log.Fatalf("Bad -date %q: %v", *dateFlag, err)
	}
	policy, err := flatten.ParsePolicy(*policyFlag)
	if err != nil {
		log.Fatalf("Bad -policy: %v", err)
	}

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ver, err := flatten.VersionFor(extractionDate)
	if err != nil {
		log.Fatalf("Unsupported snapshot: %v", err)
	}

	fmt.Printf("Loading catalogs from %s...\n", *catalogsFlag)
	cats, err := catalog.LoadWorkbook(*catalogsFlag, ver.Sheets)
	if err != nil {
		log.Fatalf("Failed to load catalogs: %v", err)
	}

	descs, err := catalog.LoadDescriptors(*descriptorsFlag)
	if err != nil {
		log.Fatalf("Failed to load descriptors: %v", err)
	}
	fmt.Printf("Loaded %d field descriptors (%d yes/no-coded)\n", len(descs), len(catalog.YesNoFields(descs)))

	fmt.Printf("Reading %s...\n", *dataFlag)
	raw, err := table.ReadCSVFile(*dataFlag, *latin1Flag)
	if err != nil {
		log.Fatalf("Failed to read case table: %v", err)
	}
	fmt.Printf("Read %d raw rows\n", raw.NumRows())

	flat, err := flatten.Normalize(raw, extractionDate, cats, descs, flatten.Options{
		Region: *entityFlag,
		Policy: policy,
	})
	if err != nil {
		log.Fatalf("Flattening failed: %v", err)
	}
	fmt.Printf("Flattened %d rows\n", flat.NumRows())

	// Initialize DB
	conn, err := sql.Open("sqlite3", *dbFlag)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()
	if err := db.InitDB(conn); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	run, err := db.CreateOrGetRun(conn, *dateFlag, *entityFlag, string(policy))
	if err != nil {
		log.Fatalf("Failed to create run: %v", err)
	}

	ig := ingest.NewIngester(conn)
	ig.Logger = log.Default()
	ig.OnProgress = func(current, total int) {
		fmt.Printf("\rIngesting %d/%d", current, total)
	}
	written, err := ig.Ingest(ctx, run, flat)
	fmt.Println()
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}
	fmt.Printf("Ingested %d rows into run %s\n", written, run.ID)

	if err := report(conn, run, flat); err != nil {
		log.Fatalf("Aggregation failed: %v", err)
	}
}

// report derives the epidemic curves and municipal totals, persists the
// daily series and prints them as TSV.
func report(conn *sql.DB, run db.Run, flat *table.Table) error {
	confirmed := flatten.Confirmed(flat)

	panels := []struct {
		name    string
		t       *table.Table
		dateCol string
	}{
		{"Casos Confirmados", confirmed, flatten.ColFechaSintomas},
		{"Defunciones", flatten.Deceased(confirmed), flatten.ColFechaDef},
		{"Hospitalizaciones", flatten.Hospitalized(confirmed), flatten.ColFechaSintomas},
	}

	var long []epicurve.LongRow
	for _, p := range panels {
		s, err := epicurve.Daily(p.t, p.dateCol, p.name)
		if err != nil {
			return err
		}
		if err := ingest.StoreSeries(conn, run.ID, s); err != nil {
			return err
		}
		fmt.Printf("%s: %d total over %d days\n", p.name, s.Total(), len(s.Points))
		long = append(long, epicurve.Melt(s, s.RollingMean(7), p.name)...)
	}

	fmt.Println("\nFecha\tTipo\tvariable\tvalue")
	for _, r := range long {
		fmt.Printf("%s\t%s\t%s\t%.2f\n", r.Date.Format(flatten.DateLayout), r.Panel, r.Variable, r.Value)
	}

	totals, err := epicurve.ByMunicipality(flat)
	if err != nil {
		return err
	}
	fmt.Println("\nClave\tMunicipio\tCasos Acumulados")
	for _, mt := range totals {
		fmt.Printf("%s\t%s\t%d\n", mt.Key, mt.Name, mt.Count)
	}
	return nil
}
