package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
	"github.com/rumor-ml/commons.systems/bankimport/internal/importer"
	"github.com/rumor-ml/commons.systems/bankimport/internal/output"
	"github.com/rumor-ml/commons.systems/bankimport/internal/profile"
	"github.com/rumor-ml/commons.systems/bankimport/internal/rules"
	"github.com/rumor-ml/commons.systems/bankimport/internal/scanner"
	"github.com/rumor-ml/commons.systems/bankimport/internal/store"
	"github.com/rumor-ml/commons.systems/bankimport/internal/ui"
	"github.com/rumor-ml/commons.systems/bankimport/internal/validate"
)

const version = "0.1.0"

var (
	versionFlag = flag.Bool("version", false, "Show version")

	inputPath    = flag.String("input", "", "CSV file or directory of exports (required unless -reapply)")
	profilesFile = flag.String("profiles", "", "Bank profiles YAML file (required unless -reapply)")
	profileName  = flag.String("profile", "", "Profile name to apply (required unless -reapply)")
	rulesFile    = flag.String("rules", "", "Category rules YAML file")
	formatFlag   = flag.String("format", "", "Date format override (e.g. DD/MM/YYYY)")
	dbFile       = flag.String("db", "", "SQLite database file to store transactions")
	outputFile   = flag.String("output", "", "Output JSON file (default: stdout)")
	reapply      = flag.Bool("reapply", false, "Re-apply rules to stored transactions (requires -db)")
	dryRun       = flag.Bool("dry-run", false, "Preview import counts without writing anything")
	verbose      = flag.Bool("verbose", false, "Show detailed per-file logs")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `bankimport - Bank CSV export importer and categorizer

Usage:
  bankimport [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr, `
Examples:
  # Preview an import (per-file accepted/rejected counts, nothing written)
  bankimport -input ~/exports -profiles profiles.yaml -profile acme-checking -dry-run

  # Import to SQLite with category rules
  bankimport -input ~/exports -profiles profiles.yaml -profile acme-checking \
    -rules rules.yaml -db ledger.db

  # Re-apply updated rules to stored transactions
  bankimport -reapply -rules rules.yaml -db ledger.db

`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("bankimport version %s\n", version)
		os.Exit(0)
	}

	if *reapply {
		if *dbFile == "" {
			fmt.Fprintf(os.Stderr, "Error: -reapply requires -db\n\n")
			flag.Usage()
			os.Exit(1)
		}
	} else if *inputPath == "" || *profilesFile == "" || *profileName == "" {
		fmt.Fprintf(os.Stderr, "Error: -input, -profiles, and -profile are required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	engine, err := loadRules()
	if err != nil {
		return err
	}

	if *reapply {
		return runReapply(ctx, engine)
	}
	return runImport(ctx, engine)
}

// loadRules builds the rule engine snapshot used for the whole run. With
// no rules file every transaction lands on the default category.
func loadRules() (*rules.Engine, error) {
	if *rulesFile == "" {
		return rules.NewEngine(nil)
	}
	engine, err := rules.LoadFromFile(*rulesFile)
	if err != nil {
		return nil, err
	}
	if *verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d enabled rules from %s\n", len(engine.Rules()), *rulesFile)
	}
	return engine, nil
}

func runImport(ctx context.Context, engine *rules.Engine) error {
	ui.Header("Importing Bank Statements")

	ui.Step(1, 4, "Loading bank profile")
	catalog, err := profile.LoadCatalogFromFile(*profilesFile)
	if err != nil {
		return err
	}

	result := validate.ValidateCatalog(catalog.Profiles)
	for _, w := range result.Warnings {
		ui.Warning(fmt.Sprintf("profile %s [%s]: %s", w.Profile, w.Field, w.Message))
	}
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			ui.Error(fmt.Sprintf("profile %s [%s]: %s", e.Profile, e.Field, e.Message))
		}
		return fmt.Errorf("profile validation failed with %d errors", len(result.Errors))
	}

	prof, err := catalog.Find(*profileName)
	if err != nil {
		return err
	}

	override := domain.DateFormat(*formatFlag)
	if override != "" && !domain.ValidateDateFormat(override) {
		return fmt.Errorf("unknown date format override %q (supported: %v)", override, domain.DateFormats())
	}

	ui.Step(2, 4, "Scanning for exports")
	files, err := scanner.New(*inputPath).Scan()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no CSV files found in %s\n\nPlease check:\n  - Path is correct\n  - Files have the .csv extension\n  - You have read permissions", *inputPath)
	}
	ui.Success(fmt.Sprintf("Found %d export files", len(files)))

	if *dryRun {
		return previewImport(files, prof, override, engine)
	}

	ui.Step(3, 4, "Importing")
	sink, cleanup, err := openSink()
	if err != nil {
		return err
	}
	defer cleanup()

	imp := importer.New(sink, engine)
	results, err := imp.ImportFiles(ctx, files, prof, override)
	if err != nil {
		return err
	}

	ui.Step(4, 4, "Writing summary")
	totalAccepted, totalRejected := 0, 0
	for _, r := range results {
		totalAccepted += r.Accepted
		totalRejected += r.Rejected
		if *verbose {
			fmt.Fprintf(os.Stderr, "  %s: %d imported, %d rejected\n", r.Batch.FileName, r.Accepted, r.Rejected)
		}
	}

	if *outputFile != "" || *dbFile == "" {
		var all []domain.Transaction
		switch s := sink.(type) {
		case *collectingStore:
			all = s.transactions
		case *store.SQLiteStore:
			// Export what the database holds after this run, identities
			// included.
			all, err = s.ListTransactions(ctx)
			if err != nil {
				return err
			}
		}
		export := output.NewExport(all, totalRejected)
		if err := output.WriteExportToFile(export, output.WriteOptions{FilePath: *outputFile}); err != nil {
			return err
		}
	}

	ui.Success(fmt.Sprintf("%d imported, %d rejected", totalAccepted, totalRejected))
	return nil
}

// previewImport is the dry-run path: it maps and normalizes every row so
// per-file rejection counts are real, but nothing is stored or written.
// Silent date rejection is the most confusing failure mode, so the counts
// are surfaced per file before the user commits.
func previewImport(files []string, prof domain.BankProfile, override domain.DateFormat, engine *rules.Engine) error {
	ui.Step(3, 4, "Previewing (dry run)")

	noop := &collectingStore{}
	imp := importer.New(noop, engine)
	results, err := imp.ImportFiles(context.Background(), files, prof, override)
	if err != nil {
		return err
	}

	ui.Step(4, 4, "Summary")
	totalAccepted, totalRejected := 0, 0
	for _, r := range results {
		totalAccepted += r.Accepted
		totalRejected += r.Rejected
		status := fmt.Sprintf("%s: %d would import, %d rejected", r.Batch.FileName, r.Accepted, r.Rejected)
		if r.Rejected > 0 {
			ui.Warning(status)
		} else {
			ui.Info(status)
		}
	}
	ui.Success(fmt.Sprintf("Dry run: %d would import, %d rejected. Nothing written.", totalAccepted, totalRejected))
	return nil
}

func runReapply(ctx context.Context, engine *rules.Engine) error {
	ui.Header("Re-applying Category Rules")

	db, err := store.Open(*dbFile)
	if err != nil {
		return err
	}
	defer db.Close()

	txns, err := db.ListTransactions(ctx)
	if err != nil {
		return err
	}

	changed := importer.Reapply(txns, engine)
	if len(changed) == 0 {
		ui.Success("No transactions needed updating")
		return nil
	}

	updated, err := db.UpdateResolution(ctx, changed)
	if err != nil {
		return err
	}

	ui.Success(fmt.Sprintf("Updated %d of %d stored transactions", updated, len(txns)))
	return nil
}

// openSink picks the storage collaborator: SQLite when -db is set,
// otherwise an in-memory collector feeding the JSON export.
func openSink() (importer.Store, func(), error) {
	if *dbFile == "" {
		return &collectingStore{}, func() {}, nil
	}
	db, err := store.Open(*dbFile)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

// collectingStore accumulates handoffs in memory for dry runs and
// JSON-only output.
type collectingStore struct {
	transactions []domain.Transaction
}

func (c *collectingStore) SaveBatch(_ context.Context, _ importer.Batch, txns []domain.Transaction) error {
	c.transactions = append(c.transactions, txns...)
	return nil
}
