package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

// CLI flags
var (
	csvPath     = flag.String("csv", "", "Path to the source CSV (required)")
	dsn         = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
	dryRun      = flag.Bool("dry-run", false, "Parse + validate only; no DB writes")
	confirm     = flag.Bool("confirm", false, "Required to perform destructive replace")
	advisoryKey = flag.Int64("advisory-lock", 0, "Optional Postgres advisory lock key (e.g., 424242). 0 = disabled")
)

// CSV contract
// id,name,jurisdiction followed by the numeric columns below; any numeric cell
// may be empty and is stored as NULL. competitiveness/strategy are free-form
// labels. engagement columns are optional as a group: if media_pct is absent
// from the header the whole engagement block is considered missing.

var numericColumns = []string{
	"total_population", "population_18up", "median_age", "median_hhi",
	"college_pct", "homeowner_pct", "diversity_index", "population_density",
	"dem_affiliation_pct", "rep_affiliation_pct", "independent_pct",
	"liberal_pct", "moderate_pct", "conservative_pct",
	"partisan_lean", "swing_potential", "avg_turnout", "turnout_dropoff",
	"gotv_priority", "persuasion_opportunity", "combined_score",
}

var engagementColumns = []string{"media_pct", "social_pct", "donor_pct"}

type PrecinctCSV struct {
	ID           string
	Name         string
	Jurisdiction string

	Numbers       map[string]*float64
	Competitiveness string
	Strategy      string

	HasEngagement bool
	Engagement    map[string]*float64
}

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *csvPath == "" {
		fatalf("--csv is required")
	}
	if *dsn == "" {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}

	rows, err := loadCSV(*csvPath)
	if err != nil {
		fatalf("CSV error: %v", err)
	}

	if err := validateRows(rows); err != nil {
		fatalf("CSV validation failed: %v", err)
	}

	fmt.Printf("Loaded %d precincts from %s\n", len(rows), *csvPath)

	if *dryRun {
		printPlan(rows)
		fmt.Println("Dry run complete. No changes made.")
		return
	}

	if !*confirm {
		fatalf("Refusing to run without --confirm. Add --dry-run to preview.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		fatalf("begin tx: %v", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op if already committed
	}()

	// Optional advisory lock to avoid concurrent runs
	if *advisoryKey != 0 {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, *advisoryKey); err != nil {
			fatalf("advisory lock: %v", err)
		}
	}

	var before int64
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM analytics.precincts`).Scan(&before); err != nil {
		fatalf("pre-count: %v", err)
	}
	fmt.Printf("Before: precincts=%d\n", before)

	// Destructive replace
	if _, err := tx.ExecContext(ctx, `DELETE FROM analytics.precincts`); err != nil {
		fatalf("wipe data: %v", err)
	}

	if err := insertAll(ctx, tx, rows); err != nil {
		fatalf("insert data: %v", err)
	}

	var after int64
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM analytics.precincts`).Scan(&after); err != nil {
		fatalf("post-count: %v", err)
	}
	fmt.Printf("After:  precincts=%d\n", after)

	if after != int64(len(rows)) {
		fatalf("sanity check failed: inserted=%d parsed=%d", after, len(rows))
	}

	if err := tx.Commit(); err != nil {
		fatalf("commit: %v", err)
	}
	fmt.Println("Seed complete ✅")
}

func loadCSV(path string) ([]PrecinctCSV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	r := csv.NewReader(br)
	r.TrimLeadingSpace = true

	headers, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := map[string]int{}
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	for _, k := range []string{"id", "name", "jurisdiction"} {
		if _, ok := idx[k]; !ok {
			return nil, fmt.Errorf("missing required column: %s", k)
		}
	}

	_, hasEngagement := idx["media_pct"]

	parseNum := func(rec []string, col string) *float64 {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return nil
		}
		s := strings.TrimSpace(rec[i])
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &v
	}

	cell := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []PrecinctCSV
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}

		row := PrecinctCSV{
			ID:            cell(rec, "id"),
			Name:          cell(rec, "name"),
			Jurisdiction:  cell(rec, "jurisdiction"),
			Numbers:       make(map[string]*float64, len(numericColumns)),
			Competitiveness: cell(rec, "competitiveness"),
			Strategy:      cell(rec, "strategy"),
			HasEngagement: hasEngagement,
		}
		for _, col := range numericColumns {
			row.Numbers[col] = parseNum(rec, col)
		}
		if hasEngagement {
			row.Engagement = make(map[string]*float64, len(engagementColumns))
			for _, col := range engagementColumns {
				row.Engagement[col] = parseNum(rec, col)
			}
		}

		out = append(out, row)
	}
	return out, nil
}

func validateRows(rows []PrecinctCSV) error {
	if len(rows) == 0 {
		return fmt.Errorf("CSV has no data rows")
	}
	seen := make(map[string]struct{}, len(rows))
	for i, r := range rows {
		if r.ID == "" {
			return fmt.Errorf("row %d: id is empty", i+2)
		}
		if r.Name == "" {
			return fmt.Errorf("row %d: name is empty", i+2)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("row %d: duplicate id '%s'", i+2, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

func printPlan(rows []PrecinctCSV) {
	jurisdictions := map[string]struct{}{}
	for _, r := range rows {
		if r.Jurisdiction != "" {
			jurisdictions[r.Jurisdiction] = struct{}{}
		}
	}
	fmt.Println("Plan preview:")
	fmt.Printf("  Precincts to insert: %d\n", len(rows))
	fmt.Printf("  Distinct jurisdictions: %d\n", len(jurisdictions))
	fmt.Println("  Tables affected (destructive): analytics.precincts")
}

func insertAll(ctx context.Context, tx *sql.Tx, rows []PrecinctCSV) error {
	cols := []string{"id", "external_id", "name", "jurisdiction"}
	cols = append(cols, numericColumns...)
	cols = append(cols, "competitiveness", "strategy", "has_engagement")
	cols = append(cols, engagementColumns...)
	cols = append(cols, "source", "last_synced")

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO analytics.precincts (%s) VALUES (%s)`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, r := range rows {
		args := []any{uuid.NewString(), r.ID, r.Name, r.Jurisdiction}
		for _, col := range numericColumns {
			args = append(args, nullable(r.Numbers[col]))
		}
		args = append(args, r.Competitiveness, r.Strategy, r.HasEngagement)
		for _, col := range engagementColumns {
			if r.HasEngagement {
				args = append(args, nullable(r.Engagement[col]))
			} else {
				args = append(args, nil)
			}
		}
		args = append(args, "csv-seed", now)

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert precinct %s: %w", r.ID, err)
		}
	}
	return nil
}

func nullable(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", args...)
	os.Exit(1)
}
