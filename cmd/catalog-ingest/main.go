// Command catalog-ingest bulk-loads the product catalog from gzipped
// supplier dump files (one JSON document per line). The same SKU can appear
// in several dumps; the first occurrence wins. Cross-file duplicates are
// detected with per-file bloom filters so only colliding SKUs need exact
// tracking.
package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/freshmart/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	batchSize     = 5_000
	progressEvery = 1_000_000
)

type dumpRow struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing supplier dump files")
	flag.StringVar(&pattern, "pattern", "catalog*.jsonl.gz", "glob for dump files inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, pattern, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, pattern, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, pattern))
	if err != nil {
		return errors.Wrap(err, "glob dump files")
	}
	if len(files) == 0 {
		return errors.Errorf("no dump files match %s in %s", pattern, dataDir)
	}

	// Pass 1: build one bloom filter of SKUs per file, concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Pass 2: stream files in order and insert, first occurrence wins.
	slog.Info("pass 2: loading rows")

	total, err := loadDumps(ctx, pool, files, filters)
	if err != nil {
		return errors.Wrap(err, "load dumps")
	}

	slog.Info("rows loaded", slog.Int64("count", total))
	return nil
}

// buildBloomFilters creates one bloom filter per file, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			err := scanDump(ctx, f, func(row dumpRow) error {
				filter.Add(skuKey(row.ID))
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "scan %s", f)
			}
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// loadDumps streams every file sequentially and batch-inserts rows. A row
// whose SKU may also appear in another file is tracked exactly so later
// occurrences are skipped; all other rows insert without bookkeeping.
func loadDumps(ctx context.Context, pool *pgxpool.Pool, files []string, filters []*bloom.BloomFilter) (int64, error) {
	var (
		total    int64
		inserted = make(map[int64]struct{})
		batch    []dumpRow
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := copyRows(ctx, pool, batch); err != nil {
			return err
		}
		total += int64(len(batch))
		if total%progressEvery < batchSize {
			slog.Info("progress", slog.Int64("rows", total))
		}
		batch = batch[:0]
		return nil
	}

	for i, f := range files {
		err := scanDump(ctx, f, func(row dumpRow) error {
			if collides(filters, i, row.ID) {
				if _, ok := inserted[row.ID]; ok {
					return nil
				}
				inserted[row.ID] = struct{}{}
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return total, errors.Wrapf(err, "load %s", f)
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	_, err := pool.Exec(ctx, `SELECT setval('products_id_seq', (SELECT COALESCE(MAX(id), 1) FROM products))`)
	return total, err
}

// collides reports whether the SKU from file i may also occur in any other
// file. False positives only cost an extra map entry.
func collides(filters []*bloom.BloomFilter, i int, sku int64) bool {
	for j, filter := range filters {
		if j != i && filter.Test(skuKey(sku)) {
			return true
		}
	}
	return false
}

func copyRows(ctx context.Context, pool *pgxpool.Pool, rows []dumpRow) error {
	_, err := pool.CopyFrom(ctx,
		pgx.Identifier{"products"},
		[]string{"id", "name", "price", "category"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.ID, r.Name, r.Price, r.Category}, nil
		}),
	)
	return err
}

// scanDump streams a gzipped JSONL file, invoking fn per parsed row.
// Unparsable lines are counted and skipped; supplier dumps are dirty.
func scanDump(ctx context.Context, path string, fn func(dumpRow) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zr, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrap(err, "open gzip stream")
	}
	defer zr.Close()

	var skipped int64
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var row dumpRow
		if err := json.Unmarshal(line, &row); err != nil || row.ID <= 0 || row.Name == "" {
			skipped++
			continue
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}
	if skipped > 0 {
		slog.Warn("skipped malformed rows", slog.String("file", path), slog.Int64("count", skipped))
	}
	return nil
}

func skuKey(id int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}
