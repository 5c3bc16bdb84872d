package db

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rizalta/toysql/catalog"
	"github.com/rizalta/toysql/metrics"
	"github.com/rizalta/toysql/tuple"
)

// BulkLoadCSV inserts every record of the CSV file at path into table,
// fields in schema column order. A first line naming the columns is
// skipped. Loading stops at the first bad line; rows before it stay
// inserted and are counted.
func (db *Database) BulkLoadCSV(table, path string) (int, error) {
	start := time.Now()

	schema, err := db.schema(table)
	if err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("db: failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(schema.Columns)
	r.TrimLeadingSpace = true

	count := 0
	for line := 1; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("db: %s: %w", path, err)
		}

		if line == 1 && isHeader(schema, record) {
			continue
		}

		row := make(tuple.Tuple, len(record))
		for i, field := range record {
			v, err := tuple.ParseValue(field, schema.Columns[i].Type)
			if err != nil {
				return count, fmt.Errorf("db: %s line %d column %s: %w", path, line, schema.Columns[i].Name, err)
			}
			row[i] = v
		}

		if err := db.Insert(table, row); err != nil {
			return count, fmt.Errorf("db: %s line %d: %w", path, line, err)
		}
		count++
	}

	metrics.ObserveStep(StepBulkLoad, time.Since(start))
	db.logger.Info("bulk load finished", "table", table, "path", path, "rows", count)
	return count, nil
}

func isHeader(schema *catalog.Schema, record []string) bool {
	for i, field := range record {
		if !strings.EqualFold(strings.TrimSpace(field), schema.Columns[i].Name) {
			return false
		}
	}
	return true
}
