package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizalta/toysql/catalog"
	"github.com/rizalta/toysql/query"
	"github.com/rizalta/toysql/tuple"
)

func drain(t *testing.T, s *Scanner) []tuple.Tuple {
	t.Helper()

	rows := []tuple.Tuple{}
	for {
		row, err := s.Next()
		require.NoError(t, err)
		if row == nil {
			return rows
		}
		rows = append(rows, row)
	}
}

func TestScanKeyOrderAndIsolation(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	byID := []catalog.Column{
		{Name: "id", Type: catalog.TypeInt, IsPrimaryKey: true, IsNotNull: true},
		{Name: "label", Type: catalog.TypeVarChar},
	}
	byLabel := []catalog.Column{
		{Name: "id", Type: catalog.TypeInt},
		{Name: "label", Type: catalog.TypeVarChar, IsPrimaryKey: true, IsNotNull: true},
	}
	for name, cols := range map[string][]catalog.Column{"by_id": byID, "by_label": byLabel, "empty": byID} {
		_, err := db.catalog.CreateTable(name, cols)
		require.NoError(t, err)
	}

	// inserted out of order, negative keys included
	inserted := []int64{5, -3, 1200, 0, -700, 42}
	for _, id := range inserted {
		label := fmt.Sprintf("L%03d", (id+1000)%997)
		require.NoError(t, db.Insert("by_id", tuple.Tuple{id, label}))
		require.NoError(t, db.Insert("by_label", tuple.Tuple{id, label}))
	}

	rows := drain(t, mustScan(t, db, "by_id"))
	assert.Equal(t, []int64{-700, -3, 0, 5, 42, 1200}, ids(rows))

	rows = drain(t, mustScan(t, db, "by_label"))
	require.Len(t, rows, len(inserted))
	for i := 1; i < len(rows); i++ {
		assert.Less(t, rows[i-1][1].(string), rows[i][1].(string))
	}

	assert.Empty(t, drain(t, mustScan(t, db, "empty")))
}

func mustScan(t *testing.T, db *Database, table string) *Scanner {
	t.Helper()
	s, err := db.Scan(table)
	require.NoError(t, err)
	return s
}

func TestScanSkipsDeletedRows(t *testing.T) {
	db := newPeopleDB(t)

	for _, id := range []int64{1, 4, 10} {
		n, err := db.DeleteRow("people", query.Key("id", id))
		require.NoError(t, err)
		require.Equal(t, 1, n)
	}

	rows := drain(t, mustScan(t, db, "people"))
	assert.Equal(t, []int64{2, 3, 5, 6, 7, 8, 9}, ids(rows))
}

func TestScanUnknownTable(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	_, err := db.Scan("ghost")
	assert.ErrorIs(t, err, catalog.ErrTableNotFound)
}

func TestScannerEachStops(t *testing.T) {
	db := newPeopleDB(t)

	stop := errors.New("stop")
	seen := 0
	err := mustScan(t, db, "people").each(func(_ []byte, row tuple.Tuple) error {
		seen++
		if row[0] == int64(3) {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 3, seen)
}
