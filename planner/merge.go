package planner

import (
	"maps"

	"github.com/rizalta/toysql/query"
	"github.com/rizalta/toysql/tuple"
)

// merger accumulates group results into one duplicate free answer.
type merger struct {
	seen    map[string]struct{}
	records []tuple.Tuple
	times   query.Timings
	started bool
}

func newMerger() *merger {
	return &merger{
		seen:    make(map[string]struct{}),
		records: []tuple.Tuple{},
		times:   query.Timings{},
	}
}

// add keeps the first group whole. Later groups only contribute rows not
// seen so far, in their own order.
func (m *merger) add(resp *query.Response) {
	first := !m.started
	m.started = true

	for _, row := range resp.Records {
		fp := tuple.Fingerprint(row)
		if _, ok := m.seen[fp]; ok && !first {
			continue
		}
		m.seen[fp] = struct{}{}
		m.records = append(m.records, row)
	}
	m.times = MergeTimes(m.times, resp.Times)
}

func (m *merger) response() *query.Response {
	return &query.Response{Records: m.records, Times: m.times}
}

// MergeRecords appends the rows of next that acc does not already hold.
func MergeRecords(acc, next []tuple.Tuple) []tuple.Tuple {
	m := newMerger()
	m.add(&query.Response{Records: acc})
	m.add(&query.Response{Records: next})
	return m.records
}

// MergeTimes copies next into acc. A step present in both takes next's
// duration.
func MergeTimes(acc, next query.Timings) query.Timings {
	if acc == nil {
		acc = query.Timings{}
	}
	maps.Copy(acc, next)
	return acc
}
