package dataset

import (
	"sort"
	"time"
)

// Record is one sales transaction. Records are immutable after load, the
// only mutation path is re-loading the file.
type Record struct {
	Date                 time.Time
	Product              string
	Region               string
	Sales                float64
	CustomerAge          int
	CustomerGender       string
	CustomerSatisfaction float64
}

// Dataset is the ordered collection of records loaded once per process
// lifetime. Read-only after construction, so concurrent reads are safe
// without locking.
type Dataset struct {
	records []Record
}

func New(records []Record) *Dataset {
	return &Dataset{records: records}
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	return d.records
}

// Products returns the distinct product names in sorted order.
func (d *Dataset) Products() []string {
	return d.distinct(func(r Record) string { return r.Product })
}

// Regions returns the distinct region names in sorted order.
func (d *Dataset) Regions() []string {
	return d.distinct(func(r Record) string { return r.Region })
}

func (d *Dataset) distinct(key func(Record) string) []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range d.records {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
