package dataset

import (
	"math"
	"sort"
)

// Stats holds the aggregates precomputed once after load. All accessors on
// maps render in sorted key order so retriever output stays deterministic.
type Stats struct {
	TotalRevenue       float64
	AverageTransaction float64
	MedianSales        float64
	StdDev             float64
	BestSellingProduct string
	SalesByProduct     map[string]float64
	SalesByRegion      map[string]float64
	MonthlyTrend       []MonthlySales
	AvgCustomerAge     float64
	AvgSatisfaction    float64
	TransactionCount   int
}

// MonthlySales is one point of the monthly revenue trend, in chronological
// order.
type MonthlySales struct {
	Month string  `json:"month"` // YYYY-MM
	Sales float64 `json:"sales"`
}

// HistogramBin is one fixed-width bucket of a numeric distribution.
type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// ComputeStats aggregates over the full dataset. Returns nil for an empty
// dataset, callers surface that as DATA_UNAVAILABLE.
func ComputeStats(d *Dataset) *Stats {
	if d.Len() == 0 {
		return nil
	}

	records := d.Records()
	stats := &Stats{
		SalesByProduct:   make(map[string]float64),
		SalesByRegion:    make(map[string]float64),
		TransactionCount: len(records),
	}

	sales := make([]float64, 0, len(records))
	monthly := make(map[string]float64)
	var ageSum, satisfactionSum float64

	for _, r := range records {
		stats.TotalRevenue += r.Sales
		stats.SalesByProduct[r.Product] += r.Sales
		stats.SalesByRegion[r.Region] += r.Sales
		monthly[r.Date.Format("2006-01")] += r.Sales
		sales = append(sales, r.Sales)
		ageSum += float64(r.CustomerAge)
		satisfactionSum += r.CustomerSatisfaction
	}

	n := float64(len(records))
	stats.AverageTransaction = stats.TotalRevenue / n
	stats.AvgCustomerAge = ageSum / n
	stats.AvgSatisfaction = satisfactionSum / n
	stats.MedianSales = median(sales)
	stats.StdDev = stdDev(sales, stats.AverageTransaction)
	stats.BestSellingProduct = bestSeller(stats.SalesByProduct)
	stats.MonthlyTrend = monthlyTrend(monthly)

	return stats
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// stdDev is the sample standard deviation, matching what analysts expect
// from spreadsheet tooling. Zero for a single transaction.
func stdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		diff := v - mean
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// bestSeller picks the product with the highest total sales, ties broken by
// name so repeated runs agree.
func bestSeller(byProduct map[string]float64) string {
	best := ""
	bestSales := math.Inf(-1)
	for _, name := range sortedKeys(byProduct) {
		if byProduct[name] > bestSales {
			best = name
			bestSales = byProduct[name]
		}
	}
	return best
}

func monthlyTrend(monthly map[string]float64) []MonthlySales {
	out := make([]MonthlySales, 0, len(monthly))
	for _, month := range sortedKeys(monthly) {
		out = append(out, MonthlySales{Month: month, Sales: monthly[month]})
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AgeHistogram buckets customer ages into bins fixed-width buckets for the
// dashboard.
func (d *Dataset) AgeHistogram(bins int) []HistogramBin {
	values := make([]float64, 0, d.Len())
	for _, r := range d.Records() {
		values = append(values, float64(r.CustomerAge))
	}
	return histogram(values, bins)
}

// SatisfactionHistogram buckets satisfaction scores for the dashboard.
func (d *Dataset) SatisfactionHistogram(bins int) []HistogramBin {
	values := make([]float64, 0, d.Len())
	for _, r := range d.Records() {
		values = append(values, r.CustomerSatisfaction)
	}
	return histogram(values, bins)
}

func histogram(values []float64, bins int) []HistogramBin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}

	low, high := values[0], values[0]
	for _, v := range values {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}

	if low == high {
		return []HistogramBin{{Low: low, High: high, Count: len(values)}}
	}

	width := (high - low) / float64(bins)
	out := make([]HistogramBin, bins)
	for i := range out {
		out[i] = HistogramBin{
			Low:  low + float64(i)*width,
			High: low + float64(i+1)*width,
		}
	}

	for _, v := range values {
		idx := int((v - low) / width)
		if idx >= bins {
			idx = bins - 1 // top edge lands in the last bucket
		}
		out[idx].Count++
	}

	return out
}
