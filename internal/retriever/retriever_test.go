package retriever

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kmufti7/insightforge-bi-assistant/internal/common/errors"
	"github.com/kmufti7/insightforge-bi-assistant/internal/common/logger"
	"github.com/kmufti7/insightforge-bi-assistant/internal/dataset"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func testDataset() *dataset.Dataset {
	return dataset.New([]dataset.Record{
		{Date: date(2024, 1, 5), Product: "ProdA", Region: "North", Sales: 100, CustomerAge: 30, CustomerSatisfaction: 4.0},
		{Date: date(2024, 2, 14), Product: "ProdB", Region: "South", Sales: 50, CustomerAge: 40, CustomerSatisfaction: 3.0},
		{Date: date(2024, 3, 20), Product: "ProdC", Region: "North", Sales: 200, CustomerAge: 50, CustomerSatisfaction: 5.0},
	})
}

func defaultConfig() Config {
	return Config{MaxRows: 40, MaxChars: 4000, TrendMonths: 6, FallbackTopN: 5}
}

func newRetriever(t *testing.T, cfg Config, ds *dataset.Dataset) *Retriever {
	t.Helper()
	return New(cfg, ds, dataset.ComputeStats(ds), logger.NewTestLogger(t))
}

func TestRetrieve_TotalRevenue(t *testing.T) {
	r := newRetriever(t, defaultConfig(), testDataset())

	excerpt, err := r.Retrieve("What is the total revenue?")
	require.NoError(t, err)

	assert.Contains(t, excerpt.Text, "Total Revenue: $350.00")
	assert.Contains(t, excerpt.MatchedRules, "revenue")
}

func TestRetrieve_HighestSales(t *testing.T) {
	r := newRetriever(t, defaultConfig(), testDataset())

	excerpt, err := r.Retrieve("Which product has the highest sales?")
	require.NoError(t, err)

	assert.Contains(t, excerpt.Text, "Best Selling Product: ProdC")
}

func TestRetrieve_IntentRules(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantRule string
		wantText string
	}{
		{"averages", "What is the average transaction?", "averages", "Average Transaction: $116.67"},
		{"regions", "Where do we sell the most... by region?", "regions", "Sales by Region:"},
		{"trend", "Show me the monthly trend", "trend", "Months Sales Trend:"},
		{"sum keyword", "Give me a sum of sales", "revenue", "Total Revenue: $350.00"},
		{"case insensitive", "TOTAL REVENUE PLEASE", "revenue", "Total Revenue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRetriever(t, defaultConfig(), testDataset())

			excerpt, err := r.Retrieve(tt.query)
			require.NoError(t, err)

			assert.Contains(t, excerpt.MatchedRules, tt.wantRule)
			assert.Contains(t, excerpt.Text, tt.wantText)
		})
	}
}

func TestRetrieve_EntityRows(t *testing.T) {
	r := newRetriever(t, defaultConfig(), testDataset())

	excerpt, err := r.Retrieve("Tell me about ProdA transactions in the north")
	require.NoError(t, err)

	assert.Contains(t, excerpt.Text, `Transactions for product "ProdA":`)
	assert.Contains(t, excerpt.Text, `Transactions in region "North":`)
	assert.Contains(t, excerpt.Text, "2024-01-05 | ProdA | North | $100.00")
}

func TestRetrieve_FallbackNeverEmpty(t *testing.T) {
	queries := []string{
		"asdkjasd",
		"",
		"   ",
		strings.Repeat("zzz ", 5000), // arbitrarily long input tolerated
	}

	for _, q := range queries {
		r := newRetriever(t, defaultConfig(), testDataset())

		excerpt, err := r.Retrieve(q)
		require.NoError(t, err, "query %q", q)

		assert.NotEmpty(t, excerpt.Text)
		assert.Contains(t, excerpt.Text, "Overview:")
		assert.Contains(t, excerpt.Text, "$350.00")
	}
}

func TestRetrieve_Deterministic(t *testing.T) {
	r := newRetriever(t, defaultConfig(), testDataset())

	queries := []string{
		"total revenue", "average by region and product", "asdkjasd", "ProdA trend",
	}
	for _, q := range queries {
		first, err := r.Retrieve(q)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			again, err := r.Retrieve(q)
			require.NoError(t, err)
			assert.Equal(t, first.Text, again.Text, "query %q", q)
			assert.Equal(t, first.MatchedRules, again.MatchedRules)
		}
	}
}

func TestRetrieve_RowCap(t *testing.T) {
	records := make([]dataset.Record, 0, 10)
	for i := 0; i < 10; i++ {
		records = append(records, dataset.Record{
			Date: date(2024, 1, i+1), Product: "ProdA", Region: "North", Sales: 10,
		})
	}
	ds := dataset.New(records)

	cfg := defaultConfig()
	cfg.MaxRows = 3
	r := newRetriever(t, cfg, ds)

	excerpt, err := r.Retrieve("show me ProdA")
	require.NoError(t, err)
	assert.True(t, excerpt.Truncated)

	rowLines := 0
	for _, line := range strings.Split(excerpt.Text, "\n") {
		if strings.HasPrefix(line, "  2024-") {
			rowLines++
		}
	}
	assert.Equal(t, 3, rowLines)
}

func TestRetrieve_CharCap(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxChars = 80

	queries := []string{
		"total revenue",
		"total average product region trend", // matches every aggregate rule
		"ProdA ProdB ProdC North South",
		"asdkjasd",
	}
	for _, q := range queries {
		r := newRetriever(t, cfg, testDataset())

		excerpt, err := r.Retrieve(q)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(excerpt.Text), cfg.MaxChars, "query %q", q)
		assert.NotEmpty(t, excerpt.Text)
	}
}

func TestRetrieve_AggregateNeverSplit(t *testing.T) {
	cfg := defaultConfig()
	// Room for the revenue line but not the averages block.
	cfg.MaxChars = 40
	r := newRetriever(t, cfg, testDataset())

	excerpt, err := r.Retrieve("total and average sales")
	require.NoError(t, err)

	assert.Contains(t, excerpt.Text, "Total Revenue: $350.00")
	// The averages section is dropped whole, not cut mid-aggregate.
	assert.NotContains(t, excerpt.Text, "Average")
	assert.True(t, excerpt.Truncated)
}

func TestRetrieve_AggregatesOverFullDataset(t *testing.T) {
	// Row output is truncated hard, the aggregate must still cover all rows.
	records := make([]dataset.Record, 0, 50)
	for i := 0; i < 50; i++ {
		records = append(records, dataset.Record{
			Date: date(2024, 1, i%28+1), Product: "ProdA", Region: "North", Sales: 10,
		})
	}
	cfg := defaultConfig()
	cfg.MaxRows = 2
	r := newRetriever(t, cfg, dataset.New(records))

	excerpt, err := r.Retrieve("total sales for ProdA")
	require.NoError(t, err)
	assert.Contains(t, excerpt.Text, "Total Revenue: $500.00")
}

func TestRetrieve_PriorityOrder(t *testing.T) {
	r := newRetriever(t, defaultConfig(), testDataset())

	excerpt, err := r.Retrieve("total revenue for ProdA")
	require.NoError(t, err)

	// Aggregate keyword match outranks the entity-name match.
	require.GreaterOrEqual(t, len(excerpt.MatchedRules), 2)
	assert.Equal(t, "revenue", excerpt.MatchedRules[0])
}

func TestRetrieve_EmptyDataset(t *testing.T) {
	r := New(defaultConfig(), dataset.New(nil), nil, logger.NewNoOpLogger())

	_, err := r.Retrieve("total revenue")
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeDataUnavailable, stdErr.Code)
}

func TestRetrieve_TrendLimitedToRecentMonths(t *testing.T) {
	records := make([]dataset.Record, 0, 12)
	for m := 1; m <= 12; m++ {
		records = append(records, dataset.Record{
			Date: date(2024, time.Month(m), 1), Product: "P", Region: "R", Sales: float64(m),
		})
	}
	cfg := defaultConfig()
	cfg.TrendMonths = 6
	r := newRetriever(t, cfg, dataset.New(records))

	excerpt, err := r.Retrieve("monthly trend")
	require.NoError(t, err)

	assert.Contains(t, excerpt.Text, "Recent 6 Months Sales Trend:")
	assert.Contains(t, excerpt.Text, "2024-12")
	assert.NotContains(t, excerpt.Text, "2024-06:")
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "$0.00"},
		{350, "$350.00"},
		{1234.5, "$1,234.50"},
		{1234567.89, "$1,234,567.89"},
		{-950.25, "-$950.25"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMoney(tt.amount))
	}
}
