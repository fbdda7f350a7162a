package retriever

import (
	"strings"

	apperrors "github.com/kmufti7/insightforge-bi-assistant/internal/common/errors"
	"github.com/kmufti7/insightforge-bi-assistant/internal/common/logger"
	"github.com/kmufti7/insightforge-bi-assistant/internal/common/metrics"
	"github.com/kmufti7/insightforge-bi-assistant/internal/dataset"
)

// Config bounds the excerpt so the assembled prompt stays inside the
// generator's context window.
type Config struct {
	MaxRows      int // cap on rendered transaction rows
	MaxChars     int // cap on total excerpt size
	TrendMonths  int // how many recent months the trend rule shows
	FallbackTopN int // row count for the generic overview
}

// Excerpt is the bounded text selected for one query. Never empty for a
// non-empty dataset.
type Excerpt struct {
	Text         string
	MatchedRules []string
	Truncated    bool
}

// Retriever maps a free-text question to a small relevant slice of the
// dataset. Pure read+transform, no side effects beyond metrics.
type Retriever struct {
	config Config
	data   *dataset.Dataset
	stats  *dataset.Stats
	logger logger.Logger
	rules  []rule
}

func New(config Config, data *dataset.Dataset, stats *dataset.Stats, log logger.Logger) *Retriever {
	r := &Retriever{
		config: config,
		data:   data,
		stats:  stats,
		logger: log.With(map[string]interface{}{"component": "retriever"}),
	}
	r.rules = aggregateRules()
	return r
}

// Retrieve selects the excerpt for query. Evaluation order is fixed:
// aggregate intent rules first, then entity-name row matches, then the
// generic overview fallback. Never fails on query content.
func (r *Retriever) Retrieve(query string) (*Excerpt, error) {
	if r.data.Len() == 0 || r.stats == nil {
		return nil, apperrors.NewDataUnavailableError("retriever called before dataset load")
	}

	queryLower := strings.ToLower(query)

	var sections []section
	for _, rule := range r.rules {
		if rule.matches(queryLower) {
			sections = append(sections, section{
				rule:  rule.name,
				lines: rule.render(r),
			})
			metrics.RetrieverRuleHits.WithLabelValues(rule.name).Inc()
		}
	}

	sections = append(sections, r.entitySections(queryLower)...)

	if len(sections) == 0 {
		sections = append(sections, r.overviewSection(), r.sampleRowsSection())
		metrics.RetrieverRuleHits.WithLabelValues(ruleFallback).Inc()
	}

	excerpt := r.assemble(sections)

	r.logger.Debug("excerpt selected", map[string]interface{}{
		"rules":     excerpt.MatchedRules,
		"chars":     len(excerpt.Text),
		"truncated": excerpt.Truncated,
	})

	return excerpt, nil
}

// section is one candidate block of excerpt lines. Sections earlier in the
// slice carry higher priority, truncation drops from the end.
type section struct {
	rule  string
	lines []string
	rows  bool // row sections may be trimmed line by line, aggregates may not
}

// assemble enforces the row and character budgets. Whole aggregate sections
// are kept or dropped, never cut in half.
func (r *Retriever) assemble(sections []section) *Excerpt {
	excerpt := &Excerpt{}
	var out []string
	used := 0
	rowsUsed := 0

	for _, s := range sections {
		lines := s.lines
		if s.rows {
			lines, rowsUsed = capRows(lines, rowsUsed, r.config.MaxRows, excerpt)
			if len(lines) == 0 {
				excerpt.Truncated = true
				continue
			}
		}

		size := joinedSize(lines)
		if used+size > r.config.MaxChars {
			if !s.rows {
				excerpt.Truncated = true
				continue
			}
			lines = fitLines(lines, r.config.MaxChars-used)
			excerpt.Truncated = true
			if len(lines) == 0 {
				continue
			}
			size = joinedSize(lines)
		}

		out = append(out, lines...)
		used += size + 1 // joining newline
		excerpt.MatchedRules = append(excerpt.MatchedRules, s.rule)
	}

	// The fallback rule guarantees content, but an extreme char budget could
	// still drop everything. Degrade to a clipped overview line instead of
	// handing the generator an empty context.
	if len(out) == 0 {
		line := r.overviewSection().lines[0]
		if len(line) > r.config.MaxChars {
			line = line[:r.config.MaxChars]
		}
		out = append(out, line)
		excerpt.MatchedRules = append(excerpt.MatchedRules, ruleFallback)
	}

	excerpt.Text = strings.Join(out, "\n")
	return excerpt
}

func capRows(lines []string, rowsUsed, maxRows int, excerpt *Excerpt) ([]string, int) {
	if maxRows <= 0 {
		return lines, rowsUsed
	}
	// First line of a row section is its heading, the rest are rows.
	budget := maxRows - rowsUsed
	if budget <= 0 {
		return nil, rowsUsed
	}
	rows := len(lines) - 1
	if rows > budget {
		excerpt.Truncated = true
		lines = lines[:budget+1]
		rows = budget
	}
	return lines, rowsUsed + rows
}

func fitLines(lines []string, budget int) []string {
	var out []string
	used := 0
	for _, line := range lines {
		if used+len(line)+1 > budget {
			break
		}
		out = append(out, line)
		used += len(line) + 1
	}
	return out
}

func joinedSize(lines []string) int {
	size := 0
	for _, line := range lines {
		size += len(line) + 1
	}
	if size > 0 {
		size--
	}
	return size
}
