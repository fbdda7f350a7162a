package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "github.com/kmufti7/insightforge-bi-assistant/internal/common/errors"
	"github.com/kmufti7/insightforge-bi-assistant/internal/dataset"
	"github.com/kmufti7/insightforge-bi-assistant/internal/retriever"
)

// Case is one fixed question with its expected answer fragment.
type Case struct {
	Query    string `json:"query"`
	Expected string `json:"expected"`
}

const casesSchema = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"properties": {
			"query":    {"type": "string", "minLength": 1},
			"expected": {"type": "string", "minLength": 1}
		},
		"required": ["query", "expected"],
		"additionalProperties": false
	}
}`

// LoadCases reads and validates the evaluation case file.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewEvalCasesInvalidError(fmt.Sprintf("read %s: %s", path, err))
	}
	return ParseCases(data)
}

// ParseCases validates raw JSON against the case schema before decoding.
func ParseCases(data []byte) ([]Case, error) {
	schemaLoader := gojsonschema.NewStringLoader(casesSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, apperrors.NewEvalCasesInvalidError(err.Error())
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, apperrors.NewEvalCasesInvalidError(strings.Join(errs, "; "))
	}

	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, apperrors.NewEvalCasesInvalidError(err.Error())
	}
	return cases, nil
}

// DefaultCases derives the built-in ground-truth set from the dataset
// itself, so expectations stay correct when the file changes.
func DefaultCases(stats *dataset.Stats) []Case {
	return []Case{
		{
			Query:    "What is the total revenue?",
			Expected: retriever.FormatMoney(stats.TotalRevenue),
		},
		{
			Query:    "Which product sells the most?",
			Expected: stats.BestSellingProduct,
		},
		{
			Query:    "What is the average transaction?",
			Expected: retriever.FormatMoney(stats.AverageTransaction),
		},
	}
}
