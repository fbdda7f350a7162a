package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	apperrors "github.com/kmufti7/insightforge-bi-assistant/internal/common/errors"
)

// Expected CSV header, in order. The schema is fixed and known at build
// time, any deviation is a hard load error.
var expectedHeader = []string{
	"Date",
	"Product",
	"Region",
	"Sales",
	"Customer_Age",
	"Customer_Gender",
	"Customer_Satisfaction",
}

// Load reads the sales CSV into memory. Malformed header or rows fail the
// whole load deterministically, there is no per-row skip.
func Load(path, dateFormat string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewDataLoadFailedError(path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(expectedHeader)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewDataLoadFailedError(path, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewDataLoadFailedError(path, fmt.Errorf("file is empty"))
	}

	if err := checkHeader(rows[0]); err != nil {
		return nil, apperrors.NewDataLoadFailedError(path, err)
	}
	if len(rows) == 1 {
		return nil, apperrors.NewDataLoadFailedError(path, fmt.Errorf("no data rows after header"))
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseRow(row, dateFormat)
		if err != nil {
			return nil, apperrors.NewDataLoadFailedError(path, fmt.Errorf("row %d: %w", i+2, err))
		}
		records = append(records, rec)
	}

	return New(records), nil
}

func checkHeader(header []string) error {
	for i, want := range expectedHeader {
		if header[i] != want {
			return fmt.Errorf("unexpected header column %d: got %q, want %q", i+1, header[i], want)
		}
	}
	return nil
}

func parseRow(row []string, dateFormat string) (Record, error) {
	date, err := time.Parse(dateFormat, row[0])
	if err != nil {
		return Record{}, fmt.Errorf("invalid date %q: %w", row[0], err)
	}

	if row[1] == "" {
		return Record{}, fmt.Errorf("empty product name")
	}
	if row[2] == "" {
		return Record{}, fmt.Errorf("empty region name")
	}

	sales, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid sales amount %q: %w", row[3], err)
	}

	age, err := strconv.Atoi(row[4])
	if err != nil {
		return Record{}, fmt.Errorf("invalid customer age %q: %w", row[4], err)
	}

	satisfaction, err := strconv.ParseFloat(row[6], 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid satisfaction score %q: %w", row[6], err)
	}

	return Record{
		Date:                 date,
		Product:              row[1],
		Region:               row[2],
		Sales:                sales,
		CustomerAge:          age,
		CustomerGender:       row[5],
		CustomerSatisfaction: satisfaction,
	}, nil
}
