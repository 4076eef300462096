package resolver

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"Scout/internal/model"
)

// ErrCatalogUnavailable is returned when the symbol catalog cannot be read.
var ErrCatalogUnavailable = errors.New("symbol catalog unavailable")

// LoadCatalog reads (symbol, name) pairs from a CSV file. Extra columns are
// ignored and a leading header row is skipped.
func LoadCatalog(path string) ([]model.SymbolRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer f.Close()

	records, err := ReadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCatalogUnavailable, path, err)
	}
	return records, nil
}

// ReadCatalog parses catalog rows from r.
func ReadCatalog(r io.Reader) ([]model.SymbolRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var out []model.SymbolRecord
	for i := 0; ; i++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", i+1, err)
		}
		if len(rec) < 2 {
			continue
		}
		if i == 0 && isHeader(rec[0]) {
			continue
		}
		symbol := strings.TrimSpace(rec[0])
		name := strings.TrimSpace(rec[1])
		if symbol == "" || name == "" {
			continue
		}
		out = append(out, model.SymbolRecord{Symbol: symbol, Name: name})
	}
	return out, nil
}

func isHeader(cell string) bool {
	switch strings.ToUpper(strings.TrimSpace(cell)) {
	case "SYMBOL", "TICKER":
		return true
	}
	return false
}
