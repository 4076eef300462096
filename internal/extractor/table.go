package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"Scout/internal/model"
)

// TableLayout locates a statement table: Container is searched in the whole
// document, the other selectors inside the container (Cell inside a row).
type TableLayout struct {
	Container string
	Header    string
	Row       string
	Cell      string
}

// DefaultLayouts covers the div grid Yahoo renders today and a plain <table>
// inside the financials section. Tables elsewhere on the page are ignored.
func DefaultLayouts() []TableLayout {
	return []TableLayout{
		{
			Container: "div.tableContainer",
			Header:    "div.tableHeader div.column",
			Row:       "div.tableBody div.row",
			Cell:      "div.column",
		},
		{
			Container: `section[data-testid*="financials"] table`,
			Header:    "thead th",
			Row:       "tbody tr",
			Cell:      "th, td",
		},
	}
}

// TableStrategy scrapes the rendered statement table.
type TableStrategy struct {
	Layouts []TableLayout
}

func (s *TableStrategy) Name() string { return "table" }

func (s *TableStrategy) Extract(html string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", ErrNoTable, err)
	}
	for _, layout := range s.Layouts {
		if t := scrapeTable(doc, layout); !t.Empty() {
			return &Result{Strategy: s.Name(), Table: t}, nil
		}
	}
	return nil, ErrNoTable
}

func scrapeTable(doc *goquery.Document, layout TableLayout) *model.Table {
	container := doc.Find(layout.Container).First()
	if container.Length() == 0 {
		return nil
	}

	var headers []string
	container.Find(layout.Header).Each(func(i int, cell *goquery.Selection) {
		// The first header cell titles the label column.
		if i > 0 {
			headers = append(headers, cellText(cell))
		}
	})
	if len(headers) == 0 {
		return nil
	}

	t := &model.Table{Headers: headers}
	container.Find(layout.Row).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find(layout.Cell)
		if cells.Length() == 0 {
			return
		}
		label := cellText(cells.First())
		if label == "" {
			return
		}
		values := make([]string, len(headers))
		cells.Slice(1, goquery.ToEnd).Each(func(i int, cell *goquery.Selection) {
			if i < len(values) {
				values[i] = cellText(cell)
			}
		})
		t.Rows = append(t.Rows, model.Row{Label: label, Cells: values})
	})
	return t
}

func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
