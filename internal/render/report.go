package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/pretty"

	"Scout/internal/model"
)

var sourceNames = map[model.Source]string{
	model.SourceFinancials: "financials page",
	model.SourceQuote:      "quote page",
	model.SourceSummaryAPI: "quote summary API",
}

// Report renders everything a report carries. Absent sections are omitted.
func Report(r *model.Report, opts TableOptions) string {
	if r == nil {
		return ""
	}
	var b strings.Builder

	b.WriteString(r.Ticker.Symbol)
	if name := reportName(r); name != "" {
		b.WriteString("  " + name)
	}
	b.WriteString("\n")
	src := sourceNames[r.Source]
	if src == "" {
		src = string(r.Source)
	}
	b.WriteString(fmt.Sprintf("source: %s (%s)\n", src, r.Strategy))

	if s := r.Sections.Summary; s != nil {
		b.WriteString("\n" + Summary(s))
	}
	if e := r.Sections.Earnings; e != nil {
		if len(e.Yearly) > 0 {
			b.WriteString("\nRevenue and earnings, yearly\n")
			b.WriteString(Table(chartTable(e.Yearly), opts))
		}
		if len(e.Quarterly) > 0 {
			b.WriteString("\nRevenue and earnings, quarterly\n")
			b.WriteString(Table(chartTable(e.Quarterly), opts))
		}
	}
	if a := r.Sections.Analyst; a != nil {
		b.WriteString("\nAnalyst view\n" + Analyst(a))
	}
	if len(r.Sections.Income) > 0 {
		b.WriteString("\nQuarterly income statement\n")
		b.WriteString(Table(incomeTable(r.Sections.Income), opts))
	}
	if !r.Table.Empty() {
		b.WriteString("\nIncome statement\n")
		b.WriteString(Table(r.Table, opts))
	}
	if !r.HasData() {
		b.WriteString("\nno data recovered\n")
	}
	return b.String()
}

func reportName(r *model.Report) string {
	if r.Sections.Summary != nil {
		return r.Sections.Summary.Name
	}
	return ""
}

// Summary renders the price block as aligned key/value lines.
func Summary(s *model.PriceSummary) string {
	var b strings.Builder
	line := func(key, value string) {
		if value == "" || value == Unavailable {
			return
		}
		b.WriteString(fmt.Sprintf("  %-16s %s\n", key, value))
	}

	exchange := s.Exchange
	if s.Currency != "" {
		exchange = strings.TrimSpace(exchange + " " + s.Currency)
	}
	line("Exchange", exchange)
	line("Price", FormatPrice(s.Price))
	line("Change", FormatPercent(s.ChangePercent))
	line("Previous close", FormatPrice(s.PreviousClose))
	line("Market cap", formatOptional(s.MarketCap))
	if s.Low52w != nil && s.High52w != nil {
		line("52-week range", FormatPrice(s.Low52w)+" - "+FormatPrice(s.High52w))
	}
	line("Trailing P/E", FormatPrice(s.TrailingPE))
	return b.String()
}

// Analyst renders the price target and the recommendation counts.
func Analyst(a *model.Analyst) string {
	var b strings.Builder
	if a.Recommendation != "" {
		rec := strings.ToUpper(strings.ReplaceAll(a.Recommendation, "_", " "))
		var extra []string
		if a.RecommendationMean != nil {
			extra = append(extra, "mean "+FormatPrice(a.RecommendationMean))
		}
		if a.Opinions != nil {
			extra = append(extra, fmt.Sprintf("%d opinions", int(*a.Opinions)))
		}
		if len(extra) > 0 {
			rec += " (" + strings.Join(extra, ", ") + ")"
		}
		b.WriteString(fmt.Sprintf("  %-16s %s\n", "Recommendation", rec))
	}
	if a.TargetMean != nil {
		target := FormatPrice(a.TargetMean)
		if a.TargetLow != nil && a.TargetHigh != nil {
			target += " (" + FormatPrice(a.TargetLow) + " - " + FormatPrice(a.TargetHigh) + ")"
		}
		b.WriteString(fmt.Sprintf("  %-16s %s\n", "Price target", target))
	}
	for _, t := range a.Trend {
		b.WriteString(fmt.Sprintf("  %-16s strong buy %d, buy %d, hold %d, sell %d, strong sell %d\n",
			"Ratings "+t.Period, t.StrongBuy, t.Buy, t.Hold, t.Sell, t.StrongSell))
	}
	return b.String()
}

func chartTable(points []model.ChartPoint) *model.Table {
	t := &model.Table{Headers: []string{"Revenue", "Earnings"}}
	for _, p := range points {
		t.Rows = append(t.Rows, model.Row{
			Label: p.Period,
			Cells: []string{rawCell(p.Revenue), rawCell(p.Earnings)},
		})
	}
	return t
}

func incomeTable(statements []model.IncomeStatement) *model.Table {
	t := &model.Table{}
	rows := []model.Row{
		{Label: "Total Revenue"},
		{Label: "Gross Profit"},
		{Label: "Operating Income"},
		{Label: "Net Income"},
	}
	for _, st := range statements {
		t.Headers = append(t.Headers, st.EndDate)
		for i, v := range []*float64{st.TotalRevenue, st.GrossProfit, st.OperatingIncome, st.NetIncome} {
			rows[i].Cells = append(rows[i].Cells, rawCell(v))
		}
	}
	t.Rows = rows
	return t
}

func rawCell(n *float64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatFloat(*n, 'f', -1, 64)
}

// RawJSON pretty-prints a recovered JSON blob.
func RawJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	return string(pretty.Pretty(raw))
}
