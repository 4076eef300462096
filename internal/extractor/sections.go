package extractor

import (
	"strconv"
	"strings"
	"time"

	"Scout/internal/model"
)

// ExtractSections pulls the price summary, the revenue/earnings chart, the
// quarterly income statements and the analyst view out of a quote data tree. Each section is read
// on its own; a missing key or an unexpected type only drops that section.
func ExtractSections(tree any) model.Sections {
	root, ok := tree.(map[string]any)
	if !ok {
		return model.Sections{}
	}
	return model.Sections{
		Summary:  priceSummary(root),
		Earnings: earningsChart(root),
		Income:   incomeStatements(root),
		Analyst:  analyst(root),
	}
}

func priceSummary(root map[string]any) *model.PriceSummary {
	price, hasPrice := object(root, "price")
	detail, hasDetail := object(root, "summaryDetail")
	if !hasPrice && !hasDetail {
		return nil
	}

	ps := &model.PriceSummary{}
	if hasPrice {
		ps.Name = text(price["longName"])
		if ps.Name == "" {
			ps.Name = text(price["shortName"])
		}
		ps.Symbol = text(price["symbol"])
		ps.Exchange = text(price["exchangeName"])
		ps.Currency = text(price["currency"])
		ps.Price = number(price["regularMarketPrice"])
		ps.ChangePercent = number(price["regularMarketChangePercent"])
		ps.PreviousClose = number(price["regularMarketPreviousClose"])
		ps.MarketCap = number(price["marketCap"])
	}
	if hasDetail {
		if ps.PreviousClose == nil {
			ps.PreviousClose = number(detail["previousClose"])
		}
		if ps.MarketCap == nil {
			ps.MarketCap = number(detail["marketCap"])
		}
		if ps.Currency == "" {
			ps.Currency = text(detail["currency"])
		}
		ps.High52w = number(detail["fiftyTwoWeekHigh"])
		ps.Low52w = number(detail["fiftyTwoWeekLow"])
		ps.TrailingPE = number(detail["trailingPE"])
	}
	if ps.Name == "" && ps.Symbol == "" && ps.Price == nil && ps.MarketCap == nil {
		return nil
	}
	return ps
}

func earningsChart(root map[string]any) *model.EarningsChart {
	earnings, ok := object(root, "earnings")
	if !ok {
		return nil
	}
	chart, ok := object(earnings, "financialsChart")
	if !ok {
		return nil
	}
	ec := &model.EarningsChart{
		Yearly:    chartPoints(chart["yearly"]),
		Quarterly: chartPoints(chart["quarterly"]),
	}
	if len(ec.Yearly) == 0 && len(ec.Quarterly) == 0 {
		return nil
	}
	return ec
}

func chartPoints(v any) []model.ChartPoint {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var points []model.ChartPoint
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		p := model.ChartPoint{
			Period:   text(m["date"]),
			Revenue:  number(m["revenue"]),
			Earnings: number(m["earnings"]),
		}
		if p.Period == "" || (p.Revenue == nil && p.Earnings == nil) {
			continue
		}
		points = append(points, p)
	}
	return points
}

func incomeStatements(root map[string]any) []model.IncomeStatement {
	history, ok := object(root, "incomeStatementHistoryQuarterly")
	if !ok {
		return nil
	}
	items, ok := history["incomeStatementHistory"].([]any)
	if !ok {
		return nil
	}
	var out []model.IncomeStatement
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		st := model.IncomeStatement{
			EndDate:         date(m["endDate"]),
			TotalRevenue:    number(m["totalRevenue"]),
			GrossProfit:     number(m["grossProfit"]),
			OperatingIncome: number(m["operatingIncome"]),
			NetIncome:       number(m["netIncome"]),
		}
		if st.EndDate == "" {
			continue
		}
		out = append(out, st)
	}
	return out
}

func analyst(root map[string]any) *model.Analyst {
	a := &model.Analyst{}
	if fd, ok := object(root, "financialData"); ok {
		a.TargetMean = number(fd["targetMeanPrice"])
		a.TargetHigh = number(fd["targetHighPrice"])
		a.TargetLow = number(fd["targetLowPrice"])
		a.RecommendationMean = number(fd["recommendationMean"])
		a.Opinions = number(fd["numberOfAnalystOpinions"])
		if key := text(fd["recommendationKey"]); key != "none" {
			a.Recommendation = key
		}
	}
	if rt, ok := object(root, "recommendationTrend"); ok {
		a.Trend = trendPeriods(rt["trend"])
	}
	if a.TargetMean == nil && a.TargetHigh == nil && a.TargetLow == nil &&
		a.Recommendation == "" && len(a.Trend) == 0 {
		return nil
	}
	return a
}

func trendPeriods(v any) []model.RecommendationTrend {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []model.RecommendationTrend
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		period := text(m["period"])
		if period == "" {
			continue
		}
		out = append(out, model.RecommendationTrend{
			Period:     period,
			StrongBuy:  count(m["strongBuy"]),
			Buy:        count(m["buy"]),
			Hold:       count(m["hold"]),
			Sell:       count(m["sell"]),
			StrongSell: count(m["strongSell"]),
		})
	}
	return out
}

func count(v any) int {
	if n := number(v); n != nil {
		return int(*n)
	}
	return 0
}

func object(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key].(map[string]any)
	return v, ok
}

// number reads a bare number or a {"raw": n, "fmt": "..."} value.
func number(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case map[string]any:
		if raw, ok := n["raw"].(float64); ok {
			return &raw
		}
	}
	return nil
}

// text reads a string, the "fmt" of a formatted value, or a number.
func text(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case map[string]any:
		if f, ok := s["fmt"].(string); ok {
			return strings.TrimSpace(f)
		}
		if raw, ok := s["raw"]; ok {
			return text(raw)
		}
	}
	return ""
}

// date prefers the formatted date and falls back to a unix timestamp.
func date(v any) string {
	switch d := v.(type) {
	case map[string]any:
		if f, ok := d["fmt"].(string); ok && f != "" {
			return f
		}
		if raw, ok := d["raw"].(float64); ok {
			return time.Unix(int64(raw), 0).UTC().Format("2006-01-02")
		}
	case float64:
		return time.Unix(int64(d), 0).UTC().Format("2006-01-02")
	case string:
		return strings.TrimSpace(d)
	}
	return ""
}
