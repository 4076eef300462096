package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EmbeddedStrategy recovers the JSON state object a page embeds under one
// of Markers. Script elements are tried first, including those that wrap
// the payload as a JSON string under "body"; otherwise the value following
// the marker in the raw text is cut out with ScanBalanced.
type EmbeddedStrategy struct {
	Markers []string
}

func (s *EmbeddedStrategy) Name() string { return "embedded-json" }

func (s *EmbeddedStrategy) Extract(html string) (*Result, error) {
	var errs []error
	for _, marker := range s.Markers {
		if !strings.Contains(html, marker) {
			continue
		}
		tree, err := locate(html, marker)
		if err != nil {
			errs = append(errs, fmt.Errorf("marker %q: %w", marker, err))
			continue
		}
		sections := ExtractSections(tree)
		if sections.Empty() {
			errs = append(errs, fmt.Errorf("marker %q: no known sections", marker))
			continue
		}
		raw, _ := json.Marshal(tree)
		return &Result{Strategy: s.Name(), Sections: sections, Raw: raw}, nil
	}
	if len(errs) == 0 {
		return nil, ErrNoEmbeddedData
	}
	return nil, errors.Join(errs...)
}

func locate(html, marker string) (any, error) {
	if tree, ok := fromScripts(html, marker); ok {
		return tree, nil
	}
	return fromRawText(html, marker)
}

// fromScripts looks for the marker key inside script elements holding JSON.
func fromScripts(html, marker string) (any, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false
	}
	var found any
	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		text := strings.TrimSpace(script.Text())
		if !strings.Contains(text, marker) {
			return true
		}
		var outer any
		if err := json.Unmarshal([]byte(text), &outer); err != nil {
			return true
		}
		payload := outer
		if m, ok := outer.(map[string]any); ok {
			if body, ok := m["body"].(string); ok {
				var inner any
				if err := json.Unmarshal([]byte(body), &inner); err != nil {
					return true
				}
				payload = inner
			}
		}
		if v, ok := findKey(payload, marker); ok {
			found = unwrapResult(v)
			return false
		}
		return true
	})
	return found, found != nil
}

// fromRawText cuts the value after "marker:" out of the page text. Only
// occurrences used as a key (marker, optional quotes, colon) are considered.
func fromRawText(html, marker string) (any, error) {
	var lastErr error
	for from := 0; ; {
		idx := strings.Index(html[from:], marker)
		if idx < 0 {
			break
		}
		pos := from + idx + len(marker)
		from = pos

		colon, ok := keyColon(html, pos)
		if !ok {
			continue
		}
		brace := strings.IndexByte(html[colon:], '{')
		if brace < 0 {
			break
		}
		open := colon + brace

		blob, ok := ScanBalanced(html, open)
		if !ok {
			lastErr = fmt.Errorf("%w: unbalanced value at offset %d", ErrMalformedJSON, open)
			continue
		}
		var tree any
		if err := json.Unmarshal([]byte(blob), &tree); err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrMalformedJSON, err)
			continue
		}
		return unwrapResult(tree), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no object follows marker", ErrMalformedJSON)
	}
	return nil, lastErr
}

// keyColon returns the index of the colon that follows a key ending at pos,
// skipping closing quotes, escapes and spaces.
func keyColon(text string, pos int) (int, bool) {
	for i := pos; i < len(text); i++ {
		switch text[i] {
		case ':':
			return i, true
		case '"', '\\', '\'', ' ', '\t', '\n', '\r':
			continue
		default:
			return 0, false
		}
	}
	return 0, false
}

// findKey returns the value of the first key named key, depth first with
// object keys visited in sorted order.
func findKey(v any, key string) (any, bool) {
	switch node := v.(type) {
	case map[string]any:
		if val, ok := node[key]; ok {
			return val, true
		}
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if val, ok := findKey(node[k], key); ok {
				return val, true
			}
		}
	case []any:
		for _, item := range node {
			if val, ok := findKey(item, key); ok {
				return val, true
			}
		}
	}
	return nil, false
}

// unwrapResult turns an API envelope {"result":[{...}]} into its first result.
func unwrapResult(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	results, ok := m["result"].([]any)
	if !ok || len(results) == 0 {
		return v
	}
	if first, ok := results[0].(map[string]any); ok {
		return first
	}
	return v
}

// SummaryTree parses a quoteSummary API response down to its first result.
func SummaryTree(body []byte) (any, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	qs, ok := doc["quoteSummary"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: quoteSummary missing", ErrUnrecognizedPageFormat)
	}
	if apiErr, ok := qs["error"].(map[string]any); ok {
		return nil, fmt.Errorf("%w: %s: %s", ErrUnrecognizedPageFormat, text(apiErr["code"]), text(apiErr["description"]))
	}
	results, _ := qs["result"].([]any)
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: empty quoteSummary result", ErrUnrecognizedPageFormat)
	}
	tree, ok := results[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected quoteSummary result", ErrUnrecognizedPageFormat)
	}
	return tree, nil
}
