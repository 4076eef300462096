package extractor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedStrategy_ScriptBody(t *testing.T) {
	s := &EmbeddedStrategy{Markers: DefaultOptions().Markers}

	res, err := s.Extract(readFixture(t, "quote_sveltekit.html"))
	require.NoError(t, err)

	assert.Equal(t, "embedded-json", res.Strategy)
	assert.Nil(t, res.Table)
	require.NotNil(t, res.Sections.Summary)
	assert.Equal(t, "Reliance Industries Limited", res.Sections.Summary.Name)
	assert.Equal(t, "RELIANCE.NS", res.Sections.Summary.Symbol)
	require.NotNil(t, res.Sections.Summary.Price)
	assert.InDelta(t, 1412.5, *res.Sections.Summary.Price, 1e-9)

	require.NotEmpty(t, res.Raw)
	var tree map[string]any
	require.NoError(t, json.Unmarshal(res.Raw, &tree))
	assert.Contains(t, tree, "price", "raw JSON is the unwrapped result object")
}

func TestEmbeddedStrategy_RawTextStore(t *testing.T) {
	s := &EmbeddedStrategy{Markers: DefaultOptions().Markers}

	res, err := s.Extract(readFixture(t, "quote_legacy.html"))
	require.NoError(t, err)

	require.NotNil(t, res.Sections.Summary)
	assert.Equal(t, "Reliance Industries Limited", res.Sections.Summary.Name)
	require.NotNil(t, res.Sections.Earnings)
	assert.Len(t, res.Sections.Earnings.Yearly, 2)
	assert.Len(t, res.Sections.Income, 2)
}

func TestEmbeddedStrategy_SameDataFromBothShapes(t *testing.T) {
	s := &EmbeddedStrategy{Markers: DefaultOptions().Markers}

	svelte, err := s.Extract(readFixture(t, "quote_sveltekit.html"))
	require.NoError(t, err)
	legacy, err := s.Extract(readFixture(t, "quote_legacy.html"))
	require.NoError(t, err)

	assert.Equal(t, svelte.Sections, legacy.Sections)
}

func TestEmbeddedStrategy_Malformed(t *testing.T) {
	s := &EmbeddedStrategy{Markers: DefaultOptions().Markers}

	_, err := s.Extract(readFixture(t, "malformed.html"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedJSON)
}

func TestEmbeddedStrategy_NoMarker(t *testing.T) {
	s := &EmbeddedStrategy{Markers: DefaultOptions().Markers}

	_, err := s.Extract(readFixture(t, "unrecognized.html"))
	assert.ErrorIs(t, err, ErrNoEmbeddedData)
}

func TestEmbeddedStrategy_MarkerNotUsedAsKey(t *testing.T) {
	html := `<a href="/api?modules=QuoteSummaryStore&x={1}">link</a>`
	s := &EmbeddedStrategy{Markers: []string{"QuoteSummaryStore"}}

	_, err := s.Extract(html)
	assert.ErrorIs(t, err, ErrMalformedJSON)
}

func TestEmbeddedStrategy_UnknownSections(t *testing.T) {
	html := `<script>var x = {"QuoteSummaryStore":{"somethingElse":{"a":1}}};</script>`
	s := &EmbeddedStrategy{Markers: []string{"QuoteSummaryStore"}}

	_, err := s.Extract(html)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no known sections")
}

func TestFindKey_DepthFirstSortedOrder(t *testing.T) {
	tree := map[string]any{
		"b": map[string]any{"target": "from-b"},
		"a": []any{map[string]any{"x": map[string]any{"target": "from-a"}}},
	}
	v, ok := findKey(tree, "target")
	require.True(t, ok)
	assert.Equal(t, "from-a", v)

	_, ok = findKey(tree, "missing")
	assert.False(t, ok)
}

func TestUnwrapResult(t *testing.T) {
	inner := map[string]any{"price": map[string]any{}}
	assert.Equal(t, inner, unwrapResult(map[string]any{"result": []any{inner}, "error": nil}))

	plain := map[string]any{"price": 1.0}
	assert.Equal(t, plain, unwrapResult(plain))

	empty := map[string]any{"result": []any{}}
	assert.Equal(t, empty, unwrapResult(empty))
}

func TestKeyColon(t *testing.T) {
	text := `"QuoteSummaryStore" :{`
	idx, ok := keyColon(text, len(`"QuoteSummaryStore`))
	require.True(t, ok)
	assert.Equal(t, byte(':'), text[idx])

	_, ok = keyColon(`QuoteSummaryStore&x=1`, len("QuoteSummaryStore"))
	assert.False(t, ok)
}

func TestSummaryTree(t *testing.T) {
	t.Run("first result", func(t *testing.T) {
		body := []byte(`{"quoteSummary":{"result":[{"price":{"symbol":"TCS.NS"}}],"error":null}}`)
		tree, err := SummaryTree(body)
		require.NoError(t, err)
		sections := ExtractSections(tree)
		require.NotNil(t, sections.Summary)
		assert.Equal(t, "TCS.NS", sections.Summary.Symbol)
	})

	t.Run("api error", func(t *testing.T) {
		body := []byte(`{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found for symbol: NOPE.NS"}}}`)
		_, err := SummaryTree(body)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnrecognizedPageFormat)
		assert.Contains(t, err.Error(), "Quote not found")
	})

	t.Run("empty result", func(t *testing.T) {
		_, err := SummaryTree([]byte(`{"quoteSummary":{"result":[],"error":null}}`))
		assert.ErrorIs(t, err, ErrUnrecognizedPageFormat)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := SummaryTree([]byte(`<html>`))
		assert.ErrorIs(t, err, ErrMalformedJSON)
	})

	t.Run("missing envelope", func(t *testing.T) {
		_, err := SummaryTree([]byte(`{"finance":{}}`))
		assert.ErrorIs(t, err, ErrUnrecognizedPageFormat)
	})
}
