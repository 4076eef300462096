package model

// SymbolRecord is one row of the reference catalog.
type SymbolRecord struct {
	Symbol string
	Name   string
}

// Ticker is the outcome of resolving a company name or symbol.
type Ticker struct {
	Symbol        string
	SuffixApplied bool // exchange suffix was appended during resolution
}

func (t Ticker) String() string { return t.Symbol }
