package model

// Intent is the structured reading of a free-text user request.
// Ticker is empty when the parser was not confident about the symbol.
type Intent struct {
	Ticker    string   `json:"ticker"`
	Company   string   `json:"company"`
	Questions []string `json:"questions"`
}
