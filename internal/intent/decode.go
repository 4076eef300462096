package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"

	"Scout/internal/model"
)

// ErrUnparseable means the model output could not be read as an intent even
// after repair.
var ErrUnparseable = errors.New("unparseable intent output")

type rawIntent struct {
	Ticker    *string  `json:"ticker"`
	Company   *string  `json:"company"`
	Questions []string `json:"questions"`
}

// Decode reads model output into an Intent. Output is tried as plain JSON,
// then repaired JSON, then Hjson. Ticker and company placeholders such as
// "NONE" or "null" are normalised to empty strings.
func Decode(output string) (model.Intent, error) {
	text := strings.TrimSpace(output)
	if text == "" {
		return model.Intent{}, fmt.Errorf("%w: empty output", ErrUnparseable)
	}

	var raw rawIntent
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		if !repaired(text, &raw) && !lenient(text, &raw) {
			return model.Intent{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
	}

	in := model.Intent{
		Ticker:  placeholder(raw.Ticker),
		Company: placeholder(raw.Company),
	}
	for _, q := range raw.Questions {
		if q = strings.TrimSpace(q); q != "" {
			in.Questions = append(in.Questions, q)
		}
	}
	return in, nil
}

func repaired(text string, out *rawIntent) bool {
	fixed, err := jsonrepair.RepairJSON(text)
	if err != nil {
		return false
	}
	*out = rawIntent{}
	return json.Unmarshal([]byte(fixed), out) == nil && !out.empty()
}

func lenient(text string, out *rawIntent) bool {
	var tree any
	if err := hjson.Unmarshal([]byte(text), &tree); err != nil {
		return false
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return false
	}
	*out = rawIntent{}
	return json.Unmarshal(data, out) == nil && !out.empty()
}

func (r *rawIntent) empty() bool {
	return r.Ticker == nil && r.Company == nil && len(r.Questions) == 0
}

func placeholder(s *string) string {
	if s == nil {
		return ""
	}
	v := strings.TrimSpace(*s)
	switch strings.ToUpper(v) {
	case "", "NONE", "NULL", "N/A", "STRING_OR_NULL", "NAME_OR_NULL":
		return ""
	}
	return v
}
