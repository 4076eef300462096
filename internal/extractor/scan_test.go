package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanBalanced(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		open  int
		want  string
		found bool
	}{
		{"quoted closer does not end scan", `{"a":[1,2,{"b":"x}y"}]}REST`, 0, `{"a":[1,2,{"b":"x}y"}]}`, true},
		{"mismatched closer", `{"a":[1,2}`, 0, "", false},
		{"unterminated", `{"a":{"b":1}`, 0, "", false},
		{"escaped quote inside string", `{"a":"say \"}\" ok"} tail`, 0, `{"a":"say \"}\" ok"}`, true},
		{"escaped backslash before quote", `{"a":"c:\\"}x`, 0, `{"a":"c:\\"}`, true},
		{"array root", `xx[{"k":[]},"]"]yy`, 2, `[{"k":[]},"]"]`, true},
		{"offset into text", `var s = {"n":1};`, 8, `{"n":1}`, true},
		{"not an opener", `abc`, 0, "", false},
		{"out of range", `{}`, 5, "", false},
		{"multibyte content", `{"name":"Tata Steel — ₹"}!`, 0, `{"name":"Tata Steel — ₹"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ScanBalanced(tt.text, tt.open)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
