package extractor

// ScanBalanced returns the JSON object or array that opens at text[open],
// up to and including its matching closer. Delimiters inside string
// literals are ignored and a backslash escapes the next character within a
// string. ok is false when text[open] is not '{' or '[', when a closer does
// not match the innermost opener, or when the input ends first.
func ScanBalanced(text string, open int) (string, bool) {
	end, ok := BalancedEnd(text, open)
	if !ok {
		return "", false
	}
	return text[open : end+1], true
}

// BalancedEnd is ScanBalanced returning the index of the closing delimiter.
func BalancedEnd(text string, open int) (int, bool) {
	if open < 0 || open >= len(text) || (text[open] != '{' && text[open] != '[') {
		return 0, false
	}

	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	// Delimiters and quotes are ASCII, so walking bytes is safe for UTF-8.
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
