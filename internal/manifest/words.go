package manifest

import "strings"

// SplitCommand splits a shell command string into argv words, honoring
// single quotes, double quotes, and backslash escapes outside single quotes.
// It does not expand variables or globs; manifests needing shell features
// should invoke a shell explicitly.
func SplitCommand(command string) []string {
	var (
		words   []string
		current strings.Builder
		inWord  bool
		single  bool
		double  bool
		escaped bool
	)

	flush := func() {
		if inWord {
			words = append(words, current.String())
			current.Reset()
			inWord = false
		}
	}

	for _, r := range command {
		switch {
		case escaped:
			current.WriteRune(r)
			inWord = true
			escaped = false
		case r == '\\' && !single:
			escaped = true
			inWord = true
		case r == '\'' && !double:
			single = !single
			inWord = true
		case r == '"' && !single:
			double = !double
			inWord = true
		case (r == ' ' || r == '\t' || r == '\n') && !single && !double:
			flush()
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if escaped {
		current.WriteRune('\\')
	}
	flush()
	return words
}
