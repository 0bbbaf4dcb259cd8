package store

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// tokenRegex matches letter/digit runs, keeping underscores for a second split.
var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize splits text on punctuation, snake_case and camelCase boundaries.
// Tokens are lowercased and shorter than 2 runes are dropped.
func Tokenize(text string) []string {
	var tokens []string

	for _, word := range tokenRegex.FindAllString(text, -1) {
		for _, t := range SplitIdentifier(word) {
			lower := strings.ToLower(t)
			if len([]rune(lower)) >= 2 {
				tokens = append(tokens, lower)
			}
		}
	}

	return tokens
}

// PathContent builds the indexed text for a path: its base name followed by
// up to depth parent directory names, nearest first.
func PathContent(path string, depth int) string {
	clean := filepath.Clean(path)
	parts := []string{filepath.Base(clean)}

	dir := filepath.Dir(clean)
	for i := 0; i < depth; i++ {
		base := filepath.Base(dir)
		if base == string(filepath.Separator) || base == "." || base == "" {
			break
		}
		parts = append(parts, base)
		dir = filepath.Dir(dir)
	}

	return strings.Join(parts, " ")
}

// SplitIdentifier splits snake_case and camelCase identifiers.
func SplitIdentifier(token string) []string {
	if !strings.Contains(token, "_") {
		return SplitCamelCase(token)
	}

	var result []string
	for _, part := range strings.Split(token, "_") {
		if part != "" {
			result = append(result, SplitCamelCase(part)...)
		}
	}
	return result
}

// SplitCamelCase splits camelCase and PascalCase identifiers.
// Examples:
//   - "MyReport" -> ["My", "Report"]
//   - "HTTPServer" -> ["HTTP", "Server"]
//   - "draft2Final" -> ["draft2", "Final"]
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			// acronyms stay together: "HTTPServer" -> "HTTP", "Server"
			if (prevIsLower || nextIsLower) && current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}

// FilterStopWords removes stop words from a token list.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := stopWords[strings.ToLower(token)]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap converts a slice of stop words to a set.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
