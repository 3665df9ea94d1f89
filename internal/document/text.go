package document

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"
)

// decodePlain reads a plain text file, dropping invalid UTF-8.
func decodePlain(data []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var sb strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if !utf8.ValidString(line) {
			line = strings.ToValidUTF8(line, "")
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

var (
	trailingSpaceRe = regexp.MustCompile(`[ \t]+\n`)
	manyBlankRe     = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText unifies line endings, turns page breaks and non-breaking
// spaces into plain whitespace and collapses runs of blank lines, so the
// pattern extractors see one consistent text shape regardless of source.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\f", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\u202f", " ")
	s = trailingSpaceRe.ReplaceAllString(s, "\n")
	s = manyBlankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
