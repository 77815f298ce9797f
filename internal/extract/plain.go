package extract

import (
	"fmt"
	"unicode/utf8"
)

// extractPlain returns content as a string. Content that is not valid UTF-8 is
// an error; the caller decides whether to skip or fail the file.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", fmt.Errorf("content is not valid UTF-8")
	}
	return string(content), nil
}
