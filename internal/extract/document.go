package extract

import (
	"fmt"

	"github.com/lu4p/cat"
)

// extractDocument extracts text from DOCX, ODT, and RTF bytes.
func extractDocument(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}
	return text, nil
}
