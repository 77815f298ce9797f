// Package cli provides output formatting for the Kensaku command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/hyperjump/kensaku/internal/models"
)

// OutputFormat is the format for query result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteResults writes ranked query results to w in the given format.
func WriteResults(w io.Writer, response *models.QueryResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeResultsText(w, response)
		return nil
	}
}

func writeResultsText(w io.Writer, response *models.QueryResponse) {
	fmt.Fprintf(w, "\nFound %d results for %q\n\n", len(response.Results), response.Query)
	for rank, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | Doc: %d\n", rank+1, result.Score, result.DocID)
		if len(result.Metadata) > 0 {
			keys := make([]string, 0, len(result.Metadata))
			for k := range result.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "  %s: %v\n", k, result.Metadata[k])
			}
		}
		fmt.Fprintf(w, "\n%s\n\n", Truncate(result.Text, 200))
	}
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
