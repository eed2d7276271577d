package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/tracelight/defectdesk/internal/model/result"
)

const (
	inlineColumnWidth = 20
	exportColumnWidth = 25
	maxValueWidth     = 24
	ellipsis          = "..."
)

// formatInline renders a small result set for direct chat display. A single
// row gets a key/value layout, multiple rows a table; the content is the same
// either way.
func formatInline(rows []result.Row) string {
	var b strings.Builder
	b.WriteString("**Results for your query:**\n\n")
	b.WriteString("```\n")
	if len(rows) == 1 {
		b.WriteString(formatSingleRow(rows[0]))
	} else {
		b.WriteString(formatTable(rows))
	}
	b.WriteString("\n```")
	fmt.Fprintf(&b, "\n\n**Summary:** Found %d result(s)", len(rows))
	return b.String()
}

// formatSummary renders the preview shown when a result set exceeds the
// inline threshold.
func formatSummary(rows []result.Row, downloadURL string) string {
	var b strings.Builder
	b.WriteString("**Large Result Set Found**\n\n")
	fmt.Fprintf(&b, "Found **%d results** for your query.\n\n", len(rows))
	fmt.Fprintf(&b, "**Preview (first %d results):**\n\n", PreviewRows)
	b.WriteString("```\n")

	preview := rows
	if len(preview) > PreviewRows {
		preview = preview[:PreviewRows]
	}
	b.WriteString(formatTable(preview))
	fmt.Fprintf(&b, "\n... and %d more results", len(rows)-len(preview))
	b.WriteString("\n```")

	b.WriteString("\n\n**Download Complete Results:**\n")
	fmt.Fprintf(&b, "Click [here](%s) to download all results as a text file.", downloadURL)
	return b.String()
}

func formatSingleRow(row result.Row) string {
	var b strings.Builder
	for _, cell := range row {
		fmt.Fprintf(&b, "%-*s: %s\n", inlineColumnWidth, cell.Column, cell.Value)
	}
	return b.String()
}

func formatTable(rows []result.Row) string {
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	for _, col := range rows[0].Columns() {
		fmt.Fprintf(&b, "%-*s | ", inlineColumnWidth, col)
	}
	b.WriteString("\n")

	ruleWidth := b.Len() - 1
	if ruleWidth > 100 {
		ruleWidth = 100
	}
	b.WriteString(strings.Repeat("-", ruleWidth))
	b.WriteString("\n")

	for _, row := range rows {
		for _, cell := range row {
			fmt.Fprintf(&b, "%-*s | ", inlineColumnWidth, cell.Value)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// formatDocument renders the downloadable fixed-width document for a bundle.
// The header line mirrors the first row's column order and every value is
// clipped to the column width.
func formatDocument(bundle *result.Bundle) string {
	rule := strings.Repeat("=", 80)

	var b strings.Builder
	b.WriteString("Query Results\n")
	b.WriteString("=============\n\n")
	fmt.Fprintf(&b, "Query: %s\n", bundle.Query)
	fmt.Fprintf(&b, "Generated on: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total Results: %d\n", len(bundle.Rows))
	b.WriteString("\n" + rule + "\n\n")

	if len(bundle.Rows) > 0 {
		columns := bundle.Rows[0].Columns()
		for _, col := range columns {
			fmt.Fprintf(&b, "%-*s", exportColumnWidth, col)
		}
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", len(columns)*exportColumnWidth))
		b.WriteString("\n")

		for _, row := range bundle.Rows {
			for _, cell := range row {
				fmt.Fprintf(&b, "%-*s", exportColumnWidth, truncateValue(cell.Value, maxValueWidth))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n" + rule + "\n")
	b.WriteString("End of Results\n")
	return b.String()
}

// truncateValue clips values longer than maxLen, keeping room for the
// ellipsis marker.
func truncateValue(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}
	return value[:maxLen-len(ellipsis)] + ellipsis
}
