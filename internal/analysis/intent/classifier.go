package intent

import "strings"

// Kind is the routing decision for an inbound message.
type Kind string

const (
	DefectQuery Kind = "defect"
	ChartQuery  Kind = "chart"
	TextQuery   Kind = "text"
)

// defectPrefix marks messages addressed to the defect-recommendation agent.
const defectPrefix = "defect:"

var chartKeywords = []string{"chart", "graph", "visualize", "plot"}

// Classify routes a message to one of the three query paths. The defect prefix
// wins outright, then chart vocabulary, then plain text. No external calls.
func Classify(text string) Kind {
	normalized := strings.ToLower(strings.TrimSpace(text))

	if strings.HasPrefix(normalized, defectPrefix) {
		return DefectQuery
	}

	for _, word := range chartKeywords {
		if strings.Contains(normalized, word) {
			return ChartQuery
		}
	}

	return TextQuery
}

// WantsPie reports whether the user asked for a pie chart; anything else is
// rendered as a bar chart.
func WantsPie(text string) bool {
	return strings.Contains(strings.ToLower(text), "pie")
}
