package query

import "strings"

// ExtractSQL pulls the first SELECT statement out of an agent reply. Agents
// tend to wrap queries in markdown fences or preface them with prose; both
// are stripped. Without a SELECT the cleaned reply is returned as-is.
func ExtractSQL(agentResponse string) string {
	cleaned := strings.NewReplacer("```sql", "", "```", "").Replace(agentResponse)
	cleaned = strings.TrimSpace(cleaned)

	idx := strings.Index(strings.ToLower(cleaned), "select")
	if idx < 0 {
		return cleaned
	}

	stmt := cleaned[idx:]
	if semi := strings.Index(stmt, ";"); semi >= 0 {
		stmt = stmt[:semi]
	}
	return strings.TrimSpace(stmt)
}
