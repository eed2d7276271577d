package agentdef

// Profile describes one backend reasoning agent the gateway can invoke.
type Profile struct {
	ID           string
	Name         string
	PromptSuffix string
}

// Built-in agent identifiers.
const (
	QueryAgentID  = "query"
	DefectAgentID = "defect"
)

// Seed returns the agents this deployment talks to: a query-generation agent
// and a defect-recommendation agent. The prompt suffixes pin down the output
// contract each agent must honor.
func Seed() []Profile {
	return []Profile{
		{
			ID:           QueryAgentID,
			Name:         "SQL",
			PromptSuffix: "\n instructions: generate sql query only for above prompt",
		},
		{
			ID:   DefectAgentID,
			Name: "DEFECT",
			PromptSuffix: "\n\nProvide response with following headers each with different paragraphs: " +
				"Matching Defect, Root Cause, Resolution",
		},
	}
}
