package model

// Categories are the independently synced data groupings. Each one maps to a
// single remote document and a fixed local key layout.
const (
	CategoryProblems    = "problems"
	CategoryConfig      = "config"
	CategoryCompletions = "completions"
	CategoryRetries     = "retries"
	CategoryNotes       = "notes"
	CategoryActivities  = "activities"
)

// Categories lists all six in the fixed reconciliation order.
var Categories = []string{
	CategoryProblems,
	CategoryConfig,
	CategoryCompletions,
	CategoryRetries,
	CategoryNotes,
	CategoryActivities,
}
