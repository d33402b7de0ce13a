package models

// SuggestionPriority is the narrower priority set the assistant is allowed to
// propose. It never yields PriorityUrgent.
type SuggestionPriority string

const (
	SuggestionPriorityLow    SuggestionPriority = "low"
	SuggestionPriorityMedium SuggestionPriority = "medium"
	SuggestionPriorityHigh   SuggestionPriority = "high"
)

func (p SuggestionPriority) Valid() bool {
	switch p {
	case SuggestionPriorityLow, SuggestionPriorityMedium, SuggestionPriorityHigh:
		return true
	default:
		return false
	}
}

// TaskPriority maps the suggestion priority onto the task enumeration.
func (p SuggestionPriority) TaskPriority() Priority {
	switch p {
	case SuggestionPriorityLow:
		return PriorityLow
	case SuggestionPriorityHigh:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

type Suggestion struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Priority    SuggestionPriority `json:"priority"`
}

// Fields converts the suggestion into the input of a new task.
func (s Suggestion) Fields() TaskFields {
	return TaskFields{
		Title:       s.Title,
		Description: s.Description,
		Priority:    s.Priority.TaskPriority(),
	}
}

// SuggestionFields converts every suggestion, in order.
func SuggestionFields(list []Suggestion) []TaskFields {
	out := make([]TaskFields, 0, len(list))
	for _, s := range list {
		out = append(out, s.Fields())
	}
	return out
}
