// Package gateway is the only caller of the external text-completion
// service. Every failure collapses to a fixed fallback value.
package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/ldi/zenflow/embed/prompts"
	"github.com/ldi/zenflow/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	// SuggestionCount is how many tasks SuggestTasks asks for.
	SuggestionCount = 5

	// Apology is returned by Ask whenever the service cannot answer.
	Apology = "I'm sorry, I'm having trouble connecting to my brain right now."
)

var (
	suggestTmpl   = template.Must(template.New("suggest").Parse(prompts.Suggest))
	assistantTmpl = template.Must(template.New("assistant").Parse(prompts.Assistant))
)

// SuggestionSchema constrains the suggestion output.
var SuggestionSchema = &Schema{
	Type: "ARRAY",
	Items: &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"title":       {Type: "STRING"},
			"description": {Type: "STRING"},
			"priority": {
				Type: "STRING",
				Enum: []string{
					string(models.SuggestionPriorityLow),
					string(models.SuggestionPriorityMedium),
					string(models.SuggestionPriorityHigh),
				},
			},
		},
		Required: []string{"title", "description", "priority"},
	},
}

type Gateway struct {
	completer Completer
}

func New(c Completer) *Gateway {
	return &Gateway{completer: c}
}

// SuggestTasks asks for starter tasks for a project. It returns an empty,
// non-nil slice when the call fails or the output does not match the schema.
func (g *Gateway) SuggestTasks(ctx context.Context, name, description string) []models.Suggestion {
	text, err := render(suggestTmpl, map[string]any{
		"Count":       SuggestionCount,
		"Name":        name,
		"Description": description,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to render suggestion prompt")
		return []models.Suggestion{}
	}

	out, err := g.completer.Complete(ctx, Prompt{Text: text, Schema: SuggestionSchema})
	if err != nil {
		log.Warn().Err(err).Str("project", name).Msg("AI generation error")
		return []models.Suggestion{}
	}

	suggestions, ok := ParseSuggestions(out)
	if !ok {
		log.Warn().Str("project", name).Msg("AI returned malformed suggestions")
		return []models.Suggestion{}
	}
	return suggestions
}

// Ask forwards a free-form question and returns the answer verbatim, or
// Apology on any failure.
func (g *Gateway) Ask(ctx context.Context, query, boardContext string) string {
	text, err := render(assistantTmpl, map[string]any{
		"Context": boardContext,
		"Query":   query,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to render assistant prompt")
		return Apology
	}

	out, err := g.completer.Complete(ctx, Prompt{Text: text})
	if err != nil {
		log.Warn().Err(err).Msg("AI assistant error")
		return Apology
	}
	if strings.TrimSpace(out) == "" {
		return Apology
	}
	return out
}

// ParseSuggestions decodes a JSON array of suggestions. Any item with an
// empty title or a priority outside low|medium|high rejects the whole
// response. At most SuggestionCount items are kept.
func ParseSuggestions(text string) ([]models.Suggestion, bool) {
	var raw []models.Suggestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil, false
	}
	if raw == nil {
		return nil, false
	}

	out := make([]models.Suggestion, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s.Title) == "" || !s.Priority.Valid() {
			return nil, false
		}
		out = append(out, s)
	}
	if len(out) > SuggestionCount {
		out = out[:SuggestionCount]
	}
	return out, true
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(sb.String()), nil
}
