package prompts

import _ "embed"

// Suggest asks for a fixed number of starter tasks for a project.
// Fields: Count, Name, Description.
//
//go:embed suggest.tmpl
var Suggest string

// Assistant wraps a free-form question with the board context.
// Fields: Context, Query.
//
//go:embed assistant.tmpl
var Assistant string
