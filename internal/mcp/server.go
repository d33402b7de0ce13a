package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ldi/zenflow/internal/assistant"
	"github.com/ldi/zenflow/internal/gateway"
	"github.com/ldi/zenflow/internal/query"
	"github.com/ldi/zenflow/internal/store"
	"github.com/ldi/zenflow/pkg/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const statusHelp = "todo|in-progress|review|done"

// NewServer creates a new MCP server over the session in s.
func NewServer(s *store.Store, g *gateway.Gateway, chat *assistant.Conversation) *server.MCPServer {
	if chat == nil {
		chat = assistant.NewConversation()
	}
	srv := server.NewMCPServer("ZenFlow", "0.1.0")

	// Projects
	srv.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List all projects and the id of the selected one."),
	), listProjectsHandler(s))

	srv.AddTool(mcp.NewTool("create_project",
		mcp.WithDescription("Create a project owned by the current user and select it."),
		mcp.WithString("name", mcp.Description("Project name"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Project description")),
	), createProjectHandler(s))

	srv.AddTool(mcp.NewTool("select_project",
		mcp.WithDescription("Make a project the current one."),
		mcp.WithString("project_id", mcp.Description("Project ID"), mcp.Required()),
	), selectProjectHandler(s))

	// Tasks
	srv.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks of a project, optionally filtered by a title search."),
		mcp.WithString("project_id", mcp.Description("Project ID (defaults to the selected project)")),
		mcp.WithString("search", mcp.Description("Case-insensitive title filter")),
	), listTasksHandler(s))

	srv.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a task in the selected project."),
		mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("status", mcp.Description("Initial status ("+statusHelp+")")),
		mcp.WithString("priority", mcp.Description("Priority (low|medium|high|urgent)")),
		mcp.WithString("assignee_id", mcp.Description("Assigned user ID")),
		mcp.WithArray("labels", mcp.Description("Labels"), mcp.WithStringItems()),
	), createTaskHandler(s))

	srv.AddTool(mcp.NewTool("set_task_status",
		mcp.WithDescription("Move a task to another board column."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("status", mcp.Description("New status ("+statusHelp+")"), mcp.Required()),
	), setTaskStatusHandler(s))

	srv.AddTool(mcp.NewTool("add_comment",
		mcp.WithDescription("Comment on a task as the current user."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("text", mcp.Description("Comment text"), mcp.Required()),
	), addCommentHandler(s))

	// Views
	srv.AddTool(mcp.NewTool("get_board",
		mcp.WithDescription("Get the four status columns of a project."),
		mcp.WithString("project_id", mcp.Description("Project ID (defaults to the selected project)")),
		mcp.WithString("search", mcp.Description("Case-insensitive title filter")),
	), getBoardHandler(s))

	srv.AddTool(mcp.NewTool("get_dashboard",
		mcp.WithDescription("Get task counts by status and priority across all projects."),
	), getDashboardHandler(s))

	// Notifications
	srv.AddTool(mcp.NewTool("list_notifications",
		mcp.WithDescription("List notifications, newest first."),
	), listNotificationsHandler(s))

	srv.AddTool(mcp.NewTool("clear_notifications",
		mcp.WithDescription("Remove all notifications."),
	), clearNotificationsHandler(s))

	// Assistant
	srv.AddTool(mcp.NewTool("suggest_tasks",
		mcp.WithDescription("Ask the AI for starter tasks for a project. Set apply to create them."),
		mcp.WithString("project_id", mcp.Description("Project ID (defaults to the selected project)")),
		mcp.WithBoolean("apply", mcp.Description("Create the suggested tasks; the project must be the selected one")),
	), suggestTasksHandler(s, g))

	srv.AddTool(mcp.NewTool("ask_assistant",
		mcp.WithDescription("Ask the AI assistant a question about the current board."),
		mcp.WithString("query", mcp.Description("Question"), mcp.Required()),
		mcp.WithString("search", mcp.Description("Restrict the board context to matching tasks")),
	), askAssistantHandler(s, g, chat))

	return srv
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func projectArg(request mcp.CallToolRequest, snap store.Snapshot) string {
	return mcp.ParseString(request, "project_id", snap.SelectedProjectID)
}

func listProjectsHandler(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap := s.Snapshot()
		return jsonResult(map[string]any{
			"projects":            snap.Projects,
			"selected_project_id": snap.SelectedProjectID,
		})
	}
}

func createProjectHandler(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := mcp.ParseString(request, "name", "")
		description := mcp.ParseString(request, "description", "")

		p := s.CreateProject(name, description)
		return mcp.NewToolResultText(fmt.Sprintf("Project '%s' created with ID %s and selected", p.Name, p.ID)), nil
	}
}

func selectProjectHandler(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "project_id", "")
		if !s.SelectProject(id) {
			return mcp.NewToolResultError(fmt.Sprintf("Project with ID '%s' not found", id)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Project %s selected", id)), nil
	}
}

func listTasksHandler(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap := s.Snapshot()
		tasks := query.TasksForProject(snap.Tasks, projectArg(request, snap), mcp.ParseString(request, "search", ""))
		return jsonResult(map[string]any{"tasks": tasks})
	}
}

func createTaskHandler(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		fields := models.TaskFields{
			Title:       mcp.ParseString(request, "title", ""),
			Description: mcp.ParseString(request, "description", ""),
			Status:      models.TaskStatus(mcp.ParseString(request, "status", "")),
			Priority:    models.Priority(mcp.ParseString(request, "priority", "")),
			AssigneeID:  mcp.ParseString(request, "assignee_id", ""),
		}
		args, _ := request.Params.Arguments.(map[string]any)
		if labels, ok := args["labels"].([]any); ok {
			for _, l := range labels {
				if str, ok := l.(string); ok {
					fields.Labels = append(fields.Labels, str)
				}
			}
		}

		t, ok := s.CreateTask(fields)
		if !ok {
			return mcp.NewToolResultError("No project selected"), nil
		}
		return jsonResult(t)
	}
}

func setTaskStatusHandler(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "task_id", "")
		status := models.TaskStatus(mcp.ParseString(request, "status", ""))

		if !status.Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid status '%s' (want %s)", status, statusHelp)), nil
		}
		if !s.SetTaskStatus(id, status) {
			return mcp.NewToolResultError(fmt.Sprintf("Task with ID '%s' not found", id)), nil
		}
		return mcp.NewToolResultText("Task status updated successfully"), nil
	}
}

func addCommentHandler(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "task_id", "")
		text := mcp.ParseString(request, "text", "")

		c, ok := s.AddComment(id, text)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Comment not added: task '%s' not found or text empty", id)), nil
		}
		return jsonResult(c)
	}
}

func getBoardHandler(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap := s.Snapshot()
		return jsonResult(query.ProjectBoard(snap, projectArg(request, snap), mcp.ParseString(request, "search", "")))
	}
}

func getDashboardHandler(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(query.Dashboard(s.Snapshot()))
	}
}

func listNotificationsHandler(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(map[string]any{"notifications": s.Snapshot().Notifications})
	}
}

func clearNotificationsHandler(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.ClearNotifications()
		return mcp.NewToolResultText("Notifications cleared"), nil
	}
}

func suggestTasksHandler(s *store.Store, g *gateway.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap := s.Snapshot()
		id := projectArg(request, snap)
		p, ok := snap.Project(id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Project with ID '%s' not found", id)), nil
		}

		apply := mcp.ParseBoolean(request, "apply", false)
		if apply && id != snap.SelectedProjectID {
			return mcp.NewToolResultError(notSelected(id)), nil
		}

		suggestions := g.SuggestTasks(ctx, p.Name, p.Description)
		if !apply {
			return jsonResult(map[string]any{"suggestions": suggestions})
		}

		created, ok := s.CreateTasks(id, models.SuggestionFields(suggestions))
		if !ok {
			return mcp.NewToolResultError(notSelected(id)), nil
		}
		return jsonResult(map[string]any{"suggestions": suggestions, "created": created})
	}
}

func notSelected(id string) string {
	return fmt.Sprintf("Project '%s' is not the selected project; select it before applying suggestions", id)
}

func askAssistantHandler(s *store.Store, g *gateway.Gateway, chat *assistant.Conversation) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q := mcp.ParseString(request, "query", "")
		search := mcp.ParseString(request, "search", "")

		answer, err := chat.Ask(ctx, s, g, q, search)
		if errors.Is(err, assistant.ErrBusy) || errors.Is(err, assistant.ErrEmptyQuery) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(answer), nil
	}
}
