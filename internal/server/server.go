package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ldi/zenflow/internal/assistant"
	"github.com/ldi/zenflow/internal/gateway"
	"github.com/ldi/zenflow/internal/query"
	"github.com/ldi/zenflow/internal/store"
	"github.com/ldi/zenflow/pkg/models"
	"github.com/rs/zerolog/log"
)

type Server struct {
	store   *store.Store
	gateway *gateway.Gateway
	chat    *assistant.Conversation
	server  *http.Server
}

func NewServer(s *store.Store, g *gateway.Gateway, chat *assistant.Conversation) *Server {
	if chat == nil {
		chat = assistant.NewConversation()
	}
	return &Server{store: s, gateway: g, chat: chat}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("POST /api/projects/{id}/select", s.handleSelectProject)

	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	mux.HandleFunc("POST /api/tasks/{id}/status", s.handleSetTaskStatus)
	mux.HandleFunc("POST /api/tasks/{id}/comments", s.handleAddComment)

	mux.HandleFunc("GET /api/board", s.handleBoard)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	mux.HandleFunc("GET /api/notifications", s.handleListNotifications)
	mux.HandleFunc("DELETE /api/notifications", s.handleClearNotifications)

	mux.HandleFunc("POST /api/assistant/ask", s.handleAsk)
	mux.HandleFunc("GET /api/assistant/history", s.handleHistory)
	mux.HandleFunc("POST /api/assistant/suggestions", s.handleSuggest)
	mux.HandleFunc("POST /api/assistant/suggestions/apply", s.handleApplySuggestions)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	log.Info().Str("addr", addr).Msg("web server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type changeResponse struct {
	Changed bool `json:"changed"`
	Data    any  `json:"data,omitempty"`
}

type projectsResponse struct {
	Projects          []models.Project `json:"projects"`
	SelectedProjectID string           `json:"selectedProjectId"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	s.respond(w, projectsResponse{Projects: snap.Projects, SelectedProjectID: snap.SelectedProjectID}, nil)
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !decode(w, r, &req) {
		return
	}
	p := s.store.CreateProject(req.Name, req.Description)
	s.respondStatus(w, http.StatusCreated, changeResponse{Changed: true, Data: p})
}

func (s *Server) handleSelectProject(w http.ResponseWriter, r *http.Request) {
	ok := s.store.SelectProject(r.PathValue("id"))
	s.respond(w, changeResponse{Changed: ok}, nil)
}

// projectParam falls back to the selected project.
func projectParam(r *http.Request, snap store.Snapshot) string {
	if id := r.URL.Query().Get("projectId"); id != "" {
		return id
	}
	return snap.SelectedProjectID
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	tasks := query.TasksForProject(snap.Tasks, projectParam(r, snap), r.URL.Query().Get("search"))
	s.respond(w, tasks, nil)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var fields models.TaskFields
	if !decode(w, r, &fields) {
		return
	}
	t, ok := s.store.CreateTask(fields)
	if !ok {
		s.respond(w, changeResponse{Changed: false}, nil)
		return
	}
	s.respondStatus(w, http.StatusCreated, changeResponse{Changed: true, Data: t})
}

type statusRequest struct {
	Status models.TaskStatus `json:"status"`
}

func (s *Server) handleSetTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.Status.Valid() {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	ok := s.store.SetTaskStatus(r.PathValue("id"), req.Status)
	s.respond(w, changeResponse{Changed: ok}, nil)
}

type commentRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !decode(w, r, &req) {
		return
	}
	c, ok := s.store.AddComment(r.PathValue("id"), req.Text)
	if !ok {
		s.respond(w, changeResponse{Changed: false}, nil)
		return
	}
	s.respondStatus(w, http.StatusCreated, changeResponse{Changed: true, Data: c})
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	s.respond(w, query.ProjectBoard(snap, projectParam(r, snap), r.URL.Query().Get("search")), nil)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.respond(w, query.Dashboard(s.store.Snapshot()), nil)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.store.Snapshot().Notifications, nil)
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	s.store.ClearNotifications()
	s.respond(w, changeResponse{Changed: true}, nil)
}

type askRequest struct {
	Query  string `json:"query"`
	Search string `json:"search"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decode(w, r, &req) {
		return
	}
	answer, err := s.chat.Ask(r.Context(), s.store, s.gateway, req.Query, req.Search)
	switch {
	case errors.Is(err, assistant.ErrEmptyQuery):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, assistant.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.respond(w, askResponse{Answer: answer}, err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.chat.History(), nil)
}

type suggestRequest struct {
	ProjectID string `json:"projectId"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !decode(w, r, &req) {
		return
	}
	snap := s.store.Snapshot()
	id := req.ProjectID
	if id == "" {
		id = snap.SelectedProjectID
	}
	p, ok := snap.Project(id)
	if !ok {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	s.respond(w, s.gateway.SuggestTasks(r.Context(), p.Name, p.Description), nil)
}

type applyRequest struct {
	ProjectID   string              `json:"projectId"`
	Suggestions []models.Suggestion `json:"suggestions"`
}

func (s *Server) handleApplySuggestions(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if !decode(w, r, &req) {
		return
	}
	for _, sg := range req.Suggestions {
		if !sg.Priority.Valid() {
			http.Error(w, "invalid suggestion priority: "+string(sg.Priority), http.StatusBadRequest)
			return
		}
	}
	target := req.ProjectID
	if target == "" {
		target = s.store.Snapshot().SelectedProjectID
	}
	created, ok := s.store.CreateTasks(target, models.SuggestionFields(req.Suggestions))
	if !ok && req.ProjectID != "" {
		http.Error(w, "project "+req.ProjectID+" is not selected", http.StatusConflict)
		return
	}
	if !ok {
		s.respond(w, changeResponse{Changed: false}, nil)
		return
	}
	s.respond(w, changeResponse{Changed: len(created) > 0, Data: created}, nil)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, data any, err error) {
	if err != nil {
		log.Error().Err(err).Msg("request failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.respondStatus(w, http.StatusOK, data)
}

func (s *Server) respondStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
