// Package store holds the authoritative in-memory state of a ZenFlow session.
//
// Every mutation publishes a new Snapshot. A published snapshot is never
// modified afterwards, so readers may keep and range over it freely.
package store

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ldi/zenflow/pkg/models"
)

const (
	DefaultNotificationLimit = 50
	untitledTask             = "Untitled Task"

	// maxIDAttempts bounds retries of a colliding custom generator.
	maxIDAttempts = 8
)

// Snapshot is one published state of the store. Treat it as read-only.
type Snapshot struct {
	Users             []models.User         `json:"users"`
	Projects          []models.Project      `json:"projects"`
	Tasks             []models.Task         `json:"tasks"`
	Notifications     []models.Notification `json:"notifications"`
	SelectedProjectID string                `json:"selectedProjectId"`
}

// Project returns the project with the given id.
func (s Snapshot) Project(id string) (models.Project, bool) {
	for _, p := range s.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return models.Project{}, false
}

// Task returns the task with the given id.
func (s Snapshot) Task(id string) (models.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

// User returns the user with the given id.
func (s Snapshot) User(id string) (models.User, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

// CurrentProject returns the selected project, if any.
func (s Snapshot) CurrentProject() (models.Project, bool) {
	if s.SelectedProjectID == "" {
		return models.Project{}, false
	}
	return s.Project(s.SelectedProjectID)
}

type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the id generator. It receives the entity prefix
// ("task", "proj", "c", "n").
func WithIDGenerator(gen func(prefix string) string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithActingUser sets the user on whose behalf mutations are made.
func WithActingUser(u models.User) Option {
	return func(s *Store) { s.actor = u }
}

// WithNotificationLimit caps the notification list, evicting the oldest
// entries. Zero or a negative value means unbounded.
func WithNotificationLimit(n int) Option {
	return func(s *Store) { s.notificationLimit = n }
}

type Store struct {
	// mu serializes writers. Readers only load current.
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]

	actor             models.User
	notificationLimit int
	now               func() time.Time
	newID             func(prefix string) string

	onChangeMu sync.RWMutex
	onChange   func(Snapshot)
}

// New creates a store holding initial. Without WithActingUser the first user
// of the snapshot acts.
func New(initial Snapshot, opts ...Option) *Store {
	s := &Store{
		notificationLimit: DefaultNotificationLimit,
		now:               time.Now,
		newID:             NewID,
	}
	if len(initial.Users) > 0 {
		s.actor = initial.Users[0]
	}
	for _, opt := range opts {
		opt(s)
	}
	snap := initial
	s.current.Store(&snap)
	return s
}

// NewID returns prefix-<uuid>.
func NewID(prefix string) string {
	return prefix + "-" + uuid.New().String()
}

// SetOnChange registers fn to be called, in mutation order, after every
// mutation that changed the state.
func (s *Store) SetOnChange(fn func(Snapshot)) {
	s.onChangeMu.Lock()
	defer s.onChangeMu.Unlock()
	s.onChange = fn
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// ActingUser returns the user mutations are attributed to.
func (s *Store) ActingUser() models.User {
	return s.actor
}

// publish must be called with mu held.
func (s *Store) publish(next Snapshot) {
	s.current.Store(&next)

	s.onChangeMu.RLock()
	fn := s.onChange
	s.onChangeMu.RUnlock()

	if fn != nil {
		fn(next)
	}
}

// CreateTask appends a task to the selected project. It reports false and
// changes nothing when no existing project is selected.
func (s *Store) CreateTask(fields models.TaskFields) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	created, ok := s.appendTasks(cur, cur.SelectedProjectID, []models.TaskFields{fields})
	if !ok {
		return models.Task{}, false
	}
	return created[0], true
}

// CreateTasks appends every task to projectID in one mutation, with one
// notification each. It reports false and changes nothing unless projectID
// is the selected project.
func (s *Store) CreateTasks(projectID string, fields []models.TaskFields) ([]models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendTasks(s.Snapshot(), projectID, fields)
}

// appendTasks must be called with mu held.
func (s *Store) appendTasks(cur Snapshot, projectID string, list []models.TaskFields) ([]models.Task, bool) {
	project, ok := cur.CurrentProject()
	if !ok || project.ID != projectID {
		return nil, false
	}

	next := cur
	created := make([]models.Task, 0, len(list))
	for _, fields := range list {
		t := s.newTask(next, project.ID, fields)
		next.Tasks = appendCopy(next.Tasks, t)
		next.Notifications = s.prependNotification(next.Notifications,
			"Task Created", `"`+t.Title+`" has been added.`, models.NotificationSuccess)
		created = append(created, t)
	}
	if len(created) > 0 {
		s.publish(next)
	}
	return created, true
}

func (s *Store) newTask(cur Snapshot, projectID string, fields models.TaskFields) models.Task {
	t := models.Task{
		ID:          s.freshID("task", cur.hasTask),
		ProjectID:   projectID,
		Title:       fields.Title,
		Description: fields.Description,
		Status:      fields.Status,
		Priority:    fields.Priority,
		AssigneeID:  fields.AssigneeID,
		CreatorID:   s.actor.ID,
		CreatedAt:   s.now(),
		Comments:    []models.Comment{},
		Labels:      append([]string{}, fields.Labels...),
	}
	if strings.TrimSpace(t.Title) == "" {
		t.Title = untitledTask
	}
	if !t.Status.Valid() {
		t.Status = models.TaskStatusTodo
	}
	if !t.Priority.Valid() {
		t.Priority = models.PriorityMedium
	}
	return t
}

// SetTaskStatus replaces the status of one task. Unknown ids and invalid
// statuses are no-ops.
func (s *Store) SetTaskStatus(taskID string, status models.TaskStatus) bool {
	if !status.Valid() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	idx := indexOfTask(cur.Tasks, taskID)
	if idx < 0 {
		return false
	}

	tasks := append([]models.Task(nil), cur.Tasks...)
	tasks[idx].Status = status

	next := cur
	next.Tasks = tasks
	next.Notifications = s.prependNotification(cur.Notifications,
		"Status Updated", "Task moved to "+string(status), models.NotificationInfo)
	s.publish(next)
	return true
}

// AddComment appends a comment by the acting user. Blank text and unknown
// tasks are no-ops.
func (s *Store) AddComment(taskID, text string) (models.Comment, bool) {
	if strings.TrimSpace(text) == "" {
		return models.Comment{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	idx := indexOfTask(cur.Tasks, taskID)
	if idx < 0 {
		return models.Comment{}, false
	}

	c := models.Comment{
		ID:        s.freshID("c", cur.hasComment),
		UserID:    s.actor.ID,
		UserName:  s.actor.Name,
		Text:      text,
		Timestamp: s.now(),
	}

	tasks := append([]models.Task(nil), cur.Tasks...)
	tasks[idx].Comments = appendCopy(cur.Tasks[idx].Comments, c)

	next := cur
	next.Tasks = tasks
	s.publish(next)
	return c, true
}

// CreateProject adds a project owned by the acting user and selects it.
func (s *Store) CreateProject(name, description string) models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	p := models.Project{
		ID:          s.freshID("proj", cur.hasProject),
		Name:        name,
		Description: description,
		OwnerID:     s.actor.ID,
		Members:     []string{s.actor.ID},
		CreatedAt:   s.now(),
	}

	next := cur
	next.Projects = appendCopy(cur.Projects, p)
	next.SelectedProjectID = p.ID
	next.Notifications = s.prependNotification(cur.Notifications,
		"Project Created", "Welcome to "+name+"!", models.NotificationSuccess)
	s.publish(next)
	return p
}

// SelectProject makes an existing project current.
func (s *Store) SelectProject(projectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	if _, ok := cur.Project(projectID); !ok {
		return false
	}
	if cur.SelectedProjectID == projectID {
		return true
	}

	next := cur
	next.SelectedProjectID = projectID
	s.publish(next)
	return true
}

// PushNotification prepends a notification, newest first.
func (s *Store) PushNotification(title, message string, kind models.NotificationKind) models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	next := cur
	next.Notifications = s.prependNotification(cur.Notifications, title, message, kind)
	s.publish(next)
	return next.Notifications[0]
}

// ClearNotifications empties the notification list.
func (s *Store) ClearNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	next := cur
	next.Notifications = []models.Notification{}
	s.publish(next)
}

func (s *Store) prependNotification(list []models.Notification, title, message string, kind models.NotificationKind) []models.Notification {
	if !kind.Valid() {
		kind = models.NotificationInfo
	}
	n := models.Notification{
		ID:        s.freshID("n", func(id string) bool { return hasNotification(list, id) }),
		Title:     title,
		Message:   message,
		Kind:      kind,
		Timestamp: s.now(),
		Read:      false,
	}

	size := len(list) + 1
	if s.notificationLimit > 0 && size > s.notificationLimit {
		size = s.notificationLimit
	}
	out := make([]models.Notification, 0, size)
	out = append(out, n)
	for _, existing := range list {
		if len(out) == size {
			break
		}
		out = append(out, existing)
	}
	return out
}

// freshID draws ids until one is not taken. A generator that keeps
// colliding is abandoned for NewID.
func (s *Store) freshID(prefix string, taken func(id string) bool) string {
	for i := 0; i < maxIDAttempts; i++ {
		if id := s.newID(prefix); !taken(id) {
			return id
		}
	}
	for {
		if id := NewID(prefix); !taken(id) {
			return id
		}
	}
}

func (s Snapshot) hasTask(id string) bool {
	return indexOfTask(s.Tasks, id) >= 0
}

func (s Snapshot) hasProject(id string) bool {
	_, ok := s.Project(id)
	return ok
}

func (s Snapshot) hasComment(id string) bool {
	for _, t := range s.Tasks {
		for _, c := range t.Comments {
			if c.ID == id {
				return true
			}
		}
	}
	return false
}

func hasNotification(list []models.Notification, id string) bool {
	for _, n := range list {
		if n.ID == id {
			return true
		}
	}
	return false
}

func indexOfTask(tasks []models.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// appendCopy never writes into the backing array of list.
func appendCopy[T any](list []T, v T) []T {
	out := make([]T, len(list), len(list)+1)
	copy(out, list)
	return append(out, v)
}
