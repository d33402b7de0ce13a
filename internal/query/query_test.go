package query

import (
	"testing"
	"time"

	"github.com/ldi/zenflow/internal/store"
	"github.com/ldi/zenflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tasksWithStatus(statuses ...models.TaskStatus) []models.Task {
	out := make([]models.Task, len(statuses))
	for i, s := range statuses {
		out[i] = models.Task{ID: string(rune('a' + i)), Status: s, Priority: models.PriorityMedium}
	}
	return out
}

func TestCountByStatusEmpty(t *testing.T) {
	counts := CountByStatus(nil)
	assert.Equal(t, map[models.TaskStatus]int{
		models.TaskStatusTodo:       0,
		models.TaskStatusInProgress: 0,
		models.TaskStatusReview:     0,
		models.TaskStatusDone:       0,
	}, counts)
}

func TestCountByStatus(t *testing.T) {
	tasks := tasksWithStatus(models.TaskStatusTodo, models.TaskStatusTodo, models.TaskStatusDone, models.TaskStatusTodo)
	assert.Equal(t, map[models.TaskStatus]int{
		models.TaskStatusTodo:       3,
		models.TaskStatusInProgress: 0,
		models.TaskStatusReview:     0,
		models.TaskStatusDone:       1,
	}, CountByStatus(tasks))
}

func TestCountByPriority(t *testing.T) {
	snap := store.Seed(time.Now())
	assert.Equal(t, map[models.Priority]int{
		models.PriorityLow:    0,
		models.PriorityMedium: 1,
		models.PriorityHigh:   1,
		models.PriorityUrgent: 1,
	}, CountByPriority(snap.Tasks))

	assert.Len(t, CountByPriority(nil), 4)
}

func TestTasksForProjectSearch(t *testing.T) {
	snap := store.Seed(time.Now())

	got := TasksForProject(snap.Tasks, "proj-1", "nav")
	require.Len(t, got, 1)
	assert.Equal(t, "Bug: Navigation lag", got[0].Title)

	got = TasksForProject(snap.Tasks, "proj-1", "NAV")
	require.Len(t, got, 1)

	got = TasksForProject(snap.Tasks, "proj-1", "")
	require.Len(t, got, 3)
	assert.Equal(t, "task-1", got[0].ID)
	assert.Equal(t, "task-2", got[1].ID)
	assert.Equal(t, "task-3", got[2].ID)

	assert.Empty(t, TasksForProject(snap.Tasks, "proj-2", ""))
	assert.Empty(t, TasksForProject(snap.Tasks, "proj-1", "zzz"))
}

func TestGroupForBoard(t *testing.T) {
	tasks := tasksWithStatus(models.TaskStatusDone, models.TaskStatusTodo, models.TaskStatusDone)
	b := GroupForBoard(tasks)

	require.Len(t, b.Columns, 4)
	assert.Equal(t, models.TaskStatusTodo, b.Columns[0].Status)
	assert.Equal(t, "In Progress", b.Columns[1].Title)
	assert.Equal(t, models.TaskStatusDone, b.Columns[3].Status)

	assert.Len(t, b.Column(models.TaskStatusTodo).Tasks, 1)
	assert.Empty(t, b.Column(models.TaskStatusInProgress).Tasks)
	assert.NotNil(t, b.Column(models.TaskStatusReview).Tasks)

	done := b.Column(models.TaskStatusDone).Tasks
	require.Len(t, done, 2)
	assert.Equal(t, "a", done[0].ID)
	assert.Equal(t, "c", done[1].ID)
}

func TestProjectBoard(t *testing.T) {
	snap := store.Seed(time.Now())
	b := ProjectBoard(snap, "proj-1", "")
	assert.Equal(t, "proj-1", b.ProjectID)
	assert.Len(t, b.Column(models.TaskStatusTodo).Tasks, 1)
	assert.Len(t, b.Column(models.TaskStatusInProgress).Tasks, 1)
	assert.Len(t, b.Column(models.TaskStatusReview).Tasks, 1)
	assert.Empty(t, b.Column(models.TaskStatusDone).Tasks)
}

func TestDashboard(t *testing.T) {
	snap := store.Seed(time.Now())
	snap.Notifications = []models.Notification{{ID: "n1"}, {ID: "n2", Read: true}}

	d := Dashboard(snap)
	assert.Equal(t, 3, d.TotalTasks)
	assert.Equal(t, 2, d.Projects)
	assert.Equal(t, 2, d.Notifications)
	assert.Equal(t, 1, d.Unread)
	assert.Equal(t, 1, d.ByStatus[models.TaskStatusReview])
	assert.Equal(t, 0, d.ByStatus[models.TaskStatusDone])
}

func TestAssistantContext(t *testing.T) {
	snap := store.Seed(time.Now())
	p, _ := snap.Project("proj-1")
	ctx := AssistantContext(p, TasksForProject(snap.Tasks, "proj-1", ""))
	assert.Equal(t, "Project: ZenFlow Mobile App. Tasks: Design Login UI, API Integration: OAuth, Bug: Navigation lag.", ctx)

	assert.Equal(t, "Project: Empty. Tasks: .", AssistantContext(models.Project{Name: "Empty"}, nil))
}
