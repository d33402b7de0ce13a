package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ldi/zenflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	var mu sync.Mutex
	seq := 0
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func(prefix string) string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("%s-new-%d", prefix, seq)
		}),
	}
	return New(Seed(fixedNow), append(base, opts...)...)
}

func TestNewUsesFirstUserAsActor(t *testing.T) {
	s := New(Seed(fixedNow))
	assert.Equal(t, CurrentUser, s.ActingUser())

	snap := s.Snapshot()
	assert.Len(t, snap.Projects, 2)
	assert.Len(t, snap.Tasks, 3)
	assert.Equal(t, "proj-1", snap.SelectedProjectID)
}

func TestCreateTaskAppendsWithDefaults(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		before := len(s.Snapshot().Tasks)
		task, ok := s.CreateTask(models.TaskFields{Title: fmt.Sprintf("task %d", i)})
		require.True(t, ok)

		snap := s.Snapshot()
		require.Len(t, snap.Tasks, before+1)
		assert.Equal(t, task, snap.Tasks[len(snap.Tasks)-1])
	}

	seen := map[string]bool{}
	for _, task := range s.Snapshot().Tasks {
		assert.False(t, seen[task.ID], "duplicate id %s", task.ID)
		seen[task.ID] = true
	}

	task, ok := s.CreateTask(models.TaskFields{Title: "Write docs"})
	require.True(t, ok)
	assert.Equal(t, "proj-1", task.ProjectID)
	assert.Equal(t, models.TaskStatusTodo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, CurrentUser.ID, task.CreatorID)
	assert.Equal(t, fixedNow, task.CreatedAt)
	assert.Empty(t, task.Comments)
	assert.NotNil(t, task.Comments)
	assert.Empty(t, task.Labels)
}

func TestCollidingIDGeneratorIsRetried(t *testing.T) {
	seq := 0
	s := New(Seed(fixedNow), WithIDGenerator(func(prefix string) string {
		seq++
		return fmt.Sprintf("%s-%d", prefix, seq)
	}))

	task, ok := s.CreateTask(models.TaskFields{Title: "Fresh"})
	require.True(t, ok)
	assert.Equal(t, "task-4", task.ID)

	seeded, _ := s.Snapshot().Task("task-1")
	assert.Equal(t, "Design Login UI", seeded.Title)
	stored, _ := s.Snapshot().Task(task.ID)
	assert.Equal(t, "Fresh", stored.Title)
}

func TestConstantIDGeneratorStaysUnique(t *testing.T) {
	s := New(Seed(fixedNow), WithIDGenerator(func(prefix string) string {
		if prefix == "c" {
			return "c1"
		}
		return prefix + "-1"
	}))

	for i := 0; i < 3; i++ {
		_, ok := s.CreateTask(models.TaskFields{Title: fmt.Sprintf("t%d", i)})
		require.True(t, ok)
		s.CreateProject(fmt.Sprintf("p%d", i), "")
		_, ok = s.AddComment("task-3", "again")
		require.True(t, ok)
	}

	snap := s.Snapshot()
	seen := map[string]bool{}
	check := func(id string) {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	for _, task := range snap.Tasks {
		check(task.ID)
		for _, c := range task.Comments {
			check(c.ID)
		}
	}
	for _, p := range snap.Projects {
		check(p.ID)
	}
	for _, n := range snap.Notifications {
		check(n.ID)
	}

	seeded, _ := snap.Task("task-1")
	assert.Equal(t, "Design Login UI", seeded.Title)
	assert.Len(t, snap.Tasks, 6)
	assert.Len(t, snap.Projects, 5)
}

func TestCreateTaskKeepsSuppliedFields(t *testing.T) {
	s := newTestStore(t)

	labels := []string{"ops"}
	task, ok := s.CreateTask(models.TaskFields{
		Title:      "Rotate keys",
		Status:     models.TaskStatusReview,
		Priority:   models.PriorityUrgent,
		AssigneeID: "user-3",
		Labels:     labels,
	})
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusReview, task.Status)
	assert.Equal(t, models.PriorityUrgent, task.Priority)
	assert.Equal(t, "user-3", task.AssigneeID)
	assert.Equal(t, []string{"ops"}, task.Labels)

	labels[0] = "changed"
	stored, _ := s.Snapshot().Task(task.ID)
	assert.Equal(t, []string{"ops"}, stored.Labels)
}

func TestCreateTasksRequiresSelectedProject(t *testing.T) {
	s := newTestStore(t)
	var published int
	s.SetOnChange(func(Snapshot) { published++ })

	fields := []models.TaskFields{{Title: "one"}, {Title: "two", Priority: models.PriorityHigh}}

	_, ok := s.CreateTasks("proj-2", fields)
	assert.False(t, ok)
	assert.Len(t, s.Snapshot().Tasks, 3)
	assert.Zero(t, published)

	created, ok := s.CreateTasks("proj-1", fields)
	require.True(t, ok)
	require.Len(t, created, 2)
	assert.Equal(t, 1, published)

	snap := s.Snapshot()
	assert.Len(t, snap.Tasks, 5)
	assert.Equal(t, created[1], snap.Tasks[4])
	assert.NotEqual(t, created[0].ID, created[1].ID)
	require.Len(t, snap.Notifications, 2)
	assert.Equal(t, `"two" has been added.`, snap.Notifications[0].Message)

	empty, ok := s.CreateTasks("proj-1", nil)
	assert.True(t, ok)
	assert.Empty(t, empty)
	assert.Equal(t, 1, published)
}

func TestCreateTaskUntitled(t *testing.T) {
	s := newTestStore(t)
	task, ok := s.CreateTask(models.TaskFields{Title: "  "})
	require.True(t, ok)
	assert.Equal(t, "Untitled Task", task.Title)
}

func TestCreateTaskEmitsNotification(t *testing.T) {
	s := newTestStore(t)
	_, ok := s.CreateTask(models.TaskFields{Title: "Ship it"})
	require.True(t, ok)

	notes := s.Snapshot().Notifications
	require.Len(t, notes, 1)
	assert.Equal(t, "Task Created", notes[0].Title)
	assert.Equal(t, `"Ship it" has been added.`, notes[0].Message)
	assert.Equal(t, models.NotificationSuccess, notes[0].Kind)
	assert.False(t, notes[0].Read)
}

func TestCreateTaskWithoutSelectedProject(t *testing.T) {
	seed := Seed(fixedNow)
	seed.SelectedProjectID = ""
	s := New(seed)

	_, ok := s.CreateTask(models.TaskFields{Title: "orphan"})
	assert.False(t, ok)
	assert.Len(t, s.Snapshot().Tasks, 3)
	assert.Empty(t, s.Snapshot().Notifications)
}

func TestSetTaskStatusOnlyChangesStatus(t *testing.T) {
	s := newTestStore(t)
	before := s.Snapshot()

	require.True(t, s.SetTaskStatus("task-2", models.TaskStatusDone))
	after := s.Snapshot()

	require.Len(t, after.Tasks, len(before.Tasks))
	for i := range before.Tasks {
		want := before.Tasks[i]
		if want.ID == "task-2" {
			want.Status = models.TaskStatusDone
		}
		assert.Equal(t, want, after.Tasks[i])
	}

	// The earlier snapshot is untouched.
	old, _ := before.Task("task-2")
	assert.Equal(t, models.TaskStatusTodo, old.Status)

	require.Len(t, after.Notifications, 1)
	assert.Equal(t, "Task moved to done", after.Notifications[0].Message)
	assert.Equal(t, models.NotificationInfo, after.Notifications[0].Kind)
}

func TestSetTaskStatusUnknownTask(t *testing.T) {
	s := newTestStore(t)
	before := s.Snapshot()

	assert.False(t, s.SetTaskStatus("missing", models.TaskStatusDone))
	assert.False(t, s.SetTaskStatus("task-1", models.TaskStatus("archived")))
	assert.Equal(t, before, s.Snapshot())
}

func TestAddCommentBlankIsNoop(t *testing.T) {
	s := newTestStore(t)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, ok := s.AddComment("task-3", text)
		assert.False(t, ok)
	}
	task, _ := s.Snapshot().Task("task-3")
	assert.Len(t, task.Comments, 1)
}

func TestAddCommentAppends(t *testing.T) {
	s := newTestStore(t)
	before := s.Snapshot()

	c, ok := s.AddComment("task-3", "hello")
	require.True(t, ok)
	assert.Equal(t, "hello", c.Text)
	assert.Equal(t, CurrentUser.ID, c.UserID)
	assert.Equal(t, CurrentUser.Name, c.UserName)
	assert.Equal(t, fixedNow, c.Timestamp)

	task, _ := s.Snapshot().Task("task-3")
	require.Len(t, task.Comments, 2)
	assert.Equal(t, "c1", task.Comments[0].ID)
	assert.Equal(t, c, task.Comments[1])

	prior, _ := before.Task("task-3")
	assert.Len(t, prior.Comments, 1)

	for _, id := range []string{"task-1", "task-2"} {
		was, _ := before.Task(id)
		is, _ := s.Snapshot().Task(id)
		assert.Equal(t, was, is)
	}
}

func TestActingUserAuthorsMutations(t *testing.T) {
	sarah := TeamMembers[1]
	s := newTestStore(t, WithActingUser(sarah))
	assert.Equal(t, sarah, s.ActingUser())

	task, ok := s.CreateTask(models.TaskFields{Title: "Review"})
	require.True(t, ok)
	assert.Equal(t, sarah.ID, task.CreatorID)

	c, ok := s.AddComment(task.ID, "looks good")
	require.True(t, ok)
	assert.Equal(t, sarah.Name, c.UserName)

	p := s.CreateProject("Sarah's", "")
	assert.Equal(t, sarah.ID, p.OwnerID)
}

func TestAddCommentUnknownTask(t *testing.T) {
	s := newTestStore(t)
	_, ok := s.AddComment("missing", "hello")
	assert.False(t, ok)
}

func TestCreateProjectSelectsIt(t *testing.T) {
	s := newTestStore(t)

	p := s.CreateProject("Q4", "desc")
	assert.Equal(t, []string{CurrentUser.ID}, p.Members)
	assert.Equal(t, CurrentUser.ID, p.OwnerID)
	assert.Equal(t, fixedNow, p.CreatedAt)

	snap := s.Snapshot()
	assert.Equal(t, p.ID, snap.SelectedProjectID)
	require.Len(t, snap.Projects, 3)
	assert.Equal(t, p, snap.Projects[2])

	require.Len(t, snap.Notifications, 1)
	assert.Equal(t, "Welcome to Q4!", snap.Notifications[0].Message)

	// Duplicate names are allowed.
	p2 := s.CreateProject("Q4", "again")
	assert.NotEqual(t, p.ID, p2.ID)
}

func TestSelectProject(t *testing.T) {
	s := newTestStore(t)
	assert.True(t, s.SelectProject("proj-2"))
	assert.Equal(t, "proj-2", s.Snapshot().SelectedProjectID)

	assert.False(t, s.SelectProject("nope"))
	assert.Equal(t, "proj-2", s.Snapshot().SelectedProjectID)

	task, ok := s.CreateTask(models.TaskFields{Title: "Campaign copy"})
	require.True(t, ok)
	assert.Equal(t, "proj-2", task.ProjectID)
}

func TestNotificationsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	s.PushNotification("one", "1", models.NotificationInfo)
	s.PushNotification("two", "2", models.NotificationWarning)
	n := s.PushNotification("three", "3", models.NotificationKind("weird"))

	assert.Equal(t, models.NotificationInfo, n.Kind)
	notes := s.Snapshot().Notifications
	require.Len(t, notes, 3)
	assert.Equal(t, "three", notes[0].Title)
	assert.Equal(t, "two", notes[1].Title)
	assert.Equal(t, "one", notes[2].Title)

	s.ClearNotifications()
	assert.Empty(t, s.Snapshot().Notifications)
}

func TestNotificationLimitEvictsOldest(t *testing.T) {
	s := newTestStore(t, WithNotificationLimit(2))
	s.PushNotification("one", "", models.NotificationInfo)
	s.PushNotification("two", "", models.NotificationInfo)
	s.PushNotification("three", "", models.NotificationInfo)

	notes := s.Snapshot().Notifications
	require.Len(t, notes, 2)
	assert.Equal(t, "three", notes[0].Title)
	assert.Equal(t, "two", notes[1].Title)
}

func TestNotificationLimitZeroIsUnbounded(t *testing.T) {
	s := newTestStore(t, WithNotificationLimit(0))
	for i := 0; i < DefaultNotificationLimit+10; i++ {
		s.PushNotification("n", "", models.NotificationInfo)
	}
	assert.Len(t, s.Snapshot().Notifications, DefaultNotificationLimit+10)
}

func TestOnChange(t *testing.T) {
	s := newTestStore(t)
	var got []Snapshot
	s.SetOnChange(func(snap Snapshot) { got = append(got, snap) })

	s.CreateProject("A", "")
	s.SetTaskStatus("missing", models.TaskStatusDone)
	s.AddComment("task-1", "x")

	require.Len(t, got, 2)
	assert.Len(t, got[0].Projects, 3)
	task, _ := got[1].Task("task-1")
	assert.Len(t, task.Comments, 1)
}

func TestConcurrentMutations(t *testing.T) {
	s := New(Seed(fixedNow), WithNotificationLimit(0))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.CreateTask(models.TaskFields{Title: fmt.Sprintf("t%d", i)})
			s.AddComment("task-1", "hi")
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap.Tasks, 53)
	task, _ := snap.Task("task-1")
	assert.Len(t, task.Comments, 50)
	assert.Len(t, snap.Notifications, 50)
}
