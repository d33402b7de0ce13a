// Package query derives read-only views from a store snapshot.
package query

import (
	"strings"

	"github.com/ldi/zenflow/internal/store"
	"github.com/ldi/zenflow/pkg/models"
)

// TasksForProject returns the tasks of projectID in insertion order. A
// non-empty search keeps only tasks whose title contains it, ignoring case.
func TasksForProject(tasks []models.Task, projectID, search string) []models.Task {
	needle := strings.ToLower(search)
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ProjectID != projectID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(t.Title), needle) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// CountByStatus always contains every status.
func CountByStatus(tasks []models.Task) map[models.TaskStatus]int {
	counts := make(map[models.TaskStatus]int, len(models.AllStatuses))
	for _, s := range models.AllStatuses {
		counts[s] = 0
	}
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}

// CountByPriority always contains every priority.
func CountByPriority(tasks []models.Task) map[models.Priority]int {
	counts := make(map[models.Priority]int, len(models.AllPriorities))
	for _, p := range models.AllPriorities {
		counts[p] = 0
	}
	for _, t := range tasks {
		counts[t.Priority]++
	}
	return counts
}

type Column struct {
	Status models.TaskStatus `json:"status"`
	Title  string            `json:"title"`
	Tasks  []models.Task     `json:"tasks"`
}

type Board struct {
	ProjectID string   `json:"projectId"`
	Columns   []Column `json:"columns"`
}

// Column returns the column for status.
func (b Board) Column(status models.TaskStatus) Column {
	for _, c := range b.Columns {
		if c.Status == status {
			return c
		}
	}
	return Column{Status: status, Title: status.Label(), Tasks: []models.Task{}}
}

// GroupForBoard partitions tasks into the four status columns, keeping order.
func GroupForBoard(tasks []models.Task) Board {
	b := Board{Columns: make([]Column, len(models.AllStatuses))}
	index := make(map[models.TaskStatus]int, len(models.AllStatuses))
	for i, s := range models.AllStatuses {
		b.Columns[i] = Column{Status: s, Title: s.Label(), Tasks: []models.Task{}}
		index[s] = i
	}
	for _, t := range tasks {
		i, ok := index[t.Status]
		if !ok {
			continue
		}
		b.Columns[i].Tasks = append(b.Columns[i].Tasks, t)
	}
	return b
}

// ProjectBoard is GroupForBoard over TasksForProject.
func ProjectBoard(snap store.Snapshot, projectID, search string) Board {
	b := GroupForBoard(TasksForProject(snap.Tasks, projectID, search))
	b.ProjectID = projectID
	return b
}

type DashboardStats struct {
	ByStatus      map[models.TaskStatus]int `json:"byStatus"`
	ByPriority    map[models.Priority]int   `json:"byPriority"`
	TotalTasks    int                       `json:"totalTasks"`
	Projects      int                       `json:"projects"`
	Notifications int                       `json:"notifications"`
	Unread        int                       `json:"unread"`
}

// Dashboard summarizes every task across all projects.
func Dashboard(snap store.Snapshot) DashboardStats {
	unread := 0
	for _, n := range snap.Notifications {
		if !n.Read {
			unread++
		}
	}
	return DashboardStats{
		ByStatus:      CountByStatus(snap.Tasks),
		ByPriority:    CountByPriority(snap.Tasks),
		TotalTasks:    len(snap.Tasks),
		Projects:      len(snap.Projects),
		Notifications: len(snap.Notifications),
		Unread:        unread,
	}
}

// AssistantContext is the context line handed to the assistant with every
// question: the project name and the titles of the visible tasks.
func AssistantContext(project models.Project, tasks []models.Task) string {
	titles := make([]string, len(tasks))
	for i, t := range tasks {
		titles[i] = t.Title
	}
	return "Project: " + project.Name + ". Tasks: " + strings.Join(titles, ", ") + "."
}
