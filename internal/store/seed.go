package store

import (
	"time"

	"github.com/ldi/zenflow/pkg/models"
)

// CurrentUser is the acting user of the seeded session.
var CurrentUser = models.User{
	ID:     "user-1",
	Name:   "Alex Rivera",
	Email:  "alex@zenflow.io",
	Avatar: "https://picsum.photos/seed/alex/200",
}

// TeamMembers lists every seeded user, CurrentUser first.
var TeamMembers = []models.User{
	CurrentUser,
	{ID: "user-2", Name: "Sarah Chen", Email: "sarah@zenflow.io", Avatar: "https://picsum.photos/seed/sarah/200"},
	{ID: "user-3", Name: "Mike Johnson", Email: "mike@zenflow.io", Avatar: "https://picsum.photos/seed/mike/200"},
	{ID: "user-4", Name: "Leila Smith", Email: "leila@zenflow.io", Avatar: "https://picsum.photos/seed/leila/200"},
}

// Seed returns the fixed dataset a fresh session starts from. Timestamps are
// relative to now.
func Seed(now time.Time) Snapshot {
	day := 24 * time.Hour

	projects := []models.Project{
		{
			ID:          "proj-1",
			Name:        "ZenFlow Mobile App",
			Description: "Developing the next-gen project management experience for iOS and Android.",
			OwnerID:     "user-1",
			Members:     []string{"user-1", "user-2", "user-4"},
			CreatedAt:   now.Add(-10 * day),
		},
		{
			ID:          "proj-2",
			Name:        "Marketing Campaign Q4",
			Description: "Strategic planning and execution for the holiday season growth drive.",
			OwnerID:     "user-2",
			Members:     []string{"user-1", "user-2", "user-3"},
			CreatedAt:   now.Add(-5 * day),
		},
	}

	tasks := []models.Task{
		{
			ID:          "task-1",
			ProjectID:   "proj-1",
			Title:       "Design Login UI",
			Description: "Create high-fidelity mockups for the new authentication flow.",
			Status:      models.TaskStatusInProgress,
			Priority:    models.PriorityHigh,
			AssigneeID:  "user-2",
			CreatorID:   "user-1",
			CreatedAt:   now.Add(-time.Hour),
			Comments:    []models.Comment{},
			Labels:      []string{"design", "ui"},
		},
		{
			ID:          "task-2",
			ProjectID:   "proj-1",
			Title:       "API Integration: OAuth",
			Description: "Connect the frontend with the Google/GitHub OAuth providers.",
			Status:      models.TaskStatusTodo,
			Priority:    models.PriorityUrgent,
			AssigneeID:  "user-1",
			CreatorID:   "user-1",
			CreatedAt:   now.Add(-2 * time.Hour),
			Comments:    []models.Comment{},
			Labels:      []string{"backend", "security"},
		},
		{
			ID:          "task-3",
			ProjectID:   "proj-1",
			Title:       "Bug: Navigation lag",
			Description: "Fix the noticeable delay when switching between project boards.",
			Status:      models.TaskStatusReview,
			Priority:    models.PriorityMedium,
			AssigneeID:  "user-4",
			CreatorID:   "user-2",
			CreatedAt:   now.Add(-150 * time.Second),
			Comments: []models.Comment{
				{
					ID:        "c1",
					UserID:    "user-1",
					UserName:  "Alex Rivera",
					Text:      "I noticed this too on iPhone 13.",
					Timestamp: now.Add(-100 * time.Second),
				},
			},
			Labels: []string{"bug", "performance"},
		},
	}

	return Snapshot{
		Users:             append([]models.User(nil), TeamMembers...),
		Projects:          projects,
		Tasks:             tasks,
		Notifications:     []models.Notification{},
		SelectedProjectID: "proj-1",
	}
}
