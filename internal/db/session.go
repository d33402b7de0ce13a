package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ldi/zenflow/internal/store"
	"github.com/ldi/zenflow/pkg/models"
	"github.com/rs/zerolog/log"
)

const selectedProjectKey = "selected_project_id"

// archiveTables are cleared child-first before every save.
var archiveTables = []string{
	"comments", "task_labels", "tasks", "project_members", "projects", "users", "notifications", "session",
}

// SaveSnapshot replaces the archived session with snap in one transaction.
func (db *DB) SaveSnapshot(ctx context.Context, snap store.Snapshot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range archiveTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := saveUsers(ctx, tx, snap.Users); err != nil {
		return err
	}
	if err := saveProjects(ctx, tx, snap.Projects); err != nil {
		return err
	}
	if err := saveTasks(ctx, tx, snap.Tasks); err != nil {
		return err
	}
	if err := saveNotifications(ctx, tx, snap.Notifications); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO session (key, value) VALUES (?, ?)`, selectedProjectKey, snap.SelectedProjectID,
	); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

func saveUsers(ctx context.Context, exec executor, users []models.User) error {
	for i, u := range users {
		_, err := exec.ExecContext(ctx,
			`INSERT INTO users (id, position, name, email, avatar) VALUES (?, ?, ?, ?, ?)`,
			u.ID, i, u.Name, u.Email, u.Avatar,
		)
		if err != nil {
			return fmt.Errorf("failed to save user %s: %w", u.ID, err)
		}
	}
	return nil
}

func saveProjects(ctx context.Context, exec executor, projects []models.Project) error {
	for i, p := range projects {
		_, err := exec.ExecContext(ctx,
			`INSERT INTO projects (id, position, name, description, owner_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, i, p.Name, p.Description, p.OwnerID, p.CreatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to save project %s: %w", p.ID, err)
		}
		for j, member := range p.Members {
			_, err := exec.ExecContext(ctx,
				`INSERT INTO project_members (project_id, position, user_id) VALUES (?, ?, ?)`,
				p.ID, j, member,
			)
			if err != nil {
				return fmt.Errorf("failed to save member %s of %s: %w", member, p.ID, err)
			}
		}
	}
	return nil
}

func saveTasks(ctx context.Context, exec executor, tasks []models.Task) error {
	for i, t := range tasks {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO tasks (id, position, project_id, title, description, status, priority, assignee_id, creator_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, i, t.ProjectID, t.Title, t.Description, t.Status, t.Priority, t.AssigneeID, t.CreatorID, t.CreatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to save task %s: %w", t.ID, err)
		}
		for j, label := range t.Labels {
			_, err := exec.ExecContext(ctx,
				`INSERT INTO task_labels (task_id, position, label) VALUES (?, ?, ?)`,
				t.ID, j, label,
			)
			if err != nil {
				return fmt.Errorf("failed to save label of %s: %w", t.ID, err)
			}
		}
		for j, c := range t.Comments {
			_, err := exec.ExecContext(ctx, `
				INSERT INTO comments (id, task_id, position, user_id, user_name, text, timestamp)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				c.ID, t.ID, j, c.UserID, c.UserName, c.Text, c.Timestamp.UnixNano(),
			)
			if err != nil {
				return fmt.Errorf("failed to save comment %s: %w", c.ID, err)
			}
		}
	}
	return nil
}

func saveNotifications(ctx context.Context, exec executor, notes []models.Notification) error {
	for i, n := range notes {
		read := 0
		if n.Read {
			read = 1
		}
		_, err := exec.ExecContext(ctx, `
			INSERT INTO notifications (id, position, title, message, kind, timestamp, read)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			n.ID, i, n.Title, n.Message, n.Kind, n.Timestamp.UnixNano(), read,
		)
		if err != nil {
			return fmt.Errorf("failed to save notification %s: %w", n.ID, err)
		}
	}
	return nil
}

// LoadSnapshot reads the archived session. ok is false when nothing has been
// saved yet.
func (db *DB) LoadSnapshot(ctx context.Context) (snap store.Snapshot, ok bool, err error) {
	var selected string
	err = db.QueryRowContext(ctx, `SELECT value FROM session WHERE key = ?`, selectedProjectKey).Scan(&selected)
	if err != nil {
		if err == sql.ErrNoRows {
			return store.Snapshot{}, false, nil
		}
		return store.Snapshot{}, false, fmt.Errorf("failed to load session: %w", err)
	}
	snap.SelectedProjectID = selected

	if snap.Users, err = loadUsers(ctx, db); err != nil {
		return store.Snapshot{}, false, err
	}
	if snap.Projects, err = loadProjects(ctx, db); err != nil {
		return store.Snapshot{}, false, err
	}
	if snap.Tasks, err = loadTasks(ctx, db); err != nil {
		return store.Snapshot{}, false, err
	}
	if snap.Notifications, err = loadNotifications(ctx, db); err != nil {
		return store.Snapshot{}, false, err
	}
	return snap, true, nil
}

func loadUsers(ctx context.Context, exec executor) ([]models.User, error) {
	rows, err := exec.QueryContext(ctx, `SELECT id, name, email, avatar FROM users ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Avatar); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return users, nil
}

func loadProjects(ctx context.Context, exec executor) ([]models.Project, error) {
	members, err := loadOrderedStrings(ctx, exec,
		`SELECT project_id, user_id FROM project_members ORDER BY project_id, position`)
	if err != nil {
		return nil, err
	}

	rows, err := exec.QueryContext(ctx,
		`SELECT id, name, description, owner_id, created_at FROM projects ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.CreatedAt = time.Unix(0, createdAt).UTC()
		p.Members = members[p.ID]
		if p.Members == nil {
			p.Members = []string{}
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return projects, nil
}

func loadTasks(ctx context.Context, exec executor) ([]models.Task, error) {
	labels, err := loadOrderedStrings(ctx, exec,
		`SELECT task_id, label FROM task_labels ORDER BY task_id, position`)
	if err != nil {
		return nil, err
	}
	comments, err := loadComments(ctx, exec)
	if err != nil {
		return nil, err
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT id, project_id, title, description, status, priority, assignee_id, creator_id, created_at
		FROM tasks
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		var createdAt int64
		err := rows.Scan(
			&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority,
			&t.AssigneeID, &t.CreatorID, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.CreatedAt = time.Unix(0, createdAt).UTC()
		t.Labels = labels[t.ID]
		if t.Labels == nil {
			t.Labels = []string{}
		}
		t.Comments = comments[t.ID]
		if t.Comments == nil {
			t.Comments = []models.Comment{}
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return tasks, nil
}

func loadComments(ctx context.Context, exec executor) (map[string][]models.Comment, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT task_id, id, user_id, user_name, text, timestamp
		FROM comments
		ORDER BY task_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.Comment)
	for rows.Next() {
		var taskID string
		var c models.Comment
		var ts int64
		if err := rows.Scan(&taskID, &c.ID, &c.UserID, &c.UserName, &c.Text, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.Timestamp = time.Unix(0, ts).UTC()
		out[taskID] = append(out[taskID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func loadNotifications(ctx context.Context, exec executor) ([]models.Notification, error) {
	rows, err := exec.QueryContext(ctx,
		`SELECT id, title, message, kind, timestamp, read FROM notifications ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notes := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var ts int64
		var read int
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Kind, &ts, &read); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Timestamp = time.Unix(0, ts).UTC()
		n.Read = read == 1
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return notes, nil
}

// loadOrderedStrings groups (owner, value) rows by owner, keeping row order.
func loadOrderedStrings(ctx context.Context, exec executor, query string) (map[string][]string, error) {
	rows, err := exec.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var owner, value string
		if err := rows.Scan(&owner, &value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out[owner] = append(out[owner], value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// EnableAutoSave archives every new snapshot of s. When snapshotPath is not
// empty a JSONL export is written as well. Failures are logged; they never
// fail the mutation.
func (db *DB) EnableAutoSave(s *store.Store, snapshotPath string) {
	s.SetOnChange(func(snap store.Snapshot) {
		ctx := context.Background()
		if err := db.SaveSnapshot(ctx, snap); err != nil {
			log.Error().Err(err).Msg("failed to archive session")
		}
		if snapshotPath != "" {
			if err := ExportSnapshot(snap, snapshotPath); err != nil {
				log.Error().Err(err).Str("path", snapshotPath).Msg("failed to export snapshot")
			}
		}
	})
}
