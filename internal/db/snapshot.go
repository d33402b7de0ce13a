package db

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ldi/zenflow/internal/store"
	"github.com/ldi/zenflow/pkg/models"
	"github.com/rs/zerolog/log"
)

// Record types of the JSONL snapshot, written in this order.
const (
	recordUser         = "user"
	recordProject      = "project"
	recordTask         = "task"
	recordNotification = "notification"
	recordSession      = "session"
)

type snapshotLine struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type sessionRecord struct {
	SelectedProjectID string `json:"selectedProjectId"`
}

// EnableAutoSnapshot exports a JSONL snapshot after every mutation of s. It
// is used when no database is configured.
func EnableAutoSnapshot(s *store.Store, path string) {
	s.SetOnChange(func(snap store.Snapshot) {
		// Best effort: a failed export must not fail the mutation.
		if err := ExportSnapshot(snap, path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("failed to export snapshot")
		}
	})
}

// ExportSnapshot writes snap as JSONL to path atomically using a temporary
// file.
func ExportSnapshot(snap store.Snapshot, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	w := bufio.NewWriter(tempFile)
	write := func(kind string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", kind, err)
		}
		line, err := json.Marshal(snapshotLine{Type: kind, Data: data})
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot line: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to write snapshot line: %w", err)
		}
		return nil
	}

	for _, u := range snap.Users {
		if err := write(recordUser, u); err != nil {
			return err
		}
	}
	for _, p := range snap.Projects {
		if err := write(recordProject, p); err != nil {
			return err
		}
	}
	for _, t := range snap.Tasks {
		if err := write(recordTask, t); err != nil {
			return err
		}
	}
	for _, n := range snap.Notifications {
		if err := write(recordNotification, n); err != nil {
			return err
		}
	}
	if err := write(recordSession, sessionRecord{SelectedProjectID: snap.SelectedProjectID}); err != nil {
		return err
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// ImportSnapshot reads a JSONL snapshot written by ExportSnapshot. Tasks
// whose project is not in the file are skipped so the loaded state keeps
// every task attached to a project.
func ImportSnapshot(path string) (store.Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	snap := store.Snapshot{
		Users:         []models.User{},
		Projects:      []models.Project{},
		Tasks:         []models.Task{},
		Notifications: []models.Notification{},
	}
	var tasks []models.Task

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var line snapshotLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			return store.Snapshot{}, fmt.Errorf("line %d: failed to parse: %w", lineNo, err)
		}

		switch line.Type {
		case recordUser:
			var u models.User
			if err := json.Unmarshal(line.Data, &u); err != nil {
				return store.Snapshot{}, fmt.Errorf("line %d: failed to parse user: %w", lineNo, err)
			}
			snap.Users = append(snap.Users, u)
		case recordProject:
			var p models.Project
			if err := json.Unmarshal(line.Data, &p); err != nil {
				return store.Snapshot{}, fmt.Errorf("line %d: failed to parse project: %w", lineNo, err)
			}
			snap.Projects = append(snap.Projects, p)
		case recordTask:
			var t models.Task
			if err := json.Unmarshal(line.Data, &t); err != nil {
				return store.Snapshot{}, fmt.Errorf("line %d: failed to parse task: %w", lineNo, err)
			}
			if t.Comments == nil {
				t.Comments = []models.Comment{}
			}
			if t.Labels == nil {
				t.Labels = []string{}
			}
			tasks = append(tasks, t)
		case recordNotification:
			var n models.Notification
			if err := json.Unmarshal(line.Data, &n); err != nil {
				return store.Snapshot{}, fmt.Errorf("line %d: failed to parse notification: %w", lineNo, err)
			}
			snap.Notifications = append(snap.Notifications, n)
		case recordSession:
			var s sessionRecord
			if err := json.Unmarshal(line.Data, &s); err != nil {
				return store.Snapshot{}, fmt.Errorf("line %d: failed to parse session: %w", lineNo, err)
			}
			snap.SelectedProjectID = s.SelectedProjectID
		default:
			return store.Snapshot{}, fmt.Errorf("line %d: unknown record type %q", lineNo, line.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	for _, t := range tasks {
		if _, ok := snap.Project(t.ProjectID); !ok {
			log.Warn().Str("task", t.ID).Str("project", t.ProjectID).Msg("skipping task of unknown project")
			continue
		}
		snap.Tasks = append(snap.Tasks, t)
	}
	if _, ok := snap.Project(snap.SelectedProjectID); !ok {
		snap.SelectedProjectID = ""
	}
	return snap, nil
}
