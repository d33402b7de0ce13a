package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ldi/zenflow/internal/config"
	"github.com/ldi/zenflow/internal/db"
	"github.com/ldi/zenflow/internal/mcp"
	"github.com/ldi/zenflow/internal/query"
	"github.com/ldi/zenflow/internal/server"
	"github.com/ldi/zenflow/internal/ui"
	"github.com/ldi/zenflow/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	configPath   string
	dbPath       string
	snapshotPath string
	verbose      bool
)

const usage = `Usage: zenflow [flags] <command> [arguments]

Commands:
  board                      Interactive kanban board (default)
  web [--port N]             Serve the HTTP JSON API
  mcp                        Serve MCP tools on stdio
  status                     Show task counts
  list-tasks [flags]         List tasks of a project
  suggest <name> [desc]      Ask the AI for starter tasks
  ask <query>                Ask the AI about the selected project
  export <path>              Write the session as a JSONL snapshot
  config init [--global]     Write the default configuration
`

func main() {
	flag.StringVar(&configPath, "config", "", "Path to config file (default: ~/.zenflow/config.yaml then .zenflow/config.yaml)")
	flag.StringVar(&dbPath, "db-path", "", "Path to session archive database (overrides storage.db_path)")
	flag.StringVar(&snapshotPath, "snapshot-path", "", "Path to JSONL snapshot (overrides storage.snapshot_path)")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		fmt.Fprintln(flag.CommandLine.Output(), "\nFlags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	var command string
	var args []string

	if flag.NArg() == 0 {
		selected, err := ui.RunMenu()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running menu: %v\n", err)
			os.Exit(1)
		}
		if selected == "" {
			os.Exit(0)
		}
		command = selected
	} else {
		command = flag.Arg(0)
		args = flag.Args()[1:]
	}

	if err := run(command, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	switch command {
	case "board":
		return runBoard(args)
	case "web":
		return runWeb(args)
	case "mcp":
		return runMCP(args)
	case "status":
		return runStatus(args)
	case "list-tasks":
		return runListTasks(args)
	case "suggest":
		return runSuggest(args)
	case "ask":
		return runAsk(args)
	case "export":
		return runExport(args)
	case "config":
		return runConfig(args)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if dbPath != "" {
		cfg.Storage.DBPath = dbPath
	}
	if snapshotPath != "" {
		cfg.Storage.SnapshotPath = snapshotPath
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// setupLogging points the global logger at w, or at the configured log file
// when w is nil. The returned func releases the file.
func setupLogging(cfg *config.Config, w io.Writer) (func(), error) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	closeLog := func() {}
	if w == nil {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeLog = func() { f.Close() }
	}

	log.Logger = log.With().Caller().Logger().Output(zerolog.ConsoleWriter{
		Out: w, TimeFormat: "2006-01-02_15:04:05",
	})
	return closeLog, nil
}

// prepare loads config, logging and the session for a command.
func prepare(logTo io.Writer) (*config.Config, *session, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	closeLog, err := setupLogging(cfg, logTo)
	if err != nil {
		return nil, nil, nil, err
	}

	sess, err := openSession(context.Background(), cfg)
	if err != nil {
		closeLog()
		return nil, nil, nil, err
	}

	cleanup := func() {
		sess.Close()
		closeLog()
	}
	return cfg, sess, cleanup, nil
}

func runBoard(args []string) error {
	_, sess, cleanup, err := prepare(nil)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("starting board")
	err = ui.RunBoard(ctx, sess.store, sess.gateway, sess.chat)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runWeb(args []string) error {
	webFlags := flag.NewFlagSet("web", flag.ContinueOnError)
	port := webFlags.Int("port", 0, "Port to listen on (overrides web.port)")
	if err := webFlags.Parse(args); err != nil {
		return err
	}

	cfg, sess, cleanup, err := prepare(os.Stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	if *port != 0 {
		cfg.Web.Port = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(sess.store, sess.gateway, sess.chat)

	// Ensure graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Start(":" + strconv.Itoa(cfg.Web.Port)); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func runMCP(args []string) error {
	// stdout carries the protocol.
	_, sess, cleanup, err := prepare(os.Stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	s := mcp.NewServer(sess.store, sess.gateway, sess.chat)
	return mcp.Serve(s)
}

func runStatus(args []string) error {
	_, sess, cleanup, err := prepare(os.Stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	snap := sess.store.Snapshot()
	stats := query.Dashboard(snap)

	current := "(none)"
	if p, ok := snap.CurrentProject(); ok {
		current = p.Name
	}

	fmt.Println("ZenFlow Status")
	fmt.Println("==============")
	fmt.Printf("Projects:        %d\n", stats.Projects)
	fmt.Printf("Current Project: %s\n", current)
	fmt.Printf("Total Tasks:     %d\n", stats.TotalTasks)
	fmt.Printf("Notifications:   %d (%d unread)\n", stats.Notifications, stats.Unread)

	fmt.Println("\nBy Status:")
	for _, s := range models.AllStatuses {
		fmt.Printf("  %-12s %d\n", s.Label()+":", stats.ByStatus[s])
	}

	fmt.Println("\nBy Priority:")
	for _, p := range models.AllPriorities {
		fmt.Printf("  %-12s %d\n", string(p)+":", stats.ByPriority[p])
	}
	return nil
}

func runListTasks(args []string) error {
	taskFlags := flag.NewFlagSet("list-tasks", flag.ContinueOnError)
	projectFilter := taskFlags.String("project", "", "Project ID (defaults to the selected project)")
	search := taskFlags.String("search", "", "Case-insensitive title filter")
	statusFilter := taskFlags.String("status", "", "Filter by status (todo, in-progress, review, done)")
	if err := taskFlags.Parse(args); err != nil {
		return err
	}

	status := models.TaskStatus(*statusFilter)
	if *statusFilter != "" && !status.Valid() {
		return fmt.Errorf("invalid status: %s", *statusFilter)
	}

	_, sess, cleanup, err := prepare(os.Stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	snap := sess.store.Snapshot()
	projectID := *projectFilter
	if projectID == "" {
		projectID = snap.SelectedProjectID
	}

	fmt.Printf("%-30s %-12s %-8s %-15s\n", "TITLE", "STATUS", "PRIORITY", "ASSIGNEE")
	fmt.Println("----------------------------------------------------------------------")
	for _, t := range query.TasksForProject(snap.Tasks, projectID, *search) {
		if *statusFilter != "" && t.Status != status {
			continue
		}
		assignee := "-"
		if u, ok := snap.User(t.AssigneeID); ok {
			assignee = u.Name
		}
		fmt.Printf("%-30s %-12s %-8s %-15s\n", t.Title, t.Status, t.Priority, assignee)
	}
	return nil
}

func runSuggest(args []string) error {
	suggestFlags := flag.NewFlagSet("suggest", flag.ContinueOnError)
	apply := suggestFlags.Bool("apply", false, "Create the suggestions in the selected project")
	if err := suggestFlags.Parse(args); err != nil {
		return err
	}
	if suggestFlags.NArg() == 0 {
		return fmt.Errorf("usage: zenflow suggest [--apply] <project name> [description]")
	}
	name := suggestFlags.Arg(0)
	description := strings.Join(suggestFlags.Args()[1:], " ")

	_, sess, cleanup, err := prepare(os.Stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	suggestions := sess.gateway.SuggestTasks(context.Background(), name, description)
	if len(suggestions) == 0 {
		fmt.Println("No suggestions available.")
		return nil
	}

	for _, s := range suggestions {
		fmt.Printf("- [%s] %s\n", s.Priority, s.Title)
		if s.Description != "" {
			fmt.Printf("    %s\n", s.Description)
		}
	}

	if *apply {
		snap := sess.store.Snapshot()
		created, ok := sess.store.CreateTasks(snap.SelectedProjectID, models.SuggestionFields(suggestions))
		if !ok {
			return fmt.Errorf("no project selected to apply suggestions to")
		}
		fmt.Printf("\n✓ Created %d task(s)\n", len(created))
	}
	return nil
}

func runAsk(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: zenflow ask <query>")
	}

	_, sess, cleanup, err := prepare(os.Stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	answer, err := sess.chat.Ask(context.Background(), sess.store, sess.gateway, strings.Join(args, " "), "")
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}

func runExport(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: zenflow export <path>")
	}

	_, sess, cleanup, err := prepare(os.Stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := db.ExportSnapshot(sess.store.Snapshot(), args[0]); err != nil {
		return err
	}
	fmt.Printf("✓ Exported snapshot to %s\n", args[0])
	return nil
}

func runConfig(args []string) error {
	if len(args) == 0 || args[0] != "init" {
		fmt.Println("Usage: zenflow config init [--global]")
		return nil
	}

	initFlags := flag.NewFlagSet("config init", flag.ContinueOnError)
	global := initFlags.Bool("global", false, "Write ~/.zenflow/config.yaml instead of the project config")
	force := initFlags.Bool("force", false, "Overwrite an existing config")
	if err := initFlags.Parse(args[1:]); err != nil {
		return err
	}

	path := config.ProjectConfigPath()
	if *global {
		path = config.GlobalConfigPath()
	}
	if configPath != "" {
		path = configPath
	}

	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}

	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Printf("✓ Wrote default config to %s\n", path)
	return nil
}
