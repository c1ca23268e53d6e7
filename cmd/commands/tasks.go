package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/dohr-michael/dayplan/internal/calendar"
	"github.com/dohr-michael/dayplan/internal/planner"
	"github.com/dohr-michael/dayplan/internal/render"
	"github.com/dohr-michael/dayplan/internal/tasks"
)

// NewTasksCommand returns the tasks subcommand.
func NewTasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Manage planner tasks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks grouped by date",
				Flags: []cli.Flag{
					filterFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output format: text, json or yaml",
						Value:   "text",
					},
				},
				Action: runTasksList,
			},
			{
				Name:  "board",
				Usage: "Show the planner board",
				Flags: []cli.Flag{
					filterFlag(),
					&cli.StringSliceFlag{
						Name:  "collapse",
						Usage: "Date bucket to collapse (repeatable)",
					},
				},
				Action: runTasksBoard,
			},
			{
				Name:      "add",
				Usage:     "Add a task",
				ArgsUsage: "<title>",
				Flags:     draftFlags(),
				Action:    runTasksAdd,
			},
			{
				Name:      "edit",
				Usage:     "Edit a task, keeping its done state",
				ArgsUsage: "<task_id>",
				Flags: append(draftFlags(), &cli.StringFlag{
					Name:  "title",
					Usage: "New title",
				}),
				Action: runTasksEdit,
			},
			{
				Name:      "done",
				Usage:     "Mark a task as done",
				ArgsUsage: "<task_id>",
				Action:    runTasksDone,
			},
			{
				Name:      "delete",
				Usage:     "Delete a task",
				ArgsUsage: "<task_id>",
				Action:    runTasksDelete,
			},
			{
				Name:      "move",
				Usage:     "Move a task to another date bucket or position",
				ArgsUsage: "<task_id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "to",
						Usage: "Destination date (defaults to the task's date)",
					},
					&cli.IntFlag{
						Name:  "index",
						Usage: "Destination position in the bucket (default: last)",
						Value: -1,
					},
				},
				Action: runTasksMove,
			},
			{
				Name:      "import",
				Usage:     "Create tasks from a YAML manifest",
				ArgsUsage: "<file>",
				Action:    runTasksImport,
			},
		},
		DefaultCommand: "board",
	}
}

func filterFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "filter",
		Aliases: []string{"f"},
		Usage:   "Time window: all, day or week",
		Value:   string(tasks.ModeAll),
	}
}

func draftFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Task date (default: today)"},
		&cli.StringFlag{Name: "time", Aliases: []string{"t"}, Usage: "Time of day, HH:MM"},
		&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "Low, Medium or High"},
		&cli.StringFlag{Name: "category", Usage: "Comma separated categories"},
		&cli.StringFlag{Name: "description", Usage: "Free text description"},
	}
}

// openPlanner loads the session board. The caller must Close it.
func openPlanner(ctx context.Context, cmd *cli.Command, opts ...planner.Option) (*planner.Coordinator, error) {
	setupLogging(cmd, slog.LevelWarn)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	sess, err := loadSession(cfg)
	if err != nil {
		return nil, err
	}
	coord := sess.coordinator(cfg, opts...)
	if err := coord.Load(ctx); err != nil {
		return nil, explain(err)
	}
	return coord, nil
}

func modeFlag(cmd *cli.Command) (tasks.Mode, error) {
	return tasks.ParseMode(cmd.String("filter"))
}

func runTasksList(ctx context.Context, cmd *cli.Command) error {
	mode, err := modeFlag(cmd)
	if err != nil {
		return err
	}
	coord, err := openPlanner(ctx, cmd)
	if err != nil {
		return err
	}
	defer coord.Close()

	today := calendar.Today(timeNow())
	list := tasks.Filter(coord.Snapshot().Tasks, mode, today)

	switch cmd.String("output") {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(list)
	case "text", "":
		fmt.Println(render.Tasks(list, today))
		return nil
	default:
		return fmt.Errorf("unknown output format %q", cmd.String("output"))
	}
}

func runTasksBoard(ctx context.Context, cmd *cli.Command) error {
	mode, err := modeFlag(cmd)
	if err != nil {
		return err
	}
	coord, err := openPlanner(ctx, cmd, planner.WithFilter(mode))
	if err != nil {
		return err
	}
	defer coord.Close()

	// Buckets start expanded.
	for _, d := range cmd.StringSlice("collapse") {
		coord.ToggleExpanded(calendar.NormalizeDate(d))
	}
	fmt.Println(render.Board(coord.Board()))
	return nil
}

// draftFromFlags overlays the set flags onto base.
func draftFromFlags(cmd *cli.Command, base tasks.Draft) tasks.Draft {
	if cmd.IsSet("title") {
		base.Title = cmd.String("title")
	}
	if cmd.IsSet("date") {
		base.Date = cmd.String("date")
	}
	if cmd.IsSet("time") {
		base.Time = cmd.String("time")
	}
	if cmd.IsSet("priority") {
		base.Priority = tasks.Priority(cmd.String("priority"))
	}
	if cmd.IsSet("category") {
		base.Category = cmd.String("category")
	}
	if cmd.IsSet("description") {
		base.Description = cmd.String("description")
	}
	return base
}

func runTasksAdd(ctx context.Context, cmd *cli.Command) error {
	title := strings.Join(cmd.Args().Slice(), " ")
	if title == "" {
		return fmt.Errorf("usage: dayplan tasks add <title>")
	}
	coord, err := openPlanner(ctx, cmd)
	if err != nil {
		return err
	}
	defer coord.Close()

	d := draftFromFlags(cmd, tasks.Draft{
		Title:    title,
		Date:     calendar.Today(timeNow()).String(),
		Priority: tasks.PriorityMedium,
	})
	if err := coord.Add(ctx, d); err != nil {
		return explain(err)
	}
	fmt.Printf("Added %q on %s.\n", d.Title, calendar.NormalizeDate(d.Date))
	return nil
}

func runTasksEdit(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.Args().First()
	if taskID == "" {
		return fmt.Errorf("usage: dayplan tasks edit <task_id>")
	}
	coord, err := openPlanner(ctx, cmd)
	if err != nil {
		return err
	}
	defer coord.Close()

	prior, ok := coord.Find(taskID)
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	if err := coord.Edit(ctx, taskID, draftFromFlags(cmd, tasks.DraftOf(prior))); err != nil {
		return explain(err)
	}
	fmt.Printf("Task %s updated.\n", taskID)
	return nil
}

func runTasksDone(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.Args().First()
	if taskID == "" {
		return fmt.Errorf("usage: dayplan tasks done <task_id>")
	}
	coord, err := openPlanner(ctx, cmd)
	if err != nil {
		return err
	}
	defer coord.Close()

	if err := coord.MarkDone(ctx, taskID); err != nil {
		return explain(err)
	}
	fmt.Printf("Task %s done.\n", taskID)
	return nil
}

func runTasksDelete(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.Args().First()
	if taskID == "" {
		return fmt.Errorf("usage: dayplan tasks delete <task_id>")
	}
	coord, err := openPlanner(ctx, cmd)
	if err != nil {
		return err
	}
	defer coord.Close()

	if err := coord.Delete(ctx, taskID); err != nil {
		return explain(err)
	}
	fmt.Printf("Task %s deleted.\n", taskID)
	return nil
}

func runTasksMove(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.Args().First()
	if taskID == "" {
		return fmt.Errorf("usage: dayplan tasks move <task_id> --to <date> [--index N]")
	}
	coord, err := openPlanner(ctx, cmd)
	if err != nil {
		return err
	}

	src, ok := coord.PositionOf(taskID)
	if !ok {
		coord.Close()
		return fmt.Errorf("task %s not found", taskID)
	}
	dst := tasks.Position{Date: src.Date, Index: cmd.Int("index")}
	if cmd.IsSet("to") {
		dst.Date = calendar.NormalizeDate(cmd.String("to"))
	}
	if dst.Index < 0 {
		// Clamped to the end of the destination bucket.
		dst.Index = len(coord.Snapshot().Tasks)
	}

	changed, err := coord.Reorder(tasks.Move{Source: src, Destination: &dst})
	if err != nil {
		coord.Close()
		return err
	}
	// Close flushes the debounced write instead of waiting it out.
	coord.Close()
	if !changed {
		fmt.Println("Nothing to move.")
		return nil
	}
	moved, _ := coord.Find(taskID)
	fmt.Printf("Task %s moved to %s.\n", taskID, moved.Date)
	return nil
}

func runTasksImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: dayplan tasks import <file>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	drafts, err := tasks.ParseManifest(data)
	if err != nil {
		return err
	}

	coord, err := openPlanner(ctx, cmd)
	if err != nil {
		return err
	}
	defer coord.Close()

	for _, d := range drafts {
		if err := coord.Add(ctx, d); err != nil {
			return fmt.Errorf("import %q: %w", d.Title, explain(err))
		}
	}
	fmt.Printf("Imported %d tasks.\n", len(drafts))
	return nil
}

// NewActivityCommand returns the activity subcommand.
func NewActivityCommand() *cli.Command {
	return &cli.Command{
		Name:  "activity",
		Usage: "Show recent task changes",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of events",
				Value:   20,
			},
		},
		Action: runActivity,
	}
}

func runActivity(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd, slog.LevelWarn)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sess, err := loadSession(cfg)
	if err != nil {
		return err
	}

	list, err := sess.client.Activity(ctx, sess.identity, cmd.Int("limit"))
	if err != nil {
		return explain(err)
	}
	if len(list) == 0 {
		fmt.Println("No activity.")
		return nil
	}
	for _, e := range list {
		fmt.Println(render.Activity(e))
	}
	return nil
}

var timeNow = time.Now
