package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"clihub/internal/app"
	"clihub/internal/domain"
)

func newStateCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and maintain the persistence store",
	}
	cmd.AddCommand(
		newStateTasksCmd(opts),
		newStateCachePurgeCmd(opts),
		newStateContextCmd(opts),
		newStateAuthCmd(opts),
	)
	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, opts *cliOptions, fn func(context.Context, domain.StateStore) error) error {
	ctx := cmd.Context()
	store, _, err := app.New(opts.logger).OpenState(ctx, app.ValidateConfig{
		ConfigPath: opts.configPath,
		Overrides:  opts.overrides(cmd.Flags()),
	})
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func newStateTasksCmd(opts *cliOptions) *cobra.Command {
	var (
		status   string
		clearAll bool
	)
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, store domain.StateStore) error {
				if clearAll {
					n, err := store.ClearTasks(ctx)
					if err != nil {
						return err
					}
					return report(opts, map[string]any{"cleared": n}, fmt.Sprintf("cleared %d tasks", n))
				}
				tasks := []domain.TaskRecord{}
				for task, err := range store.ListTasks(ctx) {
					if err != nil {
						return err
					}
					if status == "" || task.Status == status {
						tasks = append(tasks, task)
					}
				}
				if opts.jsonOutput {
					return writeJSON(tasks)
				}
				cyan := color.New(color.FgCyan)
				for _, task := range tasks {
					fmt.Printf("%s  %-10s %s  %s\n", cyan.Sprint(task.ID), task.Status, task.UpdatedAt.Format(time.RFC3339), task.Payload)
				}
				if len(tasks) == 0 {
					fmt.Println("no tasks")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only tasks with this status")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete every task")
	return cmd
}

func newStateCachePurgeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cache-purge",
		Short: "Delete expired cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, store domain.StateStore) error {
				n, err := store.Purge(ctx)
				if err != nil {
					return err
				}
				return report(opts, map[string]any{"purged": n}, fmt.Sprintf("purged %d expired cache entries", n))
			})
		},
	}
}

func newStateContextCmd(opts *cliOptions) *cobra.Command {
	var (
		scope    string
		clearAll bool
	)
	cmd := &cobra.Command{
		Use:   "context [key]",
		Short: "List context keys of a scope, or print one value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := domain.ParseContextScope(scope)
			if err != nil {
				return err
			}
			return withStore(cmd, opts, func(ctx context.Context, store domain.StateStore) error {
				switch {
				case clearAll:
					n, err := store.ClearContextScope(ctx, sc)
					if err != nil {
						return err
					}
					return report(opts, map[string]any{"scope": sc, "cleared": n}, fmt.Sprintf("cleared %d %s entries", n, sc))
				case len(args) == 1:
					value, ok, err := store.GetContext(ctx, sc, args[0])
					if err != nil {
						return err
					}
					if !ok {
						return exitWith(3, fmt.Sprintf("no %s context for key %q", sc, args[0]))
					}
					if opts.jsonOutput {
						return writeJSON(domain.ContextEntry{Scope: sc, Key: args[0], Value: value})
					}
					fmt.Println(value)
					return nil
				default:
					keys, err := store.ListContextKeys(ctx, sc)
					if err != nil {
						return err
					}
					if opts.jsonOutput {
						return writeJSON(map[string]any{"scope": sc, "keys": keys})
					}
					for _, key := range keys {
						fmt.Println(key)
					}
					return nil
				}
			})
		},
	}
	cmd.Flags().StringVar(&scope, "scope", string(domain.ScopeProject), "context scope (session, project or global)")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete every entry in the scope")
	return cmd
}

func newStateAuthCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Show memoized authentication checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, store domain.StateStore) error {
				records, err := store.ListStatus(ctx)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(records)
				}
				green := color.New(color.FgGreen)
				for _, rec := range records {
					state := color.RedString("unauthenticated")
					if rec.Authenticated {
						state = green.Sprint("authenticated")
					}
					fmt.Printf("%-10s %s  checked %s\n", rec.Service, state, rec.LastChecked.Format(time.RFC3339))
				}
				if len(records) == 0 {
					fmt.Println("no auth checks recorded")
				}
				return nil
			})
		},
	}
}

func report(opts *cliOptions, payload map[string]any, line string) error {
	if opts.jsonOutput {
		return writeJSON(payload)
	}
	color.New(color.FgGreen).Println(line)
	return nil
}
