package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"clihub/internal/app"
	"clihub/internal/app/catalog"
	"clihub/internal/app/profile"
	"clihub/internal/domain"
)

func newValidateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file and the built-in catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := app.New(opts.logger).ValidateConfig(cmd.Context(), app.ValidateConfig{
				ConfigPath: opts.configPath,
				Overrides:  opts.overrides(cmd.Flags()),
			})
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(map[string]any{
					"valid":      true,
					"profile":    summary.Config.Profile,
					"transport":  summary.Config.Server.Transport,
					"groups":     summary.Groups,
					"procedures": summary.Procedures,
					"enabled":    summary.Enabled,
				})
			}
			color.New(color.FgGreen).Println("configuration is valid")
			fmt.Printf("  transport:  %s\n", summary.Config.Server.Transport)
			fmt.Printf("  profile:    %s (%s)\n", summary.Config.Profile, strings.Join(summary.Enabled, ", "))
			fmt.Printf("  catalog:    %d groups, %d procedures\n", summary.Groups, summary.Procedures)
			fmt.Printf("  state:      %s\n", summary.Config.State.Driver)
			return nil
		},
	}
}

type groupRow struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Tools   int      `json:"tools"`
	Enabled bool     `json:"enabled"`
	Members []string `json:"members,omitempty"`
}

func newGroupsCmd(opts *cliOptions) *cobra.Command {
	var members bool
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List tool groups; --profile marks the groups it enables",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			registry, err := catalog.Default()
			if err != nil {
				return err
			}
			enabled := domain.VisibilitySet{}
			if opts.profile != "" {
				if enabled, err = profile.Resolve(opts.profile); err != nil {
					return err
				}
			}
			var rows []groupRow
			for group := range registry.Groups() {
				row := groupRow{
					ID:      string(group.ID),
					Name:    group.Name,
					Aliases: group.Aliases,
					Tools:   len(group.Members),
					Enabled: enabled.Contains(group.ID),
				}
				if members {
					row.Members = group.Members
				}
				rows = append(rows, row)
			}
			if opts.jsonOutput {
				return writeJSON(rows)
			}
			printGroups(rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&members, "members", false, "list the procedures of each group")
	return cmd
}

func printGroups(rows []groupRow) {
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	for _, row := range rows {
		marker := "  "
		if row.Enabled {
			marker = green.Sprint("* ")
		}
		fmt.Printf("%s%s %3d  %s", marker, cyan.Sprintf("%-12s", row.ID), row.Tools, row.Name)
		if len(row.Aliases) > 0 {
			fmt.Printf(" (aliases: %s)", strings.Join(row.Aliases, ", "))
		}
		fmt.Println()
		for _, member := range row.Members {
			fmt.Printf("      %s\n", member)
		}
	}
}

func newProfilesCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List session profiles and the groups they enable",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			profiles := profile.Profiles()
			if opts.jsonOutput {
				return writeJSON(profiles)
			}
			cyan := color.New(color.FgCyan)
			yellow := color.New(color.FgYellow)
			for _, p := range profiles {
				fmt.Printf("%s  %s\n", cyan.Sprintf("%-11s", p.Name), p.Description)
				groups := make([]string, 0, len(p.Groups))
				for _, id := range p.Groups {
					groups = append(groups, string(id))
				}
				if len(groups) == 0 {
					groups = append(groups, "(none)")
				}
				fmt.Printf("             groups: %s\n", strings.Join(groups, ", "))
				if len(p.Aliases) > 0 {
					yellow.Printf("             aliases: %s\n", strings.Join(p.Aliases, ", "))
				}
			}
			return nil
		},
	}
}
