package cli

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/abduss/bugtrack/internal/bug"
	"github.com/spf13/cobra"
)

func (a *app) listCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bugs matching the given filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := bug.FilterInput{
				Status:     stringFlag(cmd, bug.ParamStatus),
				Priority:   stringFlag(cmd, bug.ParamPriority),
				Search:     stringFlag(cmd, bug.ParamSearch),
				ReportedBy: stringFlag(cmd, "reported-by"),
				AssignedTo: stringFlag(cmd, "assigned-to"),
				Sort:       stringFlag(cmd, bug.ParamSort),
				Page:       intFlag(cmd, bug.ParamPage),
				Limit:      intFlag(cmd, bug.ParamLimit),
			}

			page, err := a.client().ListBugs(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.ui, page)
			}

			if len(page.Bugs) == 0 {
				a.ui.Println("No bugs found.")
				return nil
			}
			table := a.ui.Table([]string{"ID", "Title", "Status", "Priority", "Assignee", "Created"})
			for _, b := range page.Bugs {
				table.Append([]string{
					cyan(b.ID.String()),
					b.Title,
					StatusColor(string(b.Status)),
					PriorityColor(string(b.Priority)),
					b.AssignedTo,
					b.CreatedAt.Local().Format(time.DateTime),
				})
			}
			table.Render()
			p := page.Pagination
			a.ui.Printf("Page %d of %d (%d bugs)", p.Page, p.Pages, p.Total)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String(bug.ParamStatus, "", "Filter by status (open, in-progress, resolved, closed)")
	flags.String(bug.ParamPriority, "", "Filter by priority (low, medium, high, critical)")
	flags.String(bug.ParamSearch, "", "Case-insensitive text search in title and description")
	flags.String("reported-by", "", "Filter by reporter name")
	flags.String("assigned-to", "", "Filter by assignee name")
	flags.String(bug.ParamSort, "", "Sort fields, prefix with - for descending (default -createdAt)")
	flags.Int(bug.ParamPage, bug.DefaultPage, "Page number")
	flags.Int(bug.ParamLimit, bug.DefaultLimit, "Page size")
	flags.BoolVar(&asJSON, "json", false, "Print the raw page as JSON")
	return cmd
}

func (a *app) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one bug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.client().GetBug(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			a.ui.Println(cyan(b.Title))
			a.ui.Printf("  ID:          %s", b.ID)
			a.ui.Printf("  Status:      %s", StatusColor(string(b.Status)))
			a.ui.Printf("  Priority:    %s", PriorityColor(string(b.Priority)))
			a.ui.Printf("  Reported by: %s", b.ReportedBy)
			a.ui.Printf("  Assigned to: %s", b.AssignedTo)
			a.ui.Printf("  Environment: %s / %s / %s", b.Environment.OS, b.Environment.Browser, b.Environment.Version)
			a.ui.Printf("  Created:     %s", b.CreatedAt.Local().Format(time.DateTime))
			a.ui.Printf("  Updated:     %s", b.UpdatedAt.Local().Format(time.DateTime))
			a.ui.Println()
			a.ui.Println(b.Description)
			if len(b.StepsToReproduce) > 0 {
				a.ui.Println()
				a.ui.Println("Steps to reproduce:")
				for i, step := range b.StepsToReproduce {
					a.ui.Printf("  %d. %s", i+1, step)
				}
			}
			return nil
		},
	}
}

func (a *app) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show bug counts by status and priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.client().Stats(cmd.Context())
			if err != nil {
				return err
			}

			a.ui.Printf("Total: %d  Open: %s  Resolved: %s",
				s.TotalBugs,
				green(strconv.FormatInt(s.OpenBugs, 10)),
				cyan(strconv.FormatInt(s.ResolvedBugs, 10)),
			)
			a.ui.Println()

			table := a.ui.Table([]string{"Status", "Count", "Avg priority"})
			for _, g := range s.StatusDistribution {
				avg := "-"
				if g.AvgPriority != nil {
					avg = strconv.FormatFloat(*g.AvgPriority, 'f', 2, 64)
				}
				table.Append([]string{StatusColor(g.ID), strconv.FormatInt(g.Count, 10), avg})
			}
			table.Render()
			a.ui.Println()

			table = a.ui.Table([]string{"Priority", "Count"})
			for _, g := range s.PriorityDistribution {
				table.Append([]string{PriorityColor(g.ID), strconv.FormatInt(g.Count, 10)})
			}
			table.Render()
			return nil
		},
	}
}

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change the status of a bug",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.client().UpdateStatus(cmd.Context(), args[0], strings.ToLower(args[1]))
			if err != nil {
				return err
			}
			a.ui.Success("%s is now %s", b.Title, StatusColor(string(b.Status)))
			return nil
		},
	}
}

func (a *app) loginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print an access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := a.client().Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			a.ui.Success("Logged in as %s (%s)", session.User.Email, session.User.Role)
			a.ui.Println("export BUGCTL_TOKEN=" + session.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// stringFlag returns the flag value, or nil when it was not given.
func stringFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func intFlag(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}

func writeJSON(ui *UI, v any) error {
	enc := json.NewEncoder(ui.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
