package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/mutation"
	"github.com/dmitrymomot/deskkit/pkg/pager"
	"github.com/dmitrymomot/deskkit/pkg/submit"
)

const timeLayout = "2006-01-02 15:04"

func ticketRows(items []apiclient.Ticket) table {
	t := table{header: []string{"ID", "TITLE", "STATUS", "PRIORITY", "SLA DUE", "VERSION"}}
	now := time.Now()
	for _, it := range items {
		due := "-"
		if it.SLADue != nil {
			due = it.SLADue.Local().Format(timeLayout)
			if it.Breached(now) {
				due += " (breached)"
			}
		}
		t.rows = append(t.rows, []string{
			it.ID, it.Title, string(it.Status), string(it.Priority), due, strconv.FormatInt(it.Version, 10),
		})
	}
	return t
}

func (a *app) ticketsCmd() *cobra.Command {
	var (
		f     pager.Filter
		pages int
		all   bool
	)
	cmd := &cobra.Command{
		Use:     "tickets",
		Short:   "List tickets visible to you",
		Args:    cobra.NoArgs,
		PreRunE: a.connected,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list := a.client.Tickets(f)
			for n := 0; !list.Done() && (all || n < pages); n++ {
				if _, err := list.More(cmd.Context()); err != nil {
					return fmt.Errorf("list tickets: %w", err)
				}
			}
			items := list.Items()
			if err := a.render(items, func() table { return ticketRows(items) }); err != nil {
				return err
			}
			if !list.Done() {
				a.message("more tickets available, use --pages or --all")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.Query, "query", "q", "", "search text")
	cmd.Flags().StringVar(&f.Status, "status", "", "open, in_progress, resolved or closed")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	cmd.Flags().BoolVar(&all, "all", false, "load every page")
	return cmd
}

func (a *app) ticketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Show, create, change and comment on a ticket",
	}
	cmd.AddCommand(a.ticketShowCmd(), a.ticketCreateCmd(), a.ticketUpdateCmd(), a.ticketCommentCmd())
	return cmd
}

func (a *app) ticketShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show <id>",
		Short:   "Show a ticket with comments and timeline",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.connected,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.client.TicketView(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("show ticket: %w", err)
			}
			return a.render(view.Detail, func() table { return detailRows(view.Detail) })
		},
	}
}

func detailRows(d *apiclient.TicketDetail) table {
	t := ticketRows([]apiclient.Ticket{d.Ticket})
	t.rows = append(t.rows, []string{"", "", "", "", "", ""})
	for _, c := range d.Comments {
		who := ""
		if c.User != nil {
			who = c.User.Email
		}
		t.rows = append(t.rows, []string{"comment", c.Message, who, "", c.CreatedAt.Local().Format(timeLayout), ""})
	}
	for _, act := range d.Activities {
		t.rows = append(t.rows, []string{"activity", act.Action, act.Details.Field, "", act.CreatedAt.Local().Format(timeLayout), ""})
	}
	return t
}

func (a *app) ticketCreateCmd() *cobra.Command {
	var nt apiclient.NewTicket
	var priority string
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Open a new ticket",
		Args:    cobra.NoArgs,
		PreRunE: a.connected,
		RunE: func(cmd *cobra.Command, _ []string) error {
			nt.Priority = apiclient.Priority(strings.ToLower(priority))
			in := a.client.NewTicketIntent()
			res := a.client.SubmitTicket(cmd.Context(), in, nt)
			switch res.Kind {
			case submit.Created:
				t := res.Entity
				return a.render(t, func() table { return ticketRows([]apiclient.Ticket{*t}) })
			case submit.TransportFailure:
				return fmt.Errorf("create ticket: not confirmed after %d attempts (key %s): %w", res.Attempts, in.Key(), res.Err)
			default:
				return fmt.Errorf("create ticket: %w", res.Err)
			}
		},
	}
	cmd.Flags().StringVar(&nt.Title, "title", "", "ticket title")
	cmd.Flags().StringVar(&nt.Description, "description", "", "ticket description")
	cmd.Flags().StringVar(&priority, "priority", string(apiclient.PriorityMedium), "low, medium or high")
	return cmd
}

func (a *app) ticketUpdateCmd() *cobra.Command {
	var (
		version  int64
		status   string
		priority string
		assign   string
		unassign bool
	)
	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Change a ticket at a known version",
		Long:    "Change a ticket. --version must be the version you last saw; a newer server version is reported as a conflict and nothing is changed.",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.connected,
		RunE: func(cmd *cobra.Command, args []string) error {
			changes := apiclient.Changes{}
			if status != "" {
				changes["status"] = apiclient.Status(status)
			}
			if priority != "" {
				changes["priority"] = apiclient.Priority(priority)
			}
			switch {
			case unassign && assign != "":
				return errors.New("--assign and --unassign are exclusive")
			case unassign:
				changes["agent"] = nil
			case assign != "":
				changes["agent"] = assign
			}

			out := a.client.UpdateTicket(cmd.Context(), args[0], version, changes)
			switch out.Kind {
			case mutation.Accepted:
				t := out.Entity
				return a.render(t, func() table { return ticketRows([]apiclient.Ticket{*t}) })
			case mutation.Conflict:
				return fmt.Errorf("ticket changed since version %d, reload with 'deskctl ticket show %s': %w", version, args[0], out.Err)
			case mutation.Rejected:
				return fmt.Errorf("update rejected: %s: %w", out.Reason, out.Err)
			default:
				return fmt.Errorf("update not confirmed: %w", out.Err)
			}
		},
	}
	cmd.Flags().Int64Var(&version, "version", 0, "version the change is based on")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority")
	cmd.Flags().StringVar(&assign, "assign", "", "agent id to assign")
	cmd.Flags().BoolVar(&unassign, "unassign", false, "clear the assigned agent")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func (a *app) ticketCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "comment <id> <message>",
		Short:   "Add a comment",
		Args:    cobra.MinimumNArgs(2),
		PreRunE: a.connected,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client.AddComment(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return fmt.Errorf("comment: %w", err)
			}
			return a.render(c, func() table {
				return table{
					header: []string{"ID", "MESSAGE", "CREATED"},
					rows:   [][]string{{c.ID, c.Message, c.CreatedAt.Local().Format(timeLayout)}},
				}
			})
		},
	}
}

func (a *app) agentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "agents",
		Short:   "List agents available for assignment",
		Args:    cobra.NoArgs,
		PreRunE: a.connected,
		RunE: func(cmd *cobra.Command, _ []string) error {
			agents, err := a.client.Agents(cmd.Context())
			if err != nil {
				return fmt.Errorf("agents: %w", err)
			}
			return a.render(agents, func() table {
				t := table{header: []string{"ID", "NAME", "EMAIL", "ROLE"}}
				for _, ag := range agents {
					t.rows = append(t.rows, []string{ag.ID, ag.Name, ag.Email, string(ag.Role)})
				}
				return t
			})
		},
	}
}

func (a *app) breachedCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "breached",
		Short:   "List tickets past their SLA (admins)",
		Args:    cobra.NoArgs,
		PreRunE: a.connected,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.client.Breached(cmd.Context())
			if err != nil {
				return fmt.Errorf("breached: %w", err)
			}
			return a.render(items, func() table { return ticketRows(items) })
		},
	}
}
