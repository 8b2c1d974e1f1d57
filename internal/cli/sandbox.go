package cli

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/config"
	"github.com/dmitrymomot/deskkit/pkg/desktest"
	"github.com/dmitrymomot/deskkit/pkg/httpserver"
	"github.com/dmitrymomot/deskkit/pkg/identity"
)

// demoPassword is shared by the seeded sandbox accounts.
const demoPassword = "desk"

var demoUsers = []struct {
	name, email string
	role        identity.Role
}{
	{"Ada Admin", "admin@desk.local", identity.RoleAdmin},
	{"Sam Agent", "agent@desk.local", identity.RoleAgent},
	{"Uma User", "user@desk.local", identity.RoleUser},
}

func (a *app) sandboxCmd() *cobra.Command {
	var (
		addr string
		seed bool
	)
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Serve an in-memory helpdesk API for local experiments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			var hc httpserver.Config
			if err := config.Parse(&hc); err != nil {
				return err
			}
			if addr != "" {
				hc.Addr = addr
			}

			backend := desktest.New(desktest.WithLogger(a.logger))
			if seed {
				seedSandbox(backend)
			}
			r := chi.NewRouter()
			r.Get("/healthz", httpserver.HealthHandler(a.logger))
			r.Mount("/api", backend.Handler())

			srv := httpserver.NewFromConfig(hc, httpserver.WithLogger(a.logger))
			go func() {
				select {
				case <-srv.Ready():
					a.message("sandbox API at http://%s/api", srv.Addr())
					if seed {
						for _, u := range demoUsers {
							a.message("  %-8s %s / %s", u.role, u.email, demoPassword)
						}
					}
				case <-cmd.Context().Done():
				}
			}()
			return srv.Run(cmd.Context(), r)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $DESK_SANDBOX_ADDR)")
	cmd.Flags().BoolVar(&seed, "seed", true, "create demo accounts and tickets")
	return cmd
}

func seedSandbox(b *desktest.Backend) {
	for _, u := range demoUsers {
		b.AddUser(u.name, u.email, demoPassword, u.role)
	}
	samples := []apiclient.NewTicket{
		{Title: "VPN drops every hour", Description: "Connection resets at the top of each hour.", Priority: apiclient.PriorityHigh},
		{Title: "Printer on floor 3 jams", Description: "Paper jams on every duplex job.", Priority: apiclient.PriorityMedium},
		{Title: "Request a second monitor", Description: "Needed for the new dashboard work.", Priority: apiclient.PriorityLow},
	}
	for _, nt := range samples {
		b.AddTicket("user@desk.local", nt)
	}
	// One ticket already past its SLA so the breached view has content.
	if t, ok := b.AddTicket("user@desk.local", apiclient.NewTicket{
		Title: "Email bounces", Description: "Outgoing mail to partners bounces.", Priority: apiclient.PriorityHigh,
	}); ok {
		b.Edit(t.ID, func(t *apiclient.Ticket) {
			due := time.Now().Add(-2 * time.Hour)
			t.SLADue = &due
		})
	}
}
