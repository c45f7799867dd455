package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketapp/internal/auth"
	"github.com/spec-kit/ticketapp/internal/config"
	"github.com/spec-kit/ticketapp/internal/domain"
	"github.com/spec-kit/ticketapp/internal/events"
	"github.com/spec-kit/ticketapp/internal/observability"
	"github.com/spec-kit/ticketapp/internal/service"
	"github.com/spec-kit/ticketapp/internal/store"
	"github.com/spec-kit/ticketapp/internal/worker"
	"github.com/spec-kit/ticketapp/pkg/util"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the wired services for command handlers.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   store.Store
	auth    *service.AuthService
	tickets *service.TicketService
	guard   *auth.Guard
}

func newApp() (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	st, err := store.NewSQLite(cfg.Store.Path, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open slot store: %w", err)
	}

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Store:      st,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      st,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger))

	cleanup := func() {
		_ = st.Close()
		_ = logger.Sync()
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		auth:    authService,
		tickets: ticketService,
		guard:   auth.NewGuard(authService),
	}, cleanup, nil
}

// requireSession resolves the active session or tells the user to sign in.
func (a *app) requireSession(cmd *cobra.Command) (*domain.Session, error) {
	session, err := a.guard.Require()
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Please sign in first: ticketapp login")
		return nil, err
	}
	return session, nil
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ticketapp",
		Short:         "Local-first support ticket tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newSignupCommand())
	cmd.AddCommand(newLoginCommand())
	cmd.AddCommand(newLogoutCommand())
	cmd.AddCommand(newDashboardCommand())
	cmd.AddCommand(newTicketsCommand())
	return cmd
}

func newSignupCommand() *cobra.Command {
	var (
		name     string
		email    string
		password string
		confirm  string
	)

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp()
			if err != nil {
				return err
			}
			defer cleanup()

			user, err := a.auth.SignUp(service.SignUpInput{
				Name:            name,
				Email:           email,
				Password:        password,
				ConfirmPassword: confirm,
			})
			if err != nil {
				return renderError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s. Sign in with: ticketapp login\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (8+ characters)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "Password confirmation")
	return cmd
}

func newLoginCommand() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and start a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp()
			if err != nil {
				return err
			}
			defer cleanup()

			session, err := a.auth.LogIn(email, password)
			if err != nil {
				return renderError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome back, %s! Session valid until %s.\n",
				session.Name, session.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp()
			if err != nil {
				return err
			}
			defer cleanup()

			a.auth.LogOut()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newDashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show ticket stats for the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp()
			if err != nil {
				return err
			}
			defer cleanup()

			session, err := a.requireSession(cmd)
			if err != nil {
				return err
			}

			stats := a.tickets.Stats(session.UserID)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Welcome back, %s!\n\n", session.Name)
			fmt.Fprintf(out, "Total Tickets:    %d\n", stats.Total)
			fmt.Fprintf(out, "Open Tickets:     %d\n", stats.Open)
			fmt.Fprintf(out, "Resolved Tickets: %d\n", stats.Resolved)
			return nil
		},
	}
}

func newTicketsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "Manage your tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newTicketsListCommand())
	cmd.AddCommand(newTicketsCreateCommand())
	cmd.AddCommand(newTicketsEditCommand())
	cmd.AddCommand(newTicketsDeleteCommand())
	return cmd
}

func newTicketsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp()
			if err != nil {
				return err
			}
			defer cleanup()

			session, err := a.requireSession(cmd)
			if err != nil {
				return err
			}

			tickets := a.tickets.List(session.UserID)
			if len(tickets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tickets yet. Create your first ticket to get started.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tUPDATED")
			for _, t := range tickets {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					t.ID, t.Title, t.Status, t.Priority, t.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func newTicketsCreateCommand() *cobra.Command {
	var (
		title       string
		description string
		status      string
		priority    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp()
			if err != nil {
				return err
			}
			defer cleanup()

			session, err := a.requireSession(cmd)
			if err != nil {
				return err
			}

			ticket, err := a.tickets.Create(session.UserID, service.TicketForm{
				Title:       title,
				Description: description,
				Status:      domain.TicketStatus(status),
				Priority:    domain.TicketPriority(priority),
			})
			if err != nil {
				return renderError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ticket created: %s\n", ticket.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Ticket title")
	cmd.Flags().StringVar(&description, "description", "", "Optional description (max 500 characters)")
	cmd.Flags().StringVar(&status, "status", "open", "Status: open, in_progress, or closed")
	cmd.Flags().StringVar(&priority, "priority", "medium", "Priority: low, medium, or high")
	return cmd
}

func newTicketsEditCommand() *cobra.Command {
	var (
		title       string
		description string
		status      string
		priority    string
	)

	cmd := &cobra.Command{
		Use:   "edit <ticket-id>",
		Short: "Edit an existing ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp()
			if err != nil {
				return err
			}
			defer cleanup()

			session, err := a.requireSession(cmd)
			if err != nil {
				return err
			}

			// Pre-fill the form from the current record, like the edit
			// modal does, so unset flags keep their value.
			var current *domain.Ticket
			for _, t := range a.tickets.List(session.UserID) {
				if t.ID == args[0] {
					current = &t
					break
				}
			}
			if current == nil {
				return renderError(cmd, util.NewNotFound("ticket"))
			}

			form := service.TicketForm{
				Title:       current.Title,
				Description: current.Description,
				Status:      current.Status,
				Priority:    current.Priority,
			}
			if cmd.Flags().Changed("title") {
				form.Title = title
			}
			if cmd.Flags().Changed("description") {
				form.Description = description
			}
			if cmd.Flags().Changed("status") {
				form.Status = domain.TicketStatus(status)
			}
			if cmd.Flags().Changed("priority") {
				form.Priority = domain.TicketPriority(priority)
			}

			ticket, err := a.tickets.Update(current.ID, form)
			if err != nil {
				return renderError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ticket updated: %s\n", ticket.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Ticket title")
	cmd.Flags().StringVar(&description, "description", "", "Description (max 500 characters)")
	cmd.Flags().StringVar(&status, "status", "", "Status: open, in_progress, or closed")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority: low, medium, or high")
	return cmd
}

func newTicketsDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <ticket-id>",
		Short: "Delete a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp()
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := a.requireSession(cmd); err != nil {
				return err
			}

			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(),
					"This action cannot be undone. Re-run with --yes to delete ticket %s.\n", args[0])
				return nil
			}

			if err := a.tickets.Delete(args[0]); err != nil {
				return renderError(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Ticket deleted.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}

// renderError prints field-keyed validation messages before returning the
// error for the nonzero exit.
func renderError(cmd *cobra.Command, err error) error {
	domainErr := util.ToDomainError(err)
	if len(domainErr.Details) > 0 {
		fields := make([]string, 0, len(domainErr.Details))
		for field := range domainErr.Details {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", field, domainErr.Details[field])
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), domainErr.Message)
	}
	return err
}
