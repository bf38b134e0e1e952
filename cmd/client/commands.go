package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/render"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/tui"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/ui"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/web"
	"gitlab.com/dirk.krummacker/contacts-frontend/pkg/model"
	"go.uber.org/zap"
)

// printer is a results container that writes every new content to the command output.
type printer struct {
	w io.Writer
}

func (p printer) Replace(content string) {
	fmt.Fprintln(p.w, content)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid contact id %q", arg)
	}
	return id, nil
}

func (a *app) listCmd() *cobra.Command {
	var skip, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			contacts, err := a.api.ListContacts(cmd.Context(), skip, limit)
			if err != nil {
				return fmt.Errorf("could not list contacts: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.TerminalTable(contacts))
			return nil
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "number of contacts to pass over")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of contacts (1 to 500)")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a single contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			contact, err := a.api.GetContact(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("could not get contact %d: %w", id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.TerminalTable([]model.Contact{*contact}))
			return nil
		},
	}
}

// contactFlags are the fields of a contact as command line flags.
type contactFlags struct {
	firstName, lastName, email, phoneNumber, birthday, description string
}

func (f *contactFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&f.lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.phoneNumber, "phone-number", "", "phone number in E.164 format, e.g. +420123456789")
	cmd.Flags().StringVar(&f.birthday, "birthday", "", "birthday as YYYY-MM-DD")
	cmd.Flags().StringVar(&f.description, "description", "", "free text, at most 250 characters")
}

// contact returns a contact with the flags that were given on the command line.
func (f *contactFlags) contact(cmd *cobra.Command) (model.Contact, error) {
	var contact model.Contact
	set := func(name, value string) *string {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		return &value
	}
	contact.FirstName = set("first-name", f.firstName)
	contact.LastName = set("last-name", f.lastName)
	contact.Email = set("email", f.email)
	contact.PhoneNumber = set("phone-number", f.phoneNumber)
	contact.Description = set("description", f.description)
	if cmd.Flags().Changed("birthday") {
		birthday, err := model.ParseDate(f.birthday)
		if err != nil {
			return model.Contact{}, fmt.Errorf("invalid birthday %q", f.birthday)
		}
		contact.Birthday = &birthday
	}
	return contact, nil
}

func (a *app) createCmd() *cobra.Command {
	var flags contactFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			contact, err := flags.contact(cmd)
			if err != nil {
				return err
			}
			if err := a.api.CreateContact(cmd.Context(), contact); err != nil {
				return fmt.Errorf("could not create contact: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "contact created")
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	var flags contactFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change the given fields of a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			contact, err := flags.contact(cmd)
			if err != nil {
				return err
			}
			contact.Id = id
			if err := a.api.EditContact(cmd.Context(), contact); err != nil {
				return fmt.Errorf("could not edit contact %d: %w", id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "contact updated")
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.api.DeleteContact(cmd.Context(), id); err != nil {
				return fmt.Errorf("could not delete contact %d: %w", id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "contact deleted")
			return nil
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	var form ui.Form
	var html bool
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search contacts by first name, last name and email",
		Long: `Search contacts whose fields contain the given values, ignoring case.
All given values must match.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			searcher := &ui.Searcher{
				API: a.api,
				Render: func(contacts []model.Contact) (string, error) {
					return render.TerminalTable(contacts), nil
				},
				Logger: a.logger,
			}
			if html {
				searcher.Render = func(contacts []model.Contact) (string, error) {
					table, err := render.HTMLTable(contacts)
					return string(table), err
				}
			}
			if err := searcher.Search(cmd.Context(), form, printer{cmd.OutOrStdout()}); err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&form.FirstName, "first-name", "", "part of the first name")
	cmd.Flags().StringVar(&form.LastName, "last-name", "", "part of the last name")
	cmd.Flags().StringVar(&form.Email, "email", "", "part of the email address")
	cmd.Flags().BoolVar(&html, "html", false, "print an HTML table")
	return cmd
}

func (a *app) birthdaysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "birthdays",
		Short: "List the contacts with a birthday in the next seven days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var contacts []model.Contact
			ui.LoadBirthdays(cmd.Context(), a.api, a.logger, &contacts)
			fmt.Fprintln(cmd.OutOrStdout(), render.TerminalTable(contacts))
			return nil
		},
	}
}

func (a *app) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Search contacts interactively in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(cmd.Context(), a.api, a.logger)
		},
	}
}

func (a *app) webCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the web frontend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.WebAddr
			}
			router := web.New(a.api, a.logger).SetupHttpRouter(a.cfg.GinLogging, a.registry)
			a.logger.Info("serving web frontend", zap.String("addr", addr), zap.String("api", a.api.BaseURL()))
			return router.Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
