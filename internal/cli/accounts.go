package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrlokans/librarydesk/internal/auth"
	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/libraries"
	membersdb "github.com/mrlokans/librarydesk/internal/database/members"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/entrypoint"
	"github.com/mrlokans/librarydesk/internal/members"
)

func openDatabase() (*config.Config, *database.Database, error) {
	cfg := config.NewConfig()
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, db, nil
}

func newCreateLibraryCommand() *cobra.Command {
	var (
		email   string
		address string
		phone   string
		plan    string
		months  int
	)
	cmd := &cobra.Command{
		Use:   "create-library NAME",
		Short: "Create a library with a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return errors.New("library name is required")
			}
			p := entities.SubscriptionPlan(plan)
			if !p.IsValid() {
				return fmt.Errorf("unknown plan %q (basic, standard, premium)", plan)
			}

			_, db, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			lib, err := createLibrary(libraries.NewRepository(db.DB), entities.Library{
				Name:    name,
				Email:   email,
				Address: address,
				Phone:   phone,
			}, p, months, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created library %q (id %d) on the %s plan\n", lib.Name, lib.ID, p)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	cmd.Flags().StringVar(&address, "address", "", "postal address")
	cmd.Flags().StringVar(&phone, "phone", "", "contact phone")
	cmd.Flags().StringVar(&plan, "plan", string(entities.SubscriptionPlanBasic), "subscription plan")
	cmd.Flags().IntVar(&months, "months", 12, "subscription length in months, 0 for no expiry")
	return cmd
}

// createLibrary stores the library and its active subscription.
func createLibrary(repo *libraries.Repository, lib entities.Library, plan entities.SubscriptionPlan,
	months int, now time.Time) (*entities.Library, error) {
	if err := repo.Create(&lib); err != nil {
		return nil, fmt.Errorf("failed to create library: %w", err)
	}
	sub := &entities.Subscription{
		LibraryID: lib.ID,
		Plan:      plan,
		Status:    entities.SubscriptionStatusActive,
		StartsAt:  now,
	}
	if months > 0 {
		expires := now.AddDate(0, months, 0)
		sub.ExpiresAt = &expires
	}
	if err := repo.SaveSubscription(sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return &lib, nil
}

func newCreateLibrarianCommand() *cobra.Command {
	var (
		libraryID uint
		firstName string
		lastName  string
		email     string
	)
	cmd := &cobra.Command{
		Use:   "create-librarian",
		Short: "Create an active librarian account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := libraries.NewRepository(db.DB).GetByID(libraryID); err != nil {
				return fmt.Errorf("library %d not found", libraryID)
			}

			password, err := readPassword(cmd, "Password: ")
			if err != nil {
				return err
			}
			confirm, err := readPassword(cmd, "Confirm password: ")
			if err != nil {
				return err
			}
			if err := auth.ConfirmPassword(password, confirm); err != nil {
				return err
			}

			svc := auth.NewService(membersdb.NewRepository(db.DB), cfg.Auth)
			user, err := svc.CreateLibrarian(libraryID, firstName, lastName, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created librarian %s (%s)\n", user.Email, user.Code)
			return nil
		},
	}
	cmd.Flags().UintVar(&libraryID, "library", 0, "library id")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	_ = cmd.MarkFlagRequired("library")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newCreateMemberCommand() *cobra.Command {
	var (
		libraryID uint
		in        members.Input
	)
	cmd := &cobra.Command{
		Use:   "create-member",
		Short: "Create a pending member and send the account setup email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := libraries.NewRepository(db.DB).GetByID(libraryID); err != nil {
				return fmt.Errorf("library %d not found", libraryID)
			}

			svc, err := entrypoint.NewServices(db, cfg)
			if err != nil {
				return err
			}
			defer svc.Auditor.Wait()

			user, err := svc.Members.Create(context.Background(), libraryID, 0, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created member %s (%s), setup email sent to %s\n", user.FullName(), user.Code, user.Email)
			return nil
		},
	}
	cmd.Flags().UintVar(&libraryID, "library", 0, "library id")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email the setup link is sent to")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	_ = cmd.MarkFlagRequired("library")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// readPassword masks input on a terminal and reads a plain line otherwise.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.OutOrStdout(), prompt)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	reader, ok := in.(*bufio.Reader)
	if !ok {
		reader = bufio.NewReader(in)
		cmd.SetIn(reader)
	}
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
