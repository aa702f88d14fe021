package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/laocinema/lao-cinema-api/cmd/lcadmin/ui"
	"github.com/laocinema/lao-cinema-api/internal/auth"
	"github.com/laocinema/lao-cinema-api/internal/user"
	"github.com/laocinema/lao-cinema-api/internal/validation"
)

// userStore is the slice of the user repository the admin commands need.
type userStore interface {
	Create(ctx context.Context, params user.CreateParams) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	MarkEmailAsVerified(ctx context.Context, userID uuid.UUID) error
	UpdateRole(ctx context.Context, userID uuid.UUID, role string) error
	SoftDelete(ctx context.Context, userID uuid.UUID) error
}

type sessionStore interface {
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type createUserInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"displayName" validate:"max=100"`
	Role        string `json:"role" validate:"required,oneof=user editor admin"`
}

// createUser inserts a verified account. Operator-created accounts skip the
// verification email.
func createUser(ctx context.Context, users userStore, in createUserInput, minPasswordLength int) (*user.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.DisplayName = strings.TrimSpace(in.DisplayName)

	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	params := user.CreateParams{
		Email:        in.Email,
		PasswordHash: &hash,
		Role:         in.Role,
	}
	if in.DisplayName != "" {
		params.DisplayName = &in.DisplayName
	}

	u, err := users.Create(ctx, params)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, fmt.Errorf("an account with email %s already exists", in.Email)
		}
		return nil, err
	}

	if err := users.MarkEmailAsVerified(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("failed to verify account: %w", err)
	}
	u.EmailVerified = true
	return u, nil
}

// lookupUser accepts either a UUID or an email address.
func lookupUser(ctx context.Context, users userStore, ref string) (*user.User, error) {
	ref = strings.TrimSpace(ref)
	var (
		u   *user.User
		err error
	)
	if id, perr := uuid.Parse(ref); perr == nil {
		u, err = users.GetByID(ctx, id)
	} else {
		u, err = users.GetByEmail(ctx, strings.ToLower(ref))
	}
	if errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("no active user matches %q", ref)
	}
	return u, err
}

func setRole(ctx context.Context, users userStore, ref, role string) (*user.User, error) {
	if !user.IsValidRole(role) {
		return nil, fmt.Errorf("unknown role %q (want user, editor or admin)", role)
	}
	u, err := lookupUser(ctx, users, ref)
	if err != nil {
		return nil, err
	}
	if err := users.UpdateRole(ctx, u.ID, role); err != nil {
		return nil, err
	}
	u.Role = role
	return u, nil
}

// deactivate soft-deletes the account and revokes its sessions so existing
// tokens stop working immediately.
func deactivate(ctx context.Context, users userStore, sessions sessionStore, ref string) (*user.User, int64, error) {
	u, err := lookupUser(ctx, users, ref)
	if err != nil {
		return nil, 0, err
	}
	if err := users.SoftDelete(ctx, u.ID); err != nil {
		return nil, 0, err
	}
	revoked, err := sessions.DeleteByUserID(ctx, u.ID)
	if err != nil {
		return u, 0, fmt.Errorf("account deactivated but sessions were not revoked: %w", err)
	}
	return u, revoked, nil
}

func newUserCmd(a *app) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a verified account (prompts for missing fields)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in ui.UserInput
			in.Email, _ = cmd.Flags().GetString("email")
			in.Password, _ = cmd.Flags().GetString("password")
			in.DisplayName, _ = cmd.Flags().GetString("name")
			in.Role, _ = cmd.Flags().GetString("role")

			ui.PrintTitle("Create account")
			if err := ui.RunUserForm(&in, a.cfg.Auth.MinPasswordLength); err != nil {
				return fmt.Errorf("form cancelled: %w", err)
			}

			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			u, err := createUser(cmd.Context(), user.NewRepository(db), createUserInput{
				Email:       in.Email,
				Password:    in.Password,
				DisplayName: in.DisplayName,
				Role:        in.Role,
			}, a.cfg.Auth.MinPasswordLength)
			if err != nil {
				return err
			}

			ui.PrintSuccess("Account created")
			printUser(u)
			return nil
		},
	}
	createCmd.Flags().String("email", "", "Email address")
	createCmd.Flags().String("password", "", "Password (prompted when omitted)")
	createCmd.Flags().String("name", "", "Display name")
	createCmd.Flags().String("role", "", "Role: user, editor or admin")

	setRoleCmd := &cobra.Command{
		Use:   "set-role <id-or-email> <role>",
		Short: "Change an account's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			u, err := setRole(cmd.Context(), user.NewRepository(db), args[0], args[1])
			if err != nil {
				return err
			}
			ui.PrintSuccess("Role updated")
			printUser(u)
			return nil
		},
	}

	deactivateCmd := &cobra.Command{
		Use:   "deactivate <id-or-email>",
		Short: "Soft-delete an account and revoke its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				ok, err := ui.Confirm(fmt.Sprintf("Deactivate %s?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					ui.PrintDetail("status", "aborted")
					return nil
				}
			}

			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			u, revoked, err := deactivate(cmd.Context(), user.NewRepository(db), auth.NewRepository(db), args[0])
			if err != nil {
				return err
			}
			ui.PrintSuccess("Account deactivated")
			ui.PrintDetail("email", u.Email)
			ui.PrintDetail("sessions", revoked)
			return nil
		},
	}
	deactivateCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")

	userCmd.AddCommand(createCmd, setRoleCmd, deactivateCmd)
	return userCmd
}

func printUser(u *user.User) {
	ui.PrintDetail("id", u.ID)
	ui.PrintDetail("email", u.Email)
	ui.PrintDetail("role", u.Role)
	if u.DisplayName != nil {
		ui.PrintDetail("name", *u.DisplayName)
	}
}
