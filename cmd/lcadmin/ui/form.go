package ui

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/charmbracelet/huh"
)

// UserInput holds the answers for creating an account.
type UserInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
}

// RunUserForm prompts for the fields that are still empty in in.
// Fields already set from flags are left untouched.
func RunUserForm(in *UserInput, minPasswordLength int) error {
	var fields []huh.Field

	if in.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("editor@laocinema.com").
			Value(&in.Email).
			Validate(func(s string) error {
				if _, err := mail.ParseAddress(strings.TrimSpace(s)); err != nil {
					return fmt.Errorf("enter a valid email address")
				}
				return nil
			}))
	}

	if in.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&in.Password).
			Validate(func(s string) error {
				if len(s) < minPasswordLength {
					return fmt.Errorf("password must be at least %d characters", minPasswordLength)
				}
				return nil
			}))
	}

	if in.DisplayName == "" {
		fields = append(fields, huh.NewInput().
			Title("Display name").
			Description("Optional").
			Value(&in.DisplayName))
	}

	if in.Role == "" {
		fields = append(fields, huh.NewSelect[string]().
			Title("Role").
			Options(
				huh.NewOption("Editor (manage the catalog)", "editor"),
				huh.NewOption("Admin (catalog and users)", "admin"),
				huh.NewOption("User", "user"),
			).
			Value(&in.Role))
	}

	if len(fields) == 0 {
		return nil
	}

	return huh.NewForm(huh.NewGroup(fields...)).
		WithTheme(huh.ThemeCatppuccin()).
		Run()
}

// Confirm asks a yes/no question and reports the answer.
func Confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return ok, err
}
