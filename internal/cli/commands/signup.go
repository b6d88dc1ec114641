package commands

import (
	"context"
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/storefront-dev/storefront/internal/cli/identity"
)

// NewSignupCmd creates the signup command
func NewSignupCmd() *cobra.Command {
	var profile identity.Profile
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignup(profile, serverAlias)
		},
	}

	cmd.Flags().StringVar(&profile.Username, "username", "", "Username for the new account")
	cmd.Flags().StringVar(&profile.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&profile.Password, "password", "", "Password (will prompt if not provided)")
	cmd.Flags().StringVar(&profile.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&profile.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from storefront.json")

	return cmd
}

func runSignup(profile identity.Profile, serverAlias string, opts ...Option) error {
	if strings.TrimSpace(profile.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if strings.TrimSpace(profile.Email) == "" {
		return fmt.Errorf("email is required")
	}

	d, err := resolveDeps(serverAlias, opts...)
	if err != nil {
		return err
	}

	if profile.Password == "" {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag)")
		}
		fmt.Print("Password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		fmt.Print("Confirm password: ")
		byteConfirm, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		if string(bytePassword) != string(byteConfirm) {
			return fmt.Errorf("passwords do not match")
		}
		profile.Password = string(bytePassword)
	}

	if err := validateSignup(profile); err != nil {
		return err
	}

	fmt.Printf("Creating account on %s (%s)...\n", d.server.Alias, d.server.URL)

	mgr := d.newSession()
	res := mgr.Signup(context.Background(), profile)
	if !res.OK {
		return fmt.Errorf("signup failed: %s", res.Error)
	}

	fmt.Println("✓ Account created and signed in!")
	if user := mgr.Snapshot().User; user != nil {
		fmt.Printf("  Welcome, %s\n", user.DisplayName())
	}

	return nil
}

// validateSignup applies the client-side checks the server would reject
// anyway, to give a faster and friendlier message.
func validateSignup(profile identity.Profile) error {
	if len(profile.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	lowerUser := strings.ToLower(profile.Username)
	lowerPass := strings.ToLower(profile.Password)
	if strings.Contains(lowerPass, lowerUser) || strings.Contains(lowerUser, lowerPass) {
		return fmt.Errorf("password cannot be too similar to your username")
	}

	return nil
}
