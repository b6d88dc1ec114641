package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/storefront-dev/storefront/internal/cli/identity"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var username, password, serverAlias string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a Storefront server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(username, password, serverAlias)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (or set STOREFRONT_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set STOREFRONT_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from storefront.json")

	return cmd
}

func runLogin(username, password, serverAlias string, opts ...Option) error {
	// Check for environment variables (useful for CI/CD)
	if username == "" {
		username = os.Getenv("STOREFRONT_USERNAME")
	}
	if password == "" {
		password = os.Getenv("STOREFRONT_PASSWORD")
	}

	if username == "" {
		return fmt.Errorf("username is required (use --username flag or STOREFRONT_USERNAME env var)")
	}

	d, err := resolveDeps(serverAlias, opts...)
	if err != nil {
		return err
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		if term.IsTerminal(int(syscall.Stdin)) {
			fmt.Print("Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(bytePassword)
			fmt.Println() // New line after password input
		} else {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or STOREFRONT_PASSWORD env var)")
		}
	}

	fmt.Printf("Signing in to %s (%s)...\n", d.server.Alias, d.server.URL)

	mgr := d.newSession()
	res := mgr.Login(context.Background(), identity.Credentials{
		Username: username,
		Password: password,
	})
	if !res.OK {
		return fmt.Errorf("login failed: %s", res.Error)
	}

	fmt.Println("✓ Login successful!")
	if user := mgr.Snapshot().User; user != nil {
		fmt.Printf("  Signed in as %s", user.Username())
		if email := user.Email(); email != "" {
			fmt.Printf(" (%s)", email)
		}
		fmt.Println()
	}

	return nil
}
