package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the currently signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(serverAlias)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from storefront.json")

	return cmd
}

func runWhoami(serverAlias string, opts ...Option) error {
	d, err := resolveDeps(serverAlias, opts...)
	if err != nil {
		return err
	}

	// Restore the session from stored credentials, exactly as an app
	// would at startup. A rejected token leaves us anonymous.
	mgr := d.newSession()
	mgr.Bootstrap(context.Background())

	snap := mgr.Snapshot()
	if !snap.Authenticated() {
		return fmt.Errorf("not signed in. Run 'storefront login' first")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", snap.User.ID())
	fmt.Fprintf(w, "USERNAME\t%s\n", snap.User.Username())
	fmt.Fprintf(w, "EMAIL\t%s\n", snap.User.Email())
	fmt.Fprintf(w, "NAME\t%s\n", snap.User.DisplayName())
	w.Flush()

	return nil
}
