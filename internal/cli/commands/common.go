package commands

import (
	"fmt"

	"github.com/storefront-dev/storefront/internal/cli/config"
	"github.com/storefront-dev/storefront/internal/cli/credstore"
	"github.com/storefront-dev/storefront/internal/cli/identity"
	"github.com/storefront-dev/storefront/internal/cli/serverselect"
	"github.com/storefront-dev/storefront/internal/cli/session"
)

// deps holds the collaborators a command needs. Production fills them from
// config, the keyring, and the real identity client; tests inject stubs.
type deps struct {
	server *config.Server
	api    session.API
	store  credstore.Store
}

// Option overrides one dependency, used by tests
type Option func(*deps)

// WithAPIClient injects an identity service client
func WithAPIClient(api session.API) Option {
	return func(d *deps) { d.api = api }
}

// WithTokenStore injects a credential store
func WithTokenStore(store credstore.Store) Option {
	return func(d *deps) { d.store = store }
}

// WithServer injects a server, bypassing config loading and selection
func WithServer(server *config.Server) Option {
	return func(d *deps) { d.server = server }
}

// resolveDeps applies options and fills in production defaults for anything
// not injected.
func resolveDeps(serverAlias string, opts ...Option) (*deps, error) {
	d := &deps{}
	for _, opt := range opts {
		opt(d)
	}

	if d.server == nil {
		cfg, err := config.LoadFromCurrentDir()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w\nRun 'storefront init' to create a configuration file", err)
		}

		server, err := serverselect.ResolveServer(cfg, serverAlias)
		if err != nil {
			return nil, err
		}

		if server.URL == "" {
			return nil, fmt.Errorf("server URL is empty. Please edit storefront.json and add a valid server URL")
		}
		d.server = server
	}

	if d.api == nil {
		d.api = identity.New(d.server.URL)
	}

	if d.store == nil {
		d.store = credstore.NewKeyring(d.server.Host())
	}

	return d, nil
}

// newSession builds a session manager over the resolved dependencies
func (d *deps) newSession() *session.Manager {
	return session.NewManager(d.api, d.store)
}
