// Package di wires configuration, logging, storage and the library manager
// for the CLI.
package di

import (
	"io"
	"sync"

	"github.com/samber/do/v2"

	"community-library/config"
	"community-library/library"
	"community-library/logger"
	"community-library/storage"
)

// Options carries what the CLI knows before anything is built.
type Options struct {
	Overrides config.Overrides
	// LogWriter receives log output; nil means stderr.
	LogWriter io.Writer
}

// BackendHandle wraps the storage backend with shutdown capability.
type BackendHandle struct {
	storage.Backend
	once sync.Once
	err  error
}

// Shutdown implements do.Shutdownable. It is safe to call more than once.
func (h *BackendHandle) Shutdown() error {
	h.once.Do(func() { h.err = h.Close() })
	return h.err
}

// Container is the root injector plus the backend handle, once built.
type Container struct {
	injector *do.RootScope

	mu      sync.Mutex
	backend *BackendHandle
}

// NewContainer registers every provider. Nothing is built until invoked.
func NewContainer(opts Options) *Container {
	injector := do.New()
	c := &Container{injector: injector}

	do.Provide(injector, func(do.Injector) (*config.Config, error) {
		return config.Load(opts.Overrides)
	})
	do.Provide(injector, func(i do.Injector) (*logger.Logger, error) {
		return provideLogger(i, opts.LogWriter)
	})
	do.Provide(injector, func(i do.Injector) (*BackendHandle, error) {
		h, err := provideBackend(i)
		if err == nil {
			c.mu.Lock()
			c.backend = h
			c.mu.Unlock()
		}
		return h, err
	})
	do.Provide(injector, provideManager)

	return c
}

func provideLogger(i do.Injector, w io.Writer) (*logger.Logger, error) {
	cfg, err := do.Invoke[*config.Config](i)
	if err != nil {
		return nil, err
	}
	return logger.New(logger.Config{
		Writer:      w,
		Format:      cfg.Logger.Format,
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	}), nil
}

func provideBackend(i do.Injector) (*BackendHandle, error) {
	cfg, err := do.Invoke[*config.Config](i)
	if err != nil {
		return nil, err
	}
	log, err := do.Invoke[*logger.Logger](i)
	if err != nil {
		return nil, err
	}

	backend, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Location())
	if err != nil {
		return nil, err
	}
	log.Debug("storage opened", "backend", backend.Name(), "location", cfg.Storage.Location())
	return &BackendHandle{Backend: backend}, nil
}

func provideManager(i do.Injector) (*library.LibraryManager, error) {
	cfg, err := do.Invoke[*config.Config](i)
	if err != nil {
		return nil, err
	}
	log, err := do.Invoke[*logger.Logger](i)
	if err != nil {
		return nil, err
	}
	backend, err := do.Invoke[*BackendHandle](i)
	if err != nil {
		return nil, err
	}

	creds, err := library.CredentialsFor(cfg.Auth.PasswordScheme, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	mgr, err := library.NewLibraryManager(backend,
		library.WithLogger(log.Logger),
		library.WithPolicy(cfg.Policy.LibraryPolicy()),
		library.WithCredentials(creds),
	)
	if err != nil {
		return nil, err
	}
	if n := len(mgr.Warnings()); n > 0 {
		log.Warn("library loaded with warnings", "count", n)
	}
	return mgr, nil
}

// Manager builds everything needed for the library manager.
func (c *Container) Manager() (*library.LibraryManager, error) {
	return do.Invoke[*library.LibraryManager](c.injector)
}

// Logger returns the configured logger.
func (c *Container) Logger() (*logger.Logger, error) {
	return do.Invoke[*logger.Logger](c.injector)
}

// Close closes the storage backend if it was opened, then shuts the
// injector down.
func (c *Container) Close() error {
	c.mu.Lock()
	h := c.backend
	c.mu.Unlock()

	var err error
	if h != nil {
		err = h.Shutdown()
	}
	c.injector.Shutdown()
	return err
}
