// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/fuma/internal/api"
	"github.com/starford/fuma/internal/bruno"
	"github.com/starford/fuma/internal/bundler"
	"github.com/starford/fuma/internal/compiler"
	"github.com/starford/fuma/internal/docservice"
	"github.com/starford/fuma/internal/mcpserver"
	"github.com/starford/fuma/internal/rules"
	"github.com/starford/fuma/internal/sse"
	"github.com/starford/fuma/internal/storage"
)

// BuildRequest describes one build invocation.
type BuildRequest struct {
	// Path is the collection directory or file, relative to the working directory.
	Path       string
	RestClient string
	Watch      bool
	// Out is the output file; empty prints to the configured output.
	Out string
}

func (a *application) init() (*slog.Logger, error) {
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if a.apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(a.logOut, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger, nil
}

func (a *application) newBundler(root string, logger *slog.Logger) *bundler.Bundler {
	cfg := a.config.Collection
	return bundler.New(bundler.Options{
		Root:       root,
		Extensions: cfg.Extensions,
		Sort:       cfg.Sort,
		PruneEmpty: cfg.PruneEmpty,
		Decode:     bruno.Decode,
	}, logger)
}

func (a *application) newService(root string, logger *slog.Logger) (*docservice.Service, *storage.FS, error) {
	cfg := a.config

	store, err := storage.NewFS(root, cfg.Docs.Extensions...)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	reg := rules.New()
	for _, id := range cfg.Compiler.Components {
		if err := reg.Register(id, rules.Default()); err != nil {
			return nil, nil, fmt.Errorf("register component: %w", err)
		}
	}
	c := compiler.New(
		compiler.WithRegistry(reg),
		compiler.WithFrontmatterPolicy(cfg.Compiler.Frontmatter),
		compiler.WithLogger(logger),
	)

	svc := docservice.NewService(store, c, compiler.Allow(cfg.Compiler.Components...), reg, a.newBundler(root, logger))
	return svc, store, nil
}

// Build bundles a collection and prints it as JSON. With req.Watch it
// rebundles after every change until ctx is cancelled.
func Build(ctx context.Context, req BuildRequest, opts ...Option) error {
	app := newApplication(opts)
	logger, err := app.init()
	if err != nil {
		return err
	}

	switch req.RestClient {
	case RestClientBruno:
	case RestClientPanda, RestClientYaak:
		logger.Info("REST client not supported yet", slog.String("rest_client", req.RestClient))
		return nil
	default:
		return fmt.Errorf("unknown rest client %q", req.RestClient)
	}

	root, err := filepath.Abs(req.Path)
	if err != nil {
		return fmt.Errorf("resolve collection path: %w", err)
	}
	b := app.newBundler(root, logger)

	logger.Info("Building collection",
		slog.String("root", root),
		slog.String("rest_client", req.RestClient),
		slog.Any("extensions", app.config.Collection.Extensions))

	if err := app.bundleTo(ctx, b, req.Out); err != nil {
		return err
	}
	if !req.Watch {
		return nil
	}

	base := root
	if info, statErr := os.Stat(root); statErr == nil && !info.IsDir() {
		base = filepath.Dir(root)
	}
	outAbs := ""
	if req.Out != "" {
		if outAbs, err = filepath.Abs(req.Out); err != nil {
			return fmt.Errorf("resolve output path: %w", err)
		}
	}
	err = bundler.Watch(ctx, root, logger, func(paths []string) {
		paths = slices.DeleteFunc(paths, func(p string) bool {
			return filepath.Join(base, filepath.FromSlash(p)) == outAbs
		})
		if len(paths) == 0 {
			return
		}
		logger.Info("Collection changed, rebuilding", slog.Any("paths", paths))
		if err := app.bundleTo(ctx, b, req.Out); err != nil && ctx.Err() == nil {
			logger.Error("rebuild failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("watch collection: %w", err)
	}
	return nil
}

func (a *application) bundleTo(ctx context.Context, b *bundler.Bundler, out string) error {
	entries, err := b.Bundle(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	data = append(data, '\n')

	if out == "" {
		_, err = a.stdout.Write(data)
		return err
	}
	dir, name := filepath.Split(out)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		return fmt.Errorf("open output dir: %w", err)
	}
	return store.Write(name, data)
}

// Serve starts the preview server for the documents under path.
func Serve(ctx context.Context, path string, opts ...Option) error {
	app := newApplication(opts)
	logger, err := app.init()
	if err != nil {
		return err
	}
	cfg := app.config

	root, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("root", root),
		slog.String("frontmatter_policy", string(cfg.Compiler.Frontmatter)),
		slog.Any("components", cfg.Compiler.Components),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, store, err := app.newService(root, logger)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(2*time.Second, sse.WithChecksum(func(ctx context.Context) (string, error) {
		col, err := svc.Collection(ctx)
		if err != nil {
			return "", err
		}
		return col.Checksum, nil
	}))
	defer broker.Close()

	r := newRouter(svc, app.apiKey, broker)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		return bundler.Watch(gCtx, root, logger, func(paths []string) {
			var other []string
			for _, p := range paths {
				if !store.IsDoc(p) {
					other = append(other, p)
					continue
				}
				kind := sse.Updated
				if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(p))); errors.Is(err, os.ErrNotExist) {
					kind = sse.Deleted
				}
				broker.PublishDocEvent(kind, p)
			}
			if len(other) > 0 {
				broker.PublishCollectionChange(other)
			}
		})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Shut down when the root context is cancelled.
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func newRouter(svc *docservice.Service, apiKey string, broker http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", health)
	r.Get("/health/ready", health)

	// Mount API routes under /api; the SSE endpoint shares the API auth.
	r.Mount("/api", api.NewRouter(svc, apiKey, broker))
	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// ServeMCP serves the MCP tools for the documents under path on stdin/stdout.
func ServeMCP(ctx context.Context, path string, opts ...Option) error {
	app := newApplication(opts)
	logger, err := app.init()
	if err != nil {
		return err
	}

	root, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	svc, _, err := app.newService(root, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting MCP server", slog.String("root", root))

	errCh := make(chan error, 1)
	go func() { errCh <- mcpserver.New(svc, app.version).ServeStdio() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
