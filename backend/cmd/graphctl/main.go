package main

import (
	"fmt"
	"os"

	"podgraph/backend/internal/graph"
	"podgraph/backend/internal/transport"
	"podgraph/backend/pkg/config"
	"podgraph/backend/pkg/logger"
)

func main() {
	root := newRootCmd(fromEnvironment)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// fromEnvironment builds the repository from .env / environment variables
func fromEnvironment(verbose bool) (*graph.Repository, graph.User, error) {
	if err := logger.InitCLI(verbose); err != nil {
		return nil, graph.User{}, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return nil, graph.User{}, err
	}

	proxy := transport.Direct
	if cfg.ProxyURL != "" {
		proxy = transport.QueryProxy(cfg.ProxyURL)
	}
	client := transport.New(transport.Options{
		Proxy:         proxy,
		Timeout:       cfg.FetchTimeout,
		SessionCookie: cfg.SessionCookie,
		Logger:        log,
	})

	user := graph.User{WebID: cfg.WebID, Storage: cfg.Storage}
	repo := graph.NewRepository(client,
		graph.WithIdentity(graph.StaticIdentity{User: user}),
		graph.WithLogger(log),
		graph.WithMaxConcurrentFetches(cfg.MaxConcurrentFetches),
	)
	return repo, user, nil
}
