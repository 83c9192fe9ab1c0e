package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"podgraph/backend/internal/graph"
	"podgraph/backend/internal/rdf"
	"podgraph/backend/internal/transport"
	"podgraph/backend/internal/vocab"
	"podgraph/backend/pkg/config"
	"podgraph/backend/pkg/logger"
)

func main() {
	topics := flag.String("topics", "Reading list,Holiday photos,Project ideas", "Comma-separated titles of nodes to create around the profile")
	knows := flag.String("knows", "", "Comma-separated WebIDs to link with foaf:knows")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development", ""); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting pod seeding...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if !cfg.HasIdentity() || cfg.Storage == "" {
		log.Fatal("WEBID and STORAGE are required to seed a pod")
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
	)

	ctx := context.Background()

	// Social links first so the profile has neighbours even if node creation fails
	for _, friend := range splitList(*knows) {
		outcome, err := repo.WriteTriple(ctx, rdf.IRI(cfg.WebID), vocab.Knows, rdf.IRI(friend), false)
		if err != nil {
			log.Error("Failed to link friend", zap.String("webid", friend), zap.Error(err))
			continue
		}
		log.Info("Linked friend", zap.String("webid", friend), zap.String("outcome", outcome.String()))
	}

	created := 0
	for _, title := range splitList(*topics) {
		uri, err := repo.CreateNode(ctx, graph.NewNode{
			Actor:  user,
			Center: graph.Center{URI: cfg.WebID},
			Title:  title,
			Kind:   vocab.NodeKindDefault,
		})
		if err != nil {
			log.Error("Failed to create node", zap.String("title", title), zap.Error(err))
			continue
		}
		created++
		log.Info("Created node", zap.String("title", title), zap.String("uri", uri))
	}

	graphMap, err := repo.GetGraphMapAtIdentity(ctx)
	if err != nil {
		log.Fatal("Failed to read back the graph", zap.Error(err))
	}

	log.Info("Seeding completed",
		zap.Int("nodes_created", created),
		zap.Int("neighbours", len(graphMap)-1),
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
