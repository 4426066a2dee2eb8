package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/msalah0e/kgx/internal/backend"
	"github.com/msalah0e/kgx/internal/cache"
	"github.com/msalah0e/kgx/internal/explorer"
	"github.com/msalah0e/kgx/internal/neo4jsrc"
)

func newClient() (*backend.Client, error) {
	return backend.New(backend.Options{
		BaseURL:   cfg.Backend.URL,
		Timeout:   cfg.Backend.Timeout.Duration,
		UseHybrid: cfg.Backend.UseHybrid,
		UseLLM:    cfg.Backend.UseLLM,
		Logger:    log,
	})
}

// newSource returns the configured graph source and a func releasing it.
func newSource(ctx context.Context) (explorer.Source, func(), error) {
	switch strings.ToLower(cfg.Backend.Source) {
	case "", "backend":
		c, err := newClient()
		if err != nil {
			return nil, nil, err
		}
		return backend.GraphSource{Client: c}, func() {}, nil
	case "neo4j":
		ex, err := neo4jsrc.Connect(ctx, cfg.Neo4jSource())
		if err != nil {
			return nil, nil, err
		}
		release := func() {
			if err := ex.Close(context.Background()); err != nil {
				log.Warn("closing neo4j driver", "error", err)
			}
		}
		return neo4jsrc.Source{Runner: ex, Log: log}, release, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q (want backend or neo4j)", cfg.Backend.Source)
	}
}

// cacheScope identifies the configured source in association cache keys.
func cacheScope() string {
	if strings.EqualFold(cfg.Backend.Source, "neo4j") {
		return "neo4j@" + cfg.Neo4j.URI + "/" + cfg.Neo4j.Database
	}
	return "backend@" + strings.TrimRight(cfg.Backend.URL, "/")
}

// newSession wires source, cache and layout into an exploration session.
// animate starts the simulation ticker for interactive use. The session owns
// the cache and closes it.
func newSession(ctx context.Context, animate bool) (*explorer.Session, func(), error) {
	src, releaseSrc, err := newSource(ctx)
	if err != nil {
		return nil, nil, err
	}
	c, err := cache.Open(ctx, cfg.CacheOptions())
	if err != nil {
		log.Warn("cache unavailable, continuing without", "backend", cfg.Cache.Backend, "error", err)
		c = nil
	}

	sess := explorer.NewSession(explorer.Options{
		Source:     src,
		Cache:      c,
		CacheTTL:   cfg.Cache.TTL.Duration,
		CacheScope: cacheScope(),
		Merge:      cfg.MergeOptions(),
		Layout:     cfg.LayoutParams(),
		Animate:    animate,
		Logger:     log,
	})
	release := func() {
		sess.Close()
		releaseSrc()
	}
	return sess, release, nil
}
