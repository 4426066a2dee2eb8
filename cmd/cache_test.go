package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/msalah0e/kgx/internal/cache"
	"github.com/msalah0e/kgx/internal/config"
)

func TestCacheLocation(t *testing.T) {
	cfg = config.Default()
	assert.Equal(t, "in-process", cacheLocation())

	cfg.Cache.Backend = "disk"
	assert.Equal(t, filepath.Join(cache.Dir(), "assoc"), cacheLocation())
	cfg.Cache.Dir = "/tmp/kgx-assoc"
	assert.Equal(t, "/tmp/kgx-assoc", cacheLocation())

	cfg.Cache.Backend = "redis"
	cfg.Cache.RedisAddr = "localhost:6379"
	assert.Equal(t, "localhost:6379 db=0 prefix=kgx:", cacheLocation())

	cfg.Cache.Backend = "none"
	assert.Equal(t, "disabled", cacheLocation())
}

func TestCacheScope(t *testing.T) {
	cfg = config.Default()
	assert.Equal(t, "backend@http://localhost:8000", cacheScope())
	cfg.Backend.URL = "http://kg.internal:9000/"
	assert.Equal(t, "backend@http://kg.internal:9000", cacheScope())

	cfg.Backend.Source = "neo4j"
	assert.Equal(t, "neo4j@neo4j://localhost:7687/neo4j", cacheScope())
}
