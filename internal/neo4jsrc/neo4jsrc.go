// Package neo4jsrc reads graph payloads straight from a Neo4j database over
// Bolt, bypassing the HTTP backend. Records are handed to the parser as
// driver values.
package neo4jsrc

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/msalah0e/kgx/internal/logger"
)

// AssociationQuery returns a node, its relationships and its neighbors.
const AssociationQuery = `MATCH (n) WHERE n.id = $node_id
OPTIONAL MATCH (n)-[r]-(m)
RETURN n, collect(DISTINCT r) AS relationships, collect(DISTINCT m) AS associatedNodes`

// Runner executes a Cypher query and buffers the result.
type Runner interface {
	Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
}

// Config holds connection settings.
type Config struct {
	URI      string
	User     string
	Password string
	Database string
}

// Executor runs queries through the driver's managed transactions.
type Executor struct {
	driver   neo4j.DriverWithContext
	database string
}

// Connect creates a driver and verifies connectivity.
func Connect(ctx context.Context, cfg Config) (*Executor, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j: URI is empty")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: creating driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: connecting to %s: %w", cfg.URI, err)
	}
	return &Executor{driver: driver, database: cfg.Database}, nil
}

func (e *Executor) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	res, err := neo4j.ExecuteQuery(ctx, e.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(e.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("neo4j: executing query: %w", err)
	}
	return res, nil
}

// Close releases the driver.
func (e *Executor) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

// Source serves explorer queries from a Runner. Query treats its text as
// Cypher; Associations runs AssociationQuery.
type Source struct {
	Runner Runner
	Log    *logger.Logger
}

func (s Source) Query(ctx context.Context, cypher string) (any, error) {
	return s.run(ctx, cypher, nil)
}

func (s Source) Associations(ctx context.Context, nodeID string) (any, error) {
	return s.run(ctx, AssociationQuery, map[string]any{"node_id": nodeID})
}

func (s Source) run(ctx context.Context, query string, params map[string]any) (any, error) {
	res, err := s.Runner.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	logger.OrNop(s.Log).Debug("neo4j query", "records", len(res.Records))
	return Payload(res), nil
}

// Payload shapes a result like the HTTP backend does: {"results": [row...]}
// with one map per record.
func Payload(res *neo4j.EagerResult) map[string]any {
	rows := make([]any, 0, len(res.Records))
	for _, rec := range res.Records {
		rows = append(rows, rec.AsMap())
	}
	return map[string]any{"results": rows}
}
