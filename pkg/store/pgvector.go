package store

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/ragbot/internal/models"
)

var tableNamePattern = regexp.MustCompile(`[^a-z0-9_]`)

type PGVectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	Logger     *slog.Logger
}

// PGVectorStore keeps the index in a Postgres table with a pgvector
// column and an ivfflat cosine index.
type PGVectorStore struct {
	config      PGVectorConfig
	pool        *pgxpool.Pool
	table       string
	initialized atomic.Bool
	log         *slog.Logger
}

func NewPGVector(ctx context.Context, config PGVectorConfig) (*PGVectorStore, error) {
	if config.ConnString == "" {
		return nil, fmt.Errorf("database connection string is required")
	}
	if config.TableName == "" {
		config.TableName = "llmchatbot_index"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 384
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &PGVectorStore{
		config: config,
		pool:   pool,
		table:  tableNamePattern.ReplaceAllString(config.TableName, "_"),
		log:    config.Logger,
	}, nil
}

// Init enables the vector extension and creates the table and cosine
// index if they do not exist. Safe to call repeatedly.
func (vs *PGVectorStore) Init(ctx context.Context) error {
	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("%w: failed to create vector extension: %v", ErrStoreFailed, err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d)
		)`, vs.table, vs.config.VectorDim)

	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("%w: failed to create table: %v", ErrStoreFailed, err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.table, vs.table)

	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("%w: failed to create index: %v", ErrStoreFailed, err)
	}

	vs.initialized.Store(true)
	vs.log.Info("pgvector index ready", "table", vs.table, "dimension", vs.config.VectorDim)
	return nil
}

func (vs *PGVectorStore) Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if !vs.initialized.Load() {
		return ErrNotReady
	}
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	for _, v := range vectors {
		if len(v) != vs.config.VectorDim {
			return fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(v), vs.config.VectorDim)
		}
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", ErrStoreFailed, err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`,
		vs.table)

	for i, chunk := range chunks {
		_, err = tx.Exec(ctx, stmt,
			uuid.NewString(),
			chunk.Text,
			chunk.Metadata,
			pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("%w: failed to insert record: %v", ErrStoreFailed, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", ErrStoreFailed, err)
	}

	vs.log.Info("upserted records", "count", len(chunks), "table", vs.table)
	return nil
}

func (vs *PGVectorStore) Search(ctx context.Context, vector []float32, topK int) ([]models.SearchResult, error) {
	if !vs.initialized.Load() {
		return nil, ErrNotReady
	}
	if topK <= 0 {
		topK = 4
	}

	query := fmt.Sprintf(`
		SELECT content, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.table)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query records: %v", ErrStoreFailed, err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var (
			chunk models.Chunk
			score float64
		)
		if err := rows.Scan(&chunk.Text, &chunk.Metadata, &score); err != nil {
			return nil, fmt.Errorf("%w: failed to scan row: %v", ErrStoreFailed, err)
		}
		results = append(results, models.SearchResult{Chunk: chunk, Score: float32(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	return results, nil
}

func (vs *PGVectorStore) Close() error {
	if vs.pool != nil {
		vs.pool.Close()
	}
	return nil
}
