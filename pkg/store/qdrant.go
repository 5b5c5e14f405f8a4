package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/xhad/ragbot/internal/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
	VectorDim  int
	Logger     *slog.Logger
}

// QdrantStore keeps the index in a remote Qdrant collection over gRPC.
type QdrantStore struct {
	config      QdrantConfig
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	points      pb.PointsClient
	initialized atomic.Bool
	log         *slog.Logger
}

func NewQdrant(config QdrantConfig) (*QdrantStore, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if config.Port == 0 {
		config.Port = 6334
	}
	if config.Collection == "" {
		config.Collection = "llmchatbot-index"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 384
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}

	return &QdrantStore{
		config:      config,
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
		log:         config.Logger,
	}, nil
}

func (qs *QdrantStore) withAuth(ctx context.Context) context.Context {
	if qs.config.APIKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", qs.config.APIKey)
}

// Init creates the collection with the configured dimension and
// cosine distance if it does not already exist. A concurrent
// "already exists" response is treated as success.
func (qs *QdrantStore) Init(ctx context.Context) error {
	ctx = qs.withAuth(ctx)

	resp, err := qs.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("%w: failed to list collections: %v", ErrStoreFailed, err)
	}

	exists := false
	for _, c := range resp.Collections {
		if c.Name == qs.config.Collection {
			exists = true
			break
		}
	}

	if !exists {
		_, err = qs.collections.Create(ctx, &pb.CreateCollection{
			CollectionName: qs.config.Collection,
			VectorsConfig: &pb.VectorsConfig{
				Config: &pb.VectorsConfig_Params{
					Params: &pb.VectorParams{
						Size:     uint64(qs.config.VectorDim),
						Distance: pb.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			if strings.Contains(err.Error(), "already exists") {
				qs.log.Warn("collection already exists despite initial check, proceeding",
					"collection", qs.config.Collection)
			} else {
				return fmt.Errorf("%w: failed to create collection: %v", ErrStoreFailed, err)
			}
		} else {
			qs.log.Info("created collection", "collection", qs.config.Collection,
				"dimension", qs.config.VectorDim)
		}
	}

	qs.initialized.Store(true)
	return nil
}

func (qs *QdrantStore) Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if !qs.initialized.Load() {
		return ErrNotReady
	}
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}

	points := make([]*pb.PointStruct, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) != qs.config.VectorDim {
			return fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(vectors[i]), qs.config.VectorDim)
		}

		payload := map[string]*pb.Value{
			"content": {Kind: &pb.Value_StringValue{StringValue: chunk.Text}},
		}
		for k, v := range chunk.Metadata {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}

		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: uuid.NewString()}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vectors[i]}}},
			Payload: payload,
		}
	}

	_, err := qs.points.Upsert(qs.withAuth(ctx), &pb.UpsertPoints{
		CollectionName: qs.config.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to upsert points: %v", ErrStoreFailed, err)
	}

	qs.log.Info("upserted records", "count", len(points), "collection", qs.config.Collection)
	return nil
}

func (qs *QdrantStore) Search(ctx context.Context, vector []float32, topK int) ([]models.SearchResult, error) {
	if !qs.initialized.Load() {
		return nil, ErrNotReady
	}
	if topK <= 0 {
		topK = 4
	}

	resp, err := qs.points.Search(qs.withAuth(ctx), &pb.SearchPoints{
		CollectionName: qs.config.Collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search points: %v", ErrStoreFailed, err)
	}

	results := make([]models.SearchResult, len(resp.Result))
	for i, pt := range resp.Result {
		chunk := models.Chunk{Metadata: make(map[string]string)}
		for k, v := range pt.Payload {
			if k == "content" {
				chunk.Text = v.GetStringValue()
			} else {
				chunk.Metadata[k] = v.GetStringValue()
			}
		}
		results[i] = models.SearchResult{Chunk: chunk, Score: pt.Score}
	}
	return results, nil
}

func (qs *QdrantStore) Close() error {
	return qs.conn.Close()
}
