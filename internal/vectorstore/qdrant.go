package vectorstore

import (
	"context"
	"fmt"

	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"syara/config"
)

// QdrantStore is the remote backend, talking to qdrant over gRPC. Points are
// keyed by the numeric car id so re-ingestion overwrites instead of
// duplicating.
type QdrantStore struct {
	cfg  config.VectorConfig
	conn *grpc.ClientConn
}

func NewQdrantStore(cfg config.VectorConfig) *QdrantStore {
	return &QdrantStore{cfg: cfg}
}

func (q *QdrantStore) Connect(ctx context.Context) error {
	url := q.cfg.QdrantHost + ":" + q.cfg.QdrantPort
	conn, err := grpc.Dial(url, grpc.WithInsecure())
	if err != nil {
		return fmt.Errorf("failed to connect to qdrant at %s: %w", url, err)
	}
	q.conn = conn
	return nil
}

func (q *QdrantStore) Disconnect() error {
	if q.conn == nil {
		return nil
	}
	err := q.conn.Close()
	q.conn = nil
	return err
}

func (q *QdrantStore) CreateCollection(ctx context.Context, name string) error {
	collectionsClient := qdrant.NewCollectionsClient(q.conn)

	_, err := collectionsClient.Get(ctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: name,
	})
	if err == nil {
		return ErrCollectionExists
	}
	if st, ok := status.FromError(err); !ok || st.Code() != codes.NotFound {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}

	_, err = collectionsClient.Create(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(q.cfg.EmbeddingSize),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

func (q *QdrantStore) AddPoints(ctx context.Context, collection string, ids []int64, embeddings [][]float32, payloads []map[string]interface{}) error {
	if err := validateBatch(ids, embeddings, payloads); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(ids))
	for i, id := range ids {
		payload := make(map[string]*qdrant.Value, len(payloads[i]))
		for k, v := range payloads[i] {
			value, err := toQdrantValue(v)
			if err != nil {
				return fmt.Errorf("payload key %q of point %d: %w", k, id, err)
			}
			payload[k] = value
		}
		points = append(points, &qdrant.PointStruct{
			Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Num{Num: uint64(id)}},
			Payload: payload,
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: embeddings[i]}}},
		})
	}

	wait := true
	pointsClient := qdrant.NewPointsClient(q.conn)
	_, err := pointsClient.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

func (q *QdrantStore) SemanticSearch(ctx context.Context, collection string, vector []float32, topK int) ([]Point, error) {
	pointsClient := qdrant.NewPointsClient(q.conn)
	resp, err := pointsClient.Search(ctx, &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", collection, err)
	}

	results := make([]Point, 0, len(resp.Result))
	for _, scored := range resp.Result {
		results = append(results, Point{
			ID:      int64(scored.Id.GetNum()),
			Score:   float64(scored.Score),
			Payload: fromQdrantPayload(scored.Payload),
		})
	}
	return results, nil
}

func (q *QdrantStore) MetadataFilter(ctx context.Context, collection, key string, value interface{}) ([]Point, error) {
	match, err := toQdrantMatch(value)
	if err != nil {
		return nil, fmt.Errorf("filter on %q: %w", key, err)
	}

	limit := uint32(100)
	pointsClient := qdrant.NewPointsClient(q.conn)
	resp, err := pointsClient.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				{
					ConditionOneOf: &qdrant.Condition_Field{
						Field: &qdrant.FieldCondition{
							Key:   key,
							Match: match,
						},
					},
				},
			},
		},
		Limit: &limit,
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter collection %s: %w", collection, err)
	}

	results := make([]Point, 0, len(resp.Result))
	for _, retrieved := range resp.Result {
		results = append(results, Point{
			ID:      int64(retrieved.Id.GetNum()),
			Payload: fromQdrantPayload(retrieved.Payload),
		})
	}
	return results, nil
}

func toQdrantValue(v interface{}) (*qdrant.Value, error) {
	switch value := v.(type) {
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: value}}, nil
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(value)}}, nil
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: value}}, nil
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: value}}, nil
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: value}}, nil
	default:
		return nil, fmt.Errorf("unsupported payload type %T", v)
	}
}

func toQdrantMatch(v interface{}) (*qdrant.Match, error) {
	switch value := v.(type) {
	case string:
		return &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: value}}, nil
	case int:
		return &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: int64(value)}}, nil
	case int64:
		return &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: value}}, nil
	case bool:
		return &qdrant.Match{MatchValue: &qdrant.Match_Boolean{Boolean: value}}, nil
	default:
		return nil, fmt.Errorf("unsupported filter type %T", v)
	}
}

func fromQdrantPayload(payload map[string]*qdrant.Value) map[string]interface{} {
	result := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		switch kind := v.Kind.(type) {
		case *qdrant.Value_StringValue:
			result[k] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			result[k] = kind.IntegerValue
		case *qdrant.Value_DoubleValue:
			result[k] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			result[k] = kind.BoolValue
		}
	}
	return result
}
