package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"crawshaw.io/sqlite"
)

// LocalStore is the embedded backend: a single sqlite file holding one row per
// point, similarity computed in process. Suited to single-node deployments and
// tests; the contract is identical to the remote backend.
type LocalStore struct {
	path string

	// The sqlite handle is shared by the whole process; serialize access.
	mu   sync.Mutex
	conn *sqlite.Conn
}

func NewLocalStore(path string) *LocalStore {
	return &LocalStore{path: path}
}

func (s *LocalStore) Connect(ctx context.Context) error {
	conn, err := sqlite.OpenConn(s.path, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return fmt.Errorf("failed to open local index %s: %w", s.path, err)
	}
	s.conn = conn

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY
		);`,
		`CREATE TABLE IF NOT EXISTS points (
			collection TEXT NOT NULL,
			id INTEGER NOT NULL,
			embedding BLOB NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		);`,
	} {
		if err := s.exec(ddl); err != nil {
			s.conn.Close()
			s.conn = nil
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (s *LocalStore) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *LocalStore) exec(sql string) error {
	stmt, err := s.conn.Prepare(sql)
	if err != nil {
		return err
	}
	defer stmt.Reset()
	_, err = stmt.Step()
	return err
}

func (s *LocalStore) CreateCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(`SELECT 1 FROM collections WHERE name = ?;`)
	if err != nil {
		return fmt.Errorf("failed to prepare collection lookup: %w", err)
	}
	stmt.BindText(1, name)
	hasRow, err := stmt.Step()
	stmt.Reset()
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if hasRow {
		return ErrCollectionExists
	}

	stmt, err = s.conn.Prepare(`INSERT INTO collections (name) VALUES (?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare collection insert: %w", err)
	}
	defer stmt.Reset()
	stmt.BindText(1, name)
	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

func (s *LocalStore) AddPoints(ctx context.Context, collection string, ids []int64, embeddings [][]float32, payloads []map[string]interface{}) error {
	if err := validateBatch(ids, embeddings, payloads); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(`
		INSERT OR REPLACE INTO points (collection, id, embedding, payload)
		VALUES (?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare point upsert: %w", err)
	}
	defer stmt.Reset()

	for i, id := range ids {
		embeddingBytes, err := float32SliceToBytes(embeddings[i])
		if err != nil {
			return fmt.Errorf("failed to serialize embedding for point %d: %w", id, err)
		}
		payloadJSON, err := json.Marshal(payloads[i])
		if err != nil {
			return fmt.Errorf("failed to serialize payload for point %d: %w", id, err)
		}

		stmt.BindText(1, collection)
		stmt.BindInt64(2, id)
		stmt.BindBytes(3, embeddingBytes)
		stmt.BindText(4, string(payloadJSON))

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("failed to upsert point %d: %w", id, err)
		}
		if err := stmt.Reset(); err != nil {
			return fmt.Errorf("failed to reset upsert statement: %w", err)
		}
	}
	return nil
}

func (s *LocalStore) SemanticSearch(ctx context.Context, collection string, vector []float32, topK int) ([]Point, error) {
	points, err := s.loadCollection(collection)
	if err != nil {
		return nil, err
	}

	results := make([]Point, 0, len(points))
	for _, p := range points {
		similarity, err := cosineSimilarity(vector, p.embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to score point %d: %w", p.point.ID, err)
		}
		scored := p.point
		scored.Score = similarity
		results = append(results, scored)
	}

	// Highest similarity first
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

func (s *LocalStore) MetadataFilter(ctx context.Context, collection, key string, value interface{}) ([]Point, error) {
	points, err := s.loadCollection(collection)
	if err != nil {
		return nil, err
	}

	var results []Point
	for _, p := range points {
		if got, ok := p.point.Payload[key]; ok && matchValue(got, value) {
			results = append(results, p.point)
		}
	}
	return results, nil
}

type storedPoint struct {
	point     Point
	embedding []float32
}

func (s *LocalStore) loadCollection(collection string) ([]storedPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(`
		SELECT id, embedding, payload FROM points
		WHERE collection = ?
		ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare point select: %w", err)
	}
	defer stmt.Reset()
	stmt.BindText(1, collection)

	var points []storedPoint
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, fmt.Errorf("failed to read points: %w", err)
		}
		if !hasRow {
			break
		}

		id := stmt.ColumnInt64(0)

		embeddingBytes := make([]byte, stmt.ColumnLen(1))
		stmt.ColumnBytes(1, embeddingBytes)
		embedding, err := bytesToFloat32Slice(embeddingBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to decode embedding for point %d: %w", id, err)
		}

		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(stmt.ColumnText(2)), &payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload for point %d: %w", id, err)
		}

		points = append(points, storedPoint{
			point:     Point{ID: id, Payload: payload},
			embedding: embedding,
		})
	}
	return points, nil
}

// matchValue compares a decoded payload value against the filter value.
// JSON round-tripping turns integers into float64, so numeric types compare
// by value.
func matchValue(got, want interface{}) bool {
	gotNum, gotIsNum := toFloat64(got)
	wantNum, wantIsNum := toFloat64(want)
	if gotIsNum && wantIsNum {
		return gotNum == wantNum
	}
	return got == want
}

func toFloat64(v interface{}) (float64, bool) {
	switch value := v.(type) {
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case float64:
		return value, true
	default:
		return 0, false
	}
}
