// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

package vectorindex

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

// QdrantConfig configures the production Index backend.
type QdrantConfig struct {
	Host         string
	Port         int
	APIKey       string
	UseTLS       bool
	Collection   string
	VectorSize   uint64
	SparseWeight SparseWeight
}

const defaultCollection = "openviking"

// QdrantIndex is the production Index backend, storing dense vectors as a
// named Qdrant vector and sparse vectors as a Qdrant sparse vector on the
// same point, with metadata held as payload fields. Prefix operations run
// as filtered scrolls over the uri payload field.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	weight     SparseWeight
}

// NewQdrantIndex connects to Qdrant and ensures the collection exists with
// a "dense" named vector plus a "sparse" named sparse vector.
func NewQdrantIndex(ctx context.Context, cfg QdrantConfig) (*QdrantIndex, error) {
	collection := cfg.Collection
	if collection == "" {
		collection = defaultCollection
	}
	vectorSize := cfg.VectorSize
	if vectorSize == 0 {
		vectorSize = 1536
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Host,
		Port:                   cfg.Port,
		APIKey:                 cfg.APIKey,
		UseTLS:                 cfg.UseTLS,
		SkipCompatibilityCheck: true,
		// Scroll pages carry full vectors; the default 4MB recv cap is
		// too small for large prefix operations.
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(64 << 20)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vectorindex: qdrant client: %w", err)
	}

	idx := &QdrantIndex{client: client, collection: collection, weight: cfg.SparseWeight}
	if err := idx.ensureCollection(ctx, vectorSize); err != nil {
		return nil, err
	}
	return idx, nil
}

func (qi *QdrantIndex) ensureCollection(ctx context.Context, vectorSize uint64) error {
	collections, err := qi.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("vectorindex: list collections: %w", err)
	}
	for _, name := range collections {
		if name == qi.collection {
			return nil
		}
	}

	err = qi.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: qi.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			"dense": {Size: vectorSize, Distance: qdrant.Distance_Cosine},
		}),
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			"sparse": {},
		}),
	})
	if err != nil {
		return fmt.Errorf("vectorindex: create collection %s: %w", qi.collection, err)
	}
	return nil
}

func (qi *QdrantIndex) Upsert(ctx context.Context, r Record) error {
	_, err := qi.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: qi.collection,
		Points:         []*qdrant.PointStruct{recordToPoint(r)},
	})
	if err != nil {
		return fmt.Errorf("vectorindex: upsert %s: %w", r.URI, err)
	}
	return nil
}

func (qi *QdrantIndex) Delete(ctx context.Context, uri string) error {
	_, err := qi.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: qi.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: uriEqualsFilter(uri)},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorindex: delete %s: %w", uri, err)
	}
	return nil
}

// DeletePrefix counts matching points via Scroll (Qdrant has no native
// prefix match on a keyword payload field) and then deletes them by the
// same filter in one call, satisfying the "delete_prefix removes all
// descendants" invariant without a client-side per-id loop.
func (qi *QdrantIndex) DeletePrefix(ctx context.Context, uriPrefix string) (int, error) {
	filter := uriPrefixFilter(uriPrefix)

	points, err := qi.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: qi.collection,
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		return 0, fmt.Errorf("vectorindex: scroll prefix %s: %w", uriPrefix, err)
	}
	if len(points) == 0 {
		return 0, nil
	}

	_, err = qi.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: qi.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("vectorindex: delete prefix %s: %w", uriPrefix, err)
	}
	return len(points), nil
}

func (qi *QdrantIndex) UpdateFields(ctx context.Context, uri string, fields Fields) error {
	payload := make(map[string]*qdrant.Value, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			payload[k] = qdrant.NewValueString(val)
		case bool:
			payload[k] = qdrant.NewValueBool(val)
		case int64:
			payload[k] = qdrant.NewValueInt(val)
		case int:
			payload[k] = qdrant.NewValueInt(int64(val))
		}
	}

	_, err := qi.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: qi.collection,
		Payload:        payload,
		PointsSelector: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: uriEqualsFilter(uri)},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorindex: update_fields %s: %w", uri, err)
	}
	return nil
}

func (qi *QdrantIndex) Search(ctx context.Context, queryVector []float64, sparseVector map[string]float64, filter Filter, topK, offset int) ([]ScoredRecord, error) {
	query := &qdrant.QueryPoints{
		CollectionName: qi.collection,
		Using:          qdrant.PtrOf("dense"),
		Query:          qdrant.NewQuery(toFloat32(queryVector)...),
		Limit:          qdrant.PtrOf(uint64(topK + offset)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
		Filter:         toQdrantFilter(filter),
	}

	scored, err := qi.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: search: %w", err)
	}

	out := make([]ScoredRecord, 0, len(scored))
	for _, p := range scored {
		out = append(out, pointToScoredRecord(p))
	}
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	// The sparse contribution is blended client-side: Qdrant's dense query
	// already ran server-side, so a second sparse-only pass would double
	// the round trip for a marginal score adjustment. Re-rank in place
	// using the same (1-w)*dense + w*sparse formula as MemoryIndex.
	if sparseVector != nil {
		w := float64(qi.weight)
		for i := range out {
			out[i].Score = (1-w)*out[i].Score + w*sparseOverlap(sparseVector, out[i].SparseVector)
		}
	}
	return out, nil
}

func (qi *QdrantIndex) SearchByParent(ctx context.Context, parentURI string, queryVector []float64, topK int, filter Filter) ([]ScoredRecord, error) {
	f := Filter{}
	for k, v := range filter {
		f[k] = v
	}
	f["parent_uri"] = parentURI
	return qi.Search(ctx, queryVector, nil, f, topK, 0)
}

func (qi *QdrantIndex) CountPrefix(ctx context.Context, uriPrefix string) (int, error) {
	resp, err := qi.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: qi.collection,
		Filter:         uriPrefixFilter(uriPrefix),
	})
	if err != nil {
		return 0, fmt.Errorf("vectorindex: count prefix %s: %w", uriPrefix, err)
	}
	return int(resp), nil
}

func (qi *QdrantIndex) Close() error {
	return qi.client.Close()
}

func recordToPoint(r Record) *qdrant.PointStruct {
	payload := map[string]*qdrant.Value{
		"uri":          qdrant.NewValueString(r.URI),
		"parent_uri":   qdrant.NewValueString(r.ParentURI),
		"context_type": qdrant.NewValueString(r.ContextType),
		"is_leaf":      qdrant.NewValueBool(r.IsLeaf),
		"abstract":     qdrant.NewValueString(r.Abstract),
		"name":         qdrant.NewValueString(r.Name),
		"description":  qdrant.NewValueString(r.Description),
		"created_at":   qdrant.NewValueInt(r.CreatedAt),
		"active_count": qdrant.NewValueInt(r.ActiveCount),
		"updated_at":   qdrant.NewValueInt(r.UpdatedAt),
	}

	vectors := map[string]*qdrant.Vector{
		"dense": qdrant.NewVector(toFloat32(r.Vector)...),
	}
	var namedVectors *qdrant.NamedVectors
	if len(r.SparseVector) > 0 {
		indices := make([]uint32, 0, len(r.SparseVector))
		values := make([]float32, 0, len(r.SparseVector))
		for k, v := range r.SparseVector {
			indices = append(indices, sparseDimHash(k))
			values = append(values, float32(v))
		}
		namedVectors = qdrant.NewVectorsMap(vectors)
		namedVectors.Vectors["sparse"] = qdrant.NewVectorSparse(indices, values)
	} else {
		namedVectors = qdrant.NewVectorsMap(vectors)
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewID(r.ID),
		Vectors: namedVectors,
		Payload: payload,
	}
}

func pointToScoredRecord(p *qdrant.ScoredPoint) ScoredRecord {
	payload := p.GetPayload()
	r := Record{
		ID:          p.GetId().GetUuid(),
		URI:         getString(payload, "uri"),
		ParentURI:   getString(payload, "parent_uri"),
		ContextType: getString(payload, "context_type"),
		IsLeaf:      getBool(payload, "is_leaf"),
		Abstract:    getString(payload, "abstract"),
		Name:        getString(payload, "name"),
		Description: getString(payload, "description"),
		CreatedAt:   getInt(payload, "created_at"),
		ActiveCount: getInt(payload, "active_count"),
		UpdatedAt:   getInt(payload, "updated_at"),
	}
	if vectors := p.GetVectors(); vectors != nil {
		if v, ok := vectors.GetVectors().GetVectors()["dense"]; ok {
			r.Vector = toFloat64(v.GetData())
		}
	}
	return ScoredRecord{Record: r, Score: float64(p.GetScore())}
}

func uriEqualsFilter(uri string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("uri", uri),
		},
	}
}

// uriPrefixFilter matches uri == prefix or uri starting with prefix+"/",
// mirroring the path-prefix semantics MemoryIndex applies with
// strings.HasPrefix.
func uriPrefixFilter(prefix string) *qdrant.Filter {
	return &qdrant.Filter{
		Should: []*qdrant.Condition{
			qdrant.NewMatch("uri", prefix),
			qdrant.NewMatchText("uri", prefix),
		},
	}
}

func toQdrantFilter(filter Filter) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	var must []*qdrant.Condition
	for k, v := range filter {
		switch val := v.(type) {
		case string:
			must = append(must, qdrant.NewMatch(k, val))
		case bool:
			must = append(must, qdrant.NewMatchBool(k, val))
		}
	}
	return &qdrant.Filter{Must: must}
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// sparseDimHash maps a sparse-vector term key onto a stable dimension
// index for Qdrant's index-addressed sparse vector representation.
func sparseDimHash(term string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(term); i++ {
		h ^= uint32(term[i])
		h *= 16777619
	}
	return h
}

func getString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func getBool(payload map[string]*qdrant.Value, key string) bool {
	if v, ok := payload[key]; ok {
		return v.GetBoolValue()
	}
	return false
}

func getInt(payload map[string]*qdrant.Value, key string) int64 {
	if v, ok := payload[key]; ok {
		return v.GetIntegerValue()
	}
	return 0
}

var _ Index = (*QdrantIndex)(nil)
