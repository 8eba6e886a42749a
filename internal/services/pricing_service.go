/**
 * @description
 * Pricing service: owns the single active Predictor of the process.
 * Loads it on first use, swaps it atomically on reload, and caches
 * predictions in Redis.
 *
 * @dependencies
 * - internal/pricing: request resolution, encoding and inference
 * - github.com/redis/go-redis/v9: prediction cache and reload channel
 *
 * @notes
 * - Readers never lock: the active predictor is published through an
 *   atomic pointer and never mutated after construction.
 * - Cache keys include a generation token minted on every load, so neither a
 *   new artifact nor a rebuilt catalog is answered from stale entries.
 * - A failed reload keeps the previous predictor serving.
 */

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yerevan-pricing/backend/internal/catalog"
	"github.com/yerevan-pricing/backend/internal/config"
	"github.com/yerevan-pricing/backend/internal/logger"
	"github.com/yerevan-pricing/backend/internal/pricing"
)

const (
	ModelReloadChannel = "model:reload"
	predictionKeyspace = "price:"
)

// ProductSource supplies menu metadata for the Reference Catalog.
type ProductSource interface {
	FetchProducts(ctx context.Context) ([]catalog.Product, error)
}

// ReloadMessage is published on ModelReloadChannel.
type ReloadMessage struct {
	Origin       string    `json:"origin"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	RunID        string    `json:"run_id,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
}

// ModelStatus describes the active predictor.
type ModelStatus struct {
	Loaded       bool      `json:"loaded"`
	ArtifactPath string    `json:"artifact_path"`
	ModelID      string    `json:"model_id,omitempty"`
	Kind         string    `json:"kind,omitempty"`
	Candidate    string    `json:"candidate,omitempty"`
	Encoding     string    `json:"encoding,omitempty"`
	Columns      int       `json:"columns,omitempty"`
	TrainedAt    time.Time `json:"trained_at,omitempty"`
	CatalogSize  int       `json:"catalog_size,omitempty"`
	Policy       string    `json:"unknown_product_policy"`
	LoadedAt     time.Time `json:"loaded_at,omitempty"`
}

type loadedPredictor struct {
	*pricing.Predictor
	// generation changes on every load, including catalog-only reloads
	generation string
	loadedAt   time.Time
}

type PricingService struct {
	Products     ProductSource
	Redis        *redis.Client
	ArtifactPath string
	Policy       string
	CacheTTL     time.Duration

	instanceID string
	current    atomic.Pointer[loadedPredictor]
	loadMu     sync.Mutex
}

func NewPricingService(products ProductSource, redis *redis.Client, cfg config.ModelConfig) *PricingService {
	return &PricingService{
		Products:     products,
		Redis:        redis,
		ArtifactPath: cfg.ArtifactPath,
		Policy:       cfg.UnknownProductPolicy,
		CacheTTL:     cfg.CacheTTL,
		instanceID:   uuid.NewString(),
	}
}

// EnsureLoaded returns the active predictor, loading it on first use.
// A missing artifact yields artifact.ErrModelUnavailable and is retried on
// the next call.
func (s *PricingService) EnsureLoaded(ctx context.Context) (*pricing.Predictor, error) {
	if p := s.current.Load(); p != nil {
		return p.Predictor, nil
	}
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if p := s.current.Load(); p != nil {
		return p.Predictor, nil
	}
	p, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.current.Store(p)
	return p.Predictor, nil
}

// Reload builds a fresh predictor from the artifact and catalog and swaps it
// in. On failure the previous predictor stays active.
func (s *PricingService) Reload(ctx context.Context) (*ModelStatus, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	p, err := s.load(ctx)
	if err != nil {
		logger.Error("PricingService: reload failed, keeping current model: %v", err)
		return nil, err
	}
	prev := s.current.Swap(p)
	if prev != nil {
		logger.Info("PricingService: model %s replaced by %s", prev.Artifact().ID, p.Artifact().ID)
	}
	status := s.Status()
	return &status, nil
}

func (s *PricingService) load(ctx context.Context) (*loadedPredictor, error) {
	var cat *catalog.Catalog
	if s.Products != nil {
		products, err := s.Products.FetchProducts(ctx)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		cat = catalog.Build(products)
		if names := cat.AmbiguousNames(); len(names) > 0 {
			logger.Warn("PricingService: %d ambiguous product names resolve to the first by name order", len(names))
		}
	}
	p, err := pricing.Open(s.ArtifactPath, cat, s.Policy)
	if err != nil {
		return nil, err
	}
	a := p.Artifact()
	logger.Info("PricingService: loaded %s model %s (%d columns, %d catalog products)",
		a.Candidate, a.ID, len(a.Columns), p.Catalog().Len())
	return &loadedPredictor{Predictor: p, generation: uuid.NewString(), loadedAt: time.Now().UTC()}, nil
}

// Predict serves a request, consulting the cache first.
func (s *PricingService) Predict(ctx context.Context, req pricing.Request) (*pricing.Response, error) {
	if _, err := s.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	p := s.current.Load()

	key := predictionKey(p.generation, req)
	if s.Redis != nil {
		val, err := s.Redis.Get(ctx, key).Result()
		if err == nil {
			var cached pricing.Response
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				cached.Drift.Log(cached.ProductName, cached.ModelID)
				return &cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			logger.Warn("PricingService: cache read failed: %v", err)
		}
	}

	resp, err := p.Predict(req)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil && s.CacheTTL > 0 {
		data, err := json.Marshal(resp)
		if err == nil {
			if err := s.Redis.Set(ctx, key, data, s.CacheTTL).Err(); err != nil {
				logger.Warn("PricingService: cache write failed: %v", err)
			}
		}
	}
	return resp, nil
}

// Status reports the active predictor without loading one.
func (s *PricingService) Status() ModelStatus {
	st := ModelStatus{ArtifactPath: s.ArtifactPath, Policy: s.Policy}
	p := s.current.Load()
	if p == nil {
		return st
	}
	a := p.Artifact()
	st.Loaded = true
	st.ModelID = a.ID
	st.Kind = a.Kind
	st.Candidate = a.Candidate
	st.Encoding = a.Encoding
	st.Columns = len(a.Columns)
	st.TrainedAt = a.CreatedAt
	st.CatalogSize = p.Catalog().Len()
	st.Policy = p.Policy()
	st.LoadedAt = p.loadedAt
	return st
}

// Catalog returns the active catalog, loading the predictor if needed.
func (s *PricingService) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	p, err := s.EnsureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return p.Catalog(), nil
}

// PublishReload asks every API instance to reload its model.
func PublishReload(ctx context.Context, rdb *redis.Client, origin, artifactPath, runID string) error {
	if rdb == nil {
		return nil
	}
	data, err := json.Marshal(ReloadMessage{
		Origin:       origin,
		ArtifactPath: artifactPath,
		RunID:        runID,
		PublishedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, ModelReloadChannel, data).Err()
}

// Broadcast publishes a reload request on behalf of this instance.
func (s *PricingService) Broadcast(ctx context.Context) error {
	return PublishReload(ctx, s.Redis, s.instanceID, s.ArtifactPath, "")
}

// WatchReloads reloads on every message of ModelReloadChannel until ctx is
// cancelled. Messages this instance published are ignored.
func (s *PricingService) WatchReloads(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	for {
		pubsub := s.Redis.Subscribe(ctx, ModelReloadChannel)
		ch := pubsub.Channel()
	receive:
		for {
			select {
			case <-ctx.Done():
				_ = pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break receive
				}
				s.handleReload(ctx, msg.Payload)
			}
		}
		_ = pubsub.Close()

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
			// avoid a tight loop if the Redis connection drops
		}
	}
}

func (s *PricingService) handleReload(ctx context.Context, payload string) {
	var m ReloadMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		logger.Warn("PricingService: bad reload message: %v", err)
		return
	}
	if m.Origin == s.instanceID {
		return
	}
	logger.Info("PricingService: reload requested by %s (run %s)", m.Origin, m.RunID)
	_, _ = s.Reload(ctx)
}

// predictionKey is stable for equal requests under one loaded generation.
func predictionKey(generation string, req pricing.Request) string {
	parts := []string{
		generation,
		strings.ToLower(strings.TrimSpace(req.ProductName)),
		strings.TrimSpace(req.Location),
		strings.TrimSpace(req.VenueType),
		strings.ToLower(strings.TrimSpace(req.PortionSize)),
		strings.TrimSpace(req.AgeGroup),
	}
	keys := make([]string, 0, len(req.Numeric))
	for k := range req.Numeric {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, req.Numeric[k]))
	}
	return predictionKeyspace + strings.Join(parts, "|")
}
