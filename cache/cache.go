// Package cache - Reuses vision API responses for images that were already scored.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nvr-ai/vision-eval/vision"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Backend stores raw values with an expiry.
type Backend interface {
	// Get returns the value and true, or false when key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Predictor wraps a vision.Predictor and serves repeated uploads from a Backend.
//
// Entries are keyed by the endpoint and the MD5 of the uploaded bytes, so identical frames
// from different videos share one entry while different models never do. Only successful
// responses are stored. Backend failures are logged and fall through to the API.
type Predictor struct {
	next      vision.Predictor
	backend   Backend
	ttl       time.Duration
	namespace string
	log       logrus.FieldLogger

	mu     sync.Mutex
	hits   int
	misses int
}

// New creates a caching predictor.
//
// Arguments:
// - next: The predictor called on a miss.
// - backend: Where responses are kept.
// - endpoint: The model endpoint, part of every key.
// - ttl: Entry lifetime, zero keeps entries forever.
// - log: Logger, the standard logger when nil.
func New(next vision.Predictor, backend Backend, endpoint string, ttl time.Duration, log logrus.FieldLogger) *Predictor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	sum := md5.Sum([]byte(endpoint))
	return &Predictor{
		next:      next,
		backend:   backend,
		ttl:       ttl,
		namespace: "vision-eval:" + hex.EncodeToString(sum[:4]),
		log:       log,
	}
}

// Key returns the backend key of an upload.
func (p *Predictor) Key(jpeg []byte) string {
	sum := md5.Sum(jpeg)
	return p.namespace + ":" + hex.EncodeToString(sum[:])
}

// Predict returns the cached response for jpeg or asks the wrapped predictor.
func (p *Predictor) Predict(ctx context.Context, key string, jpeg []byte) (*vision.Response, error) {
	ck := p.Key(jpeg)
	log := p.log.WithFields(logrus.Fields{"key": key, "cacheKey": ck})

	data, ok, err := p.backend.Get(ctx, ck)
	if err != nil {
		log.WithError(err).Warn("cache read failed")
	}
	if ok {
		var resp vision.Response
		if err := json.Unmarshal(data, &resp); err == nil {
			p.count(true)
			log.Debug("cache hit")
			return &resp, nil
		}
		log.Warn("discarding undecodable cache entry")
	}
	p.count(false)

	resp, err := p.next.Predict(ctx, key, jpeg)
	if err != nil {
		return nil, err
	}

	if resp.OK() {
		data, err := json.Marshal(resp)
		if err != nil {
			return nil, errors.Wrap(err, "encode cache entry")
		}
		if err := p.backend.Set(ctx, ck, data, p.ttl); err != nil {
			log.WithError(err).Warn("cache write failed")
		}
	}

	return resp, nil
}

func (p *Predictor) count(hit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if hit {
		p.hits++
	} else {
		p.misses++
	}
}

// CollectMetrics reports hit and miss counts, so the predictor can feed a profiler.
func (p *Predictor) CollectMetrics() map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]float64{
		"cache_hits":   float64(p.hits),
		"cache_misses": float64(p.misses),
	}
}

// MemoryBackend is an in-process Backend, used when no Redis is configured.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get returns an unexpired entry.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value until ttl elapses.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}
