package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/mrmushfiq/llm0-observability-gateway/internal/gateway/cache"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/gateway/deferred"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/gateway/prompt"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/gateway/providers"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/shared/credential"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/shared/metrics"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/shared/models"
)

// RecordStore persists request and response records
type RecordStore interface {
	InsertRequest(ctx context.Context, rec *models.RequestRecord) (string, error)
	InsertResponse(ctx context.Context, rec *models.ResponseRecord) (string, error)
}

// Scheduler runs work after the response has been returned
type Scheduler interface {
	Go(name string, task deferred.Task) bool
}

// ResponseCache is the optional exact-match response cache
type ResponseCache interface {
	Get(ctx context.Context, key string) (*cache.Entry, bool, error)
	Set(ctx context.Context, key string, entry *cache.Entry, ttl time.Duration) error
}

// BodyFormatter rewrites a request body before it is forwarded
type BodyFormatter interface {
	Format(body []byte) ([]byte, error)
}

// Upstream forwards a call to the provider
type Upstream interface {
	TargetURL(in *url.URL) string
	Forward(ctx context.Context, method string, in *url.URL, header http.Header, body []byte) (*providers.Result, error)
}

// msgNoAuthorization is the rejection body for calls without a credential
const msgNoAuthorization = "No authorization header found!"

// GatewayConfig holds the gateway's collaborators
type GatewayConfig struct {
	Upstream  Upstream
	Store     RecordStore
	Tasks     Scheduler
	Cache     ResponseCache // nil disables caching
	Formatter BodyFormatter // nil disables prompt formatting

	// PersistTimeout bounds the inline request insert. Default: 10 seconds
	PersistTimeout time.Duration
}

// Gateway forwards calls to the provider and records them
type Gateway struct {
	upstream       Upstream
	store          RecordStore
	tasks          Scheduler
	cache          ResponseCache
	formatter      BodyFormatter
	persistTimeout time.Duration
	logger         *slog.Logger
}

func NewGateway(cfg GatewayConfig) *Gateway {
	timeout := cfg.PersistTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{
		upstream:       cfg.Upstream,
		store:          cfg.Store,
		tasks:          cfg.Tasks,
		cache:          cfg.Cache,
		formatter:      cfg.Formatter,
		persistTimeout: timeout,
		logger:         slog.Default().With("component", "gateway"),
	}
}

// ServeHTTP handles any proxied provider call
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	auth := r.Header.Get(HeaderAuthorization)
	if auth == "" {
		metrics.GatewayRequests.WithLabelValues("rejected").Inc()
		http.Error(w, msgNoAuthorization, http.StatusUnauthorized)
		return
	}

	settings, err := cache.ResolveSettings(r.Header)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("rejected").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("rejected").Inc()
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if r.Header.Get(prompt.HeaderPromptFormat) != "" && g.formatter != nil {
		formatted, err := g.formatter.Format(body)
		if err != nil {
			g.logger.Warn("prompt formatting skipped", "path", r.URL.Path, "error", err)
		} else {
			body = formatted
		}
	}

	digest := credential.Digest(auth)
	target := g.upstream.TargetURL(r.URL)
	rec := &models.RequestRecord{
		ID:               requestID(r.Header),
		Path:             target,
		Body:             models.JSONBody(body),
		CredentialDigest: digest,
		UserID:           userID(r.Header),
		PromptID:         promptID(r.Header),
	}

	var cacheKey string
	if g.cache != nil && settings.Enabled() {
		cacheKey = cache.Key(digest, r.Method, target, body)
	}
	var cached *cache.Entry
	if cacheKey != "" && settings.ShouldReadFromCache {
		cached = g.lookupCache(ctx, cacheKey)
	}

	var (
		wg     sync.WaitGroup
		result *providers.Result
		fwdErr error
		id     string
		insErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if cached != nil {
			result = &providers.Result{Status: cached.Status, Header: cached.Header.Clone(), Body: cached.Body}
			return
		}
		result, fwdErr = g.upstream.Forward(ctx, r.Method, r.URL, r.Header, body)
	}()
	go func() {
		defer wg.Done()
		id, insErr = g.insertRequest(ctx, rec)
	}()
	wg.Wait()

	if insErr != nil {
		metrics.PersistFailures.WithLabelValues("request").Inc()
		g.logger.Error("request record insert failed", "path", target, "error", insErr)
	}

	if fwdErr != nil {
		metrics.GatewayRequests.WithLabelValues(outcome(insErr)).Inc()
		g.logger.Error("upstream call failed", "path", target, "error", fwdErr)
		setDiagnostics(w.Header(), id, insErr)
		http.Error(w, fwdErr.Error(), http.StatusBadGateway)
		return
	}

	if cached == nil {
		metrics.UpstreamLatency.Observe(result.Latency.Seconds())
		metrics.UpstreamStatus.WithLabelValues(metrics.StatusClass(result.Status)).Inc()
		recordUsage(result.Body)
	}

	if insErr == nil {
		g.scheduleResponse(id, result)
	}
	if cacheKey != "" && cached == nil && settings.ShouldSaveToCache && isSuccess(result.Status) {
		g.scheduleCacheSave(cacheKey, result, settings.MaxAge())
	}

	header := w.Header()
	for k, vv := range result.Header {
		header[k] = append([]string(nil), vv...)
	}
	setDiagnostics(header, id, insErr)
	if cacheKey != "" && settings.ShouldReadFromCache {
		if cached != nil {
			header.Set(HeaderCache, "HIT")
		} else {
			header.Set(HeaderCache, "MISS")
		}
	}
	header.Set("Content-Length", strconv.Itoa(len(result.Body)))

	metrics.GatewayRequests.WithLabelValues(outcome(insErr)).Inc()

	w.WriteHeader(result.Status)
	if _, err := w.Write(result.Body); err != nil {
		g.logger.Debug("client write failed", "path", target, "error", err)
	}
}

// insertRequest runs detached from client cancellation but bounded in time
func (g *Gateway) insertRequest(ctx context.Context, rec *models.RequestRecord) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.persistTimeout)
	defer cancel()
	return g.store.InsertRequest(ctx, rec)
}

func (g *Gateway) scheduleResponse(requestID string, result *providers.Result) {
	resp := &models.ResponseRecord{
		RequestID: requestID,
		Body:      models.JSONBody(result.Body),
		Status:    result.Status,
	}
	accepted := g.tasks.Go("insert-response", func(ctx context.Context) error {
		if _, err := g.store.InsertResponse(ctx, resp); err != nil {
			metrics.PersistFailures.WithLabelValues("response").Inc()
			return err
		}
		return nil
	})
	if !accepted {
		metrics.PersistFailures.WithLabelValues("response").Inc()
	}
}

func (g *Gateway) scheduleCacheSave(key string, result *providers.Result, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	entry := &cache.Entry{Status: result.Status, Header: result.Header.Clone(), Body: result.Body}
	g.tasks.Go("cache-save", func(ctx context.Context) error {
		if err := g.cache.Set(ctx, key, entry, ttl); err != nil {
			return fmt.Errorf("cache save: %w", err)
		}
		return nil
	})
}

func (g *Gateway) lookupCache(ctx context.Context, key string) *cache.Entry {
	entry, ok, err := g.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		g.logger.Warn("cache lookup failed", "error", err)
		return nil
	case !ok:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	default:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return entry
	}
}

func recordUsage(body []byte) {
	model, usage, ok := providers.ParseUsage(body)
	if !ok {
		return
	}
	metrics.TokensUsed.WithLabelValues(model, "prompt").Add(float64(usage.PromptTokens))
	metrics.TokensUsed.WithLabelValues(model, "completion").Add(float64(usage.CompletionTokens))
}

func outcome(insErr error) string {
	if insErr != nil {
		return StatusError
	}
	return StatusSuccess
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
