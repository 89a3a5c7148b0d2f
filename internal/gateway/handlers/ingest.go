package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mrmushfiq/llm0-observability-gateway/internal/shared/credential"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/shared/metrics"
	"github.com/mrmushfiq/llm0-observability-gateway/internal/shared/models"
	"github.com/mrmushfiq/llm0-observability-gateway/pkg/asynclog"
)

const maxIngestBody = 10 << 20

// IngestHandler accepts log records for calls made outside the gateway
type IngestHandler struct {
	store  RecordStore
	logger *slog.Logger
}

func NewIngestHandler(store RecordStore) *IngestHandler {
	return &IngestHandler{
		store:  store,
		logger: slog.Default().With("component", "ingest"),
	}
}

type ingestReply struct {
	ID string `json:"id"`
}

// HandleLog handles POST /{provider}/v1/log
func (h *IngestHandler) HandleLog(w http.ResponseWriter, r *http.Request) {
	provider := asynclog.Provider(chi.URLParam(r, "provider"))
	if !provider.Valid() {
		http.NotFound(w, r)
		return
	}

	auth := r.Header.Get(HeaderAuthorization)
	if auth == "" {
		http.Error(w, msgNoAuthorization, http.StatusUnauthorized)
		return
	}

	var rec asynclog.LogRecord
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBody)).Decode(&rec); err != nil {
		http.Error(w, "invalid log record: "+err.Error(), http.StatusBadRequest)
		return
	}

	meta := rec.ProviderRequest.Metadata
	req := &models.RequestRecord{
		ID:               models.Truncate(meta[asynclog.MetaRequestID], models.MaxAttributionLength),
		Path:             rec.ProviderRequest.URL,
		Body:             models.JSONBody(rec.ProviderRequest.Body),
		CredentialDigest: credential.Digest(auth),
		UserID:           models.OptionalHeader(meta[asynclog.MetaUserID]),
	}

	ctx := r.Context()
	id, err := h.store.InsertRequest(ctx, req)
	if err != nil {
		metrics.PersistFailures.WithLabelValues("request").Inc()
		h.logger.Error("ingest request insert failed", "provider", provider, "error", err)
		http.Error(w, "failed to store request record", http.StatusInternalServerError)
		return
	}

	resp := &models.ResponseRecord{
		RequestID: id,
		Body:      models.JSONBody(rec.ProviderResponse.Body),
		Status:    rec.ProviderResponse.StatusCode,
	}
	if _, err := h.store.InsertResponse(ctx, resp); err != nil {
		metrics.PersistFailures.WithLabelValues("response").Inc()
		h.logger.Error("ingest response insert failed", "provider", provider, "id", id, "error", err)
		http.Error(w, "failed to store response record", http.StatusInternalServerError)
		return
	}

	metrics.IngestedLogs.WithLabelValues(string(provider)).Inc()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ingestReply{ID: id})
}
