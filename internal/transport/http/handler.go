package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"beacon/internal/access"
	"beacon/internal/query"
	"beacon/internal/rip"
	"beacon/internal/variants"
	pkgerrors "beacon/pkg/errors"
	"beacon/pkg/platform/httputil"
	"beacon/pkg/requestcontext"
)

// Gate is the disclosure decision service behind the variant endpoint.
type Gate interface {
	Evaluate(ctx context.Context, req rip.EvaluateRequest) (*rip.EvaluateResult, error)
}

// Config carries the deployment identity and response policy.
type Config struct {
	BeaconID       string
	APIVersion     string
	MaxGranularity query.Granularity
}

// Handler serves the variant endpoint: parse, fingerprint, fan out per
// dataset through the disclosure gate, assemble the resultset response.
type Handler struct {
	gate     Gate
	source   variants.Source
	resolver access.Resolver
	cfg      Config
	logger   *slog.Logger
}

func NewHandler(gate Gate, source variants.Source, resolver access.Resolver, cfg Config, logger *slog.Logger) *Handler {
	return &Handler{
		gate:     gate,
		source:   source,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}
}

// Register mounts the variant endpoint. Both verbs carry the same
// semantics; GET encodes the query in the URL.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/g_variants", h.HandleGVariants)
	r.Get("/api/g_variants", h.HandleGVariants)
}

func (h *Handler) HandleGVariants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	params, err := query.Parse(r, query.Defaults(h.cfg.APIVersion, h.cfg.MaxGranularity))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	fingerprint, err := query.Fingerprint(params)
	if err != nil {
		h.logger.ErrorContext(ctx, "fingerprint derivation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	userID := requestcontext.UserID(ctx)
	targeted := params.Targeted()
	granularity := query.Lower(params.Query.RequestedGranularity, h.cfg.MaxGranularity)

	datasets, err := h.source.Datasets(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "dataset listing failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "list datasets"))
		return
	}

	// One gate evaluation per dataset, concurrently. A failed evaluation
	// blanks that dataset instead of failing the request: a withheld
	// resultset must look exactly like an empty one.
	results := make([]datasetResult, len(datasets))

	g, gctx := errgroup.WithContext(ctx)
	for i, datasetID := range datasets {
		i, datasetID := i, datasetID
		g.Go(func() error {
			results[i] = h.evaluateDataset(gctx, datasetID, params, fingerprint, userID, targeted)
			return nil
		})
	}
	_ = g.Wait()

	h.logger.InfoContext(ctx, "variant query served",
		"request_id", requestID,
		"user_id", userID,
		"targeted", targeted,
		"granularity", granularity,
		"datasets", len(datasets),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, buildResponse(h.cfg.BeaconID, params, granularity, results))
}

func (h *Handler) evaluateDataset(ctx context.Context, datasetID string, params query.RequestParams, fingerprint, userID string, targeted bool) datasetResult {
	blank := datasetResult{DatasetID: datasetID}
	requestID := requestcontext.RequestID(ctx)

	records, _, err := h.source.Find(ctx, datasetID, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "variant lookup failed, blanking dataset",
			"request_id", requestID,
			"dataset_id", datasetID,
			"error", err,
		)
		return blank
	}

	open, err := h.resolver.IsOpen(ctx, datasetID)
	if err != nil {
		h.logger.ErrorContext(ctx, "access resolution failed, blanking dataset",
			"request_id", requestID,
			"dataset_id", datasetID,
			"error", err,
		)
		return blank
	}

	res, err := h.gate.Evaluate(ctx, rip.EvaluateRequest{
		UserID:        userID,
		DatasetID:     datasetID,
		Fingerprint:   fingerprint,
		Records:       records,
		Authenticated: userID != "",
		DatasetOpen:   open,
		Targeted:      targeted,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "disclosure evaluation failed, blanking dataset",
			"request_id", requestID,
			"dataset_id", datasetID,
			"error", err,
		)
		return blank
	}

	return datasetResult{
		DatasetID: datasetID,
		Records:   res.Records,
		Count:     len(res.Records),
	}
}
