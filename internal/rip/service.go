// Package rip implements the Reidentification Prevention engine: a risk
// accounting gate between "query produced candidate records" and "records
// sent to the client". Each disclosure is charged against a depleting
// per-(user, individual, dataset) privacy budget, and identical repeated
// queries are answered from a write-once response history so they are never
// charged twice.
package rip

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"beacon/internal/rip/metrics"
	pkgerrors "beacon/pkg/errors"
)

// Service is the RIP decision gate. It orchestrates the risk model, the
// budget ledger, and the response history for one evaluation at a time, and
// is safe for concurrent use.
//
// Per-key ledger operations are atomic, but a multi-individual record's
// debits are not wrapped in a cross-key transaction: two concurrent requests
// over overlapping individuals may each observe sufficient budget and both
// proceed where a serial execution would have stopped the second. This is an
// accepted, bounded leakage tradeoff; failed records are compensated with
// per-individual credits instead of distributed locking.
type Service struct {
	ledger     BudgetLedger
	history    ResponseHistory
	population PopulationSizer

	logger  *slog.Logger
	metrics *metrics.Metrics

	maxRetries uint64
	retryBase  time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the Prometheus metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRetry bounds the ledger retry policy: at most maxRetries retries with
// exponential backoff starting at base.
func WithRetry(maxRetries uint64, base time.Duration) Option {
	return func(s *Service) {
		s.maxRetries = maxRetries
		if base > 0 {
			s.retryBase = base
		}
	}
}

// New constructs the decision gate with its storage dependencies.
func New(ledger BudgetLedger, history ResponseHistory, population PopulationSizer, opts ...Option) (*Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("budget ledger is required")
	}
	if history == nil {
		return nil, fmt.Errorf("response history is required")
	}
	if population == nil {
		return nil, fmt.Errorf("population sizer is required")
	}

	svc := &Service{
		ledger:     ledger,
		history:    history,
		population: population,
		logger:     slog.Default(),
		maxRetries: 3,
		retryBase:  50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Evaluate runs the eligibility state machine and, when the query is at
// risk, the per-record ledger protocol. The returned record list is the only
// disclosure: a record dropped here is indistinguishable from one that does
// not exist.
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (*EvaluateResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveEvaluateLatency(time.Since(start))
	}()

	// Eligibility short-circuits, first match wins.
	if req.DatasetOpen {
		s.metrics.IncrementDecision(string(DecisionBypassed))
		return &EvaluateResult{Decision: DecisionBypassed, Records: req.Records}, nil
	}
	if !req.Authenticated || req.UserID == "" {
		s.metrics.IncrementDecision(string(DecisionDeniedAnonymous))
		return &EvaluateResult{Decision: DecisionDeniedAnonymous, Records: nil}, nil
	}
	if !req.Targeted {
		s.metrics.IncrementDecision(string(DecisionDeniedNotTargeted))
		return &EvaluateResult{Decision: DecisionDeniedNotTargeted, Records: nil}, nil
	}
	s.metrics.IncrementDecision(string(DecisionEvaluated))

	// Idempotence: a repeated identical query never re-charges the budget.
	if cached, found := s.lookupHistory(ctx, req); found {
		s.metrics.IncrementCacheLookup("hit")
		return &EvaluateResult{Decision: DecisionEvaluated, Records: cached, CacheHit: true}, nil
	}
	s.metrics.IncrementCacheLookup("miss")

	n, err := s.population.Individuals(ctx, req.DatasetID)
	if err != nil {
		// Without N no cost can be computed; fail closed for the whole
		// dataset rather than disclose unpriced records.
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "population size unavailable")
	}

	kept := make([]CandidateRecord, 0, len(req.Records))
	dropped := 0
	for _, rec := range req.Records {
		// Cancellation is honored between records only; an in-flight
		// record always finishes its debit-or-rollback protocol.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		assessment, err := Assess(rec.AlleleFrequency, n)
		if err != nil {
			dropped++
			s.logger.DebugContext(ctx, "record excluded, cost not computable",
				"variant_id", rec.VariantInternalID,
				"dataset_id", req.DatasetID,
				"error", err,
			)
			continue
		}

		if s.debitRecord(ctx, req, rec, assessment.Cost) {
			kept = append(kept, rec)
		} else {
			dropped++
		}
	}

	s.metrics.AddRecords("kept", len(kept))
	s.metrics.AddRecords("dropped", dropped)

	s.storeHistory(ctx, req, kept)

	return &EvaluateResult{Decision: DecisionEvaluated, Records: kept, Dropped: dropped}, nil
}

// debitRecord charges the record's cost to every implicated individual,
// all-or-nothing. On the first refused debit the already-applied debits are
// credited back in order, leaving every budget at its pre-record value.
func (s *Service) debitRecord(ctx context.Context, req EvaluateRequest, rec CandidateRecord, cost float64) bool {
	individuals := rec.ImplicatedIndividuals()
	if len(individuals) == 0 {
		// Nobody is implicated, so there is nothing to charge.
		return true
	}

	// The record protocol must not be torn by cancellation: either all
	// debits commit or all committed ones are refunded.
	opCtx := context.WithoutCancel(ctx)

	for i, individualID := range individuals {
		ok, remaining, err := s.tryDebit(opCtx, req, individualID, cost)
		if err != nil {
			// Storage trouble after retries reads as insufficient budget,
			// never as granted.
			s.logger.WarnContext(ctx, "ledger debit failed, treating as insufficient budget",
				"individual_id", individualID,
				"dataset_id", req.DatasetID,
				"error", err,
			)
			ok = false
		}
		if !ok {
			s.metrics.IncrementBudgetDenial()
			s.logger.DebugContext(ctx, "record dropped, budget exhausted",
				"variant_id", rec.VariantInternalID,
				"individual_id", individualID,
				"dataset_id", req.DatasetID,
				"cost", cost,
				"remaining", remaining,
			)
			s.rollback(opCtx, req, individuals[:i], cost)
			return false
		}
	}
	return true
}

// rollback credits cost back to each individual that was already debited for
// the current record.
func (s *Service) rollback(ctx context.Context, req EvaluateRequest, debited []string, cost float64) {
	for _, individualID := range debited {
		err := backoff.Retry(func() error {
			return s.ledger.Credit(ctx, req.UserID, individualID, req.DatasetID, cost)
		}, s.retryPolicy())
		if err != nil {
			// The budget stays short, which deprives the user of future
			// disclosures rather than granting extra ones. Still worth an
			// operator's attention.
			s.metrics.IncrementRollbackFailure()
			s.logger.ErrorContext(ctx, "compensating credit failed, budget remains short",
				"user_id", req.UserID,
				"individual_id", individualID,
				"dataset_id", req.DatasetID,
				"amount", cost,
				"error", err,
			)
		}
	}
}

func (s *Service) tryDebit(ctx context.Context, req EvaluateRequest, individualID string, cost float64) (bool, float64, error) {
	var ok bool
	var remaining float64
	err := backoff.Retry(func() error {
		var err error
		ok, remaining, err = s.ledger.TryDebit(ctx, req.UserID, individualID, req.DatasetID, cost)
		return err
	}, s.retryPolicy())
	return ok, remaining, err
}

func (s *Service) retryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryBase
	return backoff.WithMaxRetries(b, s.maxRetries)
}

// lookupHistory consults the response cache. A lookup error is treated as a
// miss: re-charging the budget spends allowance the user already paid, which
// errs on the side of less disclosure, not more.
func (s *Service) lookupHistory(ctx context.Context, req EvaluateRequest) ([]CandidateRecord, bool) {
	cached, found, err := s.history.Lookup(ctx, req.UserID, req.Fingerprint, req.DatasetID)
	if err != nil {
		s.logger.WarnContext(ctx, "history lookup failed, treating as miss",
			"dataset_id", req.DatasetID,
			"error", err,
		)
		return nil, false
	}
	return cached, found
}

// storeHistory memoizes the final kept list, best effort. Losing a store
// race or hitting a storage error only costs idempotence of a later repeat,
// never correctness of this response.
func (s *Service) storeHistory(ctx context.Context, req EvaluateRequest, kept []CandidateRecord) {
	if err := s.history.Store(context.WithoutCancel(ctx), req.UserID, req.Fingerprint, req.DatasetID, kept); err != nil {
		s.logger.WarnContext(ctx, "history store failed",
			"dataset_id", req.DatasetID,
			"error", err,
		)
	}
}
