package advisor

import (
	"context"
	"time"

	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
	"github.com/andresvaldez/warehouse-backend/pkg/metrics"
)

// ConfidenceFallback marks proposals produced by the deterministic fallback.
const ConfidenceFallback = "fallback"

// Line is one product demand line inside an optimization request.
type Line struct {
	ProductID    string         `json:"product_id"`
	RequestedQty int            `json:"requested_quantity"`
	Priority     enums.Priority `json:"priority"`
}

// StockSnapshot is the warehouse availability context given to the optimizer.
type StockSnapshot struct {
	ProductID      string `json:"product_id"`
	AvailableStock int    `json:"available_stock"`
}

// Input is the advisory optimization request: a fulfillment request plus a
// context snapshot taken at processing time.
type Input struct {
	RequestID string          `json:"request_id"`
	StoreID   string          `json:"store_id"`
	Lines     []Line          `json:"lines"`
	Stock     []StockSnapshot `json:"stock"`
}

// Proposal is the optimizer's advisory answer. PrimaryQuantities maps
// product_id to a possibly adjusted ship quantity; AdditionalItems are
// complementary lines the optimizer suggests adding.
type Proposal struct {
	PrimaryQuantities map[string]int `json:"primary_quantities"`
	AdditionalItems   []Line         `json:"additional_items"`
	Confidence        string         `json:"confidence"`
}

// Optimizer is the pluggable advisory optimization function.
type Optimizer interface {
	Optimize(ctx context.Context, input Input) (*Proposal, error)
}

// Service wraps an Optimizer with a bounded timeout and a deterministic
// fallback. Propose never fails: any optimizer error, timeout, or malformed
// answer degrades to "ship exactly what was requested".
type Service struct {
	optimizer Optimizer
	timeout   time.Duration
	logg      *logger.Logger
	pipeline  *metrics.PipelineMetrics
}

// NewService builds the advisory wrapper. A nil optimizer always falls back.
func NewService(optimizer Optimizer, timeout time.Duration, logg *logger.Logger, pipeline *metrics.PipelineMetrics) *Service {
	return &Service{
		optimizer: optimizer,
		timeout:   timeout,
		logg:      logg,
		pipeline:  pipeline,
	}
}

// Propose runs the optimizer within the configured timeout.
func (s *Service) Propose(ctx context.Context, input Input) *Proposal {
	if s.optimizer == nil {
		return Fallback(input)
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	proposal, err := s.optimizer.Optimize(callCtx, input)
	if err != nil || !valid(proposal, input) {
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "advisory optimization failed, using fallback")
		} else {
			s.logg.Warn(ctx, "advisory optimization returned a malformed proposal, using fallback")
		}
		s.pipeline.IncAdvisorFallback()
		return Fallback(input)
	}
	return proposal
}

// Fallback is the deterministic proposal: ship exactly the requested
// quantities, no additions.
func Fallback(input Input) *Proposal {
	quantities := make(map[string]int, len(input.Lines))
	for _, line := range input.Lines {
		quantities[line.ProductID] = line.RequestedQty
	}
	return &Proposal{
		PrimaryQuantities: quantities,
		Confidence:        ConfidenceFallback,
	}
}

// valid rejects proposals that omit lines or carry non-positive quantities;
// such answers are advisory noise, not actionable plans.
func valid(proposal *Proposal, input Input) bool {
	if proposal == nil || proposal.Confidence == "" {
		return false
	}
	for _, line := range input.Lines {
		qty, ok := proposal.PrimaryQuantities[line.ProductID]
		if !ok || qty <= 0 {
			return false
		}
	}
	for _, added := range proposal.AdditionalItems {
		if added.ProductID == "" || added.RequestedQty <= 0 {
			return false
		}
	}
	return true
}
