package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fixedassets/depflow/internal/common"
	"github.com/fixedassets/depflow/internal/model"
	"github.com/fixedassets/depflow/internal/service"
	"github.com/fixedassets/depflow/internal/tables"
)

// MemoryMatch is a nearest-neighbor hit from semantic memory.
type MemoryMatch struct {
	ClassName  string
	Similarity float64
}

// Memory is the semantic-memory capability the orchestrator composes.
type Memory interface {
	Nearest(ctx context.Context, embedding []float32) (MemoryMatch, bool, error)
	Store(ctx context.Context, description string, embedding []float32, className string, source model.ClassificationSource) error
}

// Thresholds tunes the orchestrator's decision points.
type Thresholds struct {
	// MemorySimilarity is the minimum cosine similarity for a memory hit.
	MemorySimilarity float64
	// LowConfidence marks results below it for manual review.
	LowConfidence float64
}

// DefaultThresholds returns the standard tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MemorySimilarity: 0.82,
		LowConfidence:    0.50,
	}
}

// Orchestrator composes the four classification sources into one ranked
// decision. All dependencies are injected explicitly; there is no global
// instance.
type Orchestrator struct {
	overrides  *OverrideRegistry
	rules      *RuleMatcher
	memory     Memory
	external   service.ExternalClassifier
	logger     *slog.Logger
	thresholds Thresholds
	clock      func() time.Time
}

// NewOrchestrator wires the classification pipeline. memory and external
// may be nil; their tiers are then skipped.
func NewOrchestrator(overrides *OverrideRegistry, rules *RuleMatcher, memory Memory, external service.ExternalClassifier, thresholds Thresholds, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if thresholds.MemorySimilarity <= 0 {
		thresholds.MemorySimilarity = 0.82
	}
	if thresholds.LowConfidence <= 0 {
		thresholds.LowConfidence = 0.50
	}
	return &Orchestrator{
		overrides:  overrides,
		rules:      rules,
		memory:     memory,
		external:   external,
		thresholds: thresholds,
		logger:     logger,
		clock:      time.Now,
	}
}

// Classify runs the tiers in strict precedence order, short-circuiting on
// the first usable answer. The result's source is always the
// highest-precedence tier that produced one.
func (o *Orchestrator) Classify(ctx context.Context, asset model.AssetRecord) (*model.ClassificationResult, error) {
	if err := asset.Validate(); err != nil {
		return nil, err
	}

	normalized := Normalize(asset.Description)

	// Tier 1: explicit overrides.
	if o.overrides != nil {
		if entry, ok := o.overrides.Lookup(asset.ExternalID, asset.Category); ok {
			return o.finalize(asset, entry.ClassName, model.SourceOverride, 1.0,
				overrideReason(entry))
		}
	}

	// Tier 2: deterministic rules.
	if o.rules != nil {
		if match, ok := o.rules.Match(normalized); ok && match.Score >= o.rules.MinScore() {
			return o.finalize(asset, match.Rule.ClassName, model.SourceRule, match.Score,
				fmt.Sprintf("rule %q matched with score %.2f", match.Rule.Name, match.Score))
		}
	}

	// Tier 3: semantic memory. The embedding also feeds the write-through
	// after an external classification.
	var embedding []float32
	if o.memory != nil && o.external != nil {
		var err error
		embedding, err = o.external.EmbedDescription(ctx, normalized)
		if err != nil {
			o.logEmbedFailure(asset.ID, err)
			if common.IsAuthError(err) {
				return nil, err
			}
		} else if match, ok, memErr := o.memory.Nearest(ctx, embedding); memErr != nil {
			o.logger.Warn("semantic memory lookup failed, falling through",
				"asset_id", asset.ID,
				"error", memErr)
		} else if ok && match.Similarity >= o.thresholds.MemorySimilarity {
			return o.finalize(asset, match.ClassName, model.SourceMemory, match.Similarity,
				fmt.Sprintf("matched confirmed classification with similarity %.2f", match.Similarity))
		}
	}

	// Tier 4: external classification service, behind the circuit breaker.
	if o.external != nil {
		resp, err := o.external.ClassifyDescription(ctx, normalized)
		switch {
		case err == nil:
			result, ferr := o.finalize(asset, resp.ClassName, model.SourceExternal, resp.Confidence,
				fmt.Sprintf("external classifier: %s", resp.Reason))
			if ferr == nil {
				o.writeThrough(ctx, normalized, embedding, result)
				return result, nil
			}
			o.logger.Warn("external classifier returned unknown class, falling through",
				"asset_id", asset.ID,
				"class", resp.ClassName)
		case common.IsAuthError(err):
			return nil, err
		case errors.Is(err, common.ErrCircuitOpen):
			o.logger.Warn("external classifier blocked by open circuit, using fallback",
				"asset_id", asset.ID)
		default:
			o.logger.Warn("external classification failed, using fallback",
				"asset_id", asset.ID,
				"error", err)
		}
	}

	// Tier 5: keyword fallback, always below the review threshold.
	className, why := fallbackClass(normalized)
	return o.finalize(asset, className, model.SourceFallback, FallbackConfidence,
		fmt.Sprintf("fallback heuristic: %s", why))
}

// finalize resolves the class name against the catalog and assembles the
// immutable result.
func (o *Orchestrator) finalize(asset model.AssetRecord, className string, source model.ClassificationSource, confidence float64, reason string) (*model.ClassificationResult, error) {
	class, err := tables.ClassByName(className)
	if err != nil {
		return nil, err
	}

	// QIP does not exist for pre-2018 in-service dates; those interior
	// improvements stay with the building.
	if class.QIP && !tables.QIPAvailable(asset.InServiceDate) {
		class, err = tables.ClassByName("Nonresidential Real Property")
		if err != nil {
			return nil, err
		}
		reason += "; QIP unavailable for pre-2018 in-service date"
	}

	if confidence > 1 {
		confidence = 1
	}

	result := &model.ClassificationResult{
		ClassifiedAt: o.clock(),
		AssetID:      asset.ID,
		Source:       source,
		Confidence:   confidence,
		Reason:       reason,
		NeedsReview:  confidence < o.thresholds.LowConfidence,
	}
	class.Apply(result)
	return result, nil
}

// writeThrough persists a successful external classification into semantic
// memory for future reuse. Failures are logged, never fatal.
func (o *Orchestrator) writeThrough(ctx context.Context, normalized string, embedding []float32, result *model.ClassificationResult) {
	if o.memory == nil || len(embedding) == 0 {
		return
	}
	if err := o.memory.Store(ctx, normalized, embedding, result.ClassName, result.Source); err != nil {
		o.logger.Warn("failed to persist classification to semantic memory",
			"asset_id", result.AssetID,
			"error", err)
	}
}

func (o *Orchestrator) logEmbedFailure(assetID string, err error) {
	if errors.Is(err, common.ErrCircuitOpen) {
		o.logger.Debug("embedding blocked by open circuit", "asset_id", assetID)
		return
	}
	o.logger.Warn("embedding request failed, skipping memory tier",
		"asset_id", assetID,
		"error", err)
}

func overrideReason(entry OverrideEntry) string {
	if entry.Reason != "" {
		return fmt.Sprintf("explicit override: %s", entry.Reason)
	}
	if entry.ExternalID != "" {
		return fmt.Sprintf("explicit override for external id %s", entry.ExternalID)
	}
	return fmt.Sprintf("explicit override for category %s", entry.Category)
}
