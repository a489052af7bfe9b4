// Package engine runs the batch pipeline: transaction typing and
// classification fan out across workers, every record joins at the
// convention barrier, then Section 179 allocation, projection, and the
// rollforward check produce the batch report.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fixedassets/depflow/internal/classify"
	"github.com/fixedassets/depflow/internal/common"
	"github.com/fixedassets/depflow/internal/convention"
	"github.com/fixedassets/depflow/internal/model"
	"github.com/fixedassets/depflow/internal/projection"
	"github.com/fixedassets/depflow/internal/rollforward"
	"github.com/fixedassets/depflow/internal/service"
)

// Classifier produces a classification for one asset record.
type Classifier interface {
	Classify(ctx context.Context, asset model.AssetRecord) (*model.ClassificationResult, error)
}

// Options tunes the batch engine.
type Options struct {
	// Workers bounds the classification fan-out. Zero means 4.
	Workers int
	// Tolerance is the rollforward variance allowance in dollars.
	Tolerance float64
	// TransferDefault resolves transfers whose direction the note doesn't state.
	TransferDefault model.TransferDirection
}

// Engine orchestrates one batch run end to end.
type Engine struct {
	classifier Classifier
	projector  *projection.Engine
	resolver   *convention.Resolver
	reconciler *rollforward.Reconciler
	storage    service.Storage
	logger     *slog.Logger
	opts       Options
}

// New creates a batch engine. storage may be nil for pure computation runs
// (nothing is persisted).
func New(classifier Classifier, projector *projection.Engine, storage service.Storage, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.TransferDefault == "" {
		opts.TransferDefault = model.TransferOut
	}
	return &Engine{
		classifier: classifier,
		projector:  projector,
		resolver:   convention.NewResolver(logger),
		reconciler: rollforward.NewReconciler(opts.Tolerance, logger),
		storage:    storage,
		logger:     logger,
		opts:       opts,
	}
}

// BatchRequest carries one batch of records plus the batch-level figures.
type BatchRequest struct {
	ReportedEnding     *float64
	Assets             []model.AssetRecord
	Elections          []projection.Section179Election
	TaxYear            int
	BeginningBalance   float64
	TaxableIncome      float64
	DeMinimisThreshold float64
}

// Run executes the full pipeline. Authentication failures abort the batch;
// every other per-record problem becomes an issue on that record's result.
func (e *Engine) Run(ctx context.Context, req BatchRequest) (*BatchReport, error) {
	if req.TaxYear == 0 {
		req.TaxYear = time.Now().Year()
	}
	started := time.Now()

	report := &BatchReport{TaxYear: req.TaxYear}
	results := make([]AssetResult, len(req.Assets))
	typer := classify.NewTypeClassifier(req.TaxYear, classify.TransferPolicy{
		DefaultDirection: e.opts.TransferDefault,
	})

	// Phase one: type and classify every record concurrently. Real property
	// never depends on the batch convention, so it is projected here too.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i := range req.Assets {
		i := i
		g.Go(func() error {
			return e.classifyOne(gctx, req, typer, &req.Assets[i], &results[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Convention barrier: the batch decision needs every addition's quarter.
	// The resolved convention is stamped onto every personal-property
	// classification so the batch stays uniform.
	decision := e.resolver.Resolve(req.TaxYear, additionsOf(results))
	report.Convention = decision
	for i := range results {
		if cls := results[i].Classification; cls != nil && !cls.IsRealProperty {
			cls.Convention = decision.Convention
		}
	}
	report.Issues = append(report.Issues, convention.ValidateUniform(decision, classifications(results))...)

	allocation, issues := e.allocateSection179(req, results)
	report.Section179 = allocation
	report.Issues = append(report.Issues, issues...)

	// Phase two: project everything still waiting on the convention.
	for i := range results {
		r := &results[i]
		if r.Classification == nil || r.Schedule != nil {
			continue
		}
		e.projectOne(req, decision, allocation.Amounts[r.Asset.ID], r)
	}

	report.Rollforward = e.reconciler.Reconcile(req.BeginningBalance, typedAssets(results), req.ReportedEnding)
	report.Issues = append(report.Issues, e.reconciler.Issues(report.Rollforward)...)

	if e.storage != nil {
		if err := e.persist(ctx, results); err != nil {
			return nil, err
		}
	}

	report.Results = results
	report.finish()

	e.logger.Info("batch complete",
		"tax_year", req.TaxYear,
		"assets", len(results),
		"convention", decision.Convention,
		"export_ready", report.ExportReady,
		"elapsed", time.Since(started))
	return report, nil
}

// classifyOne types, classifies, and (for convention-independent records)
// projects a single asset.
func (e *Engine) classifyOne(ctx context.Context, req BatchRequest, typer *classify.TypeClassifier, asset *model.AssetRecord, out *AssetResult) error {
	out.Asset = *asset

	if err := asset.Validate(); err != nil {
		out.Issues = append(out.Issues, model.Issue{
			AssetID:     asset.ID,
			Kind:        model.IssueData,
			Severity:    model.SeverityCritical,
			Message:     err.Error(),
			Remediation: "correct the source record and re-run the batch",
		})
		return nil
	}

	out.TxnType = typer.Classify(*asset)

	cls, err := e.classifier.Classify(ctx, *asset)
	if err != nil {
		if common.IsAuthError(err) {
			return fmt.Errorf("asset %s: %w", asset.ID, err)
		}
		out.Issues = append(out.Issues, classificationIssue(asset.ID, err))
		return nil
	}
	out.Classification = cls

	if cls.NeedsReview {
		out.Issues = append(out.Issues, model.Issue{
			AssetID:     asset.ID,
			Kind:        model.IssueAmbiguity,
			Severity:    model.SeverityWarning,
			Message:     fmt.Sprintf("classified as %q with low confidence %.2f", cls.ClassName, cls.Confidence),
			Remediation: "confirm the class or add an override for this asset",
		})
	}

	// Mid-month real property doesn't wait on the batch convention, and has
	// no Section 179 share to wait for either.
	if cls.IsRealProperty {
		e.projectOne(req, model.ConventionDecision{TaxYear: req.TaxYear, Convention: model.ConventionMidMonth}, 0, out)
	}
	return nil
}

// projectOne builds the schedule for a single result, converting projection
// failures into issues.
func (e *Engine) projectOne(req BatchRequest, decision model.ConventionDecision, section179 float64, r *AssetResult) {
	schedule, err := e.projector.Project(projection.Request{
		Asset:              r.Asset,
		Classification:     r.Classification,
		TxnType:            r.TxnType,
		Decision:           decision,
		Section179:         section179,
		DeMinimisThreshold: req.DeMinimisThreshold,
	})
	if err != nil {
		r.Issues = append(r.Issues, model.Issue{
			AssetID:     r.Asset.ID,
			Kind:        model.IssueData,
			Severity:    model.SeverityError,
			Message:     fmt.Sprintf("projection failed: %v", err),
			Remediation: "verify the classification's recovery period and method",
		})
		return
	}
	r.Schedule = schedule
}

// allocateSection179 filters elections to eligible records and runs the
// batch-level allocation.
func (e *Engine) allocateSection179(req BatchRequest, results []AssetResult) (projection.Section179Allocation, []model.Issue) {
	var issues []model.Issue
	eligible := make(map[string]bool, len(results))
	var totalQualifying float64
	for i := range results {
		r := &results[i]
		if r.Classification == nil {
			continue
		}
		if r.TxnType.Section179Eligible() && !r.Classification.IsRealProperty {
			eligible[r.Asset.ID] = true
			totalQualifying += r.Asset.DepreciableBasis()
		}
	}

	elections := make([]projection.Section179Election, 0, len(req.Elections))
	for _, el := range req.Elections {
		if !eligible[el.AssetID] {
			issues = append(issues, model.Issue{
				AssetID:     el.AssetID,
				Kind:        model.IssueCompliance,
				Severity:    model.SeverityError,
				Message:     "Section 179 elected for an ineligible record",
				Remediation: "only current-year additions of personal property qualify; drop the election",
			})
			continue
		}
		elections = append(elections, el)
	}

	allocation, err := projection.AllocateSection179(req.TaxYear, req.TaxableIncome, totalQualifying, elections)
	if err != nil {
		issues = append(issues, model.Issue{
			Kind:        model.IssueCompliance,
			Severity:    model.SeverityError,
			Message:     fmt.Sprintf("Section 179 allocation failed: %v", err),
			Remediation: "review the election amounts against each asset's basis",
		})
		return projection.Section179Allocation{Amounts: map[string]float64{}}, issues
	}
	return allocation, issues
}

// persist writes classifications and audit entries for the batch.
func (e *Engine) persist(ctx context.Context, results []AssetResult) error {
	for i := range results {
		r := &results[i]
		if r.Classification == nil {
			continue
		}
		if err := e.storage.SaveClassification(ctx, r.Classification); err != nil {
			return fmt.Errorf("failed to persist classification: %w", err)
		}

		action := model.AuditClassified
		if r.Classification.Source == model.SourceOverride {
			action = model.AuditOverrideApplied
		}
		entry := &model.AuditEntry{
			ID:         uuid.NewString(),
			AssetID:    r.Asset.ID,
			Action:     action,
			Source:     r.Classification.Source,
			ClassName:  r.Classification.ClassName,
			Confidence: r.Classification.Confidence,
			Reason:     r.Classification.Reason,
			CreatedAt:  time.Now().UTC(),
		}
		if err := e.storage.AppendAudit(ctx, entry); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
	}
	return nil
}

func classificationIssue(assetID string, err error) model.Issue {
	kind := model.IssueExternalService
	severity := model.SeverityError
	if common.IsRateLimit(err) {
		severity = model.SeverityWarning
	}
	return model.Issue{
		AssetID:     assetID,
		Kind:        kind,
		Severity:    severity,
		Message:     fmt.Sprintf("classification failed: %v", err),
		Remediation: "re-run the batch once the external service recovers",
	}
}

// additionsOf extracts the convention inputs from classified current-year
// additions.
func additionsOf(results []AssetResult) []convention.Addition {
	var out []convention.Addition
	for i := range results {
		r := &results[i]
		if r.Classification == nil || r.TxnType.Type != model.TypeCurrentYearAddition {
			continue
		}
		out = append(out, convention.Addition{
			AssetID:      r.Asset.ID,
			InService:    r.Asset.InServiceDate,
			Basis:        r.Asset.DepreciableBasis(),
			RealProperty: r.Classification.IsRealProperty,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out
}

func classifications(results []AssetResult) []*model.ClassificationResult {
	out := make([]*model.ClassificationResult, 0, len(results))
	for i := range results {
		if results[i].Classification != nil {
			out = append(out, results[i].Classification)
		}
	}
	return out
}

func typedAssets(results []AssetResult) []rollforward.TypedAsset {
	out := make([]rollforward.TypedAsset, 0, len(results))
	for i := range results {
		r := &results[i]
		if r.Classification == nil && len(r.Issues) > 0 && r.TxnType.Type == "" {
			continue
		}
		out = append(out, rollforward.TypedAsset{Asset: r.Asset, Type: r.TxnType})
	}
	return out
}
