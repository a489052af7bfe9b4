package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/fixedassets/depflow/internal/common"
	"github.com/fixedassets/depflow/internal/config"
	"github.com/fixedassets/depflow/internal/model"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [asset-id...]",
		Short: "Classify asset records without projecting schedules",
		Long: `Classify imported asset records into recovery classes. With no
arguments every stored record is classified; pass asset ids to limit the
run. Results and the audit trail are persisted.`,
		RunE: runClassifyOnly,
	}

	cmd.Flags().Bool("dry-run", false, "Preview without saving results")
	return cmd
}

func runClassifyOnly(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	settings, err := config.Load()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var assets []model.AssetRecord
	if len(args) > 0 {
		assets, err = store.BatchGetAssets(ctx, args)
	} else {
		assets, err = store.ListAssets(ctx)
	}
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		return common.NewUserError("no asset records to classify", common.ErrNoRecords)
	}

	orchestrator, cleanup, err := buildOrchestrator(settings, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	bar := progressbar.NewOptions(len(assets),
		progressbar.OptionSetDescription("Classifying"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var reviewed int
	for i := range assets {
		asset := assets[i]
		result, err := orchestrator.Classify(ctx, asset)
		if err != nil {
			if common.IsAuthError(err) {
				return fmt.Errorf("authentication failed, aborting: %w", err)
			}
			logger.Warn("classification failed", "asset_id", asset.ID, "error", err)
			_ = bar.Add(1)
			continue
		}
		if result.NeedsReview {
			reviewed++
		}

		if !dryRun {
			if err := store.SaveClassification(ctx, result); err != nil {
				return err
			}
			action := model.AuditClassified
			if result.Source == model.SourceOverride {
				action = model.AuditOverrideApplied
			}
			if err := store.AppendAudit(ctx, &model.AuditEntry{
				ID:         uuid.NewString(),
				AssetID:    asset.ID,
				Action:     action,
				Source:     result.Source,
				ClassName:  result.ClassName,
				Confidence: result.Confidence,
				Reason:     result.Reason,
				CreatedAt:  time.Now().UTC(),
			}); err != nil {
				return err
			}
		}
		_ = bar.Add(1)
	}

	fmt.Printf("Classified %d assets (%d need review)\n", len(assets), reviewed)
	if dryRun {
		fmt.Println("Dry run: nothing was saved")
	}
	return nil
}
