package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fixedassets/depflow/internal/common"
	"github.com/fixedassets/depflow/internal/config"
)

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <asset-id>",
		Short: "Show an asset's classification audit trail",
		Args:  cobra.ExactArgs(1),
		RunE:  runAudit,
	}
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	assetID := args[0]

	settings, err := config.Load()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	asset, err := store.GetAssetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewUserError(fmt.Sprintf("no asset with id %s", assetID), err)
		}
		return err
	}

	entries, err := store.GetAuditTrail(ctx, assetID)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", asset.ID, asset.Description)
	if len(entries) == 0 {
		fmt.Println("No audit entries; the asset has not been classified yet")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("  %s  %-17s %-9s %s (%.2f)\n",
			e.CreatedAt.Format("2006-01-02 15:04"), e.Action, e.Source, e.ClassName, e.Confidence)
		if e.Reason != "" {
			fmt.Printf("      %s\n", e.Reason)
		}
	}
	return nil
}
