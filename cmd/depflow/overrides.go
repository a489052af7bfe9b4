package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fixedassets/depflow/internal/classify"
	"github.com/fixedassets/depflow/internal/tables"
)

func overridesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overrides",
		Short: "Manage classification overrides",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured classification overrides",
		RunE:  runOverridesList,
	})
	return cmd
}

func runOverridesList(_ *cobra.Command, _ []string) error {
	var entries []classify.OverrideEntry
	if err := viper.UnmarshalKey("classification.overrides", &entries); err != nil {
		return fmt.Errorf("failed to parse classification.overrides: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No overrides configured")
		return nil
	}

	for _, e := range entries {
		key := e.ExternalID
		keyKind := "external_id"
		if key == "" {
			key = e.Category
			keyKind = "category"
		}

		status := "ok"
		if key == "" {
			status = "invalid: no external_id or category key"
		} else if _, err := tables.ClassByName(e.ClassName); err != nil {
			status = fmt.Sprintf("invalid: %v", err)
		}

		fmt.Printf("  %-12s %-24s -> %-36s [%s]\n", keyKind, key, e.ClassName, status)
		if e.Reason != "" {
			fmt.Printf("      %s\n", e.Reason)
		}
	}
	return nil
}
