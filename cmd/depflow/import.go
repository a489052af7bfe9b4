package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fixedassets/depflow/internal/common"
	"github.com/fixedassets/depflow/internal/config"
	"github.com/fixedassets/depflow/internal/model"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import asset records from a CSV file",
		Long: `Import fixed-asset records into the local database.

The CSV needs a header row. Recognized columns:
  id, description, cost_basis, acquisition_date, in_service_date
  (required) and category, external_id, transfer_note, disposal_date,
  business_use_pct (optional). Dates use YYYY-MM-DD.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	settings, err := config.Load()
	if err != nil {
		return err
	}

	assets, err := readAssetCSV(args[0])
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		return common.NewUserError(fmt.Sprintf("no asset records found in %s", args[0]), common.ErrNoRecords)
	}

	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.UpsertAssets(ctx, assets); err != nil {
		return fmt.Errorf("failed to import assets: %w", err)
	}

	fmt.Printf("Imported %d asset records\n", len(assets))
	return nil
}

// readAssetCSV parses asset records from a headered CSV file.
func readAssetCSV(path string) ([]model.AssetRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"id", "description", "cost_basis", "acquisition_date", "in_service_date"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("CSV is missing required column %q", required)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var assets []model.AssetRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		costBasis, err := strconv.ParseFloat(field(row, "cost_basis"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid cost_basis: %w", line, err)
		}
		acquired, err := time.Parse("2006-01-02", field(row, "acquisition_date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid acquisition_date: %w", line, err)
		}
		inService, err := time.Parse("2006-01-02", field(row, "in_service_date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid in_service_date: %w", line, err)
		}

		asset := model.AssetRecord{
			ID:              field(row, "id"),
			Description:     field(row, "description"),
			Category:        field(row, "category"),
			ExternalID:      field(row, "external_id"),
			TransferNote:    field(row, "transfer_note"),
			CostBasis:       costBasis,
			AcquisitionDate: acquired,
			InServiceDate:   inService,
		}
		if pct := field(row, "business_use_pct"); pct != "" {
			asset.BusinessUsePct, err = strconv.ParseFloat(pct, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid business_use_pct: %w", line, err)
			}
		}
		if disposal := field(row, "disposal_date"); disposal != "" {
			d, err := time.Parse("2006-01-02", disposal)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid disposal_date: %w", line, err)
			}
			asset.DisposalDate = &d
		}
		asset.Hash = asset.GenerateHash()

		if err := asset.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		assets = append(assets, asset)
	}

	return assets, nil
}
