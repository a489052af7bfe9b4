package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fixedassets/depflow/internal/common"
	"github.com/fixedassets/depflow/internal/config"
	"github.com/fixedassets/depflow/internal/engine"
	"github.com/fixedassets/depflow/internal/model"
	"github.com/fixedassets/depflow/internal/projection"
	"github.com/fixedassets/depflow/internal/tables"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full batch pipeline",
		Long: `Run classification, convention resolution, Section 179 allocation,
depreciation projection, and the rollforward check over the imported
asset records, then print the batch report.

Examples:
  depflow run --tax-year 2025 --beginning-balance 250000
  depflow run --tax-year 2025 --ending-balance 310000 --taxable-income 95000`,
		RunE: runBatch,
	}

	cmd.Flags().IntP("tax-year", "y", 0, "Tax year for the batch (0 = current year)")
	cmd.Flags().Float64("beginning-balance", 0, "Prior-period ending asset balance")
	cmd.Flags().Float64("ending-balance", 0, "Client-reported ending balance (omit to compute)")
	cmd.Flags().Float64("taxable-income", -1, "Taxable income limit for Section 179 (-1 = no limit)")
	cmd.Flags().Float64("de-minimis", 0, "De-minimis safe harbor threshold (0 = disabled)")
	cmd.Flags().Int("workers", 0, "Classification worker count")

	_ = viper.BindPFlag("batch.tax_year", cmd.Flags().Lookup("tax-year"))
	_ = viper.BindPFlag("batch.beginning_balance", cmd.Flags().Lookup("beginning-balance"))
	_ = viper.BindPFlag("batch.taxable_income", cmd.Flags().Lookup("taxable-income"))
	_ = viper.BindPFlag("batch.de_minimis", cmd.Flags().Lookup("de-minimis"))
	_ = viper.BindPFlag("batch.workers", cmd.Flags().Lookup("workers"))

	return cmd
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	settings, err := config.Load()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	assets, err := store.ListAssets(ctx)
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		return common.NewUserError("no asset records imported; run 'depflow import' first", common.ErrNoRecords)
	}

	orchestrator, cleanup, err := buildOrchestrator(settings, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	var elections []projection.Section179Election
	if err := viper.UnmarshalKey("section179.elections", &elections); err != nil {
		return fmt.Errorf("failed to parse section179.elections: %w", err)
	}

	transferDefault := model.TransferOut
	if settings.TransferDefault == "in" {
		transferDefault = model.TransferIn
	}

	eng := engine.New(orchestrator, projection.NewEngine(tables.New(), logger), store, engine.Options{
		Workers:         settings.Workers,
		Tolerance:       settings.Tolerance,
		TransferDefault: transferDefault,
	}, logger)

	req := engine.BatchRequest{
		TaxYear:            settings.TaxYear,
		Assets:             assets,
		BeginningBalance:   settings.BeginningBalance,
		TaxableIncome:      settings.TaxableIncome,
		Elections:          elections,
		DeMinimisThreshold: settings.DeMinimis,
	}
	if cmd.Flags().Changed("ending-balance") {
		ending, _ := cmd.Flags().GetFloat64("ending-balance")
		req.ReportedEnding = &ending
	}

	report, err := eng.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Println(renderReport(report))
	return nil
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// renderReport formats the batch report for the terminal.
func renderReport(report *engine.BatchReport) string {
	var b strings.Builder

	fmt.Fprintln(&b, titleStyle.Render(fmt.Sprintf("Batch Report — Tax Year %d", report.TaxYear)))
	fmt.Fprintln(&b)

	s := report.Summary
	fmt.Fprintln(&b, sectionStyle.Render("Classification"))
	fmt.Fprintf(&b, "  Assets:        %d\n", s.TotalAssets)
	for _, src := range []model.ClassificationSource{
		model.SourceOverride, model.SourceRule, model.SourceMemory,
		model.SourceExternal, model.SourceFallback,
	} {
		if n := s.BySource[src]; n > 0 {
			fmt.Fprintf(&b, "  %-14s %d\n", strings.ToLower(string(src))+":", n)
		}
	}
	if s.NeedsReview > 0 {
		fmt.Fprintf(&b, "  %s\n", warnStyle.Render(fmt.Sprintf("needs review:  %d", s.NeedsReview)))
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, sectionStyle.Render("Convention"))
	d := report.Convention
	fmt.Fprintf(&b, "  Applied:       %s", d.Convention)
	if d.MidQuarterTripped {
		fmt.Fprintf(&b, "  (Q4 share %.1f%% > 40%%)", d.FourthQuarterPct*100)
	}
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "  Additions:     $%.2f\n", d.TotalAdditions)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, sectionStyle.Render("Deductions"))
	fmt.Fprintf(&b, "  Section 179:   $%.2f", s.TotalSection179)
	if report.Section179.Carryforward > 0 {
		fmt.Fprintf(&b, "  (carryforward $%.2f)", report.Section179.Carryforward)
	}
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "  Bonus:         $%.2f\n", s.TotalBonus)
	fmt.Fprintf(&b, "  First year:    $%.2f\n", s.TotalFirstYear)
	fmt.Fprintf(&b, "  All years:     $%.2f of $%.2f depreciable\n", s.TotalDeduction, s.TotalDepreciable)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, sectionStyle.Render("Rollforward"))
	rf := report.Rollforward
	fmt.Fprintf(&b, "  Beginning:     $%.2f\n", rf.BeginningBalance)
	fmt.Fprintf(&b, "  Additions:     $%.2f   Disposals: $%.2f\n", rf.Additions, rf.Disposals)
	fmt.Fprintf(&b, "  Transfers in:  $%.2f   Transfers out: $%.2f\n", rf.TransfersIn, rf.TransfersOut)
	fmt.Fprintf(&b, "  Expected:      $%.2f   Actual: $%.2f\n", rf.ExpectedEnding, rf.ActualEnding)
	if rf.Balanced {
		fmt.Fprintf(&b, "  %s\n", okStyle.Render("Balanced"))
	} else {
		fmt.Fprintf(&b, "  %s\n", errStyle.Render(fmt.Sprintf("Out of balance by $%.2f", rf.Variance)))
	}
	fmt.Fprintln(&b)

	issues := report.AllIssues()
	if len(issues) > 0 {
		fmt.Fprintln(&b, sectionStyle.Render(fmt.Sprintf("Issues (%d)", len(issues))))
		for _, issue := range issues {
			style := faintStyle
			switch issue.Severity {
			case model.SeverityCritical, model.SeverityError:
				style = errStyle
			case model.SeverityWarning:
				style = warnStyle
			}
			prefix := ""
			if issue.AssetID != "" {
				prefix = issue.AssetID + ": "
			}
			fmt.Fprintf(&b, "  %s %s%s\n", style.Render(fmt.Sprintf("[%s]", issue.Severity)), prefix, issue.Message)
			if issue.Remediation != "" {
				fmt.Fprintf(&b, "    %s\n", faintStyle.Render(issue.Remediation))
			}
		}
		fmt.Fprintln(&b)
	}

	if report.ExportReady {
		fmt.Fprintln(&b, okStyle.Render("Export ready"))
	} else {
		fmt.Fprintln(&b, errStyle.Render("Not export ready — resolve blocking issues above"))
	}

	return b.String()
}
