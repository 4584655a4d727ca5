package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"membership-portal/core/config"
	"membership-portal/core/logger"
	"membership-portal/core/reconcile"
	"membership-portal/feature/profile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	backfillProfiles bool
	syncProfiles     bool
	dryRunProfiles   bool
	yesConfirm       bool
	profileID        string
)

// reconcileCmd is the parent command for all reconcile operations.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile records between the relational and legacy stores",
	Long: `Reconcile records to detect ones missing from either store and field mismatches.
Supports optional backfill (copy missing records) and sync (overwrite legacy from relational) operations.`,
}

// profilesReconcileCmd performs profile reconciliation with optional backfill/sync.
var profilesReconcileCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Reconcile user profiles (report + optionally backfill/sync)",
	Long: `Reconcile user profiles across the users table and the legacy document store.

Reports records missing from either store and field mismatches.
Optionally backfill records missing from one store, or sync mismatching legacy documents.
The relational record always wins a mismatch.

Examples:
  # Report only
  reconcile profiles

  # Inspect a single profile
  reconcile profiles --id 9f3c...

  # Backfill missing records (with interactive confirmation)
  reconcile profiles --backfill

  # Backfill and sync with auto-confirm (non-interactive)
  reconcile profiles --backfill --sync --yes`,
	RunE: runProfilesReconcile,
}

func init() {
	reconcileCmd.AddCommand(profilesReconcileCmd)

	profilesReconcileCmd.Flags().BoolVar(&backfillProfiles, "backfill", false, "Copy records missing from one store into it")
	profilesReconcileCmd.Flags().BoolVar(&syncProfiles, "sync", false, "Overwrite mismatching legacy documents from the users table")
	profilesReconcileCmd.Flags().BoolVar(&dryRunProfiles, "dry-run", false, "Force dry-run (no mutations even with --yes)")
	profilesReconcileCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm mutating actions (non-interactive)")
	profilesReconcileCmd.Flags().StringVar(&profileID, "id", "", "Report a single profile id and exit")

	RootCmd.AddCommand(reconcileCmd)
}

func runProfilesReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	l.Info("Starting profile reconciliation")

	st, err := openStores(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer st.close()

	spec := &reconcile.Spec{
		Adapter:  profile.NewBackfillAdapter(st.profiles, st.mirror),
		CacheTTL: 0, // No caching to prevent stale data after writes
	}

	if profileID != "" {
		result, err := reconcile.ReconcileOne(ctx, spec, profileID)
		if err != nil {
			return fmt.Errorf("failed to reconcile %s: %w", profileID, err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	opts := reconcile.ReconcileOptions{
		DoBackfill: backfillProfiles,
		DoSync:     syncProfiles,
		DryRun:     dryRunProfiles,
		Confirmed:  false, // Set after the confirmation prompt
	}

	// Step 1: Plan (always runs)
	l.Info("Planning reconciliation...")
	plan, err := reconcile.ReconcileWithPlan(ctx, spec, opts)
	if err != nil {
		return fmt.Errorf("failed to plan reconciliation: %w", err)
	}

	// Step 2: Print report
	printReconcileReport(l, plan)

	// Step 3: Check if actions are requested
	if !backfillProfiles && !syncProfiles {
		l.Info("No actions requested. Use --backfill to copy missing records or --sync to repair mismatches.")
		return nil
	}

	if dryRunProfiles {
		l.Info("Dry-run mode: No changes were made.")
		return nil
	}

	// Step 4: Apply (if confirmed)
	if len(plan.Actions) == 0 {
		l.Info("No actions required based on current flags.")
		return nil
	}

	if !confirmAction() {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}
	opts.Confirmed = true

	l.Info("Applying actions...")
	executed, err := reconcile.ApplyPlan(ctx, spec, plan, opts)
	if err != nil {
		return fmt.Errorf("failed to apply plan after %d actions: %w", executed, err)
	}

	l.Info("Successfully executed actions", zap.Int("count", executed))
	return nil
}

// printReconcileReport prints a formatted reconciliation report using logger.
func printReconcileReport(l *zap.Logger, plan *reconcile.ReconcilePlan) {
	s := plan.Summary

	l.Info("Reconciliation report",
		zap.Int("total_items", s.TotalItems),
		zap.Int("missing_relational", s.MissingRelational),
		zap.Int("missing_legacy", s.MissingLegacy),
		zap.Int("mismatches", s.Mismatches),
	)

	if len(plan.Actions) == 0 {
		return
	}

	l.Info("Planned actions",
		zap.Int("backfill_actions", s.BackfillActions),
		zap.Int("sync_actions", s.SyncActions),
		zap.Int("total_actions", len(plan.Actions)),
	)

	maxShow := min(5, len(plan.Actions))
	for _, action := range plan.Actions[:maxShow] {
		l.Info("Sample action",
			zap.String("type", string(action.Type)),
			zap.String("key", action.Key),
			zap.String("reason", action.Reason),
		)
	}
	if len(plan.Actions) > maxShow {
		l.Info("Additional actions not shown", zap.Int("count", len(plan.Actions)-maxShow))
	}
}

// confirmAction prompts the user for confirmation or uses --yes flag.
func confirmAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	return strings.TrimSpace(response) == "yes"
}
