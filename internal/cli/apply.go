package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/danieljhkim/treedit/internal/engine"
	"github.com/danieljhkim/treedit/internal/planner"
)

var (
	applyYes      bool
	applyDryRun   bool
	applySimulate bool
	applyForce    bool
)

// applyOptions are the flags shared by apply and edit.
type applyOptions struct {
	yes      bool
	dryRun   bool
	simulate bool
	force    bool
}

var applyCmd = &cobra.Command{
	Use:   "apply <listing>",
	Short: "Execute the operations of an edited listing",
	Long: `Plan an edited listing and execute it, one operation at a time.

Depending on the apply.confirm setting the plan is shown and confirmed first.
--simulate runs the plan against an in-memory copy of the affected directories
and leaves the disk untouched. Use "-" to read the listing from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		data, err := readListing(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}

		return runApply(context.Background(), s, data, applyOptions{
			yes:      applyYes,
			dryRun:   applyDryRun,
			simulate: applySimulate,
			force:    applyForce,
		})
	},
}

func init() {
	applyCmd.Flags().BoolVarP(&applyYes, "yes", "y", false, "Apply without asking for confirmation")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show the plan without applying it")
	applyCmd.Flags().BoolVar(&applySimulate, "simulate", false, "Run the plan in an in-memory sandbox only")
	applyCmd.Flags().BoolVarP(&applyForce, "force", "f", false, "Apply even when destinations already exist")
}

// runApply rehearses the listing in a sandbox when asked to, then applies it.
func runApply(ctx context.Context, s *session, data []byte, opts applyOptions) error {
	if opts.simulate || s.settings.Apply.Simulate {
		sandbox := s.newSandboxEngine()
		result, err := sandbox.Apply(ctx, &engine.ApplyRequest{Listing: data, Force: opts.force})
		if errors.Is(err, engine.ErrNoChanges) {
			PrintEmptyState("No changes.")
			return nil
		}
		if err != nil {
			reportApplyError(result, err)
			return fmt.Errorf("simulation failed: %w", err)
		}
		if opts.simulate {
			if jsonOutput {
				return outputJSON(result)
			}
			PrintPlan(result.PlanResult)
			PrintSuccess(fmt.Sprintf("Simulated %s, disk untouched", PrintCount(len(result.Applied), "action", "actions")))
			return nil
		}
	}

	req := &engine.ApplyRequest{
		Listing: data,
		DryRun:  opts.dryRun,
		Force:   opts.force,
		Confirm: confirmFunc(s, opts.yes),
	}
	if !jsonOutput && isInteractive(os.Stdout.Fd()) {
		attachProgressBar(req)
	}

	result, err := s.newEngine().Apply(ctx, req)
	if errors.Is(err, engine.ErrNoChanges) {
		PrintEmptyState("No changes.")
		return nil
	}
	if err != nil {
		reportApplyError(result, err)
		return err
	}

	if jsonOutput {
		return outputJSON(result)
	}
	if opts.dryRun {
		PrintPlan(result.PlanResult)
		PrintInfo(fmt.Sprintf("Dry run: would apply %s", PrintCount(len(result.Actions), "action", "actions")))
		return nil
	}
	PrintSuccess(fmt.Sprintf("Applied %s successfully", PrintCount(len(result.Applied), "action", "actions")))
	return nil
}

// reportApplyError prints what is known about a failed apply.
func reportApplyError(result *engine.ApplyResult, err error) {
	if jsonOutput || result == nil {
		return
	}
	if errors.Is(err, engine.ErrConflicts) {
		PrintPlan(result.PlanResult)
		return
	}
	var actionErr *engine.ActionError
	if errors.As(err, &actionErr) {
		PrintWarning(fmt.Sprintf("%s of %d completed before the failure and were not rolled back",
			PrintCount(len(result.Applied), "action", "actions"), len(result.Actions)))
	}
}

// confirmFunc returns the confirmation callback for an apply. It asks only
// when the apply.confirm policy requires it for the plan.
func confirmFunc(s *session, yes bool) func(*engine.PlanResult) bool {
	if yes {
		return nil
	}
	return func(plan *engine.PlanResult) bool {
		if !s.settings.NeedsConfirmation(plan.Plan()) {
			return true
		}
		PrintPlan(plan)
		if !isInteractive(os.Stdin.Fd()) {
			PrintWarning("Confirmation required but stdin is not a terminal; pass --yes to apply.")
			return false
		}
		ok, err := pterm.DefaultInteractiveConfirm.
			WithDefaultText(fmt.Sprintf("Apply %s?", planSummary(plan.Plan()))).
			Show()
		return err == nil && ok
	}
}

// attachProgressBar shows a pterm progress bar while the actions run.
func attachProgressBar(req *engine.ApplyRequest) {
	var bar *pterm.ProgressbarPrinter
	req.Hooks = engine.Hooks{
		BeforeBatch: func(actions []*planner.Action) {
			bar, _ = pterm.DefaultProgressbar.
				WithTotal(len(actions)).
				WithTitle("Applying").
				Start()
		},
		AfterBatch: func(err error) {
			if bar != nil {
				_, _ = bar.Stop()
			}
		},
	}
	req.Progress = func(done, total int, a *planner.Action) {
		if bar != nil {
			bar.UpdateTitle(a.String())
			bar.Increment()
		}
	}
}

func isInteractive(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
