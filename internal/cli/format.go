package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/danieljhkim/treedit/internal/engine"
	"github.com/danieljhkim/treedit/internal/planner"
)

var (
	// fatih/color disables these when output is not a TTY
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	valueColor   = color.New(color.FgHiBlack)
	dimColor     = color.New(color.FgHiBlack)
)

// actionColors colors actions by how much they disturb the tree.
var actionColors = map[planner.ActionType]*color.Color{
	planner.ActionCreate: color.New(color.FgGreen),
	planner.ActionCopy:   color.New(color.FgCyan),
	planner.ActionMove:   color.New(color.FgYellow),
	planner.ActionChange: color.New(color.FgMagenta),
	planner.ActionDelete: color.New(color.FgRed),
}

// PrintSection prints a section header
func PrintSection(title string) {
	fmt.Println()
	_, _ = headerColor.Printf("▸ %s\n", title)
	fmt.Println()
}

// PrintSuccess prints a success message with a checkmark
func PrintSuccess(msg string) {
	_, _ = successColor.Printf("✓ %s\n", msg)
}

// PrintWarning prints a warning message with a warning symbol
func PrintWarning(msg string) {
	_, _ = warningColor.Printf("⚠ %s\n", msg)
}

// PrintError prints an error message to stderr
func PrintError(msg string) {
	_, _ = errorColor.Fprintf(os.Stderr, "✗ %s\n", msg)
}

// PrintInfo prints an informational message
func PrintInfo(msg string) {
	fmt.Println(msg)
}

// PrintLabelValue prints a label-value pair with proper formatting
func PrintLabelValue(label, value string) {
	_, _ = labelColor.Printf("  %s: ", label)
	_, _ = valueColor.Println(value)
}

// PrintEmptyState prints a message when there's no data to show
func PrintEmptyState(msg string) {
	_, _ = dimColor.Printf("  %s\n", msg)
}

// PrintCount prints a count with proper formatting
func PrintCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

// PrintActions prints a numbered list of actions in execution order
func PrintActions(actions []*planner.Action) {
	width := len(fmt.Sprint(len(actions)))
	for i, a := range actions {
		fmt.Printf("  %*d. ", width, i+1)
		_, _ = actionColor(a.Type).Printf("%-6s", a.Type)
		fmt.Printf(" %s\n", describeAction(a))
	}
}

func actionColor(t planner.ActionType) *color.Color {
	if c, ok := actionColors[t]; ok {
		return c
	}
	return infoColor
}

// describeAction renders an action without its type.
func describeAction(a *planner.Action) string {
	switch a.Type {
	case planner.ActionMove, planner.ActionCopy:
		return fmt.Sprintf("%s → %s", a.SrcURL, a.DestURL)
	case planner.ActionChange:
		return fmt.Sprintf("%s (%s: %s)", a.URL, a.Column, a.Value)
	case planner.ActionCreate:
		if a.Link != "" {
			return fmt.Sprintf("%s -> %s", a.URL, a.Link)
		}
		if a.EntryType == planner.EntryDirectory {
			return a.URL + "/"
		}
		return a.URL
	default:
		return a.URL
	}
}

// planSummary counts actions by type, e.g. "2 moves, 1 delete".
func planSummary(plan *planner.Plan) string {
	counts := plan.Counts()
	var parts []string
	for _, t := range []planner.ActionType{
		planner.ActionCreate, planner.ActionCopy, planner.ActionMove, planner.ActionChange, planner.ActionDelete,
	} {
		if n := counts[t]; n > 0 {
			parts = append(parts, PrintCount(n, string(t), string(t)+"s"))
		}
	}
	if len(parts) == 0 {
		return "nothing to do"
	}
	return strings.Join(parts, ", ")
}

// PrintPlan prints the ordered actions and any conflicts of a plan
func PrintPlan(result *engine.PlanResult) {
	if result.Unchanged || len(result.Actions) == 0 {
		PrintEmptyState("No changes.")
		return
	}

	PrintSection("Plan")
	PrintActions(result.Actions)
	fmt.Println()
	PrintLabelValue("Summary", planSummary(result.Plan()))

	if result.HasConflicts() {
		PrintSection("Conflicts Detected")
		for _, conflict := range result.Conflicts {
			PrintError(fmt.Sprintf("%s: %s", conflict.URL, conflict.Reason))
		}
		fmt.Println()
		PrintWarning("Use --force to run the plan anyway.")
	}
}

// unifiedDiff returns a unified diff between two listings, or "" when they
// are equal.
func unifiedDiff(original, edited []byte, fromName, toName string) (string, error) {
	u := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(string(edited)),
		FromFile: fromName,
		ToFile:   toName,
		Context:  2,
	}
	return difflib.GetUnifiedDiffString(u)
}

// PrintUnifiedDiff prints a unified diff with added and removed lines colored
func PrintUnifiedDiff(diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			_, _ = labelColor.Print(line)
		case strings.HasPrefix(line, "@@"):
			_, _ = infoColor.Print(line)
		case strings.HasPrefix(line, "+"):
			_, _ = successColor.Print(line)
		case strings.HasPrefix(line, "-"):
			_, _ = errorColor.Print(line)
		default:
			fmt.Print(line)
		}
	}
}
