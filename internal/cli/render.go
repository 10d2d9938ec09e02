package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kweller/nutrisolve/internal/chem"
	"github.com/kweller/nutrisolve/internal/optimizer"
	"github.com/kweller/nutrisolve/internal/planner"
)

// Rendering styles. Colors are disabled automatically when stdout is not a
// terminal (lipgloss handles the detection).
var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// printer formats numbers with locale-aware grouping.
var printer = message.NewPrinter(language.English) //nolint:gochecknoglobals // Shared formatter

// wantJSON reports whether --output json was requested.
func wantJSON(cmd *cobra.Command) bool {
	format, _ := cmd.Flags().GetString("output")
	return format == "json"
}

func renderJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderSolveResult(cmd *cobra.Command, result *optimizer.Result, volumeL float64) error {
	if wantJSON(cmd) {
		return renderJSON(cmd, result)
	}
	out := cmd.OutOrStdout()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Formula") + fmt.Sprintf("  (strategy: %s)\n", result.Strategy))
	for _, id := range result.Formula.IDs() {
		grams := result.Formula[id]
		line := printer.Sprintf("  %-24s %8.3f g/L", id, grams)
		if volumeL > 0 && volumeL != 1 {
			line += printer.Sprintf("   (%.2f g total for %.0f L)", grams*volumeL, volumeL)
		}
		b.WriteString(line + "\n")
	}
	if len(result.Formula) == 0 {
		b.WriteString("  (empty formula)\n")
	}

	b.WriteString("\n" + sectionStyle.Render("Achieved [ppm]") + "\n")
	for _, el := range optimizer.TrackedElements {
		if ppm := result.Achieved[el]; ppm > 0.01 {
			b.WriteString(printer.Sprintf("  %-3s %10.1f\n", string(el), ppm))
		}
	}
	if result.EC > 0 {
		b.WriteString(printer.Sprintf("\n  EC %10.2f mS/cm  (%d scaling rounds)\n", result.EC, result.ECIterations))
	}

	fmt.Fprintln(out, boxStyle.Render(strings.TrimRight(b.String(), "\n")))
	return nil
}

//nolint:funlen // Sequential sections of the plan report.
func renderPlan(cmd *cobra.Command, plan *planner.StockPlan) error {
	if wantJSON(cmd) {
		return renderJSON(cmd, plan)
	}
	out := cmd.OutOrStdout()

	header := fmt.Sprintf("Stock plan %s — %d tanks at %.0f× concentration", plan.ID, plan.TankCount, plan.Concentration)
	if !plan.Feasible {
		header += "  " + errStyle.Render("[INFEASIBLE]")
	}
	fmt.Fprintln(out, titleStyle.Render(header))

	for _, tank := range plan.Tanks {
		var b strings.Builder
		b.WriteString(sectionStyle.Render("Tank "+tank.Label) + "\n")
		ids := tank.FertilizerIDs()
		if len(ids) == 0 {
			b.WriteString("  (empty)\n")
		}
		for _, id := range ids {
			b.WriteString(printer.Sprintf("  %-24s %9.1f g/L   %3.0f%% of solubility\n",
				id, tank.Fertilizers[id], tank.SolubilityUse[id]*100))
		}
		fmt.Fprintln(out, boxStyle.Render(strings.TrimRight(b.String(), "\n")))
	}

	for _, dosing := range plan.Dosing {
		var b strings.Builder
		b.WriteString(sectionStyle.Render("Target "+dosing.TargetName) + "\n")
		for _, tank := range plan.Tanks {
			b.WriteString(printer.Sprintf("  Tank %s %8.2f mL/L\n", tank.Label, dosing.TankML[tank.Label]))
		}
		b.WriteString("  achieved: ")
		parts := make([]string, 0, len(optimizer.TrackedElements))
		for _, el := range optimizer.TrackedElements {
			if ppm := dosing.Achieved[el]; ppm > 0.01 {
				parts = append(parts, printer.Sprintf("%s %.0f", string(el), ppm))
			}
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(printer.Sprintf("  |  EC %.2f mS/cm\n", dosing.AchievedEC))
		for _, issue := range dosing.Issues {
			b.WriteString("  " + renderIssue(issue) + "\n")
		}
		fmt.Fprintln(out, boxStyle.Render(strings.TrimRight(b.String(), "\n")))
	}

	for _, issue := range plan.Issues {
		fmt.Fprintln(out, renderIssue(issue))
	}
	return nil
}

func renderIssue(issue planner.Issue) string {
	label := warnStyle.Render("warning")
	if issue.Level == planner.LevelError {
		label = errStyle.Render("error")
	}
	return fmt.Sprintf("%s [%s] %s", label, issue.Code, issue.Message)
}

func renderCatalogList(cmd *cobra.Command, fertilizers []chem.Fertilizer) error {
	if wantJSON(cmd) {
		return renderJSON(cmd, fertilizers)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-24s %-36s %-10s %s\n", "ID", "NAME", "COMPAT", "SOLUBILITY")
	for _, f := range fertilizers {
		compat := string(f.Compat)
		if compat == "" {
			compat = string(chem.CompatNeutral)
		}
		fmt.Fprintf(out, "%-24s %-36s %-10s %.0f g/L\n", f.ID, f.Name, compat, f.EffectiveSolubility())
	}
	return nil
}

func renderCatalogShow(cmd *cobra.Command, f chem.Fertilizer, grams float64, contribution chem.Profile, balance chem.BalanceResult) error {
	if wantJSON(cmd) {
		return renderJSON(cmd, map[string]interface{}{
			"fertilizer":   f,
			"grams":        grams,
			"contribution": contribution,
			"ion_balance":  balance,
		})
	}
	out := cmd.OutOrStdout()

	var b strings.Builder
	b.WriteString(titleStyle.Render(f.Name) + fmt.Sprintf("  (%s)\n", f.ID))
	b.WriteString(printer.Sprintf("  solubility %.0f g/L, dose %.2f g/L\n\n", f.EffectiveSolubility(), grams))
	b.WriteString(sectionStyle.Render("Contribution [ppm]") + "\n")
	for _, key := range contribution.Nutrients() {
		b.WriteString(printer.Sprintf("  %-8s %10.1f\n", string(key), contribution[key]))
	}
	if f.Dissociation != nil {
		b.WriteString("\n" + sectionStyle.Render("Ion balance") + "\n")
		b.WriteString(printer.Sprintf("  cations %.2f meq/L, anions %.2f meq/L, imbalance %.1f%% (%s)\n",
			balance.TotalCations, balance.TotalAnions, balance.ImbalancePct, balance.Status))
	}
	fmt.Fprintln(out, boxStyle.Render(strings.TrimRight(b.String(), "\n")))
	return nil
}

func renderEC(cmd *cobra.Command, result chem.ECResult, opts chem.ECOptions) error {
	if wantJSON(cmd) {
		return renderJSON(cmd, result)
	}
	out := cmd.OutOrStdout()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Estimated conductivity") + "\n")
	b.WriteString(printer.Sprintf("  EC          %8.3f mS/cm (25 °C)\n", result.EC))
	if opts.TemperatureC != 25 {
		b.WriteString(printer.Sprintf("  EC at %g °C %8.3f mS/cm\n", opts.TemperatureC, result.ECAtTemp))
	}
	b.WriteString(printer.Sprintf("  raw         %8.3f mS/cm\n", result.RawEC))
	b.WriteString(printer.Sprintf("  ionic strength %.5f mol/L\n", result.IonicStrength))
	fmt.Fprintln(out, boxStyle.Render(strings.TrimRight(b.String(), "\n")))
	return nil
}
