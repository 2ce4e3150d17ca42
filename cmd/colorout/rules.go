package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Veraticus/colorout/pkg/config"
	"github.com/Veraticus/colorout/pkg/rules"
	"github.com/Veraticus/colorout/pkg/settings"
	"github.com/Veraticus/colorout/pkg/theme"
	"github.com/Veraticus/colorout/pkg/types"
)

func newRulesCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Show and edit classification rules",
		Long: `Rules are tried in order for every line of output; the first rule whose
pattern matches decides the line's classification. Lines no rule matches are
printed unchanged.

Classifications: BuildHeader, Error, Warning, Information, Custom1-Custom4.`,
		Example: `  # Show the active rules
  colorout rules list

  # Color lines mentioning "deprecated" as warnings, ahead of all other rules
  colorout rules add 'deprecated' Warning --at 0

  # Stop the build at the first error
  colorout rules stop-on-error on`,
	}

	cmd.AddCommand(
		newRulesListCommand(c),
		newRulesAddCommand(c),
		newRulesRemoveCommand(c),
		newRulesMoveCommand(c),
		newRulesResetCommand(c),
		newRulesStopOnErrorCommand(c),
		newRulesExportCommand(c),
		newRulesImportCommand(c),
		newRulesPathCommand(c),
	)
	return cmd
}

func newRulesListCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the active rules in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDependencies(func(cfg *config.Config, deps *Dependencies) error {
				ctrl := deps.Settings
				_, _ = fmt.Fprintln(c.out, renderRules(c.out, cfg.Color, deps.Theme, ctrl.Rules(), ctrl.StopOnBuildError()))
				warnInvalid(c.errOut, ctrl.Rules())
				return nil
			})
		},
	}
}

// renderRules renders the rule set as a table, each classification shown in
// its own color
func renderRules(w io.Writer, mode string, th *theme.Theme, rs types.RuleSet, stopOnBuildError bool) string {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(theme.DetectProfile(w, mode))

	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)
	muted := r.NewStyle().Faint(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(muted).
		Headers("#", "CLASSIFICATION", "CASE", "PATTERN").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})

	for i, rule := range rs.Rules() {
		caseLabel := "sensitive"
		if rule.CaseInsensitive {
			caseLabel = "ignore"
		}
		t.Row(strconv.Itoa(i), th.Render(rule.Classification, rule.Classification.String()), caseLabel, rule.Pattern)
	}

	stop := "off"
	if stopOnBuildError {
		stop = "on"
	}

	var sb strings.Builder
	if rs.Len() == 0 {
		sb.WriteString(muted.Render("No rules; every line is printed unchanged."))
	} else {
		sb.WriteString(t.String())
	}
	sb.WriteString("\n")
	_, _ = fmt.Fprintf(&sb, "Stop on build error: %s", stop)
	return sb.String()
}

// warnInvalid reports rules the classifier will skip
func warnInvalid(w io.Writer, rs types.RuleSet) {
	for _, err := range rules.Validate(rs) {
		_, _ = fmt.Fprintf(w, "warning: %v (rule is skipped)\n", err)
	}
}

func newRulesAddCommand(c *cli) *cobra.Command {
	var (
		at            int
		caseSensitive bool
		force         bool
	)
	cmd := &cobra.Command{
		Use:   "add <pattern> <classification>",
		Short: "Add a rule",
		Long: `Add a rule matching pattern (a regular expression) with the given
classification. The rule is appended unless --at places it earlier; earlier
rules take priority.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := types.ParseClassification(args[1])
			if err != nil {
				return err
			}
			rule := types.NewRule(args[0], tag, !caseSensitive)
			if _, err := rules.Compile(rule); err != nil && !force {
				return fmt.Errorf("invalid pattern (use --force to save it anyway): %w", err)
			}

			return c.editRules(func(rs types.RuleSet) (types.RuleSet, error) {
				rs = rs.With(rule)
				if cmd.Flags().Changed("at") {
					return rs.Move(rs.Len()-1, at)
				}
				return rs, nil
			}, func(rs types.RuleSet) string {
				return fmt.Sprintf("Added rule: %s", rule)
			})
		},
	}
	cmd.Flags().IntVar(&at, "at", 0, "Insert the rule at this position")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "Match case exactly")
	cmd.Flags().BoolVar(&force, "force", false, "Save a pattern that does not compile")
	return cmd
}

func newRulesRemoveCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the rule at index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			var removed types.Rule
			return c.editRules(func(rs types.RuleSet) (types.RuleSet, error) {
				if i < rs.Len() {
					removed = rs.At(i)
				}
				return rs.Without(i)
			}, func(rs types.RuleSet) string {
				return fmt.Sprintf("Removed rule: %s", removed)
			})
		},
	}
}

func newRulesMoveCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "move <from> <to>",
		Short: "Move a rule to a new position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			to, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			return c.editRules(func(rs types.RuleSet) (types.RuleSet, error) {
				return rs.Move(from, to)
			}, func(rs types.RuleSet) string {
				return fmt.Sprintf("Moved rule %d to %d: %s", from, to, rs.At(to))
			})
		},
	}
}

func newRulesResetCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the built-in rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editRules(func(types.RuleSet) (types.RuleSet, error) {
				return rules.Defaults(), nil
			}, func(rs types.RuleSet) string {
				return fmt.Sprintf("Restored %d built-in rules", rs.Len())
			})
		},
	}
}

func newRulesStopOnErrorCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stop-on-error [on|off]",
		Short: "Show or set whether the build stops at the first error",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDependencies(func(cfg *config.Config, deps *Dependencies) error {
				ctrl := deps.Settings
				if len(args) == 0 {
					_, _ = fmt.Fprintln(c.out, onOff(ctrl.StopOnBuildError()))
					return nil
				}
				enabled, err := parseOnOff(args[0])
				if err != nil {
					return err
				}
				ctrl.SetStopOnBuildError(enabled)
				if err := ctrl.Save(); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(c.out, "Stop on build error: %s\n", onOff(enabled))
				return nil
			})
		},
	}
}

func newRulesExportCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the active rules as a JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDependencies(func(cfg *config.Config, deps *Dependencies) error {
				data, err := rules.Marshal(deps.Settings.Rules())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(c.out, string(data))
				return err
			})
		},
	}
}

func newRulesImportCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace the rules with a JSON document",
		Long: `Replace the active rules with the rules in a JSON document as written by
"colorout rules export". Use - to read the document from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(c.in, args[0])
			if err != nil {
				return err
			}
			imported, err := rules.Unmarshal(data)
			if err != nil {
				return fmt.Errorf("invalid rules document: %w", err)
			}
			return c.editRules(func(types.RuleSet) (types.RuleSet, error) {
				return imported, nil
			}, func(rs types.RuleSet) string {
				return fmt.Sprintf("Imported %d rules", rs.Len())
			})
		},
	}
}

func newRulesPathCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the rules are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDependencies(func(cfg *config.Config, deps *Dependencies) error {
				_, _ = fmt.Fprintln(c.out, deps.StorePath())
				return nil
			})
		},
	}
}

// editRules applies edit to the active rules, saves the result and prints
// the message describe returns
func (c *cli) editRules(edit func(types.RuleSet) (types.RuleSet, error), describe func(types.RuleSet) string) error {
	return c.withDependencies(func(cfg *config.Config, deps *Dependencies) error {
		return applyEdit(deps.Settings, c.out, c.errOut, edit, describe)
	})
}

func applyEdit(ctrl *settings.Controller, out, errOut io.Writer, edit func(types.RuleSet) (types.RuleSet, error), describe func(types.RuleSet) string) error {
	rs, err := edit(ctrl.Rules())
	if err != nil {
		return err
	}
	ctrl.SetRules(rs)
	if err := ctrl.Save(); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, describe(rs))
	warnInvalid(errOut, rs)
	return nil
}

func readInput(in io.Reader, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
		return data, nil
	}
	// #nosec G304 - the path is given by the user on the command line
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid rule index %q", s)
	}
	return i, nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
