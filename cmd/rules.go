package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/huangsam/pmoinsight/core"
	"github.com/huangsam/pmoinsight/internal/contract"
	"github.com/huangsam/pmoinsight/schema"
)

// rulesCmd groups rule management.
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage evaluation rules",
	Long: `List, create, update and delete the rules the engine evaluates.

Rule types:
  conversion  - unit conversion such as story points to hours
  alert       - threshold on a built-in metric
  validation  - required or bounded field check
  calculation - derived value from a built-in expression

Examples:
  pmoinsight rules list --type alert
  pmoinsight rules create --name "Budget overrun" --type alert \
    --params '{"metric":"budget_overrun_pct","threshold":20,"comparison":"gt","severity":"warning"}'`,
}

var rulesListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List rules in priority order",
	PreRunE: sharedSetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		typeFlag, _ := cmd.Flags().GetString("type")
		all, _ := cmd.Flags().GetBool("all")
		ruleType := schema.RuleType(strings.ToLower(typeFlag))
		if ruleType != "" && !schema.ValidRuleTypes[ruleType] {
			return schema.NewValidationError("rule_type", "unknown rule type %q", typeFlag)
		}
		return core.ExecuteListRules(rootCtx, cfg, svc, ruleType, !all)
	},
}

var rulesCreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Create a rule",
	PreRunE: sharedSetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		draft, err := draftFromFlags(cmd)
		if err != nil {
			return err
		}
		return core.ExecuteSaveRule(rootCtx, cfg, svc, 0, draft)
	},
}

var rulesUpdateCmd = &cobra.Command{
	Use:     "update <id>",
	Short:   "Replace a rule's definition",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetup,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		draft, err := draftFromFlags(cmd)
		if err != nil {
			return err
		}
		return core.ExecuteSaveRule(rootCtx, cfg, svc, id, draft)
	},
}

var rulesDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Short:   "Delete a rule (its insights are kept)",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return core.ExecuteDeleteRule(rootCtx, svc, id)
	},
}

// draftFromFlags assembles a rule draft; parameters come from --params or --params-file.
func draftFromFlags(cmd *cobra.Command) (schema.RuleDraft, error) {
	flags := cmd.Flags()
	name, _ := flags.GetString("name")
	description, _ := flags.GetString("description")
	ruleType, _ := flags.GetString("type")
	params, _ := flags.GetString("params")
	paramsFile, _ := flags.GetString("params-file")
	priority, _ := flags.GetInt("priority")
	activeFlag, _ := flags.GetString("active")

	if params != "" && paramsFile != "" {
		return schema.RuleDraft{}, fmt.Errorf("use either --params or --params-file, not both")
	}
	if paramsFile != "" {
		data, err := os.ReadFile(paramsFile)
		if err != nil {
			return schema.RuleDraft{}, fmt.Errorf("failed to read parameters file: %w", err)
		}
		params = string(data)
	}

	active, err := contract.ParseBoolString(activeFlag)
	if err != nil {
		return schema.RuleDraft{}, fmt.Errorf("invalid --active value: %w", err)
	}

	draft := schema.RuleDraft{
		Name:        name,
		Description: description,
		RuleType:    schema.RuleType(strings.ToLower(ruleType)),
		IsActive:    &active,
		Priority:    priority,
	}
	if strings.TrimSpace(params) != "" {
		draft.Parameters = json.RawMessage(params)
	}
	return draft, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", s)
	}
	return id, nil
}
