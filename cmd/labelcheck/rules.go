package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/label-compliance/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate field rule files",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a rule file against the schema and compile its patterns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := rules.LoadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (version %d, %d fields, pass %d, partial %d)\n",
			args[0], rs.Version, len(rs.Rules), rs.Thresholds.Pass, rs.Thresholds.Partial)
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective rule file",
	Long:  "Print the rule file selected by --rules or LABEL_RULES_FILE, or the built-in preset.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.RulesFile == "" {
			data, err := rules.PresetYAML(cfg.RulesPreset)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if _, err := rules.LoadFile(cfg.RulesFile); err != nil {
			return err
		}
		data, err := os.ReadFile(cfg.RulesFile)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var rulesSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema rule files must satisfy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := cmd.OutOrStdout().Write(rules.Schema())
		return err
	},
}

func init() {
	rulesCmd.AddCommand(rulesValidateCmd, rulesShowCmd, rulesSchemaCmd)
	rootCmd.AddCommand(rulesCmd)
}
