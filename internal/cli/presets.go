package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/pipeline"
)

// presetsCmd represents the presets command
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in evaluation workflows",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), presetsTable(pipeline.Presets()))
	},
}

func presetsTable(presets []pipeline.Preset) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("PRESET", "DESCRIPTION")
	for _, p := range presets {
		t.Row(p.Name, p.Description)
	}
	return t.String()
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
