package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/logger"
)

var (
	fieldsSelection queryFlags
	showHidden      bool
)

// viewsCmd lists the views of a project's semantic layer
var viewsCmd = &cobra.Command{
	Use:           "views",
	Short:         "List semantic layer views",
	RunE:          listViews,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// fieldsCmd lists the fields of a view compatible with a selection
var fieldsCmd = &cobra.Command{
	Use:   "fields <view>",
	Short: "List the fields of a semantic layer view",
	Long: `List the dimensions and metrics of a view.

Pass the current selection with --dimension, --time-dimension and --metric to
only list the fields that can be combined with it.`,
	RunE:          listFields,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(viewsCmd)
	rootCmd.AddCommand(fieldsCmd)

	viewsCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print views as JSON")
	viewsCmd.Flags().BoolVar(&showHidden, "all", false, "Include hidden views")

	f := fieldsCmd.Flags()
	f.StringSliceVarP(&fieldsSelection.dimensions, "dimension", "d", nil, "Selected dimension (repeatable)")
	f.StringSliceVarP(&fieldsSelection.timeDimensions, "time-dimension", "t", nil, "Selected time dimension as name[:granularity] (repeatable)")
	f.StringSliceVarP(&fieldsSelection.metrics, "metric", "m", nil, "Selected metric (repeatable)")
	f.BoolVar(&jsonOutput, "json", false, "Print fields as JSON")
	f.BoolVar(&showHidden, "all", false, "Include hidden fields")
}

func listViews(cmd *cobra.Command, args []string) error {
	log := logger.New("views")
	c, project, err := newAPIClient("views")
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	views, err := c.Views(ctx, project)
	if err != nil {
		return log.Errorf("failed to list views: %w", err)
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), views)
	}

	rows := make([][]any, 0, len(views))
	for _, v := range views {
		if !v.Visible && !showHidden {
			continue
		}
		rows = append(rows, []any{v.Name, v.Label, v.Description})
	}
	return renderTable(cmd.OutOrStdout(), []string{"Name", "Label", "Description"}, rows)
}

func listFields(cmd *cobra.Command, args []string) error {
	log := logger.New("fields")

	selected := domain.SemanticLayerSelectedFields{
		Dimensions: fieldsSelection.dimensions,
		Metrics:    fieldsSelection.metrics,
	}
	for _, raw := range fieldsSelection.timeDimensions {
		td, err := parseTimeDimension(raw)
		if err != nil {
			return log.Errorf("%w", err)
		}
		selected.TimeDimensions = append(selected.TimeDimensions, td)
	}

	c, project, err := newAPIClient("fields")
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	fields, err := c.Fields(ctx, project, args[0], selected)
	if err != nil {
		return log.Errorf("failed to list fields of %s: %w", args[0], err)
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), fields)
	}

	rows := make([][]any, 0, len(fields))
	for _, f := range fields {
		if !f.Visible && !showHidden {
			continue
		}
		granularities := make([]string, len(f.AvailableGranularities))
		for i, g := range f.AvailableGranularities {
			granularities[i] = strings.ToLower(string(g))
		}
		rows = append(rows, []any{f.Name, f.Kind, f.Type, f.Label, strings.Join(granularities, ", ")})
	}
	return renderTable(cmd.OutOrStdout(), []string{"Name", "Kind", "Type", "Label", "Granularities"}, rows)
}
