package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bc19/internal/model"
	"github.com/derickschaefer/bc19/internal/render"
	"github.com/derickschaefer/bc19/internal/timeline"
)

var (
	axisTicks  int
	axisGroups bool
	axisInput  inputFlags
)

var axisCmd = &cobra.Command{
	Use:   "axis [MAX...]",
	Short: "Chart axis scale: step size and axis maximum for a largest value",
	Long: `Axis computes the value-axis scale the dashboard charts use. The step is
rounded up to a granularity that depends on the magnitude of the value,
and the axis maximum is the smallest whole number of steps that covers it.

With --groups the timeline is reduced and every chart group's maximum
is scaled instead.`,
	Example: `  bc19 axis 187
  bc19 axis 95 1240 18000 --ticks 4
  bc19 axis --groups`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if axisTicks < 1 {
			return fmt.Errorf("--ticks must be >= 1, got %d", axisTicks)
		}
		if !axisGroups && len(args) == 0 {
			return fmt.Errorf("give at least one value, or --groups")
		}

		start := time.Now()
		type entry struct {
			name  string
			value float64
		}
		var entries []entry
		for _, a := range args {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return fmt.Errorf("invalid value %q", a)
			}
			entries = append(entries, entry{a, v})
		}

		format := resolveFormat("")
		source := ""
		if axisGroups {
			deps, err := buildDeps()
			if err != nil {
				return err
			}
			defer deps.Close()
			tl, l, err := loadTimeline(cmd.Context(), deps, &axisInput)
			if err != nil {
				return err
			}
			for _, g := range tl.GroupNames() {
				entries = append(entries, entry{g, tl.GroupMax(g)})
			}
			format = resolveFormat(deps.Config.Format)
			source = l.Source
		}

		t := model.Table{Headers: []string{"NAME", "MAX", "GRANULARITY", "STEP", "AXIS MAX"}}
		for _, e := range entries {
			t.Rows = append(t.Rows, []string{
				e.name,
				render.FormatValue(model.Num(e.value)),
				render.FormatValue(model.Num(timeline.Granularity(e.value))),
				render.FormatValue(model.Num(timeline.StepSize(e.value, axisTicks))),
				render.FormatValue(model.Num(timeline.AxisMax(e.value, axisTicks))),
			})
		}
		result := newResult(model.KindTable, cmd.CommandPath(), t, len(t.Rows), source, start)
		return emit(result, format)
	},
}

func init() {
	rootCmd.AddCommand(axisCmd)
	axisInput.register(axisCmd)
	axisCmd.Flags().IntVar(&axisTicks, "ticks", 5, "desired number of axis steps")
	axisCmd.Flags().BoolVar(&axisGroups, "groups", false, "scale every chart group maximum from the reduced timeline")
}
