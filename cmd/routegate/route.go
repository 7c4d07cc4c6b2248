package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zen-systems/routegate/pkg/dispatch"
	"github.com/zen-systems/routegate/pkg/router"
)

type taskFlags struct {
	taskType      string
	urgencyMS     int
	contextTokens int
	creative      bool
	strictQuality bool
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.taskType, "task-type", "", "task type, e.g. code_generation, analysis, research")
	cmd.Flags().IntVar(&f.urgencyMS, "urgency-ms", 0, "latency budget in milliseconds")
	cmd.Flags().IntVar(&f.contextTokens, "context-tokens", 0, "expected context size in tokens")
	cmd.Flags().BoolVar(&f.creative, "creative", false, "task wants creative output")
	cmd.Flags().BoolVar(&f.strictQuality, "strict-quality", false, "task demands the strongest model")
}

// task builds a TaskSpec; numeric fields are present only when their flag was set.
func (f *taskFlags) task(cmd *cobra.Command) router.TaskSpec {
	t := router.TaskSpec{
		TaskType:      f.taskType,
		Creative:      f.creative,
		StrictQuality: f.strictQuality,
	}
	if cmd.Flags().Changed("urgency-ms") {
		t.UrgencyMS = router.Int(f.urgencyMS)
	}
	if cmd.Flags().Changed("context-tokens") {
		t.ContextTokens = router.Int(f.contextTokens)
	}
	return t
}

func routeCmd() *cobra.Command {
	var (
		flags    taskFlags
		jsonFlag bool
		repeat   int
		prompt   string
	)

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Route a task and print the decision",
		Long: `Routes one task through the rules, the breaker and the budget ledger.

Use --repeat to route the same task several times against one ledger and
watch it move from allow to soft_cap to blocked. Use --prompt to also print
the provider request the primary call would send.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			task := flags.task(cmd)
			for i := 0; i < max(repeat, 1); i++ {
				route, err := rt.Router.Route(context.Background(), task)
				if err != nil {
					return err
				}
				if jsonFlag {
					if err := writeJSON(out, route); err != nil {
						return err
					}
				} else if err := printRoute(out, route); err != nil {
					return err
				}

				if prompt != "" && route.Admitted() {
					req, err := dispatch.Shape(route.Primary, prompt)
					if err != nil {
						return err
					}
					if err := writeJSON(out, req); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the decision as JSON")
	cmd.Flags().IntVar(&repeat, "repeat", 1, "route the task this many times")
	cmd.Flags().StringVar(&prompt, "prompt", "", "print the provider request for this prompt")
	return cmd
}

func printRoute(out io.Writer, route *router.SelectedRoute) error {
	category := string(route.Category)
	if route.Subkey != "" {
		category += "/" + route.Subkey
	}
	fmt.Fprintf(out, "route %s  category=%s  rule=%s  estimate=$%.4f\n",
		route.ID, category, route.Rule, route.EstimatedCostUSD)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROLE\tPROVIDER\tMODEL\tCREDENTIAL\tDECISION")
	fmt.Fprintf(w, "primary\t%s\t%s\t%s\t%s\n",
		route.Primary.Provider, route.Primary.ProviderModel, dash(route.Primary.SelectedCredential), route.Primary.Decision)
	for i, fb := range route.Fallbacks {
		fmt.Fprintf(w, "fallback %d\t%s\t%s\t%s\t%s\n",
			i+1, fb.Provider, fb.ProviderModel, dash(fb.SelectedCredential), fb.Decision)
	}
	return w.Flush()
}

func explainCmd() *cobra.Command {
	var flags taskFlags

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show which rule selects a task's category",
		RunE: func(cmd *cobra.Command, args []string) error {
			task := flags.task(cmd)
			rules := router.DefaultRules()
			sel := rules.Select(task)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ORDER\tRULE\tCATEGORY\tMATCH")
			for i, rule := range rules.Rules() {
				mark := ""
				if rule.Name == sel.Rule {
					mark = "<-"
				}
				target := string(rule.Category)
				if rule.Subkey != "" {
					target += "/" + rule.Subkey
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, rule.Name, target, mark)
			}
			if sel.Rule == "default" {
				fmt.Fprintf(w, "-\tdefault\t%s\t<-\n", sel.Category)
			}
			return w.Flush()
		},
	}
	flags.register(cmd)
	return cmd
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
