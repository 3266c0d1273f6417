package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"ai-research-be/internal/dto"
	"ai-research-be/pkg/research/scheduler"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	apiURL  string
	token   string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "researchctl",
	Short:         "Operate the autonomous research scheduler",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("RESEARCH_API_URL", "http://localhost:3000/api"), "research API base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("RESEARCH_API_TOKEN"), "bearer token")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")

	triggerCmd.Flags().Bool("wait", false, "run inline and print the cycle report")

	tuneCmd.Flags().String("interval", "", "cycle interval, e.g. 10m")
	tuneCmd.Flags().Int("workers", 0, "research worker pool size")
	tuneCmd.Flags().Int("budget", -1, "expansion budget per root topic")
	tuneCmd.Flags().Int("depth", -1, "maximum expansion depth")
	tuneCmd.Flags().Float64("global-threshold", -1, "impetus needed to research at all")
	tuneCmd.Flags().Float64("topic-threshold", -1, "motivation needed to admit a topic")
	tuneCmd.Flags().Int("expansion-workers", 0, "expansion worker pool size")
	tuneCmd.Flags().Float64("boredom-rate", 0, "boredom growth per second")
	tuneCmd.Flags().Float64("curiosity-decay", 0, "curiosity decay per second")
	tuneCmd.Flags().Float64("tiredness-decay", 0, "tiredness decay per second")
	tuneCmd.Flags().Float64("satisfaction-decay", 0, "satisfaction decay per second")
	tuneCmd.Flags().Float64("staleness-scale", 0, "staleness pressure per second since last research")
	tuneCmd.Flags().Float64("engagement-weight", 0, "weight of the engagement score in topic motivation")
	tuneCmd.Flags().Float64("quality-weight", 0, "weight of the success rate in topic motivation")

	rootCmd.AddCommand(statusCmd, startCmd, stopCmd, restartCmd, triggerCmd, tuneCmd, driveCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func client() *apiClient {
	return newAPIClient(apiURL, token, timeout)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scheduler state and the last cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		var st scheduler.Status
		if _, err := client().do(ctx, http.MethodGet, "/status", nil, &st); err != nil {
			return err
		}
		printStatus(st)
		return nil
	},
}

func lifecycleCmd(use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			var st scheduler.Status
			env, err := client().do(ctx, http.MethodPost, path, nil, &st)
			if err != nil {
				return err
			}
			color.Green("%s", env.Message)
			printStatus(st)
			return nil
		},
	}
}

var (
	startCmd   = lifecycleCmd("start", "Start the periodic loop", "/start")
	stopCmd    = lifecycleCmd("stop", "Stop the loop, waiting for in-flight research", "/stop")
	restartCmd = lifecycleCmd("restart", "Stop then start the loop", "/restart")
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Research the token owner's topics now, bypassing the drive gate",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		wait, _ := cmd.Flags().GetBool("wait")
		path := "/trigger"
		if wait {
			path += "?wait=true"
		}

		var res struct {
			Queued bool                   `json:"queued"`
			Report *scheduler.CycleReport `json:"report"`
		}
		env, err := client().do(ctx, http.MethodPost, path, nil, &res)
		if err != nil {
			return err
		}
		color.Green("%s", env.Message)
		if res.Report != nil {
			printReport(*res.Report)
		}
		return nil
	},
}

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Change scheduler and drive settings without a restart",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := tuneRequest(cmd)
		ctx, cancel := commandContext(cmd)
		defer cancel()

		var st scheduler.Status
		env, err := client().do(ctx, http.MethodPatch, "/config", req, &st)
		if err != nil {
			return err
		}
		color.Green("%s", env.Message)
		printStatus(st)
		return nil
	},
}

// tuneRequest only carries the flags the operator set.
func tuneRequest(cmd *cobra.Command) dto.UpdateResearchConfigRequest {
	var req dto.UpdateResearchConfigRequest
	flags := cmd.Flags()
	if flags.Changed("interval") {
		v, _ := flags.GetString("interval")
		req.Interval = &v
	}
	if flags.Changed("workers") {
		v, _ := flags.GetInt("workers")
		req.ResearchWorkers = &v
	}
	if flags.Changed("budget") {
		v, _ := flags.GetInt("budget")
		req.PerRootExpansionBudget = &v
	}
	if flags.Changed("depth") {
		v, _ := flags.GetInt("depth")
		req.MaxExpansionDepth = &v
	}
	if flags.Changed("expansion-workers") {
		v, _ := flags.GetInt("expansion-workers")
		req.ExpansionWorkers = &v
	}

	floats := map[string]**float64{
		"global-threshold":   &req.GlobalThreshold,
		"topic-threshold":    &req.TopicThreshold,
		"boredom-rate":       &req.BoredomRate,
		"curiosity-decay":    &req.CuriosityDecay,
		"tiredness-decay":    &req.TirednessDecay,
		"satisfaction-decay": &req.SatisfactionDecay,
		"staleness-scale":    &req.StalenessScale,
		"engagement-weight":  &req.EngagementWeight,
		"quality-weight":     &req.QualityWeight,
	}
	for name, dst := range floats {
		if flags.Changed(name) {
			v, _ := flags.GetFloat64(name)
			*dst = &v
		}
	}
	return req
}

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Show the drive state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		var d dto.DriveResponse
		if _, err := client().do(ctx, http.MethodGet, "/drive", nil, &d); err != nil {
			return err
		}
		raw, _ := json.MarshalIndent(d, "", "  ")
		fmt.Println(string(raw))
		return nil
	},
}

func printStatus(st scheduler.Status) {
	state := color.RedString("stopped")
	if st.Running {
		state = color.GreenString("running")
	}
	if !st.Enabled {
		state = color.YellowString("disabled")
	}
	fmt.Printf("Scheduler: %s  engine=%s  interval=%s\n", state, st.EngineType, st.Interval)
	fmt.Printf("Drives:    boredom=%.2f curiosity=%.2f tiredness=%.2f satisfaction=%.2f impetus=%.2f\n",
		st.Drives.Boredom, st.Drives.Curiosity, st.Drives.Tiredness, st.Drives.Satisfaction, st.Impetus)
	if st.LastCycle != nil {
		printReport(*st.LastCycle)
	}
}

func printReport(r scheduler.CycleReport) {
	kind := "scheduled"
	if r.Manual {
		kind = "manual"
	}
	color.Cyan("Cycle %s (%s) at %s", r.ID, kind, r.StartedAt.Format(time.RFC3339))
	switch {
	case r.Gated:
		color.Yellow("  gated: impetus %.2f below threshold", r.Impetus)
		return
	case r.LeaseHeld:
		color.Yellow("  skipped: another instance holds the cycle lease")
		return
	}
	fmt.Printf("  owners=%d skipped=%d researched=%d stored=%d expansions=%d took=%s\n",
		len(r.Owners), r.OwnersSkipped(), r.TopicsResearched(), r.FindingsStored(), r.ExpansionsCreated(), r.Duration().Round(time.Millisecond))
}
