package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zen-systems/routecheck/pkg/config"
	"github.com/zen-systems/routecheck/pkg/evidence"
	"github.com/zen-systems/routecheck/pkg/oracle"
	"github.com/zen-systems/routecheck/pkg/remote"
	"github.com/zen-systems/routecheck/pkg/report"
)

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "routecheck",
		Short: "Validation oracle for multi-model task routing services",
		Long: `Routecheck drives a running routing service through its route, telemetry,
	and vote operations and scores what comes back: each task category must
	land on an acceptable model, learned telemetry should agree with the
	expectations, and the accuracy summary is put to a multi-role vote.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(os.Stderr)
			log.SetLevel(log.WarnLevel)
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to expectations config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(expectationsCmd())
	rootCmd.AddCommand(renderCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var (
		endpointFlag  string
		tokenFlag     string
		commandFlag   string
		argFlags      []string
		telemetryFlag bool
		voteFlag      bool
		strategyFlag  string
		formatFlag    string
		outFlag       string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Validate a routing service and report accuracy",
		Long: `Runs every configured expectation through the service's route operation,
	scores the recommendations, then optionally fetches learning telemetry
	and submits the accuracy summary for a consensus vote.

	The service is reached over HTTP (--endpoint), as a local subprocess
	speaking JSON-RPC on stdio (--cmd), or falls back to the built-in
	simulation when neither is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if cmd.Flags().Changed("endpoint") {
				cfg.Remote.Endpoint = endpointFlag
			}
			if cmd.Flags().Changed("token") {
				cfg.Remote.Token = tokenFlag
			}
			if cmd.Flags().Changed("cmd") {
				cfg.Remote.Command = commandFlag
			}
			if cmd.Flags().Changed("arg") {
				cfg.Remote.Args = argFlags
			}
			if cmd.Flags().Changed("telemetry") {
				cfg.Telemetry = telemetryFlag
			}
			if cmd.Flags().Changed("vote") {
				cfg.Vote = voteFlag
			}
			if cmd.Flags().Changed("strategy") {
				cfg.Strategy = strategyFlag
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			format, err := report.ParseFormat(formatFlag)
			if err != nil {
				return err
			}

			inv, cleanup, err := buildInvoker(cfg)
			if err != nil {
				return fmt.Errorf("failed to reach routing service: %w", err)
			}
			defer cleanup()

			o, err := oracle.New(inv)
			if err != nil {
				return err
			}

			rep, err := o.Run(context.Background(), oracle.RunOptions{
				Expectations: cfg.Expectations,
				Telemetry:    cfg.Telemetry,
				Vote:         cfg.Vote,
				Strategy:     cfg.VoteStrategy(),
			})
			if err != nil {
				return err
			}

			logTelemetryAgreement(rep, cfg.Expectations)

			rendered, err := report.Render(rep, format)
			if err != nil {
				return err
			}
			fmt.Println(strings.TrimRight(string(rendered), "\n"))

			if outFlag != "" {
				w, err := evidence.NewWriter(outFlag, rep.RunID)
				if err != nil {
					return err
				}
				if err := w.WriteReport(rep); err != nil {
					return err
				}
				if format != report.FormatJSON {
					if err := w.WriteRendered(format, rendered); err != nil {
						return err
					}
				}
				fmt.Fprintf(os.Stderr, "Run complete. Evidence: %s\n", w.RunDir())
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&endpointFlag, "endpoint", "", "routing service HTTP endpoint")
	cmd.Flags().StringVar(&tokenFlag, "token", "", "bearer token for the HTTP endpoint")
	cmd.Flags().StringVar(&commandFlag, "cmd", "", "routing service subprocess command")
	cmd.Flags().StringArrayVar(&argFlags, "arg", nil, "subprocess argument (repeatable)")
	cmd.Flags().BoolVar(&telemetryFlag, "telemetry", true, "fetch learning telemetry after routing")
	cmd.Flags().BoolVar(&voteFlag, "vote", true, "submit the accuracy summary for a consensus vote")
	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "vote strategy (simple-majority, supermajority, unanimous, proof-of-learning, higher-order)")
	cmd.Flags().StringVar(&formatFlag, "format", "text", "output format (json, markdown, text)")
	cmd.Flags().StringVar(&outFlag, "out", "", "evidence output base directory")

	return cmd
}

// buildInvoker selects the transport from config: HTTP endpoint, local
// subprocess, or the built-in simulation. The returned cleanup shuts the
// transport down.
func buildInvoker(cfg *config.Config) (remote.Invoker, func(), error) {
	timeout := time.Duration(cfg.Remote.TimeoutSeconds) * time.Second

	switch {
	case cfg.Remote.Endpoint != "":
		inv, err := remote.NewHTTPInvoker(remote.HTTPConfig{
			Endpoint: cfg.Remote.Endpoint,
			Token:    cfg.Remote.Token,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return inv, func() {}, nil

	case cfg.Remote.Command != "":
		proc, err := remote.StartProc(cfg.Remote.Command, cfg.Remote.Args...)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := proc.Close(); err != nil {
				log.WithError(err).Warn("closing routing service subprocess")
			}
		}
		return remote.WithTimeout(proc, timeout), cleanup, nil
	}

	return remote.NewSimInvoker(), func() {}, nil
}

// logTelemetryAgreement reports, per expectation, whether the service's
// learned mappings agree with what the oracle expects.
func logTelemetryAgreement(rep *oracle.Report, expectations []config.Expectation) {
	if rep.Telemetry == nil {
		return
	}
	for _, exp := range expectations {
		fields := log.Fields{"category": exp.Category, "expected": exp.Expected}
		if oracle.SnapshotConfirms(rep.Telemetry, exp.Category, exp.Expected) {
			log.WithFields(fields).Debug("telemetry confirms expectation")
		} else {
			log.WithFields(fields).Debug("telemetry has not converged on expectation")
		}
	}
}

func expectationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expectations",
		Short: "Show the expectations a run will validate",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tPREFER\tEXPECTED\tACCEPTABLE\tTASK")
			for _, exp := range cfg.Expectations {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					exp.Category, exp.Prefer, exp.Expected,
					strings.Join(exp.Acceptable, ", "), exp.Task)
			}
			return w.Flush()
		},
	}
}

func renderCmd() *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "render [report.json]",
		Short: "Re-render a saved run report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			rep, err := report.Parse(data)
			if err != nil {
				return err
			}

			format, err := report.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			rendered, err := report.Render(rep, format)
			if err != nil {
				return err
			}
			fmt.Println(strings.TrimRight(string(rendered), "\n"))
			return nil
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "markdown", "output format (json, markdown, text)")

	return cmd
}
