package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/deskagent"
)

func newRunCmd() *cobra.Command {
	var showSteps bool

	cmd := &cobra.Command{
		Use:   "run <goal>...",
		Short: "Execute a free-text goal and print the answer",
		Example: `  deskagent run find all PDFs in my Downloads folder
  deskagent run "check system status"
  deskagent run --steps summarize what is using my CPU`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := buildLogger(cfg)

			assistant := deskagent.New(func(o *deskagent.Options) {
				o.Model = buildModel(cfg)
				o.Registry = buildRegistry(cfg, logger)
				o.MaxSteps = cfg.Model.MaxSteps
				o.Logger = logger
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res := assistant.Run(ctx, strings.Join(args, " "))

			if showSteps && len(res.Steps) > 0 {
				for _, step := range res.Steps {
					status := "ok"
					if !step.Result.Success {
						status = "FAILED"
					}
					fmt.Printf("[%d] %s  %s  (%s)  %s\n",
						step.Seq, step.ToolName, status, step.Elapsed.Round(time.Millisecond), step.Thought)
				}
				fmt.Println()
			}

			fmt.Println(res.Answer)

			if !res.Success {
				os.Exit(1)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&showSteps, "steps", false, "print the tool step trace before the answer")

	return cmd
}
