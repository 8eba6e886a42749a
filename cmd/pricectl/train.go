package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yerevan-pricing/backend/internal/config"
	"github.com/yerevan-pricing/backend/internal/datasource"
	"github.com/yerevan-pricing/backend/internal/db"
	"github.com/yerevan-pricing/backend/internal/services"
	"github.com/yerevan-pricing/backend/internal/training"
)

func trainCmd() *cobra.Command {
	var (
		configPath string
		profile    string
		outputDir  string
		noPlots    bool
		notify     bool
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train every candidate model and persist the serving artifact",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if configPath == "" {
				configPath = cfg.Training.ConfigPath
			}
			tc, err := config.LoadTrainingConfig(configPath)
			if err != nil {
				return err
			}
			switch profile {
			case "":
			case config.ProfilePricing:
				tc = config.DefaultTrainingConfig()
			case config.ProfileBaseline:
				tc = config.BaselineTrainingConfig()
			default:
				return fmt.Errorf("unknown profile %q", profile)
			}
			if outputDir == "" {
				outputDir = cfg.Model.OutputDir
			}

			gdb, err := db.ConnectOptional(cfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			src, err := datasource.Open(cfg, gdb)
			if err != nil {
				return err
			}

			opts := training.Options{OutputDir: outputDir, Plots: !noPlots}
			// only the pricing profile feeds the API
			if tc.Profile == config.ProfilePricing {
				opts.ArtifactPath = cfg.Model.ArtifactPath
			}
			trainer := training.NewTrainer(tc, src, opts)
			if gdb != nil {
				trainer = trainer.WithRecorder(services.NewModelRunService(gdb))
			}
			res, err := trainer.Run(ctx)
			if err != nil {
				return err
			}
			printResult(res)

			if notify && opts.ArtifactPath != "" {
				rdb, err := db.ConnectRedis(cfg)
				if err != nil {
					return fmt.Errorf("connect redis: %w", err)
				}
				if err := services.PublishReload(ctx, rdb, "pricectl", res.ArtifactPath, res.RunID); err != nil {
					return fmt.Errorf("publish reload: %w", err)
				}
				fmt.Println("Reload requested.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "training YAML (default: TRAINING_CONFIG_PATH)")
	cmd.Flags().StringVar(&profile, "profile", "", "use the built-in profile (pricing, baseline) instead of the file")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "artifact and metrics directory (default: MODEL_OUTPUT_DIR)")
	cmd.Flags().BoolVar(&noPlots, "no-plots", false, "skip validation plots")
	cmd.Flags().BoolVar(&notify, "notify", false, "ask running API instances to reload")
	return cmd
}

func printResult(res *training.Result) {
	fmt.Printf("Run %s (%s): %d rows, %d dropped, %d train / %d validation\n\n",
		res.RunID, res.Profile, res.Rows, res.Dropped, res.TrainRows, res.ValidationRows)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render(" "), headerStyle.Render("Model"), headerStyle.Render("RMSE"),
		headerStyle.Render("MAE"), headerStyle.Render("R2"), headerStyle.Render("Artifact"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", " ",
		strings.Repeat("-", 18), strings.Repeat("-", 10), strings.Repeat("-", 10), strings.Repeat("-", 6), strings.Repeat("-", 30))
	for _, c := range res.Candidates {
		mark := " "
		if c.Name == res.Served {
			mark = servedMarker
		}
		r2 := mutedStyle.Render("n/a")
		if c.Metrics.R2 != nil {
			r2 = fmt.Sprintf("%.3f", *c.Metrics.R2)
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%s\t%s\n", mark, c.Name, c.Metrics.RMSE, c.Metrics.MAE, r2, c.ArtifactPath)
	}
	w.Flush()

	fmt.Printf("\nMetrics: %s\n", res.MetricsPath)
	if res.ArtifactPath != "" {
		fmt.Printf("Serving %s from %s\n", res.Served, res.ArtifactPath)
	}
}
