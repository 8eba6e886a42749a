package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yerevan-pricing/backend/internal/catalog"
	"github.com/yerevan-pricing/backend/internal/datasource"
	"github.com/yerevan-pricing/backend/internal/db"
	"github.com/yerevan-pricing/backend/internal/features"
	"github.com/yerevan-pricing/backend/internal/pricing"
)

func predictCmd() *cobra.Command {
	var req pricing.Request
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict a menu price",
		Long: `Predict the price of a menu item. Without --product the command asks
for every input interactively and offers to predict again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := openPredictor(cmd)
			if err != nil {
				return err
			}
			if req.ProductName != "" {
				return predictOnce(cmd.OutOrStdout(), p, req)
			}
			return predictInteractive(newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()), cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVar(&req.ProductName, "product", "", "menu item name")
	cmd.Flags().StringVar(&req.Location, "location", "", "district, e.g. Kentron")
	cmd.Flags().StringVar(&req.VenueType, "venue-type", "", "venue type, e.g. cafe")
	cmd.Flags().StringVar(&req.PortionSize, "portion", "", "small, medium or large (default medium)")
	cmd.Flags().StringVar(&req.AgeGroup, "age-group", "", "customer age group (default "+catalog.DefaultAgeGroup+")")
	return cmd
}

func openPredictor(cmd *cobra.Command) (*pricing.Predictor, error) {
	gdb, err := db.ConnectOptional(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	src, err := datasource.Open(cfg, gdb)
	if err != nil {
		return nil, err
	}
	cat, err := datasource.LoadCatalog(cmd.Context(), src)
	if err != nil {
		return nil, err
	}
	return pricing.Open(cfg.Model.ArtifactPath, cat, cfg.Model.UnknownProductPolicy)
}

func predictOnce(out io.Writer, p *pricing.Predictor, req pricing.Request) error {
	resp, err := p.Predict(req)
	if err != nil {
		return err
	}
	printPrediction(out, resp)
	return nil
}

// predictInteractive loops until the user declines another prediction.
func predictInteractive(pr *prompter, out io.Writer, p *pricing.Predictor) error {
	for {
		req, err := askRequest(pr, p.Catalog())
		if err != nil {
			return err
		}
		if err := predictOnce(out, p, req); err != nil {
			fmt.Fprintln(out, warnStyle.Render("  "+err.Error()))
		}
		again, err := pr.confirm("Predict another item? [y/N]: ", false)
		if err != nil || !again {
			return nil
		}
		fmt.Fprintln(out)
	}
}

func askRequest(pr *prompter, cat *catalog.Catalog) (pricing.Request, error) {
	fmt.Fprintln(pr.out, "Enter feature values for price prediction:")
	var (
		req pricing.Request
		err error
	)
	if req.ProductName, err = pr.choice("product_name", cat.Names(), ""); err != nil {
		return req, err
	}
	entry, lookupErr := cat.Lookup(req.ProductName)

	if req.Location, err = pr.choice("location", catalog.Locations, ""); err != nil {
		return req, err
	}
	if req.VenueType, err = pr.choice("venue_type", catalog.VenueTypes, ""); err != nil {
		return req, err
	}
	if req.AgeGroup, err = pr.choice("age_group", catalog.AgeGroups, catalog.DefaultAgeGroup); err != nil {
		return req, err
	}

	bucket := string(features.BucketMedium)
	if lookupErr == nil && entry.PortionBucket != "" {
		bucket = string(entry.PortionBucket)
	}
	if req.PortionSize, err = pr.choice("portion_bucket", catalog.PortionSizes(), bucket); err != nil {
		return req, err
	}

	if lookupErr != nil {
		return req, nil
	}
	req.Numeric = make(map[string]float64, 3)
	defaults := []struct {
		label, column string
		value         float64
	}{
		{"portion_numeric (grams/ml)", features.ColumnPortionNumeric, entry.PortionNumeric},
		{"base_price", "base_price", entry.BasePrice},
		{"cost", "cost", entry.Cost},
	}
	for _, d := range defaults {
		v, err := pr.number(d.label, d.value)
		if err != nil {
			return req, err
		}
		req.Numeric[d.column] = v
	}
	return req, nil
}

func printPrediction(out io.Writer, resp *pricing.Response) {
	fmt.Fprintln(out, "\n==============================")
	fmt.Fprintf(out, " Predicted price_sold: %s\n", priceStyle.Render(fmt.Sprintf("%.2f", resp.PredictedPrice)))
	fmt.Fprintln(out, "==============================")
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf(" %s | %s | %s | %s | %s (model %s)",
		resp.ProductName, resp.Location, resp.VenueType, resp.PortionSize, resp.AgeGroup, resp.Model)))
	if resp.Defaulted {
		fmt.Fprintln(out, warnStyle.Render(" product not in catalog; default category, price and cost were used"))
	}
	if resp.Drift != nil {
		fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf(" inputs unseen in training: %v", resp.Drift.Unseen)))
	}
	fmt.Fprintln(out)
}
