package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yerevan-pricing/backend/internal/datasource"
	"github.com/yerevan-pricing/backend/internal/db"
)

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the reference catalog used to complete price requests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gdb, err := db.ConnectOptional(cfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			src, err := datasource.Open(cfg, gdb)
			if err != nil {
				return err
			}
			cat, err := datasource.LoadCatalog(cmd.Context(), src)
			if err != nil {
				return err
			}
			if cat.Len() == 0 {
				fmt.Println(mutedStyle.Render("The catalog is empty. Load menu items first."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"), headerStyle.Render("Product"), headerStyle.Render("Category"),
				headerStyle.Render("Portion"), headerStyle.Render("Bucket"), headerStyle.Render("Base"), headerStyle.Render("Cost"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", strings.Repeat("-", 4), strings.Repeat("-", 24),
				strings.Repeat("-", 8), strings.Repeat("-", 8), strings.Repeat("-", 6), strings.Repeat("-", 8), strings.Repeat("-", 8))
			for _, e := range cat.Entries() {
				name := e.Name
				if dupes := cat.Ambiguous(e.Name); len(dupes) > 0 {
					name += warnStyle.Render(fmt.Sprintf(" (+%d)", len(dupes)))
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.2f\t%.2f\n",
					e.ProductID, name, e.CategoryID, e.PortionSize, e.PortionBucket, e.BasePrice, e.Cost)
			}
			return nil
		},
	}
}
