package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/sportcar/internal/catalog"
	"github.com/sells-group/sportcar/internal/model"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse the vehicle catalog",
}

var catalogBrandsCmd = &cobra.Command{
	Use:   "brands",
	Short: "List brands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := initCatalog()
		if err != nil {
			return err
		}
		printLines(cmd.OutOrStdout(), cat.ListBrands())
		return nil
	},
}

var catalogModelsCmd = &cobra.Command{
	Use:   "models <brand>",
	Short: "List the models of a brand",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := initCatalog()
		if err != nil {
			return err
		}
		printLines(cmd.OutOrStdout(), cat.ListModels(args[0]))
		return nil
	},
}

var catalogVersionsCmd = &cobra.Command{
	Use:   "versions <brand> <model>",
	Short: "List the versions of a model",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := initCatalog()
		if err != nil {
			return err
		}
		return printVersions(cmd.OutOrStdout(), cat, args[0], args[1])
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <vehicle-id>",
	Short: "Show one vehicle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := initCatalog()
		if err != nil {
			return err
		}
		v, err := cat.Lookup(args[0])
		if err != nil {
			return err
		}
		printVehicles(cmd.OutOrStdout(), []model.Vehicle{v})
		return nil
	},
}

func printLines(w io.Writer, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

func printVersions(w io.Writer, cat catalog.Catalog, brand, mdl string) error {
	versions := cat.ListVersions(brand, mdl)
	vehicles := make([]model.Vehicle, 0, len(versions))
	for _, version := range versions {
		v, err := cat.Resolve(brand, mdl, version)
		if err != nil {
			return err
		}
		vehicles = append(vehicles, v)
	}
	printVehicles(w, vehicles)
	return nil
}

func printVehicles(w io.Writer, vehicles []model.Vehicle) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tPOWER")
	for _, v := range vehicles {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ID, v.Name, v.PriceLabel(), v.PowerLabel())
	}
	tw.Flush()
}

func init() {
	catalogCmd.AddCommand(catalogBrandsCmd, catalogModelsCmd, catalogVersionsCmd, catalogShowCmd)
	rootCmd.AddCommand(catalogCmd)
}
