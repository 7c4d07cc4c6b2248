package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zen-systems/routegate/pkg/catalog"
	"github.com/zen-systems/routegate/pkg/config"
)

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List catalog entries and their credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			resolver, err := cfg.Credentials.Resolver(nil)
			if err != nil {
				return err
			}
			return printCatalog(cmd.OutOrStdout(), cfg, catalog.New(cfg.Catalog, resolver))
		},
	}
}

func printCatalog(out io.Writer, cfg *config.Config, cat *catalog.Catalog) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tROLE\tPROVIDER\tMODEL\tCREDENTIALS\tSTATUS")

	row := func(category, role string, spec *catalog.CallSpec, err error, model string) {
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\t-\t%s\t-\t%v\n", category, role, dash(model), err)
			return
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\tready\n",
			category, role, spec.Provider, spec.ProviderModel, strings.Join(spec.CredentialRefs, ","))
	}

	for _, category := range cat.Categories() {
		entry, _ := cat.Entry(category)
		name := string(category)
		if subkeys := cat.Subkeys(category); len(subkeys) > 0 {
			for _, sk := range subkeys {
				spec, err := cat.Build(category, sk)
				row(name, "primary/"+sk, spec, err, entry.Subkeys[sk].Model)
			}
		} else {
			spec, err := cat.Build(category, "")
			row(name, "primary", spec, err, entry.Model)
		}

		fallbacks, err := cat.Fallbacks(category)
		if err != nil {
			row(name, "fallbacks", nil, err, "")
			continue
		}
		for i, fb := range fallbacks {
			row(name, fmt.Sprintf("fallback %d", i+1), fb, nil, fb.ProviderModel)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "credentials\tmode=%s\n", cfg.Credentials.Mode)
	return w.Flush()
}
