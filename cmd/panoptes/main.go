package main

import (
	"fmt"
	"os"

	"github.com/siherrmann/panoptes"
	"github.com/siherrmann/panoptes/helper"
	"github.com/spf13/cobra"
)

var (
	configPath string
	noLink     bool
	store      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "panoptes <document>",
		Short: "Resolve and link named entities in a document",
		Long: `Panoptes parses a document, extracts named entity mentions, resolves them
into canonical entities and links them to Wikidata. Results are cached under
content-aware keys, so re-running over an unchanged document is free.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file")
	rootCmd.Flags().BoolVar(&noLink, "no-link", false, "skip knowledge-base linking")
	rootCmd.Flags().BoolVar(&store, "store", false, "persist results to the PostgreSQL result store")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	config, err := helper.NewConfiguration(configPath)
	if err != nil {
		return err
	}
	if noLink {
		config.LinkingEnabled = false
	}
	if store {
		config.StoreEnabled = true
	}

	p, err := panoptes.NewPanoptes(config)
	if err != nil {
		return err
	}
	defer p.Close()

	result, err := p.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Print(result.Display())

	return nil
}
