package main

import (
	"fmt"
	"os"
	"time"

	"sickbeasts-storefront/internal/config"
	"sickbeasts-storefront/internal/db"
	"sickbeasts-storefront/internal/importer"
	"sickbeasts-storefront/internal/logging"
	"sickbeasts-storefront/internal/seed"

	"github.com/spf13/cobra"
)

type options struct {
	file   string
	dryRun bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "importer --file products.csv",
		Short:        "Import products from a CSV file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "path to the product CSV file")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "parse and validate without writing")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	f, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	if opts.dryRun {
		products, err := importer.NewCSVImporter(f, nil).Parse()
		if err != nil {
			return fmt.Errorf("parse failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d products valid, nothing written\n", len(products))
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.ContentStore == config.StoreMemory {
		return fmt.Errorf("the memory content store does not outlive this process; import into postgres")
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	docs, closeDocs, err := db.OpenContentStore(ctx, cfg, logger.Named("importer"))
	if err != nil {
		return err
	}
	defer closeDocs()

	start := time.Now()
	sum, err := importer.NewCSVImporter(f, seed.NewWriter(docs)).Run(ctx)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d products (%d created, %d updated) in %s\n",
		sum.Created+sum.Updated, sum.Created, sum.Updated, time.Since(start).Truncate(time.Millisecond))
	return nil
}
