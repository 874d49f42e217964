package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newExtractSAMCmd())
	rootCmd.AddCommand(newExtractHiveCmd())
}

func newExtractSAMCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract-sam <partition>",
		Short: "Copy the SAM hive out of a partition",
		Long: `The extract-sam command copies the SAM hive of a partition to
<workdir>/partitions/<partition>/extracted_SAM. Later account lookups read
the copy instead of the image.

Example:
  samctl extract-sam 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), args[0], "SAM")
		},
	}
}

func newExtractHiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract-hive <partition> <name>",
		Short: "Copy a named hive (evidence.hives) out of a partition",
		Long: `The extract-hive command copies any hive listed under evidence.hives in
the configuration.

Example:
  samctl extract-hive 2 SECURITY`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), args[0], args[1])
		},
	}
}

func runExtract(ctx context.Context, partitionArg, name string) error {
	partition, err := parsePartition(partitionArg)
	if err != nil {
		return err
	}
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	printVerbose("Extracting %s from partition %d\n", name, partition)
	x, err := ws.ExtractHive(ctx, partition, name)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", name, err)
	}
	if jsonOut {
		return printJSON(x)
	}
	printInfo("Extracted %s (%d bytes) to %s\n", x.Source, x.Size, x.LocalPath)
	printVerbose("  blake3: %s\n", x.BLAKE3)
	return nil
}
