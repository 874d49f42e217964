package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newVolumeCmd())
	rootCmd.AddCommand(newPartitionsCmd())
}

func newVolumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "volume",
		Short: "Report the evidence container's kind and size",
		Long: `The volume command identifies the evidence container and reports its
logical size.

Example:
  samctl volume
  samctl volume --image /cases/42/disk.E01 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVolume(cmd.Context())
		},
	}
}

func runVolume(ctx context.Context) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	info, err := ws.VolumeInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to read volume information: %w", err)
	}
	if jsonOut {
		return printJSON(info)
	}
	printInfo("\nVolume Information:\n")
	printInfo("  Path: %s\n", info.Path)
	printInfo("  Kind: %s\n", info.Kind)
	printInfo("  Size: %d bytes (%.2f MB)\n", info.SizeBytes, info.SizeMB)
	return nil
}

func newPartitionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "partitions",
		Short: "List the partitions that look like Windows installs",
		Long: `The partitions command probes the configured partition window and lists
every partition whose root holds one of the marker entries
(evidence.markers, "Documents and Settings" by default).

Example:
  samctl partitions
  samctl partitions --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPartitions(cmd.Context())
		},
	}
}

func runPartitions(ctx context.Context) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	report, err := ws.Partitions(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan partitions: %w", err)
	}
	if jsonOut {
		return printJSON(report)
	}
	if len(report.Matches) == 0 {
		printInfo("No Windows partitions found\n")
	}
	for _, m := range report.Matches {
		printInfo("Partition %d:\n", m.PartitionID)
		for _, name := range m.Listing {
			printInfo("  %s\n", name)
		}
	}
	for _, u := range report.Unreadable {
		printVerbose("Partition %d unreadable: %s\n", u.PartitionID, u.Error)
	}
	return nil
}
