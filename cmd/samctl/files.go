package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newCatCmd())
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <partition> [path]",
		Short: "List a directory inside a partition",
		Long: `The ls command lists one directory of a partition's filesystem. Paths
use forward slashes; backslashes are accepted and converted.

Example:
  samctl ls 2
  samctl ls 2 "/Windows/System32/config"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(cmd.Context(), args)
		},
	}
}

func runLs(ctx context.Context, args []string) error {
	partition, err := parsePartition(args[0])
	if err != nil {
		return err
	}
	p := "/"
	if len(args) > 1 {
		p = args[1]
	}
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	entries, err := ws.List(ctx, partition, p)
	if err != nil {
		return fmt.Errorf("failed to list directory: %w", err)
	}
	if jsonOut {
		return printJSON(entries)
	}
	for _, e := range entries {
		if e.IsDir {
			printInfo("%12s  %s/\n", "-", e.Name)
			continue
		}
		printInfo("%12d  %s\n", e.Size, e.Name)
	}
	return nil
}

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <partition> <path>",
		Short: "Write a file from a partition to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(cmd.Context(), args)
		},
	}
}

func runCat(ctx context.Context, args []string) error {
	partition, err := parsePartition(args[0])
	if err != nil {
		return err
	}
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	data, err := ws.ReadFile(ctx, partition, args[1])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}
