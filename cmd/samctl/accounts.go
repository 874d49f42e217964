package main

import (
	"context"
	"fmt"

	"github.com/Velocidex/ordereddict"
	"github.com/spf13/cobra"

	"github.com/joshuapare/samkit/internal/workspace"
	"github.com/joshuapare/samkit/pkg/sam"
)

func init() {
	rootCmd.AddCommand(newUsersCmd())
	rootCmd.AddCommand(newRecordCmd("fvalue", "Decode an account's F value (logon times, counters, flags)",
		func(ctx context.Context, ws *workspace.Workspace, partition int, rid sam.RID) (*ordereddict.Dict, error) {
			return ws.UserFValue(ctx, partition, rid)
		}))
	rootCmd.AddCommand(newRecordCmd("vvalue", "Decode an account's V value (names, home directory, hashes)",
		func(ctx context.Context, ws *workspace.Workspace, partition int, rid sam.RID) (*ordereddict.Dict, error) {
			return ws.UserVValue(ctx, partition, rid)
		}))
	rootCmd.AddCommand(newFlagsCmd())
}

func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users <partition>",
		Short: "List account names and RIDs",
		Long: `The users command lists the Names index of the SAM hive of a partition.

Example:
  samctl users 2
  samctl users 2 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsers(cmd.Context(), args)
		},
	}
}

func runUsers(ctx context.Context, args []string) error {
	partition, err := parsePartition(args[0])
	if err != nil {
		return err
	}
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	names, err := ws.ListAccounts(ctx, partition)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if jsonOut {
		return printJSON(names)
	}
	for _, n := range names {
		printInfo("%6d  %s\n", uint32(n.RID), n.Name)
	}
	return nil
}

type recordFunc func(ctx context.Context, ws *workspace.Workspace, partition int, rid sam.RID) (*ordereddict.Dict, error)

func newRecordCmd(use, short string, fn recordFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <partition> <rid>",
		Short: short,
		Long: short + `.

The RID is decimal or 0x-prefixed hex. Field names and offsets come from the
schemas section of the configuration.

Example:
  samctl ` + use + ` 2 500
  samctl ` + use + ` 2 0x3E9 --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd.Context(), args, fn)
		},
	}
}

func accountArgs(args []string) (int, sam.RID, error) {
	partition, err := parsePartition(args[0])
	if err != nil {
		return 0, 0, err
	}
	rid, err := parseRID(args[1])
	if err != nil {
		return 0, 0, err
	}
	return partition, rid, nil
}

func runRecord(ctx context.Context, args []string, fn recordFunc) error {
	partition, rid, err := accountArgs(args)
	if err != nil {
		return err
	}
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	d, err := fn(ctx, ws, partition, rid)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(d)
	}
	for _, k := range d.Keys() {
		v, _ := d.Get(k)
		printInfo("  %-28s %v\n", k+":", v)
	}
	return nil
}

func newFlagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flags <partition> <rid>",
		Short: "Decode an account's user account control flags",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlags(cmd.Context(), args)
		},
	}
}

func runFlags(ctx context.Context, args []string) error {
	partition, rid, err := accountArgs(args)
	if err != nil {
		return err
	}
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	report, err := ws.UserFlags(ctx, partition, rid)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(report)
	}
	printInfo("RID %d: 0x%08X (%d)\n", report.RID, report.Mask, report.Mask)
	for _, f := range report.Flags {
		printInfo("  0x%08X  %s\n", f.Bit, f.Label)
	}
	return nil
}
