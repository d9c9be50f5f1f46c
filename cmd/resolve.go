package cmd

import (
	"fmt"

	"github.com/marcus/possync/internal/db"
	"github.com/marcus/possync/internal/mapper"
	"github.com/marcus/possync/internal/output"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:     "resolve <mapping-id>",
	Short:   "Resolve a sync conflict on a mapping",
	GroupID: "sync",
	Long: `Settles a conflicted mapping by declaring which side wins.

remote_wins  next catalog pull overwrites the local record
local_wins   next catalog push overwrites the remote record
manual       both edits stand; the mapping stays bidirectional`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, _ := cmd.Flags().GetString("strategy")
		if strategy == "" {
			return fmt.Errorf("--strategy required (remote_wins, local_wins, manual)")
		}

		database, err := db.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		m := mapper.New(database, newLogger())
		if err := m.ResolveConflict(args[0], mapper.ConflictResolution(strategy)); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("resolved %s as %s", args[0], strategy)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().String("strategy", "", "remote_wins, local_wins, or manual")
}
