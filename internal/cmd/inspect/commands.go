package inspect

import (
	"encoding/json"
	"fmt"

	"github.com/rzbill/txlog/pkg/txlog"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

// newStatCommand constructs the `stat` subcommand.
func newStatCommand(a *app) *cobra.Command {
	statCmd := &cobra.Command{
		Use:   "stat NAME",
		Short: "Print the number of transactions (and commits) of a log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batched, _ := cmd.Flags().GetBool("batched")
			ctx := cmd.Context()
			out := map[string]any{"log": args[0]}

			var err error
			if batched {
				out["variant"] = "batched"
				err = a.withBatched(ctx, args[0], false, func(l *txlog.BatchedLog[[]byte]) error {
					txs, err := l.CountTransactions(ctx)
					if err != nil {
						return err
					}
					commits, err := l.CountCommits(ctx)
					if err != nil {
						return err
					}
					out["transactions"] = txs
					out["commits"] = commits
					return nil
				})
			} else {
				out["variant"] = "simple"
				err = a.withSimple(ctx, args[0], false, func(l *txlog.SimpleLog[[]byte]) error {
					txs, err := l.CountTransactions(ctx)
					if err != nil {
						return err
					}
					out["transactions"] = txs
					return nil
				})
			}
			if err != nil {
				return err
			}

			return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
		},
	}
	statCmd.Flags().Bool("batched", false, "Open the log as a batched log")
	return statCmd
}

// newDumpCommand constructs the `dump` subcommand.
func newDumpCommand(a *app) *cobra.Command {
	dumpCmd := &cobra.Command{
		Use:   "dump NAME",
		Short: "Print the transactions of a log as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batched, _ := cmd.Flags().GetBool("batched")
			from, to, err := bounds(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var txs []txlog.Transaction[[]byte]

			if batched {
				err = a.withBatched(ctx, args[0], false, func(l *txlog.BatchedLog[[]byte]) error {
					txs, err = l.SeqRangeTransactions(ctx, from, to)
					return err
				})
			} else {
				err = a.withSimple(ctx, args[0], false, func(l *txlog.SimpleLog[[]byte]) error {
					txs, err = l.SeqRangeTransactions(ctx, from, to)
					return err
				})
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, tx := range txs {
				if err := enc.Encode(decodedTransaction(tx)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	dumpCmd.Flags().Bool("batched", false, "Open the log as a batched log")
	addBoundFlags(dumpCmd)
	return dumpCmd
}

// newCommitsCommand constructs the `commits` subcommand.
func newCommitsCommand(a *app) *cobra.Command {
	commitsCmd := &cobra.Command{
		Use:   "commits NAME",
		Short: "Print the commits of a batched log with their transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := bounds(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var commits []txlog.CommitInfo[[]byte]

			err = a.withBatched(ctx, args[0], false, func(l *txlog.BatchedLog[[]byte]) error {
				commits, err = l.SeqRangeCommits(ctx, from, to)
				return err
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, c := range commits {
				if err := enc.Encode(decodedCommit(c)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	addBoundFlags(commitsCmd)
	return commitsCmd
}

// newAppendCommand constructs the `append` subcommand.
func newAppendCommand(a *app) *cobra.Command {
	appendCmd := &cobra.Command{
		Use:   "append NAME DATA...",
		Short: "Append each DATA as a transaction",
		Long:  "Append each DATA as a transaction. With --batched, all of them are committed together.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			batched, _ := cmd.Flags().GetBool("batched")
			ctx := cmd.Context()
			name, data := args[0], args[1:]

			var err error
			if batched {
				err = a.withBatched(ctx, name, true, func(l *txlog.BatchedLog[[]byte]) error {
					for _, d := range data {
						if err := l.Append([]byte(d)); err != nil {
							return err
						}
					}
					return l.Commit(ctx)
				})
			} else {
				err = a.withSimple(ctx, name, true, func(l *txlog.SimpleLog[[]byte]) error {
					for _, d := range data {
						if err := l.Append(ctx, []byte(d)); err != nil {
							return err
						}
					}
					return nil
				})
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "appended %d transaction(s) to %s\n", len(data), name)
			return nil
		},
	}
	appendCmd.Flags().Bool("batched", false, "Append to a batched log and commit once")
	return appendCmd
}

// newClearCommand constructs the `clear` subcommand.
func newClearCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear NAME",
		Short: "Delete a log and all of its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Removal does not depend on the variant.
			l := txlog.NewSimpleLog(args[0], a.opts)
			if err := l.Clear(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", args[0])
			return nil
		},
	}
}

func addBoundFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64("from", 1, "First id (inclusive)")
	cmd.Flags().Uint64("to", 0, "Last id (inclusive, 0 = no limit)")
}

func bounds(cmd *cobra.Command) (uint64, uint64, error) {
	from, _ := cmd.Flags().GetUint64("from")
	to, _ := cmd.Flags().GetUint64("to")

	if from == 0 {
		return 0, 0, xerrors.Errorf("invalid --from; ids start at 1: %w", txlog.ErrInvalidSequenceID)
	}
	if to == 0 {
		to = txlog.Unbounded
	}

	return from, to, nil
}
