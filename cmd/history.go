package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/msalah0e/kgx/internal/config"
	"github.com/msalah0e/kgx/internal/history"
	"github.com/msalah0e/kgx/internal/ui"
)

func historyLog() *history.Log {
	return history.Open(filepath.Join(config.ConfigDir(), "history.jsonl"))
}

// record appends e to the history log. Failures are only logged.
func record(e history.Entry) {
	if err := historyLog().Append(e); err != nil {
		log.Debug("history append failed", "error", err)
	}
}

func historyCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent queries, expansions and chats",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			entries, err := historyLog().Read(count)
			if err != nil {
				fail("Failed to read history: %v", err)
			}
			ui.Banner("history")
			if len(entries) == 0 {
				fmt.Println("  Nothing recorded yet. Run `kgx query <text>` to start.")
				return
			}
			printHistory(entries)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 20, "Number of entries to show")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "search <text>",
			Short: "Find history entries mentioning text",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				entries, err := historyLog().Search(args[0], 50)
				if err != nil {
					fail("Failed to read history: %v", err)
				}
				if len(entries) == 0 {
					fmt.Printf("  No entries matching %q\n", args[0])
					return
				}
				printHistory(entries)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete the history file",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				if err := historyLog().Clear(); err != nil {
					fail("Failed to clear history: %v", err)
				}
				ui.Good.Printf("  %s History cleared\n", ui.StatusIcon(true))
			},
		},
	)
	return cmd
}

func printHistory(entries []history.Entry) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		subject := e.Text
		if e.Node != "" {
			subject = e.Node
		}
		result := strconv.Itoa(e.Nodes) + "n/" + strconv.Itoa(e.Edges) + "e"
		if e.Error != "" {
			result = "error"
		}
		dur := "-"
		if e.Duration > 0 {
			dur = (time.Duration(e.Duration * float64(time.Second))).Round(time.Millisecond).String()
		}
		rows = append(rows, []string{e.Timestamp.Local().Format("Jan 02 15:04"), e.Action, subject, result, dur})
	}
	ui.Table([]string{"TIME", "ACTION", "SUBJECT", "RESULT", "TOOK"}, rows)
}
