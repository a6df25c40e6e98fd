package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quillsync/docstore/internal/revsdiff"
)

var diffOfferedPath string

var diffCmd = &cobra.Command{
	Use:   "diff <datastore>",
	Short: "Run a revs-diff against a JSON map of doc_id -> offered rev_ids",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(diffOfferedPath)
		if err != nil {
			return fmt.Errorf("reading --offered file: %w", err)
		}
		var offered map[string][]string
		if err := json.Unmarshal(raw, &offered); err != nil {
			return fmt.Errorf("parsing --offered file: %w", err)
		}

		ds, err := manager.Open(rootCtx, args[0])
		if err != nil {
			return err
		}
		missing, err := ds.RevsDiff(rootCtx, offered)
		if err != nil {
			return fmt.Errorf("computing revs-diff: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(revsdiff.ToCouch(missing))
	},
}

func init() {
	diffCmd.Flags().StringVar(&diffOfferedPath, "offered", "", "path to a JSON file mapping doc_id to an array of offered rev_ids")
	_ = diffCmd.MarkFlagRequired("offered")
	rootCmd.AddCommand(diffCmd)
}
