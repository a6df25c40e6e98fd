package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillsync/docstore/internal/ui"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts <datastore>",
	Short: "List documents with more than one non-deleted current revision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := manager.Open(rootCtx, args[0])
		if err != nil {
			return err
		}
		docIDs, err := ds.GetConflictedDocuments(rootCtx)
		if err != nil {
			return fmt.Errorf("listing conflicted documents: %w", err)
		}
		fmt.Println(ui.RenderConflictedDocuments(docIDs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(conflictsCmd)
}
