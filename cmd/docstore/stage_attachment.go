package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quillsync/docstore/internal/attachment"
)

var stageAttachmentEncoding string

var stageAttachmentCmd = &cobra.Command{
	Use:   "stage-attachment <datastore> <file>",
	Short: "Stage a file as an attachment, printing its temp path and SHA-1 digest",
	Long: `stage-attachment copies file into the datastore's attachments
directory and computes its SHA-1 digest, the step a replication driver
performs before calling force_insert with the resulting path and digest.
It does not attach the file to any document; that happens when the
caller passes the staged result into force_insert.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		encoding := attachment.Encoding(stageAttachmentEncoding)
		if encoding == "" {
			encoding = attachment.Plain
		}

		ds, err := manager.Open(rootCtx, args[0])
		if err != nil {
			return err
		}

		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[1], err)
		}
		src := attachment.Source{Name: filepath.Base(args[1]), Body: f}

		prepared, err := ds.StageAttachment(rootCtx, src, encoding)
		if err != nil {
			return fmt.Errorf("staging attachment: %w", err)
		}

		fmt.Printf("staged %s\n  temp path: %s\n  sha1:      %x\n", prepared.SourceName, prepared.TempFilePath, prepared.SHA1)
		return nil
	},
}

func init() {
	stageAttachmentCmd.Flags().StringVar(&stageAttachmentEncoding, "encoding", string(attachment.Plain), "on-disk encoding: Plain or Gzip")
	rootCmd.AddCommand(stageAttachmentCmd)
}
