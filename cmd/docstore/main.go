// Command docstore is a thin CLI over the datastore facade: open a
// datastore, run a revs-diff, list conflicted documents, or stage an
// attachment ahead of a force_insert done by some other replication
// driver. It is deliberately small — the library is the real surface,
// this just exercises it from a shell.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quillsync/docstore/internal/config"
	"github.com/quillsync/docstore/internal/datastore"
	"github.com/quillsync/docstore/internal/eventbus"
	"github.com/quillsync/docstore/internal/logging"
)

var (
	rootCtx = context.Background()
	logger  *logging.Logger
	manager *datastore.Manager
)

var rootCmd = &cobra.Command{
	Use:   "docstore",
	Short: "Inspect and drive local document datastores",
	Long: `docstore is a small CLI around an embedded, offline-first document
store with CouchDB-compatible revision trees and replication primitives.

Examples:
  docstore diff notes --offered rev-a.json
  docstore conflicts notes
  docstore stage-attachment notes ./photo.jpg`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger = logging.New(logging.Options{
			Path:  config.GetString("log.path"),
			Level: config.GetString("log.level"),
		})
		mgr, err := datastore.NewManager(config.GetString("root"), eventbus.New())
		if err != nil {
			return fmt.Errorf("initializing datastore manager: %w", err)
		}
		manager = mgr
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
