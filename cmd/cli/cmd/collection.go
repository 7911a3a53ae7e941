package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/angelospk/vgmdb-go/pkg/core/collection"
	vgmerrors "github.com/angelospk/vgmdb-go/pkg/core/errors"
	"github.com/angelospk/vgmdb-go/pkg/core/queue"
	"github.com/angelospk/vgmdb-go/pkg/processor"
)

var (
	collectionOutput    string
	collectionField     string
	collectionCatalogs  []string
	collectionRemove    bool
	collectionRecursive bool
)

// collectionCmd groups the VGMdb collection subcommands.
var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage your VGMdb collection",
	Long: `Lists and edits the album collection of the configured VGMdb account.
Every subcommand signs in first using vgmdb.username and vgmdb.password,
prompting for whatever is missing.

Adds and removals that fail because VGMdb is unavailable are queued in
collection.queuedir (default $HOME/.vgmdbcli) and sent by "collection flush".`,
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the albums in your collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager(cmd)
		if err != nil {
			return err
		}
		albums, err := m.Albums(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list collection: %w", err)
		}
		if albums == nil {
			albums = []collection.Album{}
		}
		return render(cmd.OutOrStdout(), collectionOutput, albums, func(w io.Writer) {
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REF\tALBUM\tCATALOG\tFOLDER\tTITLE")
			for _, a := range albums {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Ref, a.AlbumID, a.Catalog, a.FolderID, a.Title)
			}
			_ = tw.Flush()
			fmt.Fprintf(w, "%d albums\n", len(albums))
		})
	},
}

var collectionFoldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List the folders in your collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager(cmd)
		if err != nil {
			return err
		}
		folders, err := m.Folders(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list folders: %w", err)
		}
		if folders == nil {
			folders = []collection.Folder{}
		}
		return render(cmd.OutOrStdout(), collectionOutput, folders, func(w io.Writer) {
			for _, f := range folders {
				fmt.Fprintf(w, "%s\t%s\n", f.ID, f.Name)
			}
		})
	},
}

var collectionAddCmd = &cobra.Command{
	Use:   "add <catalog-or-id>...",
	Short: "Add albums to the configured collection folder",
	Long: `Adds albums by catalog number (--field cn, the default) or by VGMdb
album id (--field id) to collection.folder, creating the folder if needed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		field := collection.Field(strings.ToLower(collectionField))
		if field != collection.FieldCatalog && field != collection.FieldID {
			return fmt.Errorf("invalid --field: %s. Must be one of: cn, id", collectionField)
		}
		m, err := newManager(cmd)
		if err != nil {
			return err
		}
		err = m.AddAlbums(cmd.Context(), args, field)
		return reportQueued(cmd.OutOrStdout(), err, fmt.Sprintf("Added %d album(s) to the VGMdb collection.", len(args)))
	},
}

var collectionRemoveCmd = &cobra.Command{
	Use:   "remove <catalog>...",
	Short: "Remove albums from your collection by catalog number",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager(cmd)
		if err != nil {
			return err
		}
		albums, err := m.Albums(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list collection: %w", err)
		}
		wanted := make(map[string]bool, len(args))
		for _, c := range args {
			wanted[strings.TrimSpace(c)] = true
		}
		var refs []string
		for _, a := range albums {
			if wanted[a.Catalog] {
				refs = append(refs, a.Ref)
			}
		}
		if len(refs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "None of the given catalog numbers are in the collection.")
			return nil
		}
		err = m.RemoveAlbums(cmd.Context(), refs)
		return reportQueued(cmd.OutOrStdout(), err, fmt.Sprintf("Removed %d collection entr(ies).", len(refs)))
	},
}

var collectionSyncCmd = &cobra.Command{
	Use:   "sync [dir]",
	Short: "Add the catalog numbers of a music library to your collection",
	Long: `Reads catalog numbers from the tags of the albums under dir, plus any
--catalog values, and adds those missing from the VGMdb collection. With
--remove, collection entries whose catalog number is not in the library
are removed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogs := append([]string(nil), collectionCatalogs...)
		if len(args) == 1 {
			albums, err := processor.NewProcessor(nil, logger).ScanLibrary(cmd.Context(), args[0], collectionRecursive)
			if err != nil {
				return fmt.Errorf("failed to scan %s: %w", args[0], err)
			}
			for _, a := range albums {
				if a.Catalog == "" {
					logger.Warnf("No catalog number in the tags of %s", filepath.Base(a.Dir))
					continue
				}
				catalogs = append(catalogs, a.Catalog)
			}
		}
		if len(catalogs) == 0 && !collectionRemove {
			return errors.New("no catalog numbers found; pass a directory or --catalog")
		}

		m, err := newManager(cmd)
		if err != nil {
			return err
		}
		report, err := m.Sync(cmd.Context(), catalogs, collectionRemove)
		if err != nil {
			return fmt.Errorf("collection sync failed: %w", err)
		}
		return render(cmd.OutOrStdout(), collectionOutput, report, func(w io.Writer) {
			fmt.Fprintf(w, "Added: %d, Removed: %d, Already present: %d\n", len(report.Added), len(report.Removed), report.Present)
			if report.Queued {
				fmt.Fprintln(w, "Some changes were queued; run \"vgmdbcli collection flush\" later.")
			}
		})
	},
}

var collectionQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show collection changes waiting to be sent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := newQueue()
		if err != nil {
			return err
		}
		ops := q.GetQueue()
		return render(cmd.OutOrStdout(), collectionOutput, ops, func(w io.Writer) {
			if len(ops) == 0 {
				fmt.Fprintln(w, "The collection queue is empty.")
				return
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ACTION\tVALUE\tSTATUS\tATTEMPTS\tMESSAGE")
			for _, op := range ops {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", op.Action, op.Value, op.Status, op.Attempts, op.Message)
			}
			_ = tw.Flush()
		})
	},
}

var collectionFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Send queued collection changes to VGMdb",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager(cmd)
		if err != nil {
			return err
		}
		report, err := m.Flush(cmd.Context())
		if err != nil {
			return fmt.Errorf("flushing the collection queue failed: %w", err)
		}
		return render(cmd.OutOrStdout(), collectionOutput, report, func(w io.Writer) {
			fmt.Fprintf(w, "Sent: %d, Failed: %d, Skipped: %d\n", report.Sent, report.Failed, report.Skipped)
		})
	},
}

func init() {
	RootCmd.AddCommand(collectionCmd)
	collectionCmd.AddCommand(collectionListCmd, collectionFoldersCmd, collectionAddCmd, collectionRemoveCmd,
		collectionSyncCmd, collectionQueueCmd, collectionFlushCmd)

	collectionCmd.PersistentFlags().StringVarP(&collectionOutput, "output", "o", outputText, "Output format (text, yaml, json)")
	collectionAddCmd.Flags().StringVar(&collectionField, "field", string(collection.FieldCatalog), "What the arguments are: cn (catalog numbers) or id (album ids)")
	collectionSyncCmd.Flags().StringSliceVar(&collectionCatalogs, "catalog", nil, "Catalog numbers to sync in addition to the scanned ones")
	collectionSyncCmd.Flags().BoolVar(&collectionRemove, "remove", false, "Remove collection entries missing from the library")
	collectionSyncCmd.Flags().BoolVarP(&collectionRecursive, "recursive", "r", true, "Scan subdirectories")
}

func newQueue() (*queue.QueueManager, error) {
	dir := viper.GetString(CfgKeyQueueDir)
	if dir == "" {
		var err error
		if dir, err = configDir(); err != nil {
			return nil, fmt.Errorf("could not determine queue directory: %w", err)
		}
	}
	return queue.NewQueueManager(dir, logger)
}

// newManager signs in and builds a collection manager from the collection.* settings.
func newManager(cmd *cobra.Command) (*collection.Manager, error) {
	session, err := newLoggedInSession(cmd)
	if err != nil {
		return nil, err
	}
	q, err := newQueue()
	if err != nil {
		return nil, err
	}
	return collection.NewManager(session, collection.Config{
		Folder:   viper.GetString(CfgKeyCollectionFolder),
		OnImport: viper.GetBool(CfgKeyCollectionOnImport),
		OnRemove: viper.GetBool(CfgKeyCollectionOnRemove),
	}, q, logger), nil
}

// reportQueued prints done on success and a notice when the change was queued.
func reportQueued(w io.Writer, err error, done string) error {
	switch {
	case err == nil:
		fmt.Fprintln(w, done)
		return nil
	case errors.Is(err, vgmerrors.ErrQueued):
		fmt.Fprintln(w, "VGMdb is unavailable; the change was queued. Run \"vgmdbcli collection flush\" later.")
		return nil
	default:
		return err
	}
}
