package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var lookupOutput string

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup <id>",
	Short: "Show one VGMdb album",
	Long: `Fetches one album by id and prints the normalized record. The id may be
a number, a "vgmdb-" prefixed id or an album URL.

Examples:
  vgmdbcli lookup 79
  vgmdbcli lookup https://vgmdb.net/album/79 --output text`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPlugin(nil)
		if err != nil {
			return err
		}
		album, err := p.AlbumForID(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("album lookup failed: %w", err)
		}
		if album == nil {
			return fmt.Errorf("album %q not found on VGMdb", args[0])
		}

		return render(cmd.OutOrStdout(), lookupOutput, album, func(w io.Writer) {
			printAlbumSummary(w, album)
			for _, t := range album.Tracks {
				length := "--:--"
				if t.LengthSeconds != nil {
					length = fmt.Sprintf("%d:%02d", *t.LengthSeconds/60, *t.LengthSeconds%60)
				}
				fmt.Fprintf(w, "  %d-%02d  %-50s %s\n", t.DiscIndex, t.TrackIndex, t.Title, length)
			}
		})
	},
}

func init() {
	RootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringVarP(&lookupOutput, "output", "o", outputYAML, "Output format (text, yaml, json)")
}
