package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	vgmdb "github.com/angelospk/vgmdb-go"
	"github.com/angelospk/vgmdb-go/pkg/core/metadata"
	"github.com/angelospk/vgmdb-go/pkg/plugin"
)

var (
	searchSite   bool
	searchMax    int
	searchOutput string
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search VGMdb for albums",
	Long: `Searches VGMdb for albums matching a free-text query and prints the
normalized album records, best listing match first.

Examples:
  vgmdbcli search "chrono cross"
  vgmdbcli search --site --max 3 "xenogears"
  vgmdbcli search --output yaml "SSCX-10040"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	RootCmd.AddCommand(searchCmd)

	searchCmd.Flags().BoolVar(&searchSite, "site", false, "List albums from the vgmdb.net search page instead of vgmdb.info")
	searchCmd.Flags().IntVarP(&searchMax, "max", "n", 0, "Maximum number of albums to return (default from config)")
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", outputText, "Output format (text, yaml, json)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("search query cannot be empty")
	}
	if searchMax < 0 {
		return fmt.Errorf("invalid --max: %d", searchMax)
	}

	p, err := newPlugin(func(c *plugin.Config) {
		if searchSite {
			c.SearchSource = vgmdb.SearchSourceSite
		}
		if searchMax > 0 {
			c.MaxResults = searchMax
		}
	})
	if err != nil {
		return err
	}

	logger.WithField("query", query).Debug("Searching VGMdb...")
	records := p.Search(cmd.Context(), query)
	if records == nil {
		records = []metadata.AlbumRecord{}
	}

	return render(cmd.OutOrStdout(), searchOutput, records, func(w io.Writer) {
		if len(records) == 0 {
			fmt.Fprintf(w, "No albums found for %q.\n", query)
			return
		}
		fmt.Fprintf(w, "Found %d albums for %q:\n", len(records), query)
		fmt.Fprintln(w, "--------------------------------------------------")
		for i := range records {
			printAlbumSummary(w, &records[i])
			fmt.Fprintln(w, "--------------------------------------------------")
		}
	})
}

func printAlbumSummary(w io.Writer, a *metadata.AlbumRecord) {
	fmt.Fprintf(w, "%s  %s\n", a.ExternalID, a.Title)
	if a.PrimaryArtist != "" {
		fmt.Fprintf(w, "  Artist: %s\n", a.PrimaryArtist)
	}
	if a.CatalogNumber != "" {
		fmt.Fprintf(w, "  Catalog: %s\n", a.CatalogNumber)
	}
	if date := a.DisplayDate(); date != "" {
		fmt.Fprintf(w, "  Released: %s\n", date)
	}
	fmt.Fprintf(w, "  Discs: %d, Tracks: %d\n", a.DiscCount, a.TrackCount())
	fmt.Fprintf(w, "  URL: %s\n", a.SourceURL)
}
