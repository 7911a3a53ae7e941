package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/angelospk/vgmdb-go/pkg/processor"
)

var (
	matchRecursive bool
	matchTop       int
	matchOutput    string
)

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match <dir>",
	Short: "Match local album folders against VGMdb",
	Long: `Scans a directory for audio files, groups them into albums by folder,
searches VGMdb for each album and ranks the candidates by distance
(0 is a perfect match).

Examples:
  vgmdbcli match ~/Music/Chrono\ Cross
  vgmdbcli match --recursive --top 3 ~/Music/Soundtracks`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	RootCmd.AddCommand(matchCmd)

	matchCmd.Flags().BoolVarP(&matchRecursive, "recursive", "r", false, "Scan subdirectories")
	matchCmd.Flags().IntVar(&matchTop, "top", 1, "Number of candidates to show per album")
	matchCmd.Flags().StringVarP(&matchOutput, "output", "o", outputText, "Output format (text, yaml, json)")
}

func runMatch(cmd *cobra.Command, args []string) error {
	root := args[0]
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}
	if matchTop < 1 {
		return fmt.Errorf("invalid --top: %d", matchTop)
	}

	p, err := newPlugin(nil)
	if err != nil {
		return err
	}
	jobs, err := processor.NewProcessor(p, logger).CreateMatchJobs(cmd.Context(), root, matchRecursive)
	if err != nil {
		return fmt.Errorf("matching failed: %w", err)
	}
	for i := range jobs {
		if len(jobs[i].Candidates) > matchTop {
			jobs[i].Candidates = jobs[i].Candidates[:matchTop]
		}
	}

	return render(cmd.OutOrStdout(), matchOutput, jobs, func(w io.Writer) {
		if len(jobs) == 0 {
			fmt.Fprintf(w, "No audio files found in %s.\n", root)
			return
		}
		for _, job := range jobs {
			name := filepath.Base(job.Local.Dir)
			fmt.Fprintf(w, "%s (%d tracks): %s\n", name, len(job.Local.Tracks), job.Status)
			if job.Message != "" {
				fmt.Fprintf(w, "  %s\n", job.Message)
			}
			for _, c := range job.Candidates {
				fmt.Fprintf(w, "  %.3f  %s  %s [%s]\n", c.Distance, c.Album.ExternalID, c.Album.Title, c.Album.CatalogNumber)
			}
		}
	})
}
