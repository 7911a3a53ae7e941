package cmd_test

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/mock"

	vgmdb "github.com/angelospk/vgmdb-go"
	clicmd "github.com/angelospk/vgmdb-go/cmd/cli/cmd"
	"github.com/angelospk/vgmdb-go/pkg/core/lang"
)

// --- Mocks --- //

// MockSession is a mock implementation of clicmd.Session using testify/mock.
type MockSession struct {
	mock.Mock
}

// Ensure MockSession satisfies the interface used by the commands
var _ clicmd.Session = (*MockSession)(nil)

func (m *MockSession) SearchAlbums(ctx context.Context, query string) ([]vgmdb.AlbumListing, error) {
	args := m.Called(ctx, query)
	listings, _ := args.Get(0).([]vgmdb.AlbumListing)
	return listings, args.Error(1)
}

func (m *MockSession) SearchAlbumsSite(ctx context.Context, query string) ([]vgmdb.AlbumListing, error) {
	args := m.Called(ctx, query)
	listings, _ := args.Get(0).([]vgmdb.AlbumListing)
	return listings, args.Error(1)
}

func (m *MockSession) GetAlbum(ctx context.Context, id string) (*vgmdb.AlbumPayload, error) {
	args := m.Called(ctx, id)
	payload, _ := args.Get(0).(*vgmdb.AlbumPayload)
	return payload, args.Error(1)
}

func (m *MockSession) IsLoggedIn() bool {
	return m.Called().Bool(0)
}

func (m *MockSession) FetchSitePage(ctx context.Context, pathAndQuery string) (*goquery.Document, error) {
	args := m.Called(ctx, pathAndQuery)
	doc, _ := args.Get(0).(*goquery.Document)
	return doc, args.Error(1)
}

func (m *MockSession) PostSiteForm(ctx context.Context, pathAndQuery string, form url.Values) (*goquery.Document, error) {
	args := m.Called(ctx, pathAndQuery, form)
	doc, _ := args.Get(0).(*goquery.Document)
	return doc, args.Error(1)
}

func (m *MockSession) Login(ctx context.Context, username, password string) error {
	return m.Called(ctx, username, password).Error(0)
}

func (m *MockSession) Username() string {
	return m.Called().String(0)
}

// --- End Mocks --- //

// setupConfig gives the test a clean viper state and an empty home
// directory, then applies settings.
func setupConfig(t *testing.T, settings map[string]interface{}) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	t.Cleanup(viper.Reset)
	for k, v := range settings {
		viper.Set(k, v)
	}
}

// resetFlags restores every flag to its default; cobra keeps flag values
// between executions of the same command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs the root command with args. When session is not nil
// it is returned by NewSessionFunc. in is served as standard input.
func executeCommand(t *testing.T, session clicmd.Session, in string, args ...string) (string, string, error) {
	t.Helper()
	original := clicmd.NewSessionFunc
	t.Cleanup(func() { clicmd.NewSessionFunc = original })
	if session != nil {
		clicmd.NewSessionFunc = func(vgmdb.Config) (clicmd.Session, error) { return session, nil }
	}

	resetFlags(clicmd.RootCmd)
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)
	clicmd.RootCmd.SetOut(outBuf)
	clicmd.RootCmd.SetErr(errBuf)
	clicmd.RootCmd.SetIn(strings.NewReader(in))
	clicmd.RootCmd.SetArgs(args)

	err := clicmd.RootCmd.Execute()

	clicmd.RootCmd.SetArgs([]string{})
	return outBuf.String(), errBuf.String(), err
}

func listing(id string) vgmdb.AlbumListing {
	return vgmdb.AlbumListing{Link: "album/" + id, Titles: lang.NameMapOf("en", "Album "+id)}
}

func payload(id, title string) *vgmdb.AlbumPayload {
	catalog := "SSCX-" + id
	return &vgmdb.AlbumPayload{
		Link:        "album/" + id,
		Names:       lang.NameMapOf("en", title, "ja", title+" (JP)"),
		Catalog:     &catalog,
		ReleaseDate: "1999-12-18",
		Discs: []vgmdb.DiscPayload{{
			Name: "Disc 1",
			Tracks: []vgmdb.TrackPayload{
				{Names: lang.NameMapOf("English", "Scars of Time", "Japanese", "時の傷痕"), TrackLength: "4:03"},
				{Names: lang.NameMapOf("English", "Time's Scar"), TrackLength: "2:11"},
			},
		}},
	}
}
