package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	vgmdb "github.com/angelospk/vgmdb-go"
	"github.com/angelospk/vgmdb-go/pkg/core/collection"
	"github.com/angelospk/vgmdb-go/pkg/core/lang"
	"github.com/angelospk/vgmdb-go/pkg/plugin"
)

// Define configuration keys
const (
	CfgKeyAPIBaseURL     = "vgmdb.apibaseurl"
	CfgKeySiteBaseURL    = "vgmdb.sitebaseurl"
	CfgKeyUserAgent      = "vgmdb.useragent"
	CfgKeyRequestRate    = "vgmdb.requestrate" // requests per second, negative disables limiting
	CfgKeyTimeout        = "vgmdb.timeout"
	CfgKeyLanguages      = "vgmdb.languages"
	CfgKeyArtistPriority = "vgmdb.artistpriority"
	CfgKeySourceWeight   = "vgmdb.sourceweight"
	CfgKeyMaxResults     = "vgmdb.maxresults"
	CfgKeyConcurrency    = "vgmdb.concurrency"
	CfgKeySearchSource   = "vgmdb.searchsource"
	CfgKeySplitAlbum     = "vgmdb.splitalbum"
	CfgKeyUsername       = "vgmdb.username"
	CfgKeyPassword       = "vgmdb.password"

	CfgKeyCollectionFolder   = "collection.folder"
	CfgKeyCollectionOnImport = "collection.onimport"
	CfgKeyCollectionOnRemove = "collection.onremove"
	CfgKeyQueueDir           = "collection.queuedir"
)

// Query field keys take the form vgmdb.query.<field>.<setting>.
const cfgKeyQueryPrefix = "vgmdb.query."

const configDirName = ".vgmdbcli"

// Session defines what the commands need from a VGMdb session.
type Session interface {
	plugin.Source
	collection.Session
	Login(ctx context.Context, username, password string) error
	Username() string
}

// NewSessionFunc allows overriding the session creation for testing.
var NewSessionFunc = func(config vgmdb.Config) (Session, error) {
	session, err := vgmdb.NewSession(config)
	if err != nil {
		return nil, err
	}
	return session, nil
}

var (
	// Used for flags.
	cfgFile string
	verbose bool

	logger = log.New()

	// RootCmd represents the base command when called without any subcommands.
	// Exported for use in tests.
	RootCmd = &cobra.Command{
		Use:   "vgmdbcli",
		Short: "Look up video game music albums on VGMdb and manage your collection",
		Long: `vgmdbcli searches VGMdb for albums, matches local album folders
against VGMdb candidates, and keeps your VGMdb collection in step with
your music library.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetOutput(cmd.ErrOrStderr())
			if verbose {
				logger.SetLevel(log.DebugLevel)
			} else {
				logger.SetLevel(log.InfoLevel)
			}
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.vgmdbcli/config.yaml or ./config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// initConfig reads in the .env file, the config file and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error reading .env file: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if dir, err := configDir(); err == nil {
			viper.AddConfigPath(dir)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("VGMDB") // e.g. VGMDB_VGMDB_USERNAME, VGMDB_COLLECTION_FOLDER
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault(CfgKeyTimeout, 30*time.Second)
	viper.SetDefault(CfgKeyCollectionFolder, collection.RootFolder)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error reading config file (%s): %v\n", viper.ConfigFileUsed(), err)
		}
	}
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDirName), nil
}

// SessionConfigFromViper builds the session configuration from the current settings.
func SessionConfigFromViper() vgmdb.Config {
	return vgmdb.Config{
		APIBaseURL:        viper.GetString(CfgKeyAPIBaseURL),
		SiteBaseURL:       viper.GetString(CfgKeySiteBaseURL),
		UserAgent:         viper.GetString(CfgKeyUserAgent),
		Timeout:           viper.GetDuration(CfgKeyTimeout),
		RequestsPerSecond: viper.GetFloat64(CfgKeyRequestRate),
		Logger:            logger,
	}
}

// PluginConfigFromViper starts from plugin.DefaultConfig and applies every
// configured override. The result is validated.
func PluginConfigFromViper() (plugin.Config, error) {
	cfg := plugin.DefaultConfig()

	if viper.IsSet(CfgKeyLanguages) {
		pref, err := lang.ParsePreference(strings.Join(viper.GetStringSlice(CfgKeyLanguages), ","))
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", CfgKeyLanguages, err)
		}
		cfg.LanguagePriority = pref
	}
	if viper.IsSet(CfgKeyArtistPriority) {
		cfg.ArtistPriority = splitList(viper.GetStringSlice(CfgKeyArtistPriority))
	}
	if viper.IsSet(CfgKeySourceWeight) {
		cfg.SourceWeight = viper.GetFloat64(CfgKeySourceWeight)
	}
	if viper.IsSet(CfgKeyMaxResults) {
		cfg.MaxResults = viper.GetInt(CfgKeyMaxResults)
	}
	if viper.IsSet(CfgKeyConcurrency) {
		cfg.Concurrency = viper.GetInt(CfgKeyConcurrency)
	}
	if viper.IsSet(CfgKeySearchSource) {
		cfg.SearchSource = vgmdb.SearchSource(strings.ToLower(viper.GetString(CfgKeySearchSource)))
	}
	if viper.IsSet(CfgKeySplitAlbum) {
		cfg.SplitAlbum = viper.GetBool(CfgKeySplitAlbum)
	}
	queryField("album", &cfg.Album)
	queryField("artist", &cfg.Artist)
	queryField("track", &cfg.Track)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func queryField(name string, f *plugin.FieldConfig) {
	prefix := cfgKeyQueryPrefix + name + "."
	if viper.IsSet(prefix + "enabled") {
		f.Enabled = viper.GetBool(prefix + "enabled")
	}
	if viper.IsSet(prefix + "pattern") {
		f.Pattern = viper.GetString(prefix + "pattern")
	}
	if viper.IsSet(prefix + "limit") {
		f.Limit = viper.GetInt(prefix + "limit")
	}
}

// splitList accepts both YAML lists and comma separated strings.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func newSession() (Session, error) {
	session, err := NewSessionFunc(SessionConfigFromViper())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize VGMdb session: %w", err)
	}
	return session, nil
}

// newPlugin creates a session and a plugin configured from viper. mutate,
// if set, applies command line overrides before validation.
func newPlugin(mutate func(*plugin.Config)) (*plugin.Plugin, error) {
	cfg, err := PluginConfigFromViper()
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}
	session, err := newSession()
	if err != nil {
		return nil, err
	}
	return plugin.New(session, cfg, plugin.WithLogger(logger))
}

// credentials returns the configured username and password, asking for
// whatever is missing on the command's input.
func credentials(cmd *cobra.Command) (string, string, error) {
	username := viper.GetString(CfgKeyUsername)
	password := viper.GetString(CfgKeyPassword)
	if username != "" && password != "" {
		return username, password, nil
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	prompt := func(label string) (string, error) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", label)
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
		}
		return strings.TrimSpace(line), nil
	}

	var err error
	if username == "" {
		if username, err = prompt("VGMdb username"); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = prompt("VGMdb password"); err != nil {
			return "", "", err
		}
	}
	if username == "" || password == "" {
		return "", "", errors.New("VGMdb username and password cannot be empty")
	}
	return username, password, nil
}

// newLoggedInSession creates a session and signs in to vgmdb.net.
func newLoggedInSession(cmd *cobra.Command) (Session, error) {
	username, password, err := credentials(cmd)
	if err != nil {
		return nil, err
	}
	return login(cmd, username, password)
}

func login(cmd *cobra.Command, username, password string) (Session, error) {
	session, err := newSession()
	if err != nil {
		return nil, err
	}
	if err := session.Login(cmd.Context(), username, password); err != nil {
		return nil, fmt.Errorf("VGMdb login failed: %w", err)
	}
	return session, nil
}

// --- Output --- //

const (
	outputText = "text"
	outputYAML = "yaml"
	outputJSON = "json"
)

// render writes v in the requested format. text is used for outputText.
func render(w io.Writer, format string, v interface{}, text func(io.Writer)) error {
	switch strings.ToLower(format) {
	case "", outputText:
		text(w)
		return nil
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("invalid --output: %s. Must be one of: text, yaml, json", format)
	}
}
