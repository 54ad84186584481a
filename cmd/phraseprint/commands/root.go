// Package commands implements the phraseprint CLI.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/voxkit/phraseprint"
	"github.com/voxkit/phraseprint/logging"
	"github.com/voxkit/phraseprint/store"
)

var (
	configPath string
	dbPath     string
	backend    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "phraseprint",
	Short: "Personalized spoken-phrase recognition",
	Long: `phraseprint recognizes a per-user vocabulary of personalized phrases.

Record a few labeled example utterances per phrase, then query with a
new utterance to get the closest matching phrase and a confidence score.

Examples:
  phraseprint add --user u1 --label "hungry" samples/hungry_01.wav
  phraseprint predict --user u1 --k 3 --metric cosine query.wav
  phraseprint export --dir recordings/ --out features.csv

Extraction parameters (sample rate, window, hop, coefficient count,
silence threshold, high-pass cutoff) are fixed per deployment: changing
them invalidates every previously stored embedding.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file with extraction parameters")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "personalization database path (file or badger directory)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "json", "store backend: json or badger")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// fileConfig is the YAML configuration file layout
type fileConfig struct {
	DBPath  string              `yaml:"db_path"`
	Backend string              `yaml:"backend"`
	Options phraseprint.Options `yaml:",inline"`
}

// loadOptions merges the optional YAML config file with flag overrides
func loadOptions() (phraseprint.Options, string, string, error) {
	cfg := fileConfig{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return phraseprint.Options{}, "", "", fmt.Errorf("read config %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return phraseprint.Options{}, "", "", fmt.Errorf("parse config %s: %w", configPath, err)
		}
	}

	path := cfg.DBPath
	if dbPath != "" {
		path = dbPath
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return phraseprint.Options{}, "", "", fmt.Errorf("determine home directory: %w", err)
		}
		path = filepath.Join(home, ".phraseprint", "user_phrases.json")
	}

	be := cfg.Backend
	if backend != "" {
		be = backend
	}
	if be == "" {
		be = "json"
	}

	return cfg.Options, path, be, nil
}

// openStore opens the configured store backend
func openStore(path, be string, dimension int) (store.Store, error) {
	switch be {
	case "json":
		return store.NewFileStore(path, dimension), nil
	case "badger":
		return store.NewBadgerStore(store.BadgerOptions{Dir: path, Dimension: dimension})
	default:
		return nil, fmt.Errorf("unknown backend %q (want json or badger)", be)
	}
}

// newRecognizer builds the recognizer and its store from flags/config.
// The caller must Close the store.
func newRecognizer() (*phraseprint.Recognizer, store.Store, error) {
	if verbose {
		logging.SetLevel(logging.DebugLevel)
	}

	opts, path, be, err := loadOptions()
	if err != nil {
		return nil, nil, err
	}

	dimension := opts.Fingerprint.WithDefaults().Dimension()

	s, err := openStore(path, be, dimension)
	if err != nil {
		return nil, nil, err
	}

	return phraseprint.NewRecognizer(s, opts), s, nil
}
