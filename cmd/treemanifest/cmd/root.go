package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	treemanifest "github.com/CuylerR/Meta-sapling-OS"
	"github.com/CuylerR/Meta-sapling-OS/flat"
)

var rootCmd = &cobra.Command{
	Use:   "treemanifest",
	Short: "Tree manifest CLI",
	Long:  "CLI for importing, inspecting, diffing and replicating tree manifests.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(viper.GetString("log.level"))
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
		logrus.SetOutput(os.Stderr)
		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ~/.config/treemanifest/config.yaml)")
	flags.String("store-dir", "", "store directory (default: ~/.local/share/treemanifest)")
	flags.String("backend", "local", "store backend: local or badger")
	flags.String("log-level", "warn", "log level")

	viper.BindPFlag("store.dir", flags.Lookup("store-dir"))
	viper.BindPFlag("store.backend", flags.Lookup("backend"))
	viper.BindPFlag("log.level", flags.Lookup("log-level"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	defaults := treemanifest.DefaultStoreOptions()
	viper.SetEnvPrefix("TREEMANIFEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("store.dir", defaultStoreDir())
	viper.SetDefault("store.backend", "local")
	viper.SetDefault("store.compression_level", defaults.CompressionLevel)
	viper.SetDefault("store.compression", defaults.Compression)
	viper.SetDefault("store.cache_size", defaults.CacheSize)
	viper.SetDefault("store.max_delta_chain", defaults.MaxDeltaChain)
	viper.SetDefault("manifest.format", "v1")
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("remote.concurrency", 4)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logrus.WithError(err).Warn("Failed to read config")
		}
	}
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "treemanifest")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "treemanifest")
	}
	return ".treemanifest"
}

func defaultStoreDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "treemanifest")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "treemanifest")
	}
	return ".treemanifest"
}

// store is what the CLI needs from a backend.
type store interface {
	treemanifest.Store
	treemanifest.RefStore
	io.Closer
}

func storeOptions() treemanifest.StoreOptions {
	return treemanifest.StoreOptions{
		CompressionLevel: viper.GetInt("store.compression_level"),
		Compression:      viper.GetBool("store.compression"),
		CacheSize:        viper.GetInt("store.cache_size"),
		MaxDeltaChain:    viper.GetInt("store.max_delta_chain"),
	}
}

func openStore() (store, error) {
	dir := viper.GetString("store.dir")
	switch backend := viper.GetString("store.backend"); backend {
	case "local", "":
		return treemanifest.OpenLocalStore(dir, storeOptions())
	case "badger":
		return treemanifest.OpenBadgerStore(dir, storeOptions())
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func manifestOptions() ([]treemanifest.Option, error) {
	format, err := flat.ParseFormat(viper.GetString("manifest.format"))
	if err != nil {
		return nil, err
	}
	return []treemanifest.Option{
		treemanifest.WithFormat(format),
		treemanifest.WithLogger(logrus.StandardLogger()),
	}, nil
}

// resolveRoot accepts a 40 character hex id or a ref name.
func resolveRoot(refs treemanifest.RefStore, arg string) (treemanifest.Node, error) {
	if id, err := treemanifest.NodeFromHex(arg); err == nil {
		return id, nil
	}
	id, err := refs.GetRef(arg)
	if err != nil {
		return treemanifest.NullID, fmt.Errorf("resolve %q: %w", arg, err)
	}
	return id, nil
}

// loadManifest opens the manifest named by arg.
func loadManifest(s store, arg string) (*treemanifest.Manifest, error) {
	root, err := resolveRoot(s, arg)
	if err != nil {
		return nil, err
	}
	opts, err := manifestOptions()
	if err != nil {
		return nil, err
	}
	return treemanifest.Load(s, root, opts...), nil
}

// withStore runs fn against the configured store and closes it afterwards.
func withStore(fn func(s store) error) (err error) {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}
