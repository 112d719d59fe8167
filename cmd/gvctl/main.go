// Command gvctl is a thin CLI wrapper over the core graph-store packages:
// it parses flags, opens a Vault, calls one operation, and prints the
// result. Business logic lives in internal/*, never here.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	core "github.com/graphvault/core"
	"github.com/graphvault/core/internal/idgen"
	"github.com/graphvault/core/internal/store/dolt"
)

var (
	configPath string
	actor      string
	jsonOutput bool

	vault *core.Vault
)

var rootCmd = &cobra.Command{
	Use:   "gvctl",
	Short: "gvctl manages a versioned, ACL-gated graph store",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "version":
			return nil
		}
		return openVault(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if vault != nil {
			_ = vault.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to gvctl.toml (default: none, use built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "Principal id for writes and audit records (default: $GVCTL_ACTOR or $USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of text")

	viper.SetEnvPrefix("gvctl")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("actor", rootCmd.PersistentFlags().Lookup("actor"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.AddCommand(entityCmd, linkCmd, typeCmd, groupCmd, graphCmd, configCmd, versionCmd)
}

func openVault(ctx context.Context) error {
	if actor == "" {
		actor = viper.GetString("actor")
	}
	if actor == "" {
		actor = os.Getenv("USER")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}

	var openFn core.OpenFunc
	switch cfg.Backend {
	case "dolt":
		openFn = core.DoltConfig(dolt.Config{
			Path:           cfg.Dolt.Path,
			Database:       cfg.Dolt.Database,
			CommitterName:  cfg.Dolt.CommitterName,
			CommitterEmail: cfg.Dolt.CommitterEmail,
			ServerMode:     cfg.Dolt.ServerMode,
			ServerHost:     cfg.Dolt.ServerHost,
			ServerPort:     cfg.Dolt.ServerPort,
			ServerUser:     cfg.Dolt.ServerUser,
			ServerPassword: cfg.Dolt.ServerPassword,
		})
	default:
		openFn = core.SQLiteConfig(cfg.SQLite.Path)
	}

	v, err := core.Open(ctx, openFn, idgen.SystemClock{})
	if err != nil {
		return fmt.Errorf("open vault: %w", err)
	}
	vault = v
	return nil
}

func actorOrFail() string {
	if actor == "" {
		fatal("--actor (or $GVCTL_ACTOR) is required for this command")
	}
	return actor
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "gvctl: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
