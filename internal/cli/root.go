// Package cli implements baconctl, the command-line client for the Bacon
// number API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/emergent-company/kevinbacon/internal/client"
)

const defaultServer = "http://localhost:8080"

// app carries state shared by every command of one root.
type app struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCommand builds a fresh command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "baconctl",
		Short: "CLI for the Bacon number API",
		Long: `Command-line client for the Bacon number API.

Manage actors, movies and the roles linking them, seed the graph from IMDb
datasets, and ask how far any actor is from Kevin Bacon.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.baconctl/config.yaml)")
	pf.String("server", defaultServer, "API server URL")
	pf.StringP("output", "o", formatTable, "output format (table, json, yaml)")
	pf.Duration("timeout", client.DefaultTimeout, "request timeout")
	pf.Bool("debug", false, "log HTTP requests and responses")
	pf.Bool("no-color", false, "disable colored output")
	for _, name := range []string{"server", "output", "timeout", "debug", "no-color"} {
		_ = a.v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(
		newActorCommand(a),
		newMovieCommand(a),
		newRelationshipCommand(a),
		newBaconCommand(a),
		newHealthCommand(a),
		newResetCommand(a),
		newSeedCommand(a),
		newVersionCommand(a),
	)
	return root
}

// Execute runs baconctl with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// initConfig layers flags over BACONCTL_* variables over the config file.
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(filepath.Join(home, ".baconctl"))
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("BACONCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	switch f := a.v.GetString("output"); f {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", f)
	}
	return nil
}

func (a *app) client() *client.Client {
	return client.New(client.Config{
		ServerURL: a.v.GetString("server"),
		Timeout:   a.v.GetDuration("timeout"),
		Debug:     a.v.GetBool("debug"),
	})
}

func (a *app) printer(cmd *cobra.Command) *printer {
	return &printer{
		w:       cmd.OutOrStdout(),
		format:  a.v.GetString("output"),
		noColor: a.v.GetBool("no-color") || os.Getenv("NO_COLOR") != "",
	}
}
