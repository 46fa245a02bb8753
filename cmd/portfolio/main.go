// Command portfolio is a terminal client for the portfolio services. It keeps
// its sign-in in the durable client storage (storage.path), so a session
// survives between invocations the way it survives a browser reload.
//
// Examples:
//
//	portfolio signin --email john@example.com --password user123
//	portfolio like project ecommerce-platform
//	portfolio comments blog getting-started-with-react
//	portfolio signout
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/portfolio/internal/app"
	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/config"
	"github.com/sakif/portfolio/internal/repository/sqlite"
	"github.com/sakif/portfolio/internal/session"
)

var (
	configDir string
	jsonOut   bool
	verbose   bool

	// Set up by the root command's PersistentPreRunE.
	client *clientEnv
)

// clientEnv is what every subcommand works against.
type clientEnv struct {
	app     *app.App
	storage *sqlite.DB
	session *session.Manager
	logger  *slog.Logger
}

func (c *clientEnv) Close() error {
	return errors.Join(c.storage.Close(), c.app.Close())
}

var rootCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Sign in, like and comment on portfolio content",
	Long: `A terminal client for the portfolio services.

In mock mode (no backend.url / backend.api_key configured) content comes from
the seeded demo data and changes last for one invocation. Sign-ins are kept
in the client storage file either way.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory containing config.yaml")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log service activity to stderr")
}

func setup(cmd *cobra.Command, args []string) error {
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var logOut io.Writer = io.Discard
	if verbose {
		logOut = os.Stderr
	}
	logger := app.NewLogger(cfg, logOut)

	ctx := cmd.Context()
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	storage, err := app.OpenStorage(cfg.Storage.Path)
	if err != nil {
		_ = a.Close()
		return err
	}

	client = &clientEnv{
		app:     a,
		storage: storage,
		session: session.New(a.Auth, storage, logger),
		logger:  logger,
	}
	return nil
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if client != nil {
		if cerr := client.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "warning: closing client storage: %v\n", cerr)
		}
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printError prints the user-facing message of err. Unexpected errors are
// printed in full.
func printError(err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", appErr.Message)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
