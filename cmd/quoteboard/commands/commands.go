package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/quoteboard"
	"github.com/eringen/quoteboard/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quoteboard HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the quoteboard version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("quoteboard %s\n", version)
		},
	}
}

// NewSettingsCommand creates the settings command with show and set
// subcommands. They edit the settings file directly and are meant for a
// stopped server, e.g. to recover a forgotten admin password.
func NewSettingsCommand() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or change site settings",
	}

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current settings without passwords",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSettings()
			if err != nil {
				return err
			}
			return printJSON(store.Get().Public())
		},
	})

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change one or more settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := updateFromFlags(cmd)
			if err != nil {
				return err
			}
			store, err := openSettings()
			if err != nil {
				return err
			}
			s, err := store.Update(u)
			if err != nil {
				return err
			}
			return printJSON(s.Public())
		},
	}
	setCmd.Flags().String("upload-password", "", "Upload and home password")
	setCmd.Flags().String("admin-password", "", "Admin password")
	setCmd.Flags().Bool("require-upload-password", true, "Require a password to post quotes")
	setCmd.Flags().Bool("require-home-password", false, "Require a password to view the board")
	setCmd.Flags().String("site-name", "", "Site name")
	setCmd.Flags().Float64("date-font-size", 0, "Date font size (8-40)")
	setCmd.Flags().Float64("text-font-size", 0, "Quote font size (8-40)")
	setCmd.Flags().String("admin-path", "", "Admin URL prefix")
	settingsCmd.AddCommand(setCmd)

	return settingsCmd
}

// updateFromFlags builds a SettingsUpdate from the flags that were set.
func updateFromFlags(cmd *cobra.Command) (quoteboard.SettingsUpdate, error) {
	var u quoteboard.SettingsUpdate
	flags := cmd.Flags()

	str := func(name string, dst **string) {
		if flags.Changed(name) {
			v, _ := flags.GetString(name)
			*dst = &v
		}
	}
	flag := func(name string, dst **quoteboard.Flag) {
		if flags.Changed(name) {
			v, _ := flags.GetBool(name)
			f := quoteboard.Flag(v)
			*dst = &f
		}
	}
	font := func(name string, dst **quoteboard.FontSize) {
		if flags.Changed(name) {
			v, _ := flags.GetFloat64(name)
			f := quoteboard.FontSize(v)
			*dst = &f
		}
	}

	str("upload-password", &u.UploadPassword)
	str("admin-password", &u.AdminPassword)
	flag("require-upload-password", &u.RequireUploadPassword)
	flag("require-home-password", &u.RequireHomePassword)
	str("site-name", &u.SiteName)
	font("date-font-size", &u.DateFontSize)
	font("text-font-size", &u.TextFontSize)
	str("admin-path", &u.AdminPath)

	if flags.NFlag() == 0 {
		return u, fmt.Errorf("no settings given, see --help")
	}
	return u, nil
}

func openSettings() (*quoteboard.SettingsStore, error) {
	cfg, err := quoteboard.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return quoteboard.NewSettingsStore(cfg.SettingsPath(), quoteboard.DefaultSettings(cfg.DefaultPassword), log)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runServer() error {
	cfg, err := quoteboard.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	app := quoteboard.New(cfg, quoteboard.WithLogger(appLogger))
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Errorw("Server failed", "error", err)
		}
		return err
	case <-ctx.Done():
	}

	appLogger.Infow("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}
