package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gowvp/vigil/internal/app"
	"github.com/gowvp/vigil/internal/conf"
	"github.com/gowvp/vigil/internal/core/timeline"
	"github.com/gowvp/vigil/internal/logger"
	"github.com/gowvp/vigil/internal/tui"
	"github.com/gowvp/vigil/internal/web/client"
	"github.com/spf13/cobra"
)

// 编译时通过 ldflags 注入
var (
	buildVersion = "dev"
	gitBranch    = "unknown"
	gitHash      = "none"
	buildTime    = "unknown"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "CCTV incident dashboard backend with a timeline view",
	Long: `vigil serves camera incidents over HTTP and hosts timeline sessions
that web or terminal clients drive.

Quick Start:
  vigil seed                           # Load the demo day into the database
  vigil serve                          # Start the HTTP server
  vigil tui --addr 127.0.0.1:15123     # Open the terminal timeline`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		bc, err := loadConfig()
		if err != nil {
			return err
		}
		_, closeLog := logger.SetupSlog(logger.Config{
			Dir:        filepath.Join(bc.ConfigDir, bc.Log.Dir),
			Level:      bc.Log.Level,
			MaxAgeDays: bc.Log.MaxAgeDays,
			MaxSizeMB:  bc.Log.MaxSizeMB,
			MaxBackups: bc.Log.MaxBackups,
			Compress:   bc.Log.Compress,
			Debug:      bc.Debug || bc.Server.Debug,
		})
		defer closeLog()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.Run(ctx, bc)
	},
}

var seedForce bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the demo cameras and incidents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		bc, err := loadConfig()
		if err != nil {
			return err
		}
		result, err := app.Seed(bc, seedForce)
		if err != nil {
			return err
		}
		if result.Skipped {
			fmt.Fprintln(cmd.OutOrStdout(), "database already has incidents, use --force to reseed")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d cameras, %d incidents\n", result.Cameras, result.Incidents)
		return nil
	},
}

var (
	tuiAddr string
	tuiDate string
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal timeline against a running server",
	RunE: func(_ *cobra.Command, _ []string) error {
		date := timeline.DateOf(time.Now(), time.Local)
		if tuiDate != "" {
			d, err := timeline.ParseDate(tuiDate)
			if err != nil {
				return err
			}
			date = d
		}
		m := tui.New(client.New(tuiAddr), date, time.Local)
		_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "vigil %s (%s@%s) built %s %s\n",
			buildVersion, gitBranch, gitHash, buildTime, runtime.Version())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "configs/config.toml", "config file, created with defaults when missing")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")

	seedCmd.Flags().BoolVar(&seedForce, "force", false, "delete existing cameras and incidents first")
	tuiCmd.Flags().StringVar(&tuiAddr, "addr", "127.0.0.1:15123", "server address")
	tuiCmd.Flags().StringVar(&tuiDate, "date", "", "initial date YYYY-MM-DD, default today")

	rootCmd.AddCommand(serveCmd, seedCmd, tuiCmd, versionCmd)
}

func loadConfig() (*conf.Bootstrap, error) {
	path, err := filepath.Abs(cfgFile)
	if err != nil {
		return nil, err
	}
	bc, err := conf.SetupConfig(path)
	if err != nil {
		return nil, err
	}
	bc.Debug = debug
	bc.BuildVersion = buildVersion
	return &bc, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
