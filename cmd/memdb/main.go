package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"memDB/internal/config"
	"memDB/internal/engine"
	"memDB/internal/logging"
	"memDB/internal/protocol"
	"memDB/internal/storage/memstore"
)

var (
	v          = config.New()
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "memdb",
	Short: "In-memory SQL engine speaking a line-oriented text protocol",
	Long: `memdb reads SQL statements from stdin. A statement ends at a blank line;
each one answers with tab-separated rows (or an "Error:" line) followed by a
blank line. When stdin is a terminal an interactive prompt is used instead.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { _ = logging.Close() },
	RunE:              serve,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	pf.String("log-level", "warn", "log level: debug, info, warn or error")
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address")
	pf.String("division-by-zero", "error", "result of x/0: error or null")
	bindFlag(rootCmd, "log.level", "log-level")
	bindFlag(rootCmd, "metrics.addr", "metrics-addr")
	bindFlag(rootCmd, "engine.division_by_zero", "division-by-zero")

	rootCmd.AddCommand(sltCmd)
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	f := cmd.PersistentFlags().Lookup(flag)
	if f == nil {
		f = cmd.Flags().Lookup(flag)
	}
	if err := v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind %s: %v", flag, err))
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.Load(v, configFile); err != nil {
		return err
	}
	if err := logging.Init(cfg.Logging()); err != nil {
		return err
	}
	logging.WithComponent("main").Debug("configuration loaded", "file", v.ConfigFileUsed(), "command", cmd.Name())
	return nil
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	stopMetrics := startMetrics(cfg.Metrics.Addr)
	defer stopMetrics()

	eng := engine.New(memstore.New(), cfg.EngineOptions()...)
	if err := eng.Start(); err != nil {
		return err
	}

	sess := protocol.NewSession(eng, os.Stdout, cfg.Formatter())
	if isTerminal(os.Stdin) && isTerminal(os.Stdout) {
		return sess.ServeInteractive(ctx)
	}
	return sess.Serve(ctx, os.Stdin)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
