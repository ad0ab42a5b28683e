package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"memDB/internal/slt"
)

var sltCmd = &cobra.Command{
	Use:   "slt [paths...]",
	Short: "Run SQLLogicTest files against a fresh database per file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSLT,
}

func init() {
	f := sltCmd.Flags()
	f.Int("workers", 0, "files to run concurrently (default: number of CPUs)")
	f.Bool("fail-fast", false, "stop at the first failure")
	f.String("target", slt.DefaultTarget, "database name matched by skipif and onlyif")
	f.String("backend", "memdb", "database to run against: memdb or sqlite")
	f.BoolP("verbose", "v", false, "list passing files too")
	bindFlag(sltCmd, "slt.workers", "workers")
	bindFlag(sltCmd, "slt.fail_fast", "fail-fast")
	bindFlag(sltCmd, "slt.target_db", "target")
	bindFlag(sltCmd, "slt.backend", "backend")
}

var errTestsFailed = errors.New("some test files failed")

func runSLT(cmd *cobra.Command, args []string) error {
	stopMetrics := startMetrics(cfg.Metrics.Addr)
	defer stopMetrics()

	opts := cfg.RunnerOptions()
	verbose, _ := cmd.Flags().GetBool("verbose")

	sum, err := slt.NewRunner(opts).Run(cmd.Context(), args)
	if err != nil {
		return err
	}
	slt.Report(os.Stdout, sum, verbose)
	if !sum.Passed() {
		return errTestsFailed
	}
	return nil
}
