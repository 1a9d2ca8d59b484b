// f3.go
// Fight Flash Fraud: checks the real capacity of flash drives.
// "f3 write" fills a mounted drive with NUM.h2w files of generated sectors,
// "f3 read" reads them back and tells how much data survived.
//
// Build:
//
//	go build -o f3 .
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func must(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "f3",
		Short:         "Fight Flash Fraud: test the real capacity of a drive",
		Long:          "Fill a drive with h2w files and read them back to find out how much of its advertised capacity really holds data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig(v, cfgFile)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./"+cfgFileName+" or $HOME/.config/f3/"+cfgFileName+")")
	pf.Int64P("start-at", "s", 1, "first NUM.h2w file")
	pf.Int64P("end-at", "e", 0, "last NUM.h2w file, 0 for no limit")
	pf.BoolP("show-progress", "p", true, "show progress")
	pf.String("ui", uiLine, "display: line or screen")
	pf.String("log-level", "warn", "log level: debug, info, warn or error")
	pf.String("log-file", "", "write logs to this file instead of stderr")
	pf.String("metrics-file", "", "write prometheus metrics to this file when the run ends")
	for key, flag := range map[string]string{
		"start-at":      "start-at",
		"end-at":        "end-at",
		"show-progress": "show-progress",
		"ui":            "ui",
		"log.level":     "log-level",
		"log.file":      "log-file",
		"metrics-file":  "metrics-file",
	} {
		must(v.BindPFlag(key, pf.Lookup(flag)))
	}

	// write PATH
	writeCmd := &cobra.Command{
		Use:   "write [flags] PATH",
		Short: "Fill a drive with NUM.h2w files to test its real capacity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := configFromViper(v, modeWrite, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), c, func(ctx context.Context, r *runner) error {
				return r.write(ctx)
			})
		},
	}
	writeCmd.Flags().Int64P("max-write-rate", "w", 0, "maximum write rate in KiB/s, 0 for unlimited")
	must(v.BindPFlag("max-write-rate", writeCmd.Flags().Lookup("max-write-rate")))
	root.AddCommand(writeCmd)

	// read PATH | read PATH/NUM.h2w
	readCmd := &cobra.Command{
		Use:   "read [flags] PATH",
		Short: "Validate NUM.h2w files to test the real capacity of a drive",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := configFromViper(v, modeRead, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), c, func(ctx context.Context, r *runner) error {
				return r.read(ctx)
			})
		},
	}
	readCmd.Flags().Int64P("max-read-rate", "r", 0, "maximum read rate in KiB/s, 0 for unlimited")
	readCmd.Flags().BoolP("read-single-file", "S", false, "read a single file, implied when PATH ends in .h2w")
	must(v.BindPFlag("max-read-rate", readCmd.Flags().Lookup("max-read-rate")))
	must(v.BindPFlag("read-single-file", readCmd.Flags().Lookup("read-single-file")))
	root.AddCommand(readCmd)

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "\nInterrupted\n")
		os.Exit(130)
	}
	must(err)
}
