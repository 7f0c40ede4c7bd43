package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pnadon/producer-consumer/internal/infrastructure/config"
)

// bindFlags declares every override flag. Defaults shown in --help come
// from config.Default(); a flag only wins when it was set explicitly.
func bindFlags(cmd *cobra.Command) {
	d := config.Default()
	f := cmd.Flags()

	f.String("dir", d.Input.Dir, "directory holding the sources")
	f.Int("sources", d.Input.Sources, "number of <dir>/<index>.txt sources")
	f.String("glob", "", "read every file under --dir matching this pattern, e.g. '**/*.txt'")
	f.Bool("walk", false, "read every file under --dir with an --ext extension")
	f.StringSlice("ext", d.Input.Extensions, "extensions accepted by --walk")
	f.String("mode", d.Input.Mode, "unit of work: line or byte")
	f.Int("max-item-size", d.Input.MaxItemSize, "longest line in bytes, terminator included")
	f.Bool("allow-binary", false, "accept sources with NUL bytes (binary content)")
	f.Float64("rate-limit", 0, "units per second per producer (0 is unlimited)")

	f.Int("queues", 0, "number of queues and consumers (0 is one per source)")
	f.Int("capacity", d.Queue.Capacity, "units each queue holds")
	f.Int("probe-limit", 0, "random probes per round before a producer parks (0 is one per queue)")
	f.Uint64("seed", 0, "seed for random queue selection (0 is random)")
	f.String("assignment", "", "random or pinned (default random in line mode, pinned in byte mode)")
	f.Duration("drain-timeout", d.Queue.DrainTimeout.Std(), "how long consumers drain after an interrupt")

	f.StringP("separator", "s", d.Output.Separator, "single-byte token separator")
	f.StringP("out-dir", "o", d.Output.Dir, "byte mode output directory")
	f.String("report", "", "write a JSON run report to this file")
	f.Bool("timing", false, "print the elapsed time")
	f.Bool("events", false, "log every task event at debug level")

	f.String("log-level", d.Logging.Level, "debug, info, warn or error")
	f.Bool("log-dev", false, "human readable colored logs")
	f.String("metrics-addr", "", "serve /metrics, /healthz and /stats on this address")
}

// applyFlags copies explicitly set flags onto cfg
func applyFlags(f *pflag.FlagSet, cfg *config.Config) error {
	var err error
	set := func(name string, apply func() error) {
		if err == nil && f.Changed(name) {
			err = apply()
		}
	}

	set("dir", func() (e error) { cfg.Input.Dir, e = f.GetString("dir"); return })
	set("sources", func() (e error) { cfg.Input.Sources, e = f.GetInt("sources"); return })
	set("glob", func() (e error) { cfg.Input.Glob, e = f.GetString("glob"); return })
	set("walk", func() (e error) { cfg.Input.Walk, e = f.GetBool("walk"); return })
	set("ext", func() (e error) { cfg.Input.Extensions, e = f.GetStringSlice("ext"); return })
	set("mode", func() (e error) { cfg.Input.Mode, e = f.GetString("mode"); return })
	set("max-item-size", func() (e error) { cfg.Input.MaxItemSize, e = f.GetInt("max-item-size"); return })
	set("allow-binary", func() (e error) { cfg.Input.AllowBinary, e = f.GetBool("allow-binary"); return })
	set("rate-limit", func() (e error) { cfg.Input.RateLimit, e = f.GetFloat64("rate-limit"); return })

	set("queues", func() (e error) { cfg.Queue.Count, e = f.GetInt("queues"); return })
	set("capacity", func() (e error) { cfg.Queue.Capacity, e = f.GetInt("capacity"); return })
	set("probe-limit", func() (e error) { cfg.Queue.ProbeLimit, e = f.GetInt("probe-limit"); return })
	set("seed", func() (e error) { cfg.Queue.Seed, e = f.GetUint64("seed"); return })
	set("assignment", func() (e error) { cfg.Queue.Assignment, e = f.GetString("assignment"); return })
	set("drain-timeout", func() error {
		d, e := f.GetDuration("drain-timeout")
		cfg.Queue.DrainTimeout = config.Duration(d)
		return e
	})

	set("separator", func() (e error) { cfg.Output.Separator, e = f.GetString("separator"); return })
	set("out-dir", func() (e error) { cfg.Output.Dir, e = f.GetString("out-dir"); return })
	set("report", func() (e error) { cfg.Output.Report, e = f.GetString("report"); return })
	set("timing", func() (e error) { cfg.Output.Timing, e = f.GetBool("timing"); return })
	set("events", func() (e error) { cfg.Output.Events, e = f.GetBool("events"); return })

	set("log-level", func() (e error) { cfg.Logging.Level, e = f.GetString("log-level"); return })
	set("log-dev", func() (e error) { cfg.Logging.Development, e = f.GetBool("log-dev"); return })
	set("metrics-addr", func() (e error) { cfg.Server.Addr, e = f.GetString("metrics-addr"); return })

	return err
}
