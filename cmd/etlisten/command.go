//go:build linux

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/fatih/color"
	"github.com/momentics/etlisten/control"
	"github.com/momentics/etlisten/internal/logging"
	"github.com/momentics/etlisten/server"
	"github.com/scott-cotton/cli"
	"go.uber.org/zap"
)

type mainConfig struct {
	*cli.Command
	ConfigFile string `cli:"name=config desc='YAML configuration file'"`
	Host       string `cli:"name=host desc='bind address (default: all interfaces)'"`
	Chunk      int    `cli:"name=chunk desc='read chunk size in bytes (default 512)'"`
	Backlog    int    `cli:"name=backlog desc='listen backlog (default SOMAXCONN)'"`
	LogLevel   string `cli:"name=log-level desc='debug, info, warn or error'"`
	Color      string `cli:"name=color desc='auto, always or never'"`
}

// MainCommand returns the etlisten command.
func MainCommand() *cli.Command {
	cfg := &mainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "etlisten").
		WithSynopsis("etlisten [opts] <port> - log bytes received from TCP clients on port").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return run(cfg, cc, args)
		})
}

// resolve layers the config file, then explicitly set flags, over the
// defaults.
func (cfg *mainConfig) resolve() (*control.Config, error) {
	conf := control.DefaultConfig()
	if cfg.ConfigFile != "" {
		var err error
		if conf, err = control.LoadConfig(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	if cfg.Host != "" {
		conf.Host = cfg.Host
	}
	if cfg.Chunk != 0 {
		conf.ChunkSize = cfg.Chunk
	}
	if cfg.Backlog != 0 {
		conf.Backlog = cfg.Backlog
	}
	if cfg.LogLevel != "" {
		conf.LogLevel = cfg.LogLevel
	}
	if cfg.Color != "" {
		conf.Color = cfg.Color
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func run(cfg *mainConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: expected exactly one argument, the port to listen on; got %d", cli.ErrUsage, len(args))
	}
	conf, err := cfg.resolve()
	if err != nil {
		return fatal(err)
	}
	log, err := logging.NewLogger(logging.Options{
		Level: conf.LogLevel,
		Color: logging.ColorEnabled(conf.Color, os.Stdout),
	})
	if err != nil {
		return fatal(err)
	}
	defer log.Sync()

	srv, err := server.New(conf, args[0], server.WithSink(logging.NewSink(log)))
	if err != nil {
		return fatal(err)
	}
	defer srv.Close()
	control.RegisterPlatformProbes(srv.Probes())
	log.Info("listening", zap.Stringer("addr", srv.Addr()), zap.Int("chunk", conf.ChunkSize))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.Serve(ctx); err != nil {
		return fatal(err)
	}
	log.Info("shutting down", metricFields(srv.Metrics())...)
	log.Debug("final state", srv.Probes().Fields()...)
	return nil
}

func fatal(err error) error {
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "etlisten: %v\n", err)
	return cli.ExitCodeErr(1)
}

func metricFields(m map[string]any) []zap.Field {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, m[k]))
	}
	return fields
}
