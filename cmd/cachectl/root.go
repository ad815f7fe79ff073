package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/cacheaside"
	"github.com/unkn0wn-root/cacheaside/config"
	zaplog "github.com/unkn0wn-root/cacheaside/log/zap"
)

// app carries the service opened for the running command.
type app struct {
	svc cacheaside.Service
	zl  *zap.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "cachectl",
		Short:        "Inspect and maintain a cacheaside store",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "path to a config file (default: ./config/config.yaml if present)")
	pf.StringSlice("endpoint", nil, "backend endpoint host:port, repeatable; overrides config")
	pf.Int("db", -1, "database index; overrides config")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newKeysCmd(a),
		newGetCmd(a),
		newDelCmd(a),
		newDelPatternCmd(a),
		newExistsCmd(a),
		newInfoCmd(a),
		newFlushCmd(a),
	)
	return root
}

func settingsFromFlags(cmd *cobra.Command) (config.Settings, error) {
	var (
		s   config.Settings
		err error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		s, err = config.LoadFile(path)
	} else {
		s, err = config.Load()
	}
	if err != nil {
		return s, err
	}
	if eps, _ := cmd.Flags().GetStringSlice("endpoint"); len(eps) > 0 {
		s.Endpoints = eps
	}
	if db, _ := cmd.Flags().GetInt("db"); db >= 0 {
		s.DefaultDatabase = db
	}
	return s, s.Validate()
}

func newZap(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log-level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func (a *app) open(cmd *cobra.Command) error {
	s, err := settingsFromFlags(cmd)
	if err != nil {
		return err
	}
	level, _ := cmd.Flags().GetString("log-level")
	zl, err := newZap(level)
	if err != nil {
		return err
	}
	svc, err := cacheaside.Open(cmd.Context(), s, cacheaside.Options{Logger: zaplog.ZapLogger{L: zl}})
	if err != nil {
		_ = zl.Sync()
		return err
	}
	a.svc, a.zl = svc, zl
	return nil
}

// close releases whatever open acquired. It runs after the command returns,
// including when the command failed.
func (a *app) close(ctx context.Context) error {
	if a.svc == nil {
		return nil
	}
	err := a.svc.Close(ctx)
	_ = a.zl.Sync()
	a.svc = nil
	return err
}
