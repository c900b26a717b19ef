package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/polyglot/internal/archive"
	"codeberg.org/snonux/polyglot/internal/cli"
	"codeberg.org/snonux/polyglot/internal/config"
	"codeberg.org/snonux/polyglot/internal/models"
	"codeberg.org/snonux/polyglot/internal/processor"
	"codeberg.org/snonux/polyglot/internal/server"
	"codeberg.org/snonux/polyglot/internal/session"
	"codeberg.org/snonux/polyglot/internal/storage"
	"codeberg.org/snonux/polyglot/internal/translation"
)

// app opens the database and session lazily for the commands that need them
type app struct {
	flags   *cli.Flags
	db      *storage.SQLite
	session *session.Session
}

func (a *app) handlers() cli.Handlers {
	return cli.Handlers{
		Translate:     a.translate,
		HistoryList:   a.historyList,
		HistoryClear:  a.historyClear,
		HistoryDelete: a.historyDelete,
		ConfigShow:    a.configShow,
		ConfigSet:     a.configSet,
		ConfigReset:   a.configReset,
		Models:        a.models,
		Serve:         a.serve,
	}
}

func (a *app) open(ctx context.Context) (*session.Session, error) {
	if a.session != nil {
		return a.session, nil
	}

	dbPath := viper.GetString(cli.KeyStoragePath)
	if dbPath == "" {
		dbPath = a.flags.DBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := storage.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	policy, err := session.ParseCapturePolicy(viper.GetString(cli.KeyHistoryCapture))
	if err != nil {
		db.Close()
		return nil, err
	}

	completer := translation.NewBreaker(
		translation.NewRouter(viper.GetString(cli.KeyGeminiBaseURL)),
		translation.BreakerSettings{
			MaxFailures: uint32(viper.GetInt(cli.KeyBreakerMaxFailures)),
			OpenTimeout: viper.GetDuration(cli.KeyBreakerOpenTimeout),
		},
	)

	sess, err := session.New(ctx, db, completer, session.WithCapturePolicy(policy))
	if err != nil {
		db.Close()
		return nil, err
	}

	a.db, a.session = db, sess
	return sess, nil
}

func (a *app) close() {
	if a.session != nil {
		a.session.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}
}

func (a *app) translate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := a.open(ctx)
	if err != nil {
		return err
	}

	if viper.IsSet(cli.KeyTranslateFrom) {
		a.flags.From = viper.GetString(cli.KeyTranslateFrom)
	}
	if viper.IsSet(cli.KeyTranslateTo) {
		a.flags.To = viper.GetString(cli.KeyTranslateTo)
	}
	if viper.IsSet(cli.KeyTranslateTimeout) {
		a.flags.Timeout = viper.GetDuration(cli.KeyTranslateTimeout)
	}

	proc := processor.NewProcessor(a.flags, sess)
	if a.flags.BatchFile != "" {
		return proc.ProcessBatch(ctx)
	}
	return proc.ProcessSingle(ctx, args[0])
}

func (a *app) historyList(cmd *cobra.Command, args []string) error {
	sess, err := a.open(cmd.Context())
	if err != nil {
		return err
	}

	records := sess.History()
	if len(records) == 0 {
		fmt.Println("No translations yet")
		return nil
	}
	for _, r := range records {
		fmt.Printf("%s  %s  %s -> %s\n", r.ID, r.Time().Format("2006-01-02 15:04:05"), r.FromLanguage, r.ToLanguage)
		fmt.Printf("  %s\n  %s\n", r.Text, r.Translation)
	}
	return nil
}

func (a *app) historyClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := a.open(ctx)
	if err != nil {
		return err
	}

	if a.flags.Archive {
		path, err := archive.ArchiveHistory(sess.History(), viper.GetString(cli.KeyHistoryArchiveDir))
		if err != nil {
			return fmt.Errorf("failed to archive history: %w", err)
		}
		fmt.Printf("History archived to: %s\n", path)
	}

	if err := sess.ReplaceHistory(ctx, nil); err != nil {
		return err
	}
	fmt.Println("History cleared")
	return nil
}

func (a *app) historyDelete(cmd *cobra.Command, args []string) error {
	sess, err := a.open(cmd.Context())
	if err != nil {
		return err
	}
	return sess.DeleteHistory(cmd.Context(), args[0])
}

func (a *app) configShow(cmd *cobra.Command, args []string) error {
	sess, err := a.open(cmd.Context())
	if err != nil {
		return err
	}

	cfg := sess.Config()
	key := "(not set)"
	if cfg.APIKey != "" {
		key = "********"
	}
	fmt.Printf("%-12s %s\n", config.KeyAPIURL, cfg.APIBaseURL)
	fmt.Printf("%-12s %s\n", config.KeyAPIKey, key)
	fmt.Printf("%-12s %t\n", config.KeyStream, cfg.StreamEnabled)
	fmt.Printf("%-12s %s\n", config.KeyModel, cfg.CurrentModel)
	fmt.Printf("%-12s %g\n", config.KeyTemperature, cfg.TemperatureParam)
	return nil
}

func (a *app) configSet(cmd *cobra.Command, args []string) error {
	patch, err := config.ParsePatch(args[0], args[1])
	if err != nil {
		return err
	}
	if patch.CurrentModel != nil && !patch.CurrentModel.Supported() {
		fmt.Fprintf(os.Stderr, "Warning: %s is not a known model, it will be sent as a chat model\n", *patch.CurrentModel)
	}

	sess, err := a.open(cmd.Context())
	if err != nil {
		return err
	}
	_, err = sess.SetConfig(cmd.Context(), patch)
	return err
}

func (a *app) configReset(cmd *cobra.Command, args []string) error {
	sess, err := a.open(cmd.Context())
	if err != nil {
		return err
	}
	return sess.ResetConfig(cmd.Context())
}

func (a *app) models(cmd *cobra.Command, args []string) error {
	sess, err := a.open(cmd.Context())
	if err != nil {
		return err
	}
	return models.NewLister(sess.Config()).ListAvailableModels(cmd.Context(), os.Stdout, a.flags.Remote)
}

func (a *app) serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := a.open(ctx)
	if err != nil {
		return err
	}

	srv := server.New(sess, server.Options{ArchiveDir: viper.GetString(cli.KeyHistoryArchiveDir)})
	return srv.Run(ctx, viper.GetString(cli.KeyServerAddr))
}
