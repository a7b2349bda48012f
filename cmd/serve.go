/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"feedboard/aggregator"
	"feedboard/config"
	"feedboard/db"
	"feedboard/feeds"
	"feedboard/render"
	"feedboard/scheduler"
	"feedboard/server"
	"feedboard/snapshot"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the aggregated feed site",
		Description: `Resolves the site config, loads the post history and runs a
first refresh before the HTTP server starts listening. Afterwards the feeds are
refreshed every update_interval_min minutes and the new pages replace the old
ones in a single step.`,
		Flags: []cli.Flag{
			configFlag(),
			parserFlag(),
			fetchTimeoutFlag(),
			&cli.StringFlag{
				Name:    "history",
				Value:   "db.json.gz",
				Usage:   "Compressed post history file",
				EnvVars: []string{"FEEDBOARD_HISTORY"},
			},
			&cli.StringFlag{
				Name:    "stylesheet",
				Value:   "index.css",
				Usage:   "Stylesheet served at /css, created from the built-in one if missing",
				EnvVars: []string{"FEEDBOARD_STYLESHEET"},
			},
			&cli.StringFlag{
				Name:    "metrics-path",
				Value:   "/metrics",
				Usage:   "Path of the Prometheus endpoint, empty to disable",
				EnvVars: []string{"FEEDBOARD_METRICS_PATH"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := config.Resolve(ctx.String("config"), os.Getenv)
			if err != nil {
				return fmt.Errorf("failed to resolve config: %w", err)
			}

			log.WithFields(log.Fields{
				"config":   ctx.String("config"),
				"feeds":    len(cfg.Feeds),
				"interval": cfg.UpdateInterval(),
			}).Info("Config resolved")

			parser, err := feeds.NewParser(ctx.String("parser"))
			if err != nil {
				return err
			}

			store, err := db.Open(ctx.String("history"))
			if err != nil {
				return err
			}

			agg := aggregator.New(feeds.NewHTTPFetcher(ctx.Duration("fetch-timeout")), parser, store)
			builder := snapshot.NewBuilder(render.New(cfg.Title, cfg.Description), cfg.PostsPerPage, ctx.String("stylesheet"))
			publisher := snapshot.NewPublisher()
			sched := scheduler.New(agg, builder, publisher, cfg.Feeds, cfg.UpdateInterval())

			runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Pages are generated before the server starts listening
			if err := sched.RunOnce(runCtx); err != nil {
				return fmt.Errorf("initial refresh failed: %w", err)
			}

			app := server.Server(&server.ServerConfig{
				Publisher:   publisher,
				MetricsPath: ctx.String("metrics-path"),
			})

			go func() {
				if err := sched.Loop(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					log.WithFields(log.Fields{
						"error": err,
					}).Error("Scheduler stopped")
				}
			}()

			listenErr := make(chan error, 1)
			go func() {
				listenErr <- app.Listen(fmt.Sprintf(":%d", cfg.Port))
			}()

			log.Infof("Server running on http://localhost:%d", cfg.Port)

			select {
			case err := <-listenErr:
				return err
			case <-runCtx.Done():
			}

			log.Info("Gracefully shutting down...")
			if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
				return err
			}

			log.Info("Done!")
			return nil
		},
	}
}
