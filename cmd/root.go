/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "feedboard",
		Usage: "Aggregate RSS and Atom feeds into one paginated site",
		Description: `Feedboard fetches a configured list of RSS and Atom feeds,
		keeps every post it has ever seen in a compressed history file and
		serves the merged, date sorted posts as pre-rendered HTML pages.

		Pages are rebuilt on a fixed interval and swapped in without
		interrupting requests.

		Site settings live in the config file and can be seeded from the
		environment: PORT, TITLE, DESCRIPTION, POSTS_PER_PAGE, FEEDS and
		UPDATE_INTERVAL_MIN.

		Operational flags can be set via environment variables, e.g.:

		--config => FEEDBOARD_CONFIG=config.json
		--history => FEEDBOARD_HISTORY=db.json.gz
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"FEEDBOARD_LOG_LEVEL"},
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			fetchCmd(),
			configCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "config.json",
		Usage:   "Path to the site config file (.json or .toml)",
		EnvVars: []string{"FEEDBOARD_CONFIG"},
	}
}

func parserFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "parser",
		Value:   "pattern",
		Usage:   "Feed parser: pattern (lightweight tag matching) or strict (full RSS/Atom parser)",
		EnvVars: []string{"FEEDBOARD_PARSER"},
	}
}

func fetchTimeoutFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:    "fetch-timeout",
		Value:   30 * time.Second,
		Usage:   "Deadline for fetching a single feed",
		EnvVars: []string{"FEEDBOARD_FETCH_TIMEOUT"},
	}
}
