/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"feedboard/aggregator"
	"feedboard/config"
	"feedboard/feeds"
	"feedboard/models"
)

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Print the posts of all configured feeds",
		Description: `Fetch and parse every configured feed once and print the
posts to the command line.

Useful to check how a feed is parsed before adding it to the site. The post
history and the served pages are left untouched.

Returns each post as a JSON object on a single line. Use a tool like jq to process
the output.

Prints all other log messages to stderr.`,
		Flags: []cli.Flag{
			configFlag(),
			parserFlag(),
			fetchTimeoutFlag(),
		},
		Action: func(ctx *cli.Context) error {
			// Disable logging to stdout
			log.SetOutput(os.Stderr)

			cfg, err := config.Resolve(ctx.String("config"), os.Getenv)
			if err != nil {
				return fmt.Errorf("failed to resolve config: %w", err)
			}

			parser, err := feeds.NewParser(ctx.String("parser"))
			if err != nil {
				return err
			}

			agg := aggregator.New(feeds.NewHTTPFetcher(ctx.Duration("fetch-timeout")), parser, nil)
			for _, batch := range agg.Collect(ctx.Context, cfg.Feeds) {
				log.WithFields(log.Fields{
					"url":   batch.Source.URL,
					"posts": len(batch.Posts),
				}).Info("Fetched feed")

				for i := range batch.Posts {
					printStdout(&batch.Posts[i])
				}
			}

			return nil
		},
	}
}

func printStdout(post *models.Post) {
	// Print as single JSON string on a single line
	postJson, err := json.Marshal(post)
	if err == nil {
		fmt.Println(string(postJson))
	}
}
