// Copyright 2025 Halcyon Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/halcyonlabs/ringsight"
	"github.com/halcyonlabs/ringsight/ai"
	"github.com/halcyonlabs/ringsight/core"
	"github.com/halcyonlabs/ringsight/storage"
)

func main() {
	// .env is optional; environment variables win either way
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "ringsight",
		Usage: "Ask questions about your Oura health data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB index directory",
				Value:   "ringsight.db",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:  "completion-host",
				Usage: "Completion service host URL",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name (doubles as the index model version)",
			},
			&cli.StringFlag{
				Name:  "completion-model",
				Usage: "Completion model name",
			},
			&cli.StringFlag{
				Name:    "api-token",
				Usage:   "API token for the model services",
				EnvVars: []string{"RINGSIGHT_API_TOKEN"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Fetch Oura data and index it",
				Action: syncCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "days",
						Usage: "Number of trailing days to sync",
						Value: ringsight.DefaultSyncDays,
					},
					&cli.StringFlag{
						Name:    "oura-token",
						Usage:   "Oura personal access token",
						EnvVars: []string{"OURA_PERSONAL_ACCESS_TOKEN"},
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Ask a question about your health data",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "metric",
						Usage: "Restrict to one metric type (sleep, readiness, activity, hrv)",
					},
					&cli.StringFlag{
						Name:  "from",
						Usage: "Restrict to days on or after this ISO date",
					},
					&cli.StringFlag{
						Name:  "to",
						Usage: "Restrict to days on or before this ISO date",
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of chunks to retrieve",
					},
					&cli.BoolFlag{
						Name:  "cite",
						Usage: "Print the cited chunk ids after the answer",
					},
				},
			},
			{
				Name:   "rebuild",
				Usage:  "Re-embed the whole index under the configured embedding model",
				Action: rebuildCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show index statistics",
				Action: statsCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// aiConfigFromFlags builds the model configuration, keeping defaults
// for flags that weren't set.
func aiConfigFromFlags(c *cli.Context) *ai.Config {
	var opts []ai.ConfigOption
	if host := c.String("embedding-host"); host != "" {
		opts = append(opts, ai.WithEmbeddingHost(host))
	}
	if host := c.String("completion-host"); host != "" {
		opts = append(opts, ai.WithCompletionHost(host))
	}
	if model := c.String("embedding-model"); model != "" {
		opts = append(opts, ai.WithEmbeddingModel(model))
	}
	if model := c.String("completion-model"); model != "" {
		opts = append(opts, ai.WithCompletionModel(model))
	}
	if token := c.String("api-token"); token != "" {
		opts = append(opts, ai.WithToken(token))
	}
	return ai.NewConfig(opts...)
}

func openService(c *cli.Context, extra ...ringsight.Option) (*ringsight.Service, error) {
	opts := append([]ringsight.Option{
		ringsight.WithAIConfig(aiConfigFromFlags(c)),
	}, extra...)
	return ringsight.Open(c.String("db"), opts...)
}

func syncCommand(c *cli.Context) error {
	token := c.String("oura-token")
	if token == "" {
		return fmt.Errorf("set OURA_PERSONAL_ACCESS_TOKEN in your environment/.env or pass --oura-token")
	}

	service, err := openService(c, ringsight.WithOuraToken(token))
	if err != nil {
		return err
	}
	defer service.Close()

	report, err := service.Sync(context.Background(), c.Int("days"))
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("Synced %s..%s: %d indexed, %d unchanged, %d malformed\n",
		report.Start, report.End, report.Indexed, report.Skipped, report.Malformed)
	if report.Partial() {
		for _, metric := range report.FailedTypes {
			fmt.Printf("  %s failed: %s\n", metric, report.Failures[metric])
		}
	}
	return nil
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("usage: ringsight ask <question>")
	}

	filter, err := filterFromFlags(c)
	if err != nil {
		return err
	}

	var extra []ringsight.Option
	if k := c.Int("k"); k > 0 {
		extra = append(extra, ringsight.WithRetrievalK(k))
	}

	service, err := openService(c, extra...)
	if err != nil {
		return err
	}
	defer service.Close()

	answer, err := service.AskFiltered(context.Background(), question, filter)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if c.Bool("cite") && len(answer.CitedChunkIDs) > 0 {
		fmt.Println("\nSources:")
		for _, id := range answer.CitedChunkIDs {
			fmt.Printf("  %s\n", id)
		}
	}
	return nil
}

func filterFromFlags(c *cli.Context) (*storage.Filter, error) {
	var filter storage.Filter
	used := false

	if name := c.String("metric"); name != "" {
		metric := core.MetricType(name)
		if !metric.Valid() {
			return nil, fmt.Errorf("unknown metric type %q", name)
		}
		filter.Metric = metric
		used = true
	}
	if from := c.String("from"); from != "" {
		day, err := core.ParseDay(from)
		if err != nil {
			return nil, err
		}
		filter.FromDay = day
		used = true
	}
	if to := c.String("to"); to != "" {
		day, err := core.ParseDay(to)
		if err != nil {
			return nil, err
		}
		filter.ToDay = day
		used = true
	}

	if !used {
		return nil, nil
	}
	return &filter, nil
}

func rebuildCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	report, err := service.Rebuild(context.Background())
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	fmt.Printf("Rebuilt %d of %d entries under %s (%d already current)\n",
		report.Rebuilt, report.Total, report.ModelVersion, report.Skipped)
	return nil
}

func statsCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	stats, err := service.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Entries: %d\n", stats.Entries)
	fmt.Printf("Embedding model: %s\n", stats.EmbeddingModel)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
