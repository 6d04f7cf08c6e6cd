package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "newspulse",
		Short:        "Rank Hacker News and news headlines by hotness and surface trending topics",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default: from config)")

	root.AddCommand(storiesCmd())
	root.AddCommand(topicsCmd())
	root.AddCommand(summarizeCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func storiesCmd() *cobra.Command {
	var opts storiesOptions

	cmd := &cobra.Command{
		Use:   "stories",
		Short: "Fetch stories and list them by hotness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStories(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.sort, "sort", "hot", "sort order: hot, points, comments, newest")
	cmd.Flags().IntVar(&opts.limit, "limit", 30, "max stories to show")
	cmd.Flags().BoolVar(&opts.json, "json", false, "output as JSON")
	cmd.Flags().StringSliceVar(&opts.sources, "source", nil, "specific sources to fetch (e.g., hn,news,rss)")
	cmd.Flags().StringVar(&opts.topic, "topic", "", "only stories mentioning this topic word")
	cmd.Flags().StringVar(&opts.level, "level", "", "minimum hotness level: cold, mild, warm, hot, fire")
	return cmd
}

func topicsCmd() *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Show trending topics across current headlines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopics(cmd.Context(), cmd.OutOrStdout(), jsonOutput, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 0, "max topics to show (default: from config)")
	return cmd
}

func summarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <story-id>",
		Short: "Print an AI summary of one story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummarize(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler, alerts and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
