package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/newspulse/internal/config"
	"github.com/elonfeng/newspulse/internal/logging"
	"github.com/elonfeng/newspulse/internal/scheduler"
	"github.com/elonfeng/newspulse/pkg/alert"
	"github.com/elonfeng/newspulse/pkg/feed"
	"github.com/elonfeng/newspulse/pkg/hotness"
	"github.com/elonfeng/newspulse/pkg/server"
	"github.com/elonfeng/newspulse/pkg/source"
	"github.com/elonfeng/newspulse/pkg/summary"
)

type storiesOptions struct {
	sort    string
	limit   int
	json    bool
	sources []string
	topic   string
	level   string
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	if err := logging.Init(level, os.Stderr); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildSources(cfg *config.Config) []source.Source {
	filter := source.NewFilter(cfg.Filter.Include, cfg.Filter.Exclude)
	var sources []source.Source

	if hn := cfg.Sources.HackerNews; hn.Enabled {
		sources = append(sources, source.NewHackerNews(hn.List, hn.Limit, filter,
			source.WithHNConcurrency(hn.Concurrency),
			source.WithHNRate(hn.Rate),
		))
	}
	if na := cfg.Sources.NewsAPI; na.Enabled {
		sources = append(sources, source.NewNewsAPI(na.APIKey, na.Country, na.Category, na.PageSize, filter))
	}
	if cfg.Sources.RSS.Enabled {
		feeds := make([]source.RSSFeed, len(cfg.Sources.RSS.Feeds))
		for i, f := range cfg.Sources.RSS.Feeds {
			feeds[i] = source.RSSFeed{Name: f.Name, URL: f.URL}
		}
		sources = append(sources, source.NewRSS(feeds, cfg.Sources.RSS.ParseMaxAge(), filter))
	}

	return sources
}

func buildSummarizer(cfg *config.Config) (summary.Summarizer, error) {
	if !cfg.Summary.Enabled {
		return nil, nil
	}
	svc, err := summary.New(summary.Config{
		Provider:   cfg.Summary.Provider,
		Model:      cfg.Summary.Model,
		APIKey:     cfg.Summary.APIKey,
		BaseURL:    cfg.Summary.BaseURL,
		MaxContent: cfg.Summary.MaxContent,
	})
	if err != nil {
		return nil, err
	}
	logging.Info("summaries enabled", "provider", cfg.Summary.Provider, "model", cfg.Summary.Model)
	return svc, nil
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

// refreshedEngine builds an engine over the wanted sources and fetches once.
func newEngine(cfg *config.Config, sources []source.Source) *feed.Engine {
	return feed.NewEngine(sources, feed.WithWorkers(cfg.Sources.Concurrency))
}

func refreshedEngine(ctx context.Context, cfg *config.Config, wanted []string) (*feed.Engine, error) {
	sources := source.Select(buildSources(cfg), wanted)
	if len(sources) == 0 {
		if len(wanted) > 0 {
			return nil, fmt.Errorf("no matching sources for: %s", strings.Join(wanted, ", "))
		}
		return nil, errors.New("no sources enabled in config")
	}

	engine := newEngine(cfg, sources)
	if _, err := engine.Refresh(ctx); err != nil {
		return nil, err
	}
	return engine, nil
}

func runStories(ctx context.Context, out io.Writer, opts storiesOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	q := feed.Query{Topic: opts.topic, PageSize: opts.limit}
	if q.Sort, err = feed.ParseSort(opts.sort); err != nil {
		return err
	}
	if opts.level != "" {
		if q.MinLevel, err = hotness.ParseLevel(opts.level); err != nil {
			return err
		}
	}

	engine, err := refreshedEngine(ctx, cfg, opts.sources)
	if err != nil {
		return err
	}
	page, err := engine.Query(q)
	if err != nil {
		return err
	}

	if opts.json {
		return writeJSON(out, page.Stories)
	}
	if len(page.Stories) == 0 {
		fmt.Fprintln(out, "no stories found")
		return nil
	}
	return renderStories(out, page.Stories)
}

func runTopics(ctx context.Context, out io.Writer, jsonOutput bool, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = cfg.Topics.Limit
	}

	engine, err := refreshedEngine(ctx, cfg, nil)
	if err != nil {
		return err
	}
	views, err := engine.Topics(limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(out, views)
	}
	if len(views) == 0 {
		fmt.Fprintln(out, "no trending topics (need a word shared by at least two headlines)")
		return nil
	}
	return renderTopics(out, views)
}

func runSummarize(ctx context.Context, out io.Writer, id string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	summarizer, err := buildSummarizer(cfg)
	if err != nil {
		return err
	}
	if summarizer == nil {
		return errors.New("summaries are disabled: set summary.enabled or OPENAI_API_KEY / ANTHROPIC_API_KEY")
	}

	engine, err := refreshedEngine(ctx, cfg, nil)
	if err != nil {
		return err
	}
	st, ok := engine.Story(id)
	if !ok {
		return fmt.Errorf("story %s not found in current headlines", id)
	}

	text, err := summarizer.Summarize(ctx, st.Story)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n%s\n\n%s\n", st.Title, st.URL, text)
	return nil
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	summarizer, err := buildSummarizer(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine := newEngine(cfg, buildSources(cfg))
	go func() {
		if _, err := engine.Refresh(ctx); err != nil {
			logging.Error("initial refresh failed", "err", err)
		}
	}()

	return server.New(engine, summarizer, port).ListenAndServe(ctx)
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	summarizer, err := buildSummarizer(cfg)
	if err != nil {
		return err
	}
	minLevel, err := hotness.ParseLevel(cfg.Alerts.MinLevel)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine := newEngine(cfg, buildSources(cfg))
	sched := scheduler.New(engine, buildAlertManager(cfg),
		cfg.Schedule.ParseRefreshInterval(),
		cfg.Schedule.ParseAlertInterval(),
		minLevel,
	)
	srv := server.New(engine, summarizer, port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	err = g.Wait()
	logging.Info("shut down")
	return err
}

func renderStories(out io.Writer, stories []feed.AnnotatedStory) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tSCORE\tPOINTS\tCOMMENTS\tAGE\tSOURCE\tTITLE\tWHY")
	for _, s := range stories {
		level, score := "-", "-"
		if s.Hotness != nil {
			level = string(s.Hotness.Level)
			score = fmt.Sprintf("%.1f", s.Hotness.Score)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			level, score,
			optionalInt(s.Points), optionalInt(s.CommentCount),
			age(s), source.ShortName(s.Source),
			truncate(s.Title, 80), s.WhyHot)
	}
	return w.Flush()
}

func renderTopics(out io.Writer, views []feed.TopicView) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOPIC\tSTORIES\tWEIGHT\tAVG POINTS\tSIZE")
	for _, v := range views {
		word := v.Word
		if v.IsTech {
			word += " *"
		}
		fmt.Fprintf(w, "%s\t%d\t%.1f\t%.1f\t%s\n", word, v.Count, v.Weight, v.AvgPoints, v.Size)
	}
	return w.Flush()
}

func optionalInt(n *int) string {
	if n == nil {
		return "-"
	}
	return humanize.Comma(int64(*n))
}

func age(s feed.AnnotatedStory) string {
	if s.Timestamp.IsZero() {
		return "-"
	}
	return humanize.Time(s.Timestamp)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
