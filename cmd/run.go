package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/studycoach/internal/collab"
	"github.com/abhisek/studycoach/internal/config"
	"github.com/abhisek/studycoach/internal/enrich"
	"github.com/abhisek/studycoach/internal/eventlog"
	"github.com/abhisek/studycoach/internal/extract"
	"github.com/abhisek/studycoach/internal/grading"
	"github.com/abhisek/studycoach/internal/llm"
	"github.com/abhisek/studycoach/internal/metrics"
	"github.com/abhisek/studycoach/internal/notion"
	"github.com/abhisek/studycoach/internal/quizgen"
	"github.com/abhisek/studycoach/internal/retry"
	"github.com/abhisek/studycoach/internal/runner"
	"github.com/abhisek/studycoach/internal/store"
	"github.com/abhisek/studycoach/internal/telegram"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one study pass",
	Long: `Consume new Telegram messages, close the pending quiz when it is complete
or expired, and send the next quiz when no session is active.`,
	RunE: runPass,
}

func init() {
	runCmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile after the pass")
	runCmd.Flags().Duration("fetch-timeout", 30*time.Second, "Timeout for fetching submitted URLs")
}

// runPass opens the store, builds collaborators, and runs the pass.
func runPass(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	statePath, err := resolveStatePath(cmd)
	if err != nil {
		return fmt.Errorf("resolve state path: %w", err)
	}
	st, err := store.Open(statePath, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	chatID, err := requireEnv("TELEGRAM_CHAT_ID")
	if err != nil {
		return err
	}
	id, err := telegram.ParseChatID(chatID)
	if err != nil {
		return err
	}
	tgToken, err := requireEnv("TELEGRAM_TOKEN")
	if err != nil {
		return err
	}
	notionToken, err := requireEnv("NOTION_TOKEN")
	if err != nil {
		return err
	}

	policy, err := fileCfg.RetryPolicy(retry.DefaultPolicy())
	if err != nil {
		return err
	}

	tg, err := telegram.New(telegram.Config{Token: tgToken, ChatID: id, SendInterval: time.Second, Retry: policy}, logger)
	if err != nil {
		return err
	}

	nc := notion.DefaultConfig()
	nc.Token = notionToken
	fileCfg.ApplyNotion(&nc)
	source, err := notion.New(nc, logger)
	if err != nil {
		return err
	}

	eventsPath, err := resolveEventsPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve events path: %w", err)
	}
	events, err := eventlog.Open(eventsPath)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer events.Close()

	lc := llm.DefaultConfig()
	if err := fileCfg.ApplyLLM(&lc); err != nil {
		return err
	}
	lc.ApplyEnv()
	provider, err := llm.NewProvider(ctx, lc, events, logger)
	if err != nil {
		return fmt.Errorf("LLM provider: %w", err)
	}

	var enricher collab.Enricher = enrich.Noop{}
	if fileCfg.EnrichEnabled() && os.Getenv("STUDYCOACH_ENRICH") != "off" {
		ec := enrich.DefaultConfig()
		fileCfg.ApplyEnrich(&ec)
		enricher = enrich.New(ec, logger)
	}

	fetchTimeout, _ := cmd.Flags().GetDuration("fetch-timeout")
	m := metrics.New()

	r, err := runner.New(runner.Options{
		Store:     st,
		Source:    collab.WithRetrySource(source, policy),
		Enricher:  enricher,
		Generator: collab.WithRetryGenerator(quizgen.New(provider, quizgen.DefaultConfig()), policy),
		Evaluator: grading.New(provider, grading.DefaultConfig(), logger),
		Transport: collab.WithRetryTransport(tg, policy),
		Extractor: extract.New(fetchTimeout, logger),
		Metrics:   m,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	rep, runErr := r.Run(ctx)
	if rep != nil {
		attrs := []any{"messages", rep.Messages, "answers", rep.Answers, "closed", len(rep.Closed), "recovered", rep.Recovered}
		if rep.Created != nil {
			attrs = append(attrs, "created", rep.Created.SessionID, "origin", rep.Origin)
		}
		logger.Info("pass finished", attrs...)
	}

	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	if metricsFile == "" {
		metricsFile = config.StringOr(fileCfg.Metrics.File, "")
	}
	if metricsFile != "" {
		if err := m.WriteTextfile(metricsFile); err != nil {
			logger.Warn("writing metrics failed", "path", metricsFile, "error", err)
		}
	}
	return runErr
}

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}
