package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/studycoach/internal/eventlog"
	"github.com/abhisek/studycoach/internal/llm"
	"github.com/abhisek/studycoach/internal/textutil"
)

const rule = "─"

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect quiz generation and grading calls",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := eventlog.QueryOpts{}
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.Purpose, _ = cmd.Flags().GetString("purpose")
		opts.Topic, _ = cmd.Flags().GetString("topic")
		if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
			opts.Since = time.Now().Add(-since)
		}

		s, err := openEventLog(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		renderEventList(os.Stdout, events)
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the prompt and reply of one LLM call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		s, err := openEventLog(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}
		renderEvent(os.Stdout, e)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		by, _ := cmd.Flags().GetString("by")

		s, err := openEventLog(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		var groups []eventlog.LLMUsageStats
		switch by {
		case "purpose":
			groups, err = s.LLMUsageByPurpose(ctx)
		case "topic":
			groups, err = s.LLMUsageByTopic(ctx)
		default:
			return fmt.Errorf("unknown grouping %q (want purpose or topic)", by)
		}
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		models, err := s.LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		renderUsage(os.Stdout, by, groups, models)
		return nil
	},
}

// openEventLog opens the LLM event log selected by --events-db.
func openEventLog(cmd *cobra.Command) (*eventlog.Store, error) {
	path, err := resolveEventsPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve events path: %w", err)
	}
	s, err := eventlog.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return s, nil
}

func renderEventList(w io.Writer, events []eventlog.LLMRequestEventRecord) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No LLM calls recorded.")
		return
	}
	const row = "%-5v  %-16v  %-10v  %-24v  %-24v  %6v  %6v  %6v  %v\n"
	fmt.Fprintf(w, row, "ID", "When", "Purpose", "Topic", "Model", "In", "Out", "Ms", "OK")
	fmt.Fprintln(w, strings.Repeat(rule, 116))
	for _, e := range events {
		ok := "yes"
		if !e.Success {
			ok = "no"
		}
		fmt.Fprintf(w, row,
			e.ID,
			e.Timestamp.Local().Format("2006-01-02 15:04"),
			e.Purpose,
			textutil.Ellipsize(firstNonEmpty(e.Topic, "-"), 24),
			textutil.Ellipsize(e.Model, 24),
			e.InputTokens, e.OutputTokens, e.LatencyMs, ok)
	}
}

func renderEvent(w io.Writer, e *eventlog.LLMRequestEventRecord) {
	field := func(name, value string) { fmt.Fprintf(w, "%-10s %s\n", name+":", value) }
	field("ID", strconv.Itoa(e.ID))
	field("Time", e.Timestamp.Local().Format(time.DateTime))
	field("Purpose", e.Purpose)
	field("Topic", firstNonEmpty(e.Topic, "-"))
	field("Provider", e.Provider)
	field("Model", e.Model)
	field("Tokens", fmt.Sprintf("%d in / %d out", e.InputTokens, e.OutputTokens))
	field("Latency", fmt.Sprintf("%dms", e.LatencyMs))
	if e.Success {
		field("Result", "ok")
	} else {
		field("Result", "failed: "+e.ErrorMessage)
	}

	for _, part := range []struct{ name, body string }{
		{"PROMPT", e.RequestBody},
		{"REPLY", e.ResponseBody},
	} {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat(rule, 3), part.name)
		fmt.Fprintln(w, firstNonEmpty(part.body, "(not captured)"))
	}
}

// renderUsage prints token totals per group and an estimated cost per
// model. Models without known pricing make the cost total partial.
func renderUsage(w io.Writer, by string, groups []eventlog.LLMUsageStats, models []eventlog.LLMModelUsage) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No LLM usage recorded yet.")
		return
	}

	const grow = "%-28v  %6v  %10v  %10v  %8v\n"
	fmt.Fprintf(w, grow, "By "+by, "Calls", "Input", "Output", "Avg ms")
	fmt.Fprintln(w, strings.Repeat(rule, 70))
	var calls, in, out int
	for _, g := range groups {
		fmt.Fprintf(w, grow, textutil.Ellipsize(g.Key, 28), g.Calls, g.InputTokens, g.OutputTokens, g.AvgLatencyMs)
		calls += g.Calls
		in += g.InputTokens
		out += g.OutputTokens
	}
	fmt.Fprintf(w, grow, "total", calls, in, out, "")

	if len(models) == 0 {
		return
	}
	const mrow = "%-28v  %6v  %12v\n"
	fmt.Fprintln(w)
	fmt.Fprintf(w, mrow, "Model", "Calls", "Cost (USD)")
	fmt.Fprintln(w, strings.Repeat(rule, 50))
	var total float64
	var unpriced []string
	for _, m := range models {
		price := llm.LookupCost(m.Model)
		if price == nil {
			unpriced = append(unpriced, firstNonEmpty(m.Model, "(unnamed)"))
			fmt.Fprintf(w, mrow, textutil.Ellipsize(m.Model, 28), m.Calls, "?")
			continue
		}
		c := price.Cost(m.InputTokens, m.OutputTokens)
		total += c
		fmt.Fprintf(w, mrow, textutil.Ellipsize(m.Model, 28), m.Calls, formatCost(c))
	}
	label := "total"
	if len(unpriced) > 0 {
		label = "total (partial)"
	}
	fmt.Fprintf(w, mrow, label, "", formatCost(total))
	if len(unpriced) > 0 {
		fmt.Fprintf(w, "\nNo pricing for: %s\n", strings.Join(unpriced, ", "))
	}
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().Duration("since", 0, "Only show calls newer than this (e.g. 24h)")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (quiz-gen or evaluation)")
	llmListCmd.Flags().StringP("topic", "t", "", "Filter by topic title")
	llmStatsCmd.Flags().String("by", "purpose", "Group usage by purpose or topic")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}
