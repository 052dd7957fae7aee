package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/abhisek/studycoach/internal/session"
	"github.com/abhisek/studycoach/internal/spacedrep"
	"github.com/abhisek/studycoach/internal/store"
	"github.com/abhisek/studycoach/internal/textutil"
	"github.com/abhisek/studycoach/internal/ui/theme"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show topics, review priorities and the pending quiz",
	RunE: func(cmd *cobra.Command, args []string) error {
		statePath, err := resolveStatePath(cmd)
		if err != nil {
			return fmt.Errorf("resolve state path: %w", err)
		}
		st, err := store.Open(statePath, logger)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		color := isatty.IsTerminal(os.Stdout.Fd())
		renderStatus(os.Stdout, st.Load(), time.Now(), color)
		return nil
	},
}

type topicRow struct {
	id        string
	ts        *store.TopicState
	score     float64
	composite float64
}

// renderStatus writes the topic table and the pending session. Topics are
// listed by composite score, highest first.
func renderStatus(w io.Writer, doc *store.Document, now time.Time, color bool) {
	paint := func(style lipgloss.Style, s string, width int) string {
		if !color {
			return fmt.Sprintf("%-*s", width, s)
		}
		return theme.Cell(style, s, width)
	}

	rows := make([]topicRow, 0, len(doc.Topics))
	for id, ts := range doc.Topics {
		rows = append(rows, topicRow{
			id:        id,
			ts:        ts,
			score:     spacedrep.Score(ts, now),
			composite: spacedrep.CompositeScore(ts, now),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].composite != rows[j].composite {
			return rows[i].composite > rows[j].composite
		}
		return rows[i].id < rows[j].id
	})

	fmt.Fprintln(w, paint(theme.Title, "Topics", 0))
	if len(rows) == 0 {
		fmt.Fprintln(w, paint(theme.Hint, "No topics reviewed yet.", 0))
	} else {
		fmt.Fprintf(w, "%s %s %s %s %s %s %s\n",
			paint(theme.Heading, "Topic", 32),
			paint(theme.Heading, "Score", 6),
			paint(theme.Heading, "Comp", 6),
			paint(theme.Heading, "Mastery", 13),
			paint(theme.Heading, "Rev", 4),
			paint(theme.Heading, "Last", 10),
			paint(theme.Heading, "Gaps", 0))
		for _, r := range rows {
			title := r.ts.Title
			if title == "" {
				title = r.id
			}
			last := r.ts.LastReviewed
			if last == "" {
				last = "never"
			}
			gaps := spacedrep.LearningGaps(r.ts)
			if len(gaps) > 3 {
				gaps = gaps[:3]
			}
			fmt.Fprintf(w, "%s %s %s %s %s %s %s\n",
				paint(theme.Body, textutil.Ellipsize(title, 32), 32),
				paint(theme.Body, fmt.Sprintf("%.1f", r.score), 6),
				paint(theme.Body, fmt.Sprintf("%.1f", r.composite), 6),
				paint(theme.Level(string(r.ts.MasteryLevel)), string(r.ts.MasteryLevel), 13),
				paint(theme.Body, fmt.Sprint(r.ts.Reviews), 4),
				paint(theme.Body, last, 10),
				paint(theme.Hint, strings.Join(gaps, ", "), 0))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, paint(theme.Title, "Pending quiz", 0))
	p := doc.Pending
	if p == nil {
		fmt.Fprintln(w, paint(theme.Hint, "None.", 0))
		return
	}
	m := session.New(doc, logger)
	phase := m.Phase(now).String()
	if p.Completed {
		phase += " (closing)"
	}
	fmt.Fprintf(w, "Session:  %s\n", p.SessionID)
	fmt.Fprintf(w, "Topic:    %s\n", p.Title)
	fmt.Fprintf(w, "Phase:    %s\n", paint(theme.Phase(m.Phase(now).String()), phase, 0))
	fmt.Fprintf(w, "Answers:  %d/%d\n", len(p.Answers), store.QuestionCount)
	if left := p.ExpiryTime().Sub(now); left > 0 {
		fmt.Fprintf(w, "Expires:  in %s\n", left.Round(time.Minute))
	} else {
		fmt.Fprintf(w, "Expired:  %s ago\n", (-left).Round(time.Minute))
	}
}
