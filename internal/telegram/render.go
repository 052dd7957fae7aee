package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/abhisek/studycoach/internal/store"
)

type outbound struct {
	text      string
	parseMode string
	optional  bool
}

var sectionTitles = map[string]string{
	store.SectionEasy:        "🟢 Basic questions",
	store.SectionDevelopment: "🟡 Development questions",
	store.SectionCaseStudy:   "🔴 Case study",
}

func md(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}

// renderQuiz lays a quiz out as a sequence of messages.
func renderQuiz(title string, quiz store.Quiz, sessionID string) []outbound {
	out := []outbound{{
		text: fmt.Sprintf("📚 *%s* 📚\n\n%s\n\n%s\n%s\n%s\n%s\n\n%s",
			md("Study time: "+title),
			md(fmt.Sprintf("Here is your round of %d questions.", store.QuestionCount)),
			md("• Answer each question by number, e.g. '1) my answer'"),
			md("• You have 1 hour to answer"),
			md("• You can answer all of them or only some"),
			md("• Answers are graded automatically"),
			md("Session: "+sessionID)),
		parseMode: tgbotapi.ModeMarkdownV2,
	}}

	section := ""
	for _, it := range quiz.Items() {
		if it.Section != section {
			section = it.Section
			out = append(out, outbound{text: "*" + md(sectionTitles[section]) + "*", parseMode: tgbotapi.ModeMarkdownV2})
		}
		out = append(out,
			outbound{
				text:      fmt.Sprintf("*%s*", md(fmt.Sprintf("%d) %s", it.Number, it.Question))),
				parseMode: tgbotapi.ModeMarkdownV2,
			},
			outbound{
				text:      "||" + md("💡 Suggested answer: "+it.Answer) + "||",
				parseMode: tgbotapi.ModeMarkdownV2,
				optional:  true,
			},
		)
	}

	out = append(out, outbound{
		text:      "✅ *" + md("Quiz sent") + "*\n\n" + md("Reply with 'N) your answer' where N is the question number."),
		parseMode: tgbotapi.ModeMarkdownV2,
	})
	return out
}
