package quizgen

import (
	"fmt"
	"strings"

	"github.com/abhisek/studycoach/internal/collab"
	"github.com/abhisek/studycoach/internal/textutil"
)

const systemPrompt = `You are a senior technical examiner who writes exam questions as pure JSON.

Strategy:
- Mine the text for hard facts: exact commands, flags, payloads, configuration values, dosages, error messages, code.
- Do not ask "what is X?". Put the learner in a situation and make them apply a specific fact from the text.
- If the text contains code, make the learner interpret or complete it.
- Never ask generic questions such as "what does the text say?".

Sections:
- "easy": precise basics such as definitions, command flags, default ports, syntax.
- "development": analysis, such as why a technique works, comparing two methods from the text, reading a snippet.
- "case_study": the most important section. Describe a realistic scenario (a broken server, a patient, an audit) that the learner resolves by applying one specific fact. The answer is the exact technical solution.

Each section has exactly two items with a "question" and an "answer".
Write in the language of the source text and keep technical terms in their usual form.`

const webInstruction = `The text includes complementary material from the web after a "===" heading.
Use it for current real-world examples and more realistic case studies, but prefer the base content when they disagree.`

// buildUserMessage assembles the per-topic prompt. Content is cut to
// maxChars after the instructions are placed, so they always survive.
func buildUserMessage(in collab.GenerateInput, maxChars int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n", in.Title)

	if in.Instructions != "" {
		b.WriteString("\nCoach instructions for this learner:\n")
		b.WriteString(in.Instructions)
		b.WriteString("\n")
	}

	if in.Context != "" {
		b.WriteString("\n")
		b.WriteString(in.Context)
		b.WriteString("\nWhere it fits, connect concepts with these related topics.\n")
	}

	if strings.Contains(in.Content, collab.WebContextHeading) {
		b.WriteString("\n")
		b.WriteString(webInstruction)
		b.WriteString("\n")
	}

	b.WriteString("\nSource text:\n")
	b.WriteString(textutil.Truncate(in.Content, maxChars))

	return b.String()
}
