package ai

import (
	"fmt"
	"strings"
)

func summaryPrompt(text, language string) string {
	if language == "" {
		language = "English"
	}
	return fmt.Sprintf(`Summarize the following note in %s.
Write one or two sentences, no more than 80 words. Reply with the summary only.

Note:
%s`, language, text)
}

func tagsPrompt(text string) string {
	return fmt.Sprintf(`Suggest between 1 and 5 short topical tags for the following note.
Reply with the tags only, separated by commas, without the '#' character.
Use lowercase words joined by hyphens for multi-word tags.

Note:
%s`, text)
}

func digestPrompt(texts []string) string {
	var b strings.Builder
	b.WriteString(`Write a weekly digest of the following notes.
Group related ideas, highlight progress and open questions, and keep it under 200 words.
Use short paragraphs in markdown. Reply with the digest only.
`)
	for i, t := range texts {
		fmt.Fprintf(&b, "\nNote %d:\n%s\n", i+1, t)
	}
	return b.String()
}
