// Package prompt builds the grounded question-answering prompt shared
// by all LLM adapters, so switching providers never changes answer
// behaviour.
package prompt

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

// System is the instruction prompt for grounded answering.
const System = `You are a knowledge base assistant. Answer the question using ONLY the numbered sources provided.
Cite sources inline as [source N]. If the sources do not contain the answer, say so plainly instead of guessing.`

// User renders the question with its numbered context passages.
func User(question string, passages []driven.ContextPassage) string {
	var b strings.Builder

	for i, passage := range passages {
		if passage.Page > 0 {
			fmt.Fprintf(&b, "[source %d: %s, page %d]\n", i+1, passage.Filename, passage.Page)
		} else {
			fmt.Fprintf(&b, "[source %d: %s]\n", i+1, passage.Filename)
		}
		b.WriteString(strings.TrimSpace(passage.Text))
		b.WriteString("\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
