package rag

import (
	"fmt"
	"strings"

	"github.com/abhisek/eduassist/internal/vectorstore"
)

const answerSystemPrompt = `You are a study assistant helping a student with material they uploaded.
Use the following pieces of context to answer the question at the end.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
Respond with a JSON object whose "answer" field holds your reply.`

func buildAnswerPrompt(question string, results []vectorstore.Result) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r.Chunk.Text)
	}
	fmt.Fprintf(&b, "\n\nQuestion: %s\nHelpful Answer:", question)
	return b.String()
}
