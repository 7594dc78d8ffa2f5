package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/rag"
)

const systemPrompt = `You are DUBULA, an AI assistant specialized in restaurant service training and hospitality industry guidance. Your role is to provide accurate, practical advice to restaurant servers, waitstaff, and hospitality professionals based on training materials from established restaurants and hospitality training programs.

When answering questions, you should:

1. Provide specific, actionable guidance - give clear steps and procedures that can be immediately implemented
2. Reference industry best practices - draw from the training standards outlined in professional service manuals
3. Maintain a professional tone - use language appropriate for hospitality training while staying accessible
4. Consider the guest experience - always frame advice in terms of improving customer satisfaction and service quality
5. Include safety and hygiene considerations - emphasize food safety, cleanliness, and proper handling procedures when relevant
6. Offer practical examples - when possible, provide specific scenarios to illustrate points

If the question cannot be answered with the given context, state this clearly and provide general best practices instead.

Answer the user's question based on the following context documents, ensuring your response is detailed enough to be helpful while remaining concise and practical for real-world application:

`

const emptyContextNote = `(No relevant training documents were found for this question. Fall back to general hospitality best practices and say so.)`

// BuildMessages assembles the generation transcript: the DUBULA system
// instruction with the retrieved passages serialized beneath it, the prior
// conversation turns oldest-first, and finally the new question.
func BuildMessages(question string, history []Turn, passages []rag.Passage) []Message {
	messages := make([]Message, 0, 2*len(history)+2)
	messages = append(messages, Message{
		Role:    RoleSystem,
		Content: systemPrompt + serializeContext(passages),
	})

	for _, turn := range history {
		messages = append(messages,
			Message{Role: RoleUser, Content: turn.Question},
			Message{Role: RoleAssistant, Content: turn.Answer},
		)
	}

	messages = append(messages, Message{Role: RoleUser, Content: question})
	return messages
}

// serializeContext renders passages most-relevant-first, even if the
// retriever already sorted them.
func serializeContext(passages []rag.Passage) string {
	if len(passages) == 0 {
		return emptyContextNote
	}

	sorted := make([]rag.Passage, len(passages))
	copy(sorted, passages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	var b strings.Builder
	for i, p := range sorted {
		b.WriteString(fmt.Sprintf("[Document %d] (source: %s)\n", i+1, p.Source))
		b.WriteString(p.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
