package inbox

import "strings"

// Message is one turn of the host agent's conversation log, as passed to
// AgentEnd. Only the shape the inbox needs to extract a reply is modeled
// here; the host's richer message type can be adapted into this one.
type Message struct {
	Role    string
	Content []ContentBlock
}

// ContentBlock is one piece of a message's content.
type ContentBlock struct {
	Type string
	Text string
}

const fallbackNoText = "(agent processing — no text response produced)"

// extractReply finds the last non-empty text block of the conversation's
// last assistant message. If there is no assistant message, or it carries
// no non-empty text, the fallback literal is returned.
func extractReply(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "assistant" {
			continue
		}
		blocks := messages[i].Content
		for j := len(blocks) - 1; j >= 0; j-- {
			if blocks[j].Type == "text" && strings.TrimSpace(blocks[j].Text) != "" {
				return blocks[j].Text
			}
		}
		break
	}
	return fallbackNoText
}
