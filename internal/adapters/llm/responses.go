package llm

import "fmt"

// DefaultResponses are the canned replies automated partners pick from.
var DefaultResponses = []string{
	"That's an interesting point! How can I help you further?",
	"I understand. Let me think about that for a moment...",
	"Great question! Here's what I think about that.",
	"I'm here to help! What would you like to know more about?",
	"That makes sense. Would you like me to elaborate on any specific aspect?",
}

const echoTemplate = "Thanks for your message: \"%s\". I'm here to help you with any questions you might have!"

func echoReply(userMessage string) string {
	return fmt.Sprintf(echoTemplate, userMessage)
}
