package agent

import (
	"fmt"

	"github.com/cloudiagent/cloudiagent/internal/core"
	"github.com/cloudiagent/cloudiagent/internal/thread"
)

// DefaultHistoryLimit keeps the last 30 turns (~3-5k tokens usually).
const DefaultHistoryLimit = 30

// historyMessages converts the last limit turns of a thread to chat messages.
// Tool results are replayed as assistant text so any provider accepts them.
func historyMessages(turns []thread.Turn, limit int) []core.Message {
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	messages := make([]core.Message, 0, len(turns))
	for _, t := range turns {
		var content string
		switch t.Kind {
		case thread.ContentImage:
			content = fmt.Sprintf("I uploaded an image (use publicId %q).", t.AssetID)
		case thread.ContentToolResult:
			content = "Tool result: " + string(t.Result)
		default:
			content = t.Text
		}
		if content == "" {
			continue
		}
		messages = append(messages, core.Message{Role: string(t.Role), Content: content})
	}
	return messages
}
