package agent

import (
	"fmt"
	"strings"

	"github.com/cloudiagent/cloudiagent/internal/tools"
)

// StaticInstructions follow the identity line of the system prompt.
const StaticInstructions = `
Use a tool for any image work; do not write delivery URLs or transformation strings yourself.
Call exactly one tool per reply. Every tool call must include the "type" argument set to the tool's name.
Image tools need the publicId of the asset. If the user has uploaded an image in this conversation, use its publicId; otherwise ask which image to edit.
Dimensions are whole pixels greater than zero. Formats are webp, avif, jpg or png.
If the user asks what you can do, call the capabilities tool.
When no tool fits, answer briefly in plain text.
In your reply, never include raw XML-like tags such as <function_calls>.`

// BuildSystemPrompt renders the identity line, the tool catalogue and the
// static instructions.
func BuildSystemPrompt(reg *tools.Registry) string {
	var b strings.Builder
	b.WriteString("You are Cloudi-Agent, an assistant that edits images hosted on Cloudinary by calling tools.\n\n")
	b.WriteString("== TOOLS ==\n")
	for _, c := range reg.Capabilities() {
		fmt.Fprintf(&b, "- %s: %s\n", c.Kind, c.Summary)
	}
	b.WriteString("===============================\n")
	b.WriteString(strings.TrimSpace(StaticInstructions))
	return b.String()
}
