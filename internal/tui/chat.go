// Package tui is the console front end: a line-oriented chat REPL and the
// first-run setup prompts. No TUI library.
package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudiagent/cloudiagent/internal/agent"
	"github.com/cloudiagent/cloudiagent/internal/transform"
)

// Dispatcher runs one user message.
type Dispatcher interface {
	Dispatch(ctx context.Context, req agent.Request) (*agent.Result, error)
}

// Commands recognized at the prompt.
const (
	cmdImage = "/image"
	cmdNew   = "/new"
	cmdQuit  = "/quit"
)

// RunChat runs a simple REPL: prompt "You: ", read a line, Enter sends to the
// dispatcher, print the reply. The thread is kept across lines.
// "/image <publicId>" attaches an uploaded asset to the next message and
// "/new" starts a new thread. EOF or /quit exits.
func RunChat(ctx context.Context, d Dispatcher, in io.Reader, out, errOut io.Writer) error {
	scan := bufio.NewScanner(in)
	fmt.Fprintln(out, "Cloudi-Agent chat (Enter to send, /image <publicId> to attach, /new, /quit)")
	fmt.Fprintln(out)

	var threadID, asset string
	for {
		fmt.Fprint(out, "You: ")
		if !scan.Scan() {
			return scan.Err()
		}
		line := strings.TrimSpace(scan.Text())
		switch {
		case line == "":
			continue
		case line == cmdQuit:
			return nil
		case line == cmdNew:
			threadID, asset = "", ""
			fmt.Fprintln(out, "(new conversation)")
			continue
		case strings.HasPrefix(line, cmdImage+" "):
			asset = strings.TrimSpace(strings.TrimPrefix(line, cmdImage))
			fmt.Fprintf(out, "(attached %s)\n", asset)
			continue
		}

		res, err := d.Dispatch(ctx, agent.Request{Prompt: line, ThreadID: threadID, AssetID: asset})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var e *agent.Error
			if errors.As(err, &e) {
				if e.ThreadID != "" {
					threadID = e.ThreadID
				}
				fmt.Fprintf(errOut, "Error: %s (%s)\n", e.UserMessage(), e.Kind)
			} else {
				fmt.Fprintf(errOut, "Error: %v\n", err)
			}
			continue
		}
		threadID, asset = res.ThreadID, ""
		fmt.Fprintln(out, "Cloudi-Agent:", Render(res))
		fmt.Fprintln(out)
	}
}

// Render formats a dispatch result for the console.
func Render(res *agent.Result) string {
	if res.Text != nil {
		return *res.Text
	}
	tr := res.ToolResult
	if tr == nil {
		return ""
	}
	switch tr.Type {
	case agent.ResultCloudinaryURL:
		var b strings.Builder
		b.WriteString(tr.URL)
		if segs, err := transform.Decode(tr.Descriptor); err == nil {
			b.WriteString("\n")
			b.WriteString(transform.Explain(segs))
		}
		return b.String()
	case agent.ResultTagList:
		if len(tr.Tags) == 0 {
			return "No tags found."
		}
		return "Tags: " + strings.Join(tr.Tags, ", ")
	default:
		return tr.Message
	}
}
