package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloudiagent/cloudiagent/internal/core"
)

// Invoke/arg format some models use in content when they don't use API tool_calls:
// <function_calls>...</function_calls> or <invoke name="...">...</invoke>
// <arg name="...">value</arg>
var (
	invokeRx        = regexp.MustCompile(`(?s)<invoke\s+name="([^"]+)"\s*>(.*?)</invoke>`)
	argRx           = regexp.MustCompile(`(?s)<arg\s+name="([^"]+)"\s*>(.*?)</arg>`)
	functionCallsRx = regexp.MustCompile(`(?s)\s*<function_calls>.*?</function_calls>\s*`)
)

// Pipe-style tool call markers some models output in content (e.g. <|tool_calls_section_begin|> ... <|tool_call_begin|> ...).
var (
	pipeSectionRx  = regexp.MustCompile(`(?s)<\|tool_calls_section_begin\|>.*?<\|tool_calls_section_end\|>\s*`)
	pipeCallRx     = regexp.MustCompile(`(?s)<\|tool_call_begin\|>.*?<\|tool_call_end\|>\s*`)
	pipeLeftoverRx = regexp.MustCompile(`<\|tool_calls_section_(begin|end)\|>\s*|<\|tool_call_end\|>\s*|<\|tool_call_(begin|argument_begin)\|>.*`)
)

const (
	pipeCallBegin = "<|tool_call_begin|>"
	pipeArgBegin  = "<|tool_call_argument_begin|>"
	pipeCallEnd   = "<|tool_call_end|>"
)

// StripInlineToolCallMarkers removes pipe-style and invoke-style tool-call markup from content so we never send it to the user.
func StripInlineToolCallMarkers(content string) string {
	s := pipeSectionRx.ReplaceAllString(content, "")
	s = pipeCallRx.ReplaceAllString(s, "")
	s = pipeLeftoverRx.ReplaceAllString(s, "")
	s = functionCallsRx.ReplaceAllString(s, "")
	s = invokeRx.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func parsePipeStyleToolCalls(content string) []core.ToolCall {
	if !strings.Contains(content, pipeCallBegin) {
		return nil
	}
	var calls []core.ToolCall
	rest := content
	for idx := 0; ; idx++ {
		beginIdx := strings.Index(rest, pipeCallBegin)
		if beginIdx == -1 {
			break
		}
		afterBegin := rest[beginIdx+len(pipeCallBegin):]
		argStart := strings.Index(afterBegin, pipeArgBegin)
		if argStart == -1 {
			break
		}
		// Normalize: "functions.resize:0" -> "resize"
		name := strings.TrimSpace(afterBegin[:argStart])
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
		if i := strings.Index(name, ":"); i >= 0 {
			name = name[:i]
		}
		afterArgs := afterBegin[argStart+len(pipeArgBegin):]
		endIdx := strings.Index(afterArgs, pipeCallEnd)
		if endIdx == -1 {
			break
		}
		args := strings.TrimSpace(afterArgs[:endIdx])
		rest = afterArgs[endIdx+len(pipeCallEnd):]
		if name == "" || !json.Valid([]byte(args)) {
			continue
		}
		calls = append(calls, core.NewToolCall(fmt.Sprintf("pipe-%d", idx), name, args))
	}
	return calls
}

// ParseContentToolCalls extracts XML-like or pipe-style tool calls from model content.
// Returns synthetic ToolCalls and cleaned content (with markup removed).
// If no tool calls are found, returns nil, "" for cleaned (caller should keep original content).
func ParseContentToolCalls(content string) ([]core.ToolCall, string) {
	if calls := parsePipeStyleToolCalls(content); len(calls) > 0 {
		return calls, StripInlineToolCallMarkers(content)
	}
	raw := content
	// Restrict to content inside <function_calls> if present, else whole content
	if start := strings.Index(raw, "<function_calls>"); start != -1 {
		if end := strings.Index(raw, "</function_calls>"); end != -1 && end > start {
			raw = raw[start+len("<function_calls>") : end]
		}
	}
	invokes := invokeRx.FindAllStringSubmatch(raw, -1)
	if len(invokes) == 0 {
		return nil, ""
	}
	var calls []core.ToolCall
	for i, m := range invokes {
		name := strings.TrimSpace(m[1])
		args := make(map[string]string)
		for _, am := range argRx.FindAllStringSubmatch(m[2], -1) {
			args[strings.TrimSpace(am[1])] = strings.TrimSpace(am[2])
		}
		calls = append(calls, core.NewToolCall(fmt.Sprintf("content-%d", i), name, buildArgsJSON(args)))
	}
	return calls, StripInlineToolCallMarkers(content)
}

// buildArgsJSON types arg values: integers and booleans become JSON scalars,
// everything else stays a string.
func buildArgsJSON(args map[string]string) string {
	typed := make(map[string]interface{}, len(args))
	for k, v := range args {
		if n, err := strconv.Atoi(v); err == nil {
			typed[k] = n
			continue
		}
		if b, err := strconv.ParseBool(v); err == nil && (v == "true" || v == "false") {
			typed[k] = b
			continue
		}
		typed[k] = v
	}
	b, _ := json.Marshal(typed)
	return string(b)
}
