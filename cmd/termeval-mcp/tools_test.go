package main

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type recordingService struct{ lines []string }

func (r *recordingService) Execute(line string) (string, error) {
	r.lines = append(r.lines, line)
	if line == "eval (bad" {
		return "", errors.New("missing right paren")
	}
	return "#0[1]", nil
}

func call(t *testing.T, h server.ToolHandlerFunc, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(res.Content))
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("expected text content, got %T", res.Content[0])
	return ""
}

func TestToolsBuildCommandLines(t *testing.T) {
	svc := &recordingService{}
	tl := &tools{svc: svc}

	res := call(t, tl.withArg("eval", "expr"), map[string]any{"expr": "(#1p0 #0[1, 2])"})
	if res.IsError || text(t, res) != "#0[1]" {
		t.Fatalf("unexpected result %+v", res)
	}
	call(t, tl.handleLet, map[string]any{"name": "f", "expr": "#0[1]"})
	call(t, tl.bare("list_types"), nil)
	call(t, tl.handleCommand, map[string]any{"line": "help"})

	want := []string{"eval (#1p0 #0[1, 2])", "let f = #0[1]", "list_types", "help"}
	if len(svc.lines) != len(want) {
		t.Fatalf("expected %v, got %v", want, svc.lines)
	}
	for i := range want {
		if svc.lines[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, svc.lines)
		}
	}
}

func TestToolErrors(t *testing.T) {
	svc := &recordingService{}
	tl := &tools{svc: svc}
	if res := call(t, tl.withArg("eval", "expr"), map[string]any{"expr": "(bad"}); !res.IsError {
		t.Fatal("command errors should become tool errors")
	}
	if res := call(t, tl.handleLet, map[string]any{"name": "f"}); !res.IsError {
		t.Fatal("a missing argument should be a tool error")
	}
	if len(svc.lines) != 1 {
		t.Fatalf("a missing argument should not reach the session, got %v", svc.lines)
	}
}
