package main

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"termeval/internal/domain"
)

// tools exposes a session over MCP. Calls are serialized since the session
// is single-threaded.
type tools struct {
	mu  sync.Mutex
	svc domain.CommandService
}

func (t *tools) run(line string) *mcp.CallToolResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	out, err := t.svc.Execute(line)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	if out == "" {
		out = "ok"
	}
	return mcp.NewToolResultText(out)
}

// withArg builds a handler running "<command> <arg>" from one required string argument.
func (t *tools) withArg(command, param string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		arg, err := request.RequireString(param)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return t.run(command + " " + arg), nil
	}
}

func (t *tools) bare(command string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return t.run(command), nil
	}
}

func (t *tools) handleLet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	expr, err := request.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return t.run("let " + name + " = " + expr), nil
}

func (t *tools) register(s *server.MCPServer) {
	exprArg := mcp.WithString("expr",
		mcp.Required(),
		mcp.Description("Expression: an s-expression such as (#1p0 #0[1, 2]), a term reference, or a bound name"),
	)
	pathArg := mcp.WithString("path",
		mcp.Required(),
		mcp.Description("File path; ~ and environment variables are expanded"),
	)

	s.AddTool(mcp.NewTool("termeval_command",
		mcp.WithDescription("Run any REPL command line, e.g. help or list_prim_terms 1."),
		mcp.WithString("line", mcp.Required(), mcp.Description("Command line to execute")),
	), t.handleCommand)
	s.AddTool(mcp.NewTool("termeval_eval",
		mcp.WithDescription("Evaluate an expression against the model and bind the result to ans."),
		exprArg,
	), t.withArg("eval", "expr"))
	s.AddTool(mcp.NewTool("termeval_let",
		mcp.WithDescription("Evaluate an expression and bind the result to a name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name to bind")),
		exprArg,
	), t.handleLet)
	s.AddTool(mcp.NewTool("termeval_simulate",
		mcp.WithDescription("Simulate an expression by sampling the term embeddings. Returns a typed vector."),
		exprArg,
	), t.withArg("simulate", "expr"))
	s.AddTool(mcp.NewTool("termeval_nearest",
		mcp.WithDescription("Simulate an expression and list the closest known terms of its type."),
		exprArg,
	), t.withArg("nearest", "expr"))
	s.AddTool(mcp.NewTool("termeval_generate_context",
		mcp.WithDescription("Generate and load a context from a parameter file."),
		pathArg,
	), t.withArg("generate_context", "path"))
	s.AddTool(mcp.NewTool("termeval_load_context",
		mcp.WithDescription("Load a serialized context."),
		pathArg,
	), t.withArg("load_context", "path"))
	s.AddTool(mcp.NewTool("termeval_list_types",
		mcp.WithDescription("List every type number with its definition."),
	), t.bare("list_types"))
	s.AddTool(mcp.NewTool("termeval_update_models",
		mcp.WithDescription("Fold pending evaluations into the term embeddings."),
	), t.bare("update_models"))
}

func (t *tools) handleCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line, err := request.RequireString("line")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return t.run(line), nil
}
