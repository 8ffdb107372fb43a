package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/ddltrack/internal/mcp"
)

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Run commands interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			runREPL(a.MCPServer(), os.Stdin, os.Stdout)
			return nil
		},
	}
}

func runREPL(server *mcp.MCPServer, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "ddltrack CLI started")
	fmt.Fprintln(out, "Type 'help' for available commands or 'quit' to exit")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "ddltrack> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if input == "quit" || input == "exit" {
			fmt.Fprintln(out, "Goodbye!")
			break
		}

		if input == "help" {
			printHelp(out)
			continue
		}

		parts := strings.SplitN(input, " ", 2)
		var params string
		if len(parts) > 1 {
			params = parts[1]
		}
		if err := runCommand(server, out, parts[0], params); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Available commands:")
	fmt.Fprintln(out, "  help                           - Show this help")
	fmt.Fprintln(out, "  quit/exit                      - Exit the application")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Methods (<method> [JSON params]):")
	for _, t := range mcp.Tools() {
		fmt.Fprintf(out, "  %-30s - %s\n", t.Method, t.Description)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Example usage:")
	fmt.Fprintln(out, `  ddl.task.create {"name":"Submit report","deadline":"2026-03-01 18:00","importance":"high"}`)
	fmt.Fprintln(out, `  ddl.relation.parent {"taskId":"<child-id>","parentId":"<parent-id>"}`)
	fmt.Fprintln(out, `  ddl.relation.dependency.add {"taskId":"<task-id>","dependencyId":"<dependency-id>"}`)
	fmt.Fprintln(out, `  ddl.task.list {"format":"markdown"}`)
	fmt.Fprintln(out, `  ddl.calendar.upcoming {"days":7}`)
}

// runCommand dispatches one method call and pretty prints the result.
func runCommand(server *mcp.MCPServer, out io.Writer, method, params string) error {
	var raw json.RawMessage
	if params = strings.TrimSpace(params); params != "" {
		if err := json.Unmarshal([]byte(params), &raw); err != nil {
			return fmt.Errorf("invalid JSON parameters: %w", err)
		}
	}

	result, err := server.HandleCommand(method, raw)
	if err != nil {
		return err
	}

	if text, ok := result.(string); ok {
		fmt.Fprintln(out, text)
		return nil
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format result: %w", err)
	}
	fmt.Fprintln(out, string(output))
	return nil
}

func execCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <method> [json-params]",
		Short: "Run a single method and print the result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			var params string
			if len(args) > 1 {
				params = args[1]
			}
			return runCommand(a.MCPServer(), cmd.OutOrStdout(), args[0], params)
		},
	}
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print tasks as markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			tasks := a.Tasks.GetAll()
			if pending, _ := cmd.Flags().GetBool("pending"); pending {
				tasks = a.Tasks.GetPending()
			}
			fmt.Fprint(cmd.OutOrStdout(), mcp.FormatTasksAsMarkdown(tasks, time.Now()))
			return nil
		},
	}

	cmd.Flags().Bool("pending", false, "only pending tasks")

	return cmd
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the stored relationships for consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			problems := a.Tasks.Verify()
			for _, p := range problems {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d integrity problems found", len(problems))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d tasks, no problems found\n", a.Tasks.Len())
			return nil
		},
	}
}
