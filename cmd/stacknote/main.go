package main

import (
	"os"
	"strings"

	"stacknote/internal/cli"

	"github.com/spf13/cobra"
)

// rewriteOpenShortcutArgs turns `stacknote <path>...` into `stacknote open <path>...`.
// Cobra treats the first positional token as a subcommand, so argv is rewritten before
// parsing. Persistent flags may come first, so the scan skips them (and their values).
func rewriteOpenShortcutArgs(argv []string, isCommand func(string) bool, exists func(string) bool) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--config":    true,
		"--state-dir": true,
		"--format":    true,
	}

	insertAt := func(i int) []string {
		out := make([]string, 0, len(argv)+1)
		out = append(out, argv[:i]...)
		out = append(out, "open")
		return append(out, argv[i:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			// The subcommand must precede "--" or cobra reads it as an argument.
			if i+1 < len(argv) && exists(argv[i+1]) {
				return insertAt(i)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		if isCommand(a) || !exists(a) {
			return argv
		}
		return insertAt(i)
	}
	return argv
}

func main() {
	cmd := cli.NewRootCmd()
	os.Args = rewriteOpenShortcutArgs(os.Args, func(name string) bool {
		return commandNamed(cmd, name)
	}, func(p string) bool {
		_, err := os.Stat(p)
		return err == nil
	})

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func commandNamed(root *cobra.Command, name string) bool {
	if name == "help" || name == "completion" {
		return true
	}
	for _, c := range root.Commands() {
		if c.Name() == name || c.HasAlias(name) {
			return true
		}
	}
	return false
}
