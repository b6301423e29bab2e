package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"

	"github.com/BrandonDHaskell/Portunus/locker/internal/console"
)

// REPL reads operator commands from the terminal with line editing and
// history.
type REPL struct {
	con         *console.Console
	line        *liner.State
	historyFile string
	closeOnce   sync.Once
}

func NewREPL(con *console.Console) *REPL {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(in string) []string {
		var out []string
		for _, c := range console.Commands() {
			if strings.HasPrefix(c, strings.ToLower(in)) {
				out = append(out, c)
			}
		}
		return out
	})

	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &REPL{
		con:         con,
		line:        line,
		historyFile: filepath.Join(dir, "locker_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return r
}

// Run prompts until EOF, Ctrl+C, "quit" or ctx is done.
func (r *REPL) Run(ctx context.Context) {
	fmt.Println("locker console, type 'help' for commands")
	for ctx.Err() == nil {
		input, err := r.line.Prompt("locker> ")
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println()
			}
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)
		if input == "quit" || input == "exit" {
			return
		}

		out, err := r.con.Execute(ctx, input)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		if out != "" {
			fmt.Println(out)
		}
	}
}

// Close saves history and restores the terminal. Safe to call repeatedly.
func (r *REPL) Close() {
	r.closeOnce.Do(func() {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = r.line.WriteHistory(f)
			f.Close()
		}
		_ = r.line.Close()
	})
}
