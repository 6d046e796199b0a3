package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"igharvest/pkg/events"
)

var stdin = bufio.NewReader(os.Stdin)

// readLine prints prompt and reads one trimmed line from stdin
func readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	input, err := stdin.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// readPassword reads a password from stdin without echoing
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}
	input, err := stdin.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// confirm asks a yes/no question; def is the answer for an empty line
func confirm(question string, def bool) bool {
	hint := "(y/N)"
	if def {
		hint = "(Y/n)"
	}
	answer, err := readLine(question + " " + hint + ": ")
	if err != nil || answer == "" {
		return def
	}
	return strings.HasPrefix(strings.ToLower(answer), "y")
}

// codeSubmitter accepts a two-factor code
type codeSubmitter interface {
	SubmitCode(code string) bool
}

// codePrompter asks for the two-factor code on the terminal when a
// challenge arrives. The read runs on its own goroutine so the job's
// worker is never blocked by the terminal.
type codePrompter struct {
	events.Nop

	mu     sync.Mutex
	target codeSubmitter
}

func (p *codePrompter) bind(target codeSubmitter) {
	p.mu.Lock()
	p.target = target
	p.mu.Unlock()
}

func (p *codePrompter) TwoFactorRequired() {
	p.mu.Lock()
	target := p.target
	p.mu.Unlock()
	if target == nil {
		return
	}
	go func() {
		code, err := readLine("Two-factor code (empty to cancel): ")
		if err != nil {
			code = ""
		}
		target.SubmitCode(code)
	}()
}
