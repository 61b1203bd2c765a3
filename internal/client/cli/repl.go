package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dogstack/internal/client/navigation"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	currentStack() navigation.Stack
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Link(ctx context.Context, rawURL string) error
	Complete(ctx context.Context) error
	Photo(ctx context.Context, path string) error
	Banner(ctx context.Context, path string) error
	Headline(ctx context.Context) error
	Show(ctx context.Context) error
	Logout(ctx context.Context) error
	Foreground(ctx context.Context) error
}

// commands lists what each screen stack accepts besides help and exit.
var commands = map[navigation.Stack][]string{
	navigation.StackSuspended:         {},
	navigation.StackUnauthenticated:   {"register", "login", "link"},
	navigation.StackProfileCompletion: {"complete", "photo", "logout", "foreground"},
	navigation.StackMain:              {"show", "photo", "banner", "headline", "logout", "foreground"},
}

func allowed(stack navigation.Stack, cmd string) bool {
	for _, c := range commands[stack] {
		if c == cmd {
			return true
		}
	}
	return false
}

// runREPL is the read-eval-print loop of the dogstack client.
//
// Each iteration resolves the current screen stack, prints a prompt with the
// stack and statusFn, reads one line and dispatches the first token. Commands
// outside the current stack are refused, so a signed-out user cannot reach
// the profile screens and an incomplete profile cannot reach the main ones:
//
//	unauthenticated:     register, login, link <url>
//	profile-completion:  complete, photo <path>, logout, foreground
//	main:                show, photo <path>, banner <path>, headline, logout, foreground
//	always:              help, exit | quit
//
// Errors returned by commands are printed; the loop continues. It exits on
// EOF, on exit/quit, or when ctx is done.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}

		stack := a.currentStack()
		printlnFn(fmt.Sprintf("dogstack [%s] %s> ", stack, statusFn()))

		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if stack == navigation.StackSuspended {
				printlnFn("Loading, try again in a moment. Available commands: exit")
			} else {
				printlnFn("Available commands: " + strings.Join(commands[stack], ", ") + ", exit")
			}
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		if !allowed(stack, cmd) {
			printlnFn("Unknown command:", cmd)
			continue
		}

		if err := dispatch(ctx, a, cmd, args); err != nil {
			printlnFn("Error:", err)
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	case "link":
		if len(args) == 0 {
			printlnFn("Usage: link <url>")
			return nil
		}
		return a.Link(ctx, args[0])
	case "complete":
		return a.Complete(ctx)
	case "photo":
		if len(args) == 0 {
			printlnFn("Usage: photo <path>")
			return nil
		}
		return a.Photo(ctx, args[0])
	case "banner":
		if len(args) == 0 {
			printlnFn("Usage: banner <path>")
			return nil
		}
		return a.Banner(ctx, args[0])
	case "headline":
		return a.Headline(ctx)
	case "show":
		return a.Show(ctx)
	case "logout":
		return a.Logout(ctx)
	case "foreground":
		return a.Foreground(ctx)
	}
	return nil
}

// Root prints the banner and runs the REPL on the app's input.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to dogstack (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
}
