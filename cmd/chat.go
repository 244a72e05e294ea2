package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cmlre/marine-platform/internal/assistant"
	"github.com/cmlre/marine-platform/internal/auth"
	"github.com/cmlre/marine-platform/internal/navigation"
	"github.com/cmlre/marine-platform/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var chatEphemeral bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant from the terminal",
	Long: `Start an interactive conversation with the marine data assistant.

Commands:
  /login <email> [password]  sign in
  /logout                    sign out
  /nav                       list the surfaces the current role may open
  /clear                     clear the transcript
  /quit                      leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		// stdout belongs to the conversation
		lg := logger.Configure(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format, os.Stderr)

		app, err := newApplication(ctx, cfg, lg, appOptions{
			ephemeral: chatEphemeral,
			registry:  prometheus.NewRegistry(),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize dependencies: %w", err)
		}
		defer app.Close()

		repl := newChatREPL(app.store, app.session, navigation.NewGate(auth.NewPermissionChecker(), lg), cmd.InOrStdin(), cmd.OutOrStdout())
		return repl.run(ctx)
	},
}

func init() {
	chatCmd.Flags().BoolVar(&chatEphemeral, "ephemeral", false, "keep the session in memory and skip the database")
}

type chatStore interface {
	User() *auth.User
	Login(ctx context.Context, email, credential string) (*auth.User, error)
	Logout(ctx context.Context) error
}

type chatSession interface {
	Send(ctx context.Context, text string) (assistant.Result, error)
	ClearTranscript()
	Transcript() []assistant.Message
}

type chatREPL struct {
	store   chatStore
	session chatSession
	gate    *navigation.Gate
	in      *bufio.Scanner
	out     io.Writer

	// printed counts transcript messages already written to out
	printed int
}

func newChatREPL(store chatStore, session chatSession, gate *navigation.Gate, in io.Reader, out io.Writer) *chatREPL {
	return &chatREPL{
		store:   store,
		session: session,
		gate:    gate,
		in:      bufio.NewScanner(in),
		out:     out,
	}
}

func (c *chatREPL) run(ctx context.Context) error {
	if u := c.store.User(); u != nil {
		fmt.Fprintf(c.out, "Signed in as %s (%s)\n", u.Email, u.Role)
	} else {
		fmt.Fprintln(c.out, "Not signed in. Use /login <email> [password].")
	}
	c.flush()

	for {
		fmt.Fprint(c.out, "> ")
		if !c.in.Scan() {
			fmt.Fprintln(c.out)
			return c.in.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			continue
		}
		if quit := c.handle(ctx, line); quit {
			return nil
		}
		c.flush()
	}
}

func (c *chatREPL) handle(ctx context.Context, line string) (quit bool) {
	if !strings.HasPrefix(line, "/") {
		c.send(ctx, line)
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/login":
		if len(fields) < 2 {
			fmt.Fprintln(c.out, "usage: /login <email> [password]")
			return false
		}
		password := ""
		if len(fields) > 2 {
			password = fields[2]
		}
		u, err := c.store.Login(ctx, fields[1], password)
		if err != nil {
			fmt.Fprintf(c.out, "login failed: %v\n", err)
			return false
		}
		c.printed = 0
		fmt.Fprintf(c.out, "Signed in as %s (%s)\n", u.Email, u.Role)
	case "/logout":
		if err := c.store.Logout(ctx); err != nil {
			fmt.Fprintf(c.out, "logout: %v\n", err)
		}
		c.printed = 0
		fmt.Fprintln(c.out, "Signed out.")
	case "/nav":
		u := c.store.User()
		if u == nil {
			fmt.Fprintln(c.out, "Not signed in.")
			return false
		}
		for _, item := range c.gate.Items(u.Role) {
			fmt.Fprintf(c.out, "  %-16s %s\n", item.Surface, item.Label)
		}
	case "/clear":
		c.session.ClearTranscript()
		c.printed = 0
	default:
		fmt.Fprintf(c.out, "unknown command %s\n", fields[0])
	}
	return false
}

func (c *chatREPL) send(ctx context.Context, text string) {
	if c.store.User() == nil {
		fmt.Fprintln(c.out, "Sign in first with /login <email>.")
		return
	}
	result, err := c.session.Send(ctx, text)
	if err != nil {
		fmt.Fprintf(c.out, "assistant: %v\n", err)
		return
	}
	if result.Status == assistant.StatusCancelled {
		fmt.Fprintln(c.out, "(reply cancelled)")
	}
}

// flush writes transcript messages appended since the last call. Our own
// lines are skipped since the user just typed them.
func (c *chatREPL) flush() {
	transcript := c.session.Transcript()
	if c.printed > len(transcript) {
		c.printed = 0
	}
	for _, m := range transcript[c.printed:] {
		if m.Sender == assistant.SenderAssistant {
			fmt.Fprintf(c.out, "assistant: %s\n", m.Text)
		}
	}
	c.printed = len(transcript)
}
