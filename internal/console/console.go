package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/xaenox/intent-bot/internal/chatbot"
	"github.com/xaenox/intent-bot/internal/models"
)

const (
	commandHistory = ":history"
	commandAbout   = ":about"
	historyLines   = 10
)

const aboutText = `This chatbot classifies each message into an intent using TF-IDF
features over word n-grams and a logistic regression model, then answers
with one of that intent's responses. Say "bye" to end the conversation.`

// REPL runs a terminal conversation over in and out.
type REPL struct {
	service *chatbot.Service
	in      io.Reader
	out     io.Writer

	user lipgloss.Style
	bot  lipgloss.Style
	note lipgloss.Style
}

// New builds a REPL. Colours are only emitted when out is a terminal.
func New(service *chatbot.Service, in io.Reader, out io.Writer) *REPL {
	r := lipgloss.NewRenderer(out)
	return &REPL{
		service: service,
		in:      in,
		out:     out,
		user:    r.NewStyle().Foreground(lipgloss.Color("#007BFF")),
		bot:     r.NewStyle().Foreground(lipgloss.Color("#00C851")),
		note:    r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Run reads one line per turn until a reply ends the conversation, the
// input is exhausted or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, "Welcome to the chatbot. Type a message and press Enter to start the conversation.")
	fmt.Fprintln(r.out, r.note.Render(fmt.Sprintf("Commands: %s, %s", commandHistory, commandAbout)))

	scanner := bufio.NewScanner(r.in)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.out, r.user.Render("You:"), " ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}

		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "":
			continue
		case commandHistory:
			if err := r.printHistory(ctx); err != nil {
				fmt.Fprintf(r.out, "Could not load history: %v\n", err)
			}
			continue
		case commandAbout:
			fmt.Fprintln(r.out, aboutText)
			continue
		}

		reply := r.service.Handle(ctx, line, models.SourceConsole)
		fmt.Fprintln(r.out, r.bot.Render("Chatbot:"), reply.Response)
		if reply.Ended {
			fmt.Fprintln(r.out, chatbot.FarewellMessage)
			return nil
		}
	}
}

func (r *REPL) printHistory(ctx context.Context) error {
	entries, err := r.service.History(ctx, historyLines)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "No conversation history available.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(r.out, "[%s] You: %s | Chatbot: %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Input, e.Response)
	}
	return nil
}
