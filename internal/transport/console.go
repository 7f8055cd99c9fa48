package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tipbot-go/internal/flow"

	"go.uber.org/zap"
)

// Console drives the flow engine from a line-oriented stream. Each line
// is "<userId> <text>" for a message or "<userId> action:<data>" for an
// action press; replies and their offered actions go to the writer. It
// exists for local operation and manual testing — the engine itself is
// transport-agnostic.
type Console struct {
	engine *flow.Engine
	in     io.Reader
	out    io.Writer
}

func NewConsole(engine *flow.Engine, in io.Reader, out io.Writer) *Console {
	return &Console{engine: engine, in: in, out: out}
}

// Run consumes the stream until EOF or context cancellation.
func (c *Console) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		event, err := parseLine(line)
		if err != nil {
			fmt.Fprintf(c.out, "! %v\n", err)
			continue
		}

		reply := c.engine.Handle(ctx, event)
		c.render(reply)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("unable to read input: %w", err)
	}
	zap.L().Info("Input stream closed")
	return nil
}

func (c *Console) render(reply flow.Reply) {
	fmt.Fprintln(c.out, reply.Text)
	for _, action := range reply.Actions {
		fmt.Fprintf(c.out, "  [%s] action:%s\n", action.Label, action.Data)
	}
}

func parseLine(line string) (flow.Event, error) {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) != 2 {
		return flow.Event{}, fmt.Errorf("expected \"<userId> <text>\", got %q", line)
	}

	userId, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return flow.Event{}, fmt.Errorf("invalid user id %q", parts[0])
	}

	payload := strings.TrimSpace(parts[1])
	event := flow.Event{
		UserId:   userId,
		Username: fmt.Sprintf("user%d", userId),
		Kind:     flow.EventText,
		Payload:  payload,
	}
	if strings.HasPrefix(payload, "action:") {
		event.Kind = flow.EventAction
		event.Payload = strings.TrimPrefix(payload, "action:")
	}
	return event, nil
}
