// Package console turns operator input lines into supervisor operations.
package console

import (
	"bufio"
	"context"
	"io"
	"log"
)

const maxLineSize = 1024 * 1024

// Supervisor is the set of operations the console dispatches to.
type Supervisor interface {
	Start(ctx context.Context) error
	Stop() <-chan struct{}
	Restart(ctx context.Context) error
	Command(text string) bool
}

// Console reads one line at a time. The literals "start", "stop" and "restart" map to
// the supervisor operations; every other non-empty line is forwarded as a server command.
type Console struct {
	sup    Supervisor
	in     io.Reader
	logger *log.Logger
}

func New(sup Supervisor, in io.Reader, logger *log.Logger) *Console {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Console{sup: sup, in: in, logger: logger}
}

// Run dispatches lines until the input ends (nil), fails, or ctx is cancelled.
// A restart blocks the loop until it completes; a stop does not wait for the exit.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return ctx.Err()
				}
			}
			c.Dispatch(ctx, line)
		}
	}
}

// Dispatch handles a single operator line.
func (c *Console) Dispatch(ctx context.Context, line string) {
	switch line {
	case "":
	case "start":
		if err := c.sup.Start(ctx); err != nil {
			c.logger.Printf("Start failed: %v", err)
		}
	case "stop":
		c.sup.Stop()
	case "restart":
		if err := c.sup.Restart(ctx); err != nil {
			c.logger.Printf("Restart failed: %v", err)
		}
	default:
		c.sup.Command(line)
	}
}
