package mailpipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prenaud/mailpipe/internal/logging"
)

// DefaultTransportPath is where msmtp lives on most installations.
const DefaultTransportPath = "/usr/bin/msmtp"

// Client hands built messages to the external transport as a child
// process and records the outcome. The transport's account, credentials
// and TLS setup are entirely its own; the client only streams the MIME
// document and inspects the exit status.
type Client struct {
	transportPath string
	transportArgs []string
	logPath       string
	timeout       time.Duration
	logger        *slog.Logger
}

type ClientOptionFunc func(*Client) error

func WithLogger(logger *slog.Logger) ClientOptionFunc {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.New(logging.BlackholeHandler{})
		}
		c.logger = logger
		return nil
	}
}

// WithLogFile enables the per-send delivery log at path. The file is
// opened append-only for each send and closed again, one line per
// attempt. An empty path leaves logging disabled.
func WithLogFile(path string) ClientOptionFunc {
	return func(c *Client) error {
		c.logPath = path
		return nil
	}
}

// WithTransportArgs sets extra arguments placed before the recipient
// addresses, e.g. "-a", "gmail" to select an msmtp account.
func WithTransportArgs(args ...string) ClientOptionFunc {
	return func(c *Client) error {
		c.transportArgs = args
		return nil
	}
}

// WithTimeout bounds the transport's runtime. Zero means no bound: a
// hung transport then blocks Send indefinitely.
func WithTimeout(d time.Duration) ClientOptionFunc {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("negative timeout: %v", d)
		}
		c.timeout = d
		return nil
	}
}

func NewClient(transportPath string, options ...ClientOptionFunc) (*Client, error) {
	if transportPath == "" {
		transportPath = DefaultTransportPath
	}
	c := &Client{
		transportPath: transportPath,
		logger:        slog.New(logging.BlackholeHandler{}),
	}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SendBuilder builds the message and sends it. A builder that does not
// satisfy the message invariants fails with *IncompleteMessageError
// before any process is spawned.
func (c *Client) SendBuilder(ctx context.Context, b *Builder) error {
	m, err := b.Build()
	if err != nil {
		return err
	}
	return c.Send(ctx, m)
}

// Send invokes the transport with the message's recipients as arguments,
// streams the MIME document to its stdin and blocks until it exits. At
// most one delivery attempt is made per call; retries are the caller's
// business.
//
// Concurrent Sends are safe: each call spawns its own process and the
// delivery log is written with a single append per line.
func (c *Client) Send(ctx context.Context, m *Message) error {
	if m == nil {
		return &IncompleteMessageError{Missing: []string{"message"}}
	}
	recipients := m.Recipients()
	logger := c.logger.With(
		slog.String("transport", c.transportPath),
		slog.Any("recipients", recipients),
	)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := make([]string, 0, len(c.transportArgs)+len(recipients))
	args = append(args, c.transportArgs...)
	args = append(args, recipients...)

	cmd := exec.CommandContext(ctx, c.transportPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &TransportUnavailableError{Path: c.transportPath, Err: err}
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("invoking transport", slog.Any("args", args))
	if err := cmd.Start(); err != nil {
		stdin.Close()
		sendErr := &TransportUnavailableError{Path: c.transportPath, Err: err}
		c.writeLog(logger, recipients, sendErr)
		logger.Error("transport unavailable", slog.Any("error", err))
		return sendErr
	}

	var eg errgroup.Group
	eg.Go(func() error {
		defer stdin.Close()
		_, err := m.WriteTo(stdin)
		return err
	})
	waitErr := cmd.Wait()
	writeErr := eg.Wait()

	var sendErr error
	switch {
	case waitErr == nil:
		if writeErr != nil {
			// Transport exited cleanly without consuming the whole
			// message.
			sendErr = fmt.Errorf("failed to stream message to transport: %w", writeErr)
		}
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		sendErr = &TransportTimeoutError{Timeout: c.timeout}
	case ctx.Err() != nil:
		sendErr = fmt.Errorf("transport interrupted: %w", ctx.Err())
	default:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			sendErr = &DeliveryError{
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		} else {
			sendErr = &TransportUnavailableError{Path: c.transportPath, Err: waitErr}
		}
	}

	c.writeLog(logger, recipients, sendErr)
	if sendErr != nil {
		logger.Error("delivery failed", slog.Any("error", sendErr))
		return sendErr
	}
	logger.Info("email sent", slog.String("subject", m.Subject()))
	return nil
}

// writeLog appends one delivery record. A failure here surfaces on the
// warning channel only; it never masks the send outcome.
func (c *Client) writeLog(logger *slog.Logger, recipients []string, sendErr error) {
	if c.logPath == "" {
		return
	}
	line := formatLogLine(time.Now(), recipients, sendErr)
	if err := appendLine(c.logPath, line); err != nil {
		logger.Warn("failed to record delivery",
			slog.Any("error", &LoggingError{Path: c.logPath, Err: err}))
	}
}

// appendLine writes line with a single append so concurrent senders
// cannot interleave within a record. The sink is opened and closed per
// write rather than held across sends.
func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(line)
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

func formatLogLine(now time.Time, recipients []string, sendErr error) string {
	var sb strings.Builder
	sb.WriteString(now.Format(time.DateTime))
	if sendErr == nil {
		sb.WriteString(" - Email sent to ")
	} else {
		sb.WriteString(" - Email send failed (")
		sb.WriteString(sendErr.Error())
		sb.WriteString(") to ")
	}
	sb.WriteByte('[')
	for i, r := range recipients {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('\'')
		sb.WriteString(r)
		sb.WriteByte('\'')
	}
	sb.WriteString("]\n")
	return sb.String()
}
