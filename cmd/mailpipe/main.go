package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/prenaud/mailpipe"
	"github.com/prenaud/mailpipe/internal/expand"
)

type CLI struct {
	To                  []string      `name:"to" help:"Primary recipient address. May be given multiple times." env:"MAILPIPE_TO" optional:""`
	Cc                  []string      `name:"cc" help:"Cc recipient address. May be given multiple times." env:"MAILPIPE_CC" optional:""`
	Bcc                 []string      `name:"bcc" help:"Bcc recipient address. May be given multiple times." env:"MAILPIPE_BCC" optional:""`
	RecipientsFile      string        `name:"recipients-file" help:"Recipients file: JSON/YAML mapping with a 'recipients' key, a bare sequence, or one address per line." env:"MAILPIPE_RECIPIENTS_FILE" optional:""`
	FromName            string        `name:"from-name" help:"Display name for the From header. The sender address comes from the transport configuration." env:"MAILPIPE_FROM_NAME" optional:""`
	Subject             string        `name:"subject" help:"Message subject." env:"MAILPIPE_SUBJECT"`
	Body                string        `name:"body" help:"Message body text." env:"MAILPIPE_BODY" optional:""`
	BodyFile            string        `name:"body-file" help:"Read the message body from this file instead of --body." env:"MAILPIPE_BODY_FILE" optional:""`
	HTML                bool          `name:"html" help:"Treat the body as HTML instead of plain text." default:"false"`
	Attach              []string      `name:"attach" help:"Path of a file to attach. May be given multiple times." optional:""`
	Transport           string        `name:"transport" help:"Path to the mail transport binary. ${env.NAME} references are expanded." env:"MAILPIPE_TRANSPORT" default:"/usr/bin/msmtp"`
	TransportArg        []string      `name:"transport-arg" help:"Extra argument passed to the transport before the recipients." env:"MAILPIPE_TRANSPORT_ARG" optional:""`
	Account             string        `name:"account" help:"Transport account; shorthand for --transport-arg=-a --transport-arg=NAME." env:"MAILPIPE_ACCOUNT" optional:""`
	LogFile             string        `name:"log-file" help:"Path of the delivery log. ${env.NAME} references are expanded. Empty disables logging." env:"MAILPIPE_LOG_FILE" optional:""`
	Timeout             time.Duration `name:"timeout" help:"Give up when the transport runs longer than this. 0 disables the bound." env:"MAILPIPE_TIMEOUT" default:"60s"`
	PermissiveLocalPart bool          `name:"permissive-local-part" help:"Allow local parts that are not RFC 5322 dot-atoms." env:"MAILPIPE_PERMISSIVE_LOCAL_PART" default:"false"`
	LogLevel            slog.Level    `name:"log-level" help:"Log level." env:"MAILPIPE_LOG_LEVEL" default:"INFO" enum:"DEBUG,INFO,WARN,ERROR"`
}

func (CLI *CLI) initLogger(*kong.Context) *slog.Logger {
	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{Level: CLI.LogLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: CLI.LogLevel})
	}
	return slog.New(handler)
}

func (CLI *CLI) initBuilder(kongCtx *kong.Context) *mailpipe.Builder {
	builder := mailpipe.NewBuilder(
		mailpipe.WithPermissiveLocalPart(CLI.PermissiveLocalPart),
	)
	builder.SetFromName(CLI.FromName)
	builder.SetSubject(CLI.Subject)

	body := CLI.Body
	if CLI.BodyFile != "" {
		b, err := os.ReadFile(expand.Expand(CLI.BodyFile, expand.Env))
		kongCtx.FatalIfErrorf(err)
		body = string(b)
	}
	bodyType := mailpipe.BodyPlain
	if CLI.HTML {
		bodyType = mailpipe.BodyHTML
	}
	kongCtx.FatalIfErrorf(builder.SetBody(body, bodyType))

	for _, addr := range CLI.To {
		kongCtx.FatalIfErrorf(builder.AddTo(addr))
	}
	for _, addr := range CLI.Cc {
		kongCtx.FatalIfErrorf(builder.AddCc(addr))
	}
	for _, addr := range CLI.Bcc {
		kongCtx.FatalIfErrorf(builder.AddBcc(addr))
	}
	if CLI.RecipientsFile != "" {
		kongCtx.FatalIfErrorf(builder.LoadRecipientsFromFile(expand.Expand(CLI.RecipientsFile, expand.Env)))
	}
	for _, path := range CLI.Attach {
		kongCtx.FatalIfErrorf(builder.AttachFile(expand.Expand(path, expand.Env)))
	}
	return builder
}

func (CLI *CLI) initClient(kongCtx *kong.Context, logger *slog.Logger) *mailpipe.Client {
	args := make([]string, 0, len(CLI.TransportArg)+2)
	if CLI.Account != "" {
		args = append(args, "-a", CLI.Account)
	}
	for _, arg := range CLI.TransportArg {
		args = append(args, expand.Expand(arg, expand.Env))
	}
	options := []mailpipe.ClientOptionFunc{
		mailpipe.WithLogger(logger),
		mailpipe.WithTransportArgs(args...),
		mailpipe.WithTimeout(CLI.Timeout),
	}
	if CLI.LogFile != "" {
		options = append(options, mailpipe.WithLogFile(expand.Expand(CLI.LogFile, expand.Env)))
	}
	client, err := mailpipe.NewClient(expand.Expand(CLI.Transport, expand.Env), options...)
	kongCtx.FatalIfErrorf(err)
	return client
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	var CLI CLI
	kongCtx := kong.Parse(&CLI)
	logger := CLI.initLogger(kongCtx)
	builder := CLI.initBuilder(kongCtx)
	client := CLI.initClient(kongCtx, logger)
	kongCtx.FatalIfErrorf(client.SendBuilder(ctx, builder))
}
