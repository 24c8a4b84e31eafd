// AngelaMos | 2026
// mail.go

package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/propertyxchange/backend/internal/config"
)

type Kind string

const (
	KindVerification         Kind = "verification"
	KindWelcome              Kind = "welcome"
	KindPasswordReset        Kind = "password_reset"
	KindPasswordResetSuccess Kind = "password_reset_success"
)

// Template parameter names shared by callers and templates.
const (
	ParamUsername = "username"
	ParamCode     = "code"
	ParamResetURL = "reset_url"
)

var (
	ErrUnknownKind   = errors.New("unknown mail kind")
	ErrNoRecipient   = errors.New("mail recipient is empty")
	ErrMissingParam  = errors.New("mail template parameter missing")
	ErrUnknownDriver = errors.New("unknown mail driver")
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Transport delivers an already rendered message.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
	Ping(ctx context.Context) error
}

// Dispatcher renders a templated transactional email and hands it to the
// transport under a bounded deadline. Send blocks until delivery succeeds
// or fails.
type Dispatcher struct {
	transport Transport
	timeout   time.Duration
	logger    *slog.Logger
}

func NewDispatcher(
	transport Transport,
	timeout time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		transport: transport,
		timeout:   timeout,
		logger:    logger,
	}
}

// NewFromConfig picks the transport for cfg.Driver.
func NewFromConfig(cfg config.MailConfig, logger *slog.Logger) (*Dispatcher, error) {
	var transport Transport
	switch cfg.Driver {
	case "smtp":
		transport = NewSMTPTransport(cfg)
	case "log", "":
		transport = NewLogTransport(logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	return NewDispatcher(transport, cfg.Timeout, logger), nil
}

func (d *Dispatcher) Send(
	ctx context.Context,
	kind Kind,
	recipient string,
	params map[string]string,
) error {
	if recipient == "" {
		return ErrNoRecipient
	}

	msg, err := render(kind, recipient, params)
	if err != nil {
		return fmt.Errorf("render %s mail: %w", kind, err)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := d.transport.Deliver(ctx, msg); err != nil {
		d.logger.Error("mail delivery failed",
			"kind", kind,
			"error", err,
			"duration", time.Since(start),
		)
		return fmt.Errorf("deliver %s mail: %w", kind, err)
	}

	d.logger.Info("mail sent",
		"kind", kind,
		"duration", time.Since(start),
	)

	return nil
}

// Ping reports whether the transport is reachable, for readiness checks.
func (d *Dispatcher) Ping(ctx context.Context) error {
	return d.transport.Ping(ctx)
}
