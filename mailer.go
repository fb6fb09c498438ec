package accounts

import (
	"bytes"
	"context"
	"io"
	"net/url"

	goerrors "github.com/goliatone/go-errors"
)

// MailMessage is a template-rendered outbound email
type MailMessage struct {
	To       string
	Subject  string
	Template string
	Context  map[string]any
}

// MailDispatcher delivers notification emails. Delivery is best effort;
// callers decide what a failure means for their flow.
type MailDispatcher interface {
	Dispatch(ctx context.Context, msg MailMessage) error
}

// TemplateRenderer renders a named template into a writer. The django view
// engine satisfies this directly.
type TemplateRenderer interface {
	Render(out io.Writer, template string, binding any, layout ...string) error
}

// LogDispatcher renders the message and logs the envelope instead of
// delivering it. Used for development and tests; the rendered body and any
// token-bearing context values never reach the log.
type LogDispatcher struct {
	renderer TemplateRenderer
	logger   Logger
}

func NewLogDispatcher(renderer TemplateRenderer, logger Logger) *LogDispatcher {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogDispatcher{
		renderer: renderer,
		logger:   logger,
	}
}

var _ MailDispatcher = (*LogDispatcher)(nil)

func (d *LogDispatcher) Dispatch(ctx context.Context, msg MailMessage) error {
	if msg.To == "" {
		return goerrors.New("mail message has no recipient", goerrors.CategoryBadInput)
	}

	if d.renderer != nil {
		var body bytes.Buffer
		if err := d.renderer.Render(&body, msg.Template, msg.Context); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render mail template")
		}
		d.logger.Debug("rendered mail body", "template", msg.Template, "bytes", body.Len())
	}

	d.logger.Info("dispatching email", "to", msg.To, "subject", msg.Subject, "template", msg.Template)
	return nil
}

// ConfirmationLink builds the frontend URL a recipient follows to confirm
// their registration
func ConfirmationLink(frontendURL, token string) (string, error) {
	base, err := url.Parse(frontendURL)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "invalid frontend URL")
	}

	base = base.JoinPath("auth", "confirm-registration")

	q := base.Query()
	q.Set("token", token)
	base.RawQuery = q.Encode()

	return base.String(), nil
}
