package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	customError "github.com/coursebill/installment-engine/pkg/errors"
)

// Message is one rendered reminder. Body construction (templating, HTML)
// lives outside the engine; this carries the already-rendered text.
type Message struct {
	Contact string `json:"contact"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Dispatcher sends a message to a payer. A dispatch failure never rolls
// back financial state; the reminder sweep logs it and moves on.
type Dispatcher interface {
	Send(ctx context.Context, msg *Message) error
}

type webhookDispatcher struct {
	endpoint string
	client   *http.Client
}

// NewWebhookDispatcher returns a Dispatcher that POSTs messages to the
// deployment's notification service. Timeout bounds each send; a timed-out
// send is a failure and is not retried in-process.
func NewWebhookDispatcher(endpoint string, timeout time.Duration) Dispatcher {
	return &webhookDispatcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (d *webhookDispatcher) Send(ctx context.Context, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return customError.WrapDispatchError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return customError.WrapDispatchError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return customError.WrapDispatchError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return customError.WrapDispatchError(fmt.Errorf("notification service returned status %d", resp.StatusCode))
	}

	return nil
}

type logDispatcher struct{}

// NewLogDispatcher returns a Dispatcher that only logs messages. Used when
// no notification endpoint is configured (local development).
func NewLogDispatcher() Dispatcher {
	return &logDispatcher{}
}

func (d *logDispatcher) Send(_ context.Context, msg *Message) error {
	logrus.WithFields(logrus.Fields{
		"contact": msg.Contact,
		"subject": msg.Subject,
	}).Info("reminder dispatched (log only)")
	return nil
}
