// Package notify sends push notifications to team members' devices.
//
// Notifications are posted to an Expo-compatible push endpoint. Delivery
// is best effort: the task facade fires them with Go and never waits.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

// DefaultEndpoint is the Expo push API.
const DefaultEndpoint = "https://exp.host/--/api/v2/push/send"

// Notification is one push message.
type Notification struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
	Sound string         `json:"sound,omitempty"`
}

// Config controls delivery.
type Config struct {
	// Endpoint receives the POST. Empty disables dispatch.
	Endpoint string
	// AccessToken is sent as a bearer token when set.
	AccessToken string
	// Timeout bounds each request.
	Timeout time.Duration
}

// Sender is what the task facade needs from a dispatcher.
type Sender interface {
	Go(n Notification)
}

// Dispatcher posts notifications to the push endpoint.
type Dispatcher struct {
	config Config
	client *http.Client
	log    *log.Entry
	wg     sync.WaitGroup
}

type pushResponse struct {
	Data struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// New creates a dispatcher. If logger is nil the standard logger is used.
func New(config Config, logger *log.Logger) *Dispatcher {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Dispatcher{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		log:    logger.WithField("component", "notify"),
	}
}

// Enabled reports whether an endpoint is configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.config.Endpoint != ""
}

// Send posts n and waits for the response.
func (d *Dispatcher) Send(ctx context.Context, n Notification) error {
	if !d.Enabled() {
		return nil
	}
	if strings.TrimSpace(n.To) == "" {
		return fmt.Errorf("notification has no recipient")
	}
	if n.Sound == "" {
		n.Sound = "default"
	}

	body, err := sonic.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if d.config.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.config.AccessToken)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read push response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var pr pushResponse
	if err := sonic.Unmarshal(raw, &pr); err != nil {
		return nil
	}
	if len(pr.Errors) > 0 {
		return fmt.Errorf("push rejected: %s", pr.Errors[0].Message)
	}
	if pr.Data.Status == "error" {
		return fmt.Errorf("push rejected: %s", pr.Data.Message)
	}
	return nil
}

// Go sends n in the background and logs any failure.
func (d *Dispatcher) Go(n Notification) {
	if !d.Enabled() {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
		defer cancel()
		if err := d.Send(ctx, n); err != nil {
			d.log.WithError(err).WithField("to", n.To).Warn("failed to send push notification")
		}
	}()
}

// Wait blocks until background sends finish.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
