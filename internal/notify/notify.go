// Package notify delivers finished itineraries to travelers over SMS using
// the Twilio API.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/packvote/packvote/internal/models"
)

// maxSMSBody caps the composed message so long itineraries do not fan out
// into dozens of billable segments.
const maxSMSBody = 1500

// Sender sends one SMS message to one recipient.
type Sender interface {
	SendSMS(ctx context.Context, to string, body string) error
}

// Opts holds configuration options for the Twilio SMS client.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Option defines a configuration option for the Twilio SMS client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the sending phone number in E.164 format.
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// Client wraps the Twilio REST API for SMS delivery.
type Client struct {
	client     *twilio.RestClient
	fromNumber string
}

// NewClient initializes a Twilio SMS client. Falls back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER environment
// variables for unset options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("Twilio client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromNumber_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		},
	)

	return &Client{client: client, fromNumber: cfg.FromNumber}, nil
}

// SendSMS sends one SMS message using the Twilio API.
func (c *Client) SendSMS(ctx context.Context, to string, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.fromNumber)
	params.SetBody(body)

	_, err := c.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Twilio SendSMS failed", "to", to, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}

	slog.Debug("Twilio message sent", "to", to)
	return nil
}

// ComposeItineraryMessage renders the SMS body for one traveler. The itinerary
// is truncated when it would exceed the segment cap.
func ComposeItineraryMessage(name, project, itinerary string) string {
	header := fmt.Sprintf("Hi %s! Your group's itinerary for %s is ready:\n\n", name, project)
	if len(header)+len(itinerary) > maxSMSBody {
		cut := maxSMSBody - len(header)
		if cut < 0 {
			cut = 0
		}
		itinerary = strings.TrimSpace(itinerary[:cut]) + "..."
	}
	return header + itinerary
}

// SendItinerary fans the finished itinerary out to every traveler. Delivery is
// best effort: failed recipients are logged and reported, and do not block the
// rest of the group.
func SendItinerary(ctx context.Context, sender Sender, project, itinerary string, recipients []models.SurveyRecord) error {
	var failed []string
	for _, rec := range recipients {
		to := rec.FullPhone()
		body := ComposeItineraryMessage(rec.Name, project, itinerary)
		if err := sender.SendSMS(ctx, to, body); err != nil {
			slog.Error("SendItinerary: delivery failed", "project", project, "recipient", rec.Name, "error", err)
			failed = append(failed, rec.Name)
			continue
		}
		slog.Info("SendItinerary: delivered", "project", project, "recipient", rec.Name)
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to deliver itinerary to %d of %d travelers: %s",
			len(failed), len(recipients), strings.Join(failed, ", "))
	}
	return nil
}
