package jobs

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ErrInvalidPhone is returned for numbers that cannot be dialled.
var ErrInvalidPhone = errors.New("sms: invalid phone number")

// SMSSender delivers a text message.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// TwilioConfig holds the Twilio credentials.
type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	FromNumber  string
	CountryCode string
}

// TwilioSender sends SMS through the Twilio REST API.
type TwilioSender struct {
	client      *twilio.RestClient
	from        string
	countryCode string
}

// NewTwilioSender builds a sender from credentials.
func NewTwilioSender(cfg TwilioConfig) *TwilioSender {
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		from:        cfg.FromNumber,
		countryCode: cfg.CountryCode,
	}
}

// Send delivers body to the given phone number.
func (s *TwilioSender) Send(_ context.Context, to, body string) error {
	number, err := NormalizePhone(to, s.countryCode)
	if err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(number)
	params.SetFrom(s.from)
	params.SetBody(body)
	_, err = s.client.Api.CreateMessage(params)
	return err
}

// NormalizePhone converts a local number into E.164 using countryCode. Numbers
// already starting with + keep their prefix.
func NormalizePhone(raw, countryCode string) (string, error) {
	raw = strings.TrimSpace(raw)
	international := strings.HasPrefix(raw, "+")
	var digits strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) < 7 || len(d) > 15 {
		return "", ErrInvalidPhone
	}
	if international {
		return "+" + d, nil
	}
	if countryCode == "" {
		countryCode = "+57"
	}
	return "+" + strings.TrimPrefix(countryCode, "+") + d, nil
}
