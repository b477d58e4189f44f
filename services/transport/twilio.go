package transport

import (
	"context"
	"errors"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender sends SMS, or WhatsApp when built with NewWhatsAppSender.
type TwilioSender struct {
	api      messageCreator
	from     string
	whatsapp bool
	logger   *zap.Logger
}

func newTwilioClient(accountSID, authToken string) *twilio.RestClient {
	return twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
}

func NewSMSSender(accountSID, authToken, from string, logger *zap.Logger) *TwilioSender {
	return &TwilioSender{api: newTwilioClient(accountSID, authToken).Api, from: from, logger: logger}
}

func NewWhatsAppSender(accountSID, authToken, from string, logger *zap.Logger) *TwilioSender {
	return &TwilioSender{api: newTwilioClient(accountSID, authToken).Api, from: from, whatsapp: true, logger: logger}
}

func whatsappAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

func (s *TwilioSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("phone number is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	to, from := msg.To, s.from
	if s.whatsapp {
		to, from = whatsappAddress(to), whatsappAddress(from)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(msg.Body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return err
	}
	if resp != nil && resp.Sid != nil {
		s.logger.Debug("twilio message accepted", zap.String("sid", *resp.Sid), zap.Bool("whatsapp", s.whatsapp))
	}
	return nil
}
