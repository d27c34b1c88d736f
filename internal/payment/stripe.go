package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"parcel-delivery-service/internal/service"

	"github.com/go-resty/resty/v2"
)

const DefaultStripeURL = "https://api.stripe.com"

// StripeClient creates payment intents through the Stripe REST API.
type StripeClient struct {
	client *resty.Client
	key    string
}

type paymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewStripeClient(baseURL, secretKey string) *StripeClient {
	if baseURL == "" {
		baseURL = DefaultStripeURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r != nil && (r.StatusCode() == http.StatusTooManyRequests ||
			r.StatusCode() >= http.StatusInternalServerError)
	})

	return &StripeClient{client: client, key: secretKey}
}

// CreatePaymentIntent creates a card payment intent and returns its client
// secret. A request Stripe refuses is a bad request; anything else is an
// upstream failure.
func (s *StripeClient) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (string, error) {
	if s.key == "" {
		return "", fmt.Errorf("%w: payment provider not configured", service.ErrUpstreamFailure)
	}

	var (
		intent  paymentIntent
		failure stripeError
	)
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.key).
		SetFormData(map[string]string{
			"amount":                 strconv.FormatInt(amount, 10),
			"currency":               currency,
			"payment_method_types[]": "card",
		}).
		SetResult(&intent).
		SetError(&failure).
		Post("/v1/payment_intents")
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: stripe: %v", service.ErrUpstreamFailure, err)
	}

	code := resp.StatusCode()
	switch {
	case code >= http.StatusOK && code < http.StatusMultipleChoices:
	case code >= http.StatusBadRequest && code < http.StatusInternalServerError &&
		code != http.StatusUnauthorized && code != http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: stripe: %s", service.ErrBadRequest, failureMessage(failure, code))
	default:
		return "", fmt.Errorf("%w: stripe: %s", service.ErrUpstreamFailure, failureMessage(failure, code))
	}

	if intent.ClientSecret == "" {
		return "", fmt.Errorf("%w: stripe returned no client secret", service.ErrUpstreamFailure)
	}
	return intent.ClientSecret, nil
}

func failureMessage(f stripeError, code int) string {
	if f.Error.Message != "" {
		return f.Error.Message
	}
	return fmt.Sprintf("status %d", code)
}
