package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"parcel-delivery-service/internal/dto"
	"parcel-delivery-service/internal/model"
)

// PaymentProvider creates payment intents with an external processor.
// amount is in the currency's minor unit.
type PaymentProvider interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string) (string, error)
}

type PaymentService struct {
	provider PaymentProvider
	payments PaymentRepository
	coord    *Coordinator
	currency string
	now      func() time.Time
}

func NewPaymentService(provider PaymentProvider, payments PaymentRepository, coord *Coordinator, currency string) *PaymentService {
	if currency == "" {
		currency = "usd"
	}
	return &PaymentService{
		provider: provider,
		payments: payments,
		coord:    coord,
		currency: strings.ToLower(currency),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateIntent returns the client secret for a new payment intent.
func (s *PaymentService) CreateIntent(ctx context.Context, req dto.PaymentIntentRequest) (*dto.PaymentIntentResponse, error) {
	cents := toMinorUnits(req.Amount)
	if cents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrBadRequest)
	}
	secret, err := s.provider.CreatePaymentIntent(ctx, cents, s.currency)
	if err != nil {
		return nil, err
	}
	return &dto.PaymentIntentResponse{ClientSecret: secret}, nil
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Save records a confirmed payment and marks its parcel paid.
func (s *PaymentService) Save(ctx context.Context, caller Caller, req dto.SavePaymentRequest) (*PaymentResult, error) {
	parcelID, err := parseID(req.ParcelID, "parcelId")
	if err != nil {
		return nil, err
	}
	txID := strings.TrimSpace(req.TransactionID)
	if txID == "" {
		return nil, fmt.Errorf("%w: transactionId is required", ErrBadRequest)
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = caller.Email
	}
	date := s.now()
	if req.Date != nil && !req.Date.IsZero() {
		date = req.Date.UTC()
	}

	return s.coord.ConfirmPayment(ctx, &model.Payment{
		TransactionID: txID,
		Amount:        req.Amount,
		Email:         email,
		ParcelID:      parcelID,
		Date:          date,
	})
}

func (s *PaymentService) ListAll(ctx context.Context) ([]*model.Payment, error) {
	out, err := s.payments.List(ctx, "")
	return out, storeErr(err, "payments")
}

// ListByEmail expects the caller to have passed the owner check already.
func (s *PaymentService) ListByEmail(ctx context.Context, email string) ([]*model.Payment, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrBadRequest)
	}
	out, err := s.payments.List(ctx, email)
	return out, storeErr(err, "payments")
}
