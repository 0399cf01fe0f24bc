package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"tutorhub/internal/model"
	"tutorhub/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	customerpkg "github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeAPI is the subset of Stripe used for course checkout.
type StripeAPI interface {
	NewCustomer(params *stripe.CustomerParams) (*stripe.Customer, error)
	NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeAPI struct{}

// NewStripeAPI sets the global Stripe key and returns the live client.
func NewStripeAPI(secretKey string) StripeAPI {
	stripe.Key = secretKey
	return stripeAPI{}
}

func (stripeAPI) NewCustomer(params *stripe.CustomerParams) (*stripe.Customer, error) {
	return customerpkg.New(params)
}

func (stripeAPI) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return checkoutsession.New(params)
}

// CheckoutResult holds either a Stripe Checkout URL or, for free courses, the
// enrollment that was created directly.
type CheckoutResult struct {
	CourseID string
	URL      string
	Enrolled bool
}

type CheckoutService interface {
	CreateSession(ctx context.Context, userID, courseKey string) (*CheckoutResult, error)
	// HandleWebhook verifies and applies a Stripe webhook delivery.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type checkoutService struct {
	stripe        StripeAPI
	enrollments   EnrollmentService
	userRepo      repository.UserRepository
	webhookSecret string
	returnURL     string
	logger        zerolog.Logger
}

func NewCheckoutService(
	api StripeAPI,
	enrollments EnrollmentService,
	userRepo repository.UserRepository,
	webhookSecret, returnURL string,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		stripe:        api,
		enrollments:   enrollments,
		userRepo:      userRepo,
		webhookSecret: webhookSecret,
		returnURL:     returnURL,
		logger:        logger.With().Str("service", "CheckoutService").Logger(),
	}
}

func (s *checkoutService) CreateSession(ctx context.Context, userID, courseKey string) (*CheckoutResult, error) {
	course, err := s.enrollments.Authorize(ctx, userID, courseKey)
	if err != nil {
		return nil, err
	}
	if course.IsFree() {
		if _, err := s.enrollments.EnrollCourse(ctx, userID, course.ID, "checkout"); err != nil {
			return nil, err
		}
		return &CheckoutResult{CourseID: course.ID, Enrolled: true}, nil
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if user == nil {
		return nil, &AccessDeniedError{Status: http.StatusUnauthorized, Message: "User not found"}
	}
	customerID, err := s.getOrCreateCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	currency := course.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(course.Price),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(course.Name),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(s.redirectURL(course, "success")),
		CancelURL:  stripe.String(s.redirectURL(course, "cancel")),
		Metadata:   map[string]string{"user_id": userID, "course_id": course.ID},
	}
	sess, err := s.stripe.NewCheckoutSession(params)
	if err != nil {
		s.logger.Error().Err(err).Str("course_id", course.ID).Str("user_id", userID).Msg("Failed to create Stripe checkout session")
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutResult{CourseID: course.ID, URL: sess.URL}, nil
}

func (s *checkoutService) redirectURL(course *model.Course, status string) string {
	q := url.Values{"status": {status}}
	return s.returnURL + "/" + url.PathEscape(course.Slug) + "?" + q.Encode()
}

func (s *checkoutService) getOrCreateCustomer(ctx context.Context, user *model.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}
	cust, err := s.stripe.NewCustomer(&stripe.CustomerParams{
		Email:    stripe.String(user.Email),
		Name:     stripe.String(user.Name),
		Metadata: map[string]string{"user_id": user.UserID},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to create Stripe customer")
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	if err := s.userRepo.UpdateStripeCustomerID(ctx, user.UserID, cust.ID); err != nil {
		return "", fmt.Errorf("store stripe customer id: %w", err)
	}
	return cust.ID, nil
}

func (s *checkoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.webhookSecret == "" {
		return errors.New("stripe webhook secret is not configured")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Signature verification failed for Stripe webhook")
		return fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	s.logger.Info().Str("event_type", string(event.Type)).Msg("Stripe webhook received")

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
		}
		if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			s.logger.Info().Str("session_id", cs.ID).Str("payment_status", string(cs.PaymentStatus)).Msg("Checkout session not paid yet")
			return nil
		}
		userID, courseID := cs.Metadata["user_id"], cs.Metadata["course_id"]
		if userID == "" || courseID == "" {
			return fmt.Errorf("%w: checkout session %s has no user_id/course_id metadata", ErrInvalidWebhook, cs.ID)
		}
		if _, err := s.enrollments.EnrollCourse(ctx, userID, courseID, "stripe"); err != nil {
			return err
		}
	default:
		s.logger.Debug().Str("event_type", string(event.Type)).Msg("Ignoring Stripe webhook event")
	}
	return nil
}
