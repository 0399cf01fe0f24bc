package service

import (
	"context"
	"fmt"
	"testing"

	"tutorhub/internal/model"
	"tutorhub/internal/repository/inmem"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test"

type fakeStripe struct {
	customers []*stripe.CustomerParams
	sessions  []*stripe.CheckoutSessionParams
}

func (f *fakeStripe) NewCustomer(params *stripe.CustomerParams) (*stripe.Customer, error) {
	f.customers = append(f.customers, params)
	return &stripe.Customer{ID: fmt.Sprintf("cus_%d", len(f.customers))}, nil
}

func (f *fakeStripe) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.sessions = append(f.sessions, params)
	return &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}, nil
}

func newTestCheckoutService(db *inmem.DB, api StripeAPI) CheckoutService {
	return NewCheckoutService(api, newTestEnrollmentService(db, nil), inmem.NewUserRepo(db),
		testWebhookSecret, "https://tutorhub.test/courses", zerolog.Nop())
}

func TestCreateSessionForPaidCourse(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "Data Science", Slug: "data-science", Price: 4900, Currency: "usd"})
	db.AddUser(model.User{UserID: "user-1", Email: "learner@example.com", Name: "Lee"})
	api := &fakeStripe{}
	svc := newTestCheckoutService(db, api)

	res, err := svc.CreateSession(context.Background(), "user-1", "data-science")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", res.URL)
	assert.False(t, res.Enrolled)
	assert.Empty(t, db.Enrollments())

	require.Len(t, api.sessions, 1)
	params := api.sessions[0]
	assert.Equal(t, "cus_1", *params.Customer)
	assert.Equal(t, int64(4900), *params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, map[string]string{"user_id": "user-1", "course_id": course.ID}, params.Metadata)
	assert.Equal(t, "https://tutorhub.test/courses/data-science?status=success", *params.SuccessURL)

	// The customer id is stored and reused.
	_, err = svc.CreateSession(context.Background(), "user-1", "data-science")
	require.NoError(t, err)
	assert.Len(t, api.customers, 1)
	assert.Equal(t, "cus_1", *db.User("user-1").StripeCustomerID)
}

func TestCreateSessionEnrollsFreeCourse(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "Intro To Python", Slug: "intro-to-python"})
	api := &fakeStripe{}
	svc := newTestCheckoutService(db, api)

	res, err := svc.CreateSession(context.Background(), "user-1", "intro-to-python")
	require.NoError(t, err)
	assert.True(t, res.Enrolled)
	assert.Equal(t, course.ID, res.CourseID)
	assert.Empty(t, api.sessions)
	assert.Len(t, db.Enrollments(), 1)
}

func TestCreateSessionRespectsCohortGate(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "Bootcamp", Slug: "bootcamp", Price: 100})
	db.AddCohort(course.ID, "Spring", true)
	db.AddUser(model.User{UserID: "user-1", Email: "learner@example.com"})
	api := &fakeStripe{}

	_, err := newTestCheckoutService(db, api).CreateSession(context.Background(), "user-1", "bootcamp")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, api.sessions)
}

func signedWebhook(t *testing.T, body string) ([]byte, string) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(body),
		Secret:  testWebhookSecret,
	})
	return signed.Payload, signed.Header
}

func checkoutCompletedEvent(courseID, paymentStatus string) string {
	return fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"object": "checkout.session",
			"payment_status": %q,
			"metadata": {"user_id": "user-1", "course_id": %q}
		}}
	}`, stripe.APIVersion, paymentStatus, courseID)
}

func TestHandleWebhookEnrollsPaidSession(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "Data Science", Slug: "data-science", Price: 4900})
	svc := newTestCheckoutService(db, &fakeStripe{})

	payload, sig := signedWebhook(t, checkoutCompletedEvent(course.ID, "paid"))
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, sig))
	// Stripe retries deliveries; the second one must not duplicate the row.
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, sig))

	rows := db.Enrollments()
	require.Len(t, rows, 1)
	assert.Equal(t, course.ID, rows[0].CourseID)
	assert.Equal(t, "user-1", rows[0].UserID)
}

func TestHandleWebhookSkipsUnpaidSession(t *testing.T) {
	db := inmem.New()
	course := db.AddCourse(model.Course{Name: "Data Science", Slug: "data-science", Price: 4900})
	svc := newTestCheckoutService(db, &fakeStripe{})

	payload, sig := signedWebhook(t, checkoutCompletedEvent(course.ID, "unpaid"))
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, sig))
	assert.Empty(t, db.Enrollments())
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	svc := newTestCheckoutService(inmem.New(), &fakeStripe{})

	payload, _ := signedWebhook(t, checkoutCompletedEvent("c", "paid"))
	err := svc.HandleWebhook(context.Background(), payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidWebhook)
}
