package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartdomain "github.com/gildedwren/storefront/internal/cart/domain"
	d "github.com/gildedwren/storefront/internal/checkout/domain"
	"github.com/gildedwren/storefront/internal/payment"
)

func testPricing() d.PricingConfig {
	return d.PricingConfig{
		FreeShippingThreshold: 5000,
		FlatShippingFee:       999,
		TaxRate:               decimal.RequireFromString("0.12"),
		Currency:              "usd",
	}
}

func testCart(sessionID string) *cartdomain.Cart {
	cart := &cartdomain.Cart{SessionID: sessionID}
	cart.AddItem(cartdomain.LineItem{ProductID: "ring-1", Name: "Hammered silver ring", UnitPrice: 1000, Quantity: 1})
	cart.AddItem(cartdomain.LineItem{ProductID: "pendant-3", Name: "Opal pendant", UnitPrice: 1500, Quantity: 2})
	return cart // subtotal 4000
}

func validShipping() d.ShippingDetails {
	return d.ShippingDetails{
		Email:      "ada@example.com",
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Address1:   "12 Foundry Lane",
		City:       "Asheville",
		Region:     "NC",
		PostalCode: "28801",
	}
}

type fixture struct {
	repo      *MockRepository
	carts     *MockCartAccess
	gateway   *MockGateway
	confirmer *MockConfirmer
	sut       *CheckoutServiceImpl
}

func newFixture() *fixture {
	repo := NewMockRepository()
	carts := &MockCartAccess{Cart: testCart("cart-1")}
	gateway := NewMockGateway()
	confirmer := &MockConfirmer{}
	sut := NewCheckoutService(repo, carts, gateway, confirmer, testPricing(), 5*time.Second)
	return &fixture{repo, carts, gateway, confirmer, sut}
}

// toPayment walks a fresh session up to the payment step with an intent.
func (f *fixture) toPayment(t *testing.T) *d.CheckoutSession {
	t.Helper()
	ctx := context.Background()

	session, err := f.sut.Begin(ctx, "cart-1")
	require.NoError(t, err)
	_, err = f.sut.SubmitShipping(ctx, session.ID, validShipping())
	require.NoError(t, err)
	session, err = f.sut.EnterPayment(ctx, session.ID)
	require.NoError(t, err)
	return session
}

func TestBegin_RejectsEmptyCart(t *testing.T) {
	f := newFixture()
	f.carts.Cart = &cartdomain.Cart{SessionID: "cart-1"}

	_, err := f.sut.Begin(context.Background(), "cart-1")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestBegin_IsIdempotentPerCartSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.sut.Begin(ctx, "cart-1")
	require.NoError(t, err)
	second, err := f.sut.Begin(ctx, "cart-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, d.StepShippingInfo, first.Step)
	assert.Equal(t, d.CheckoutStatusOpen, first.Status)
}

func TestSubmitShipping_ValidationFailsClosed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session, err := f.sut.Begin(ctx, "cart-1")
	require.NoError(t, err)

	details := validShipping()
	details.PostalCode = ""
	_, err = f.sut.SubmitShipping(ctx, session.ID, details)

	var vErr *d.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "postal_code")

	// the session did not advance
	stored := f.repo.session(session.ID)
	assert.Equal(t, d.StepShippingInfo, stored.Step)
	assert.Nil(t, stored.Shipping)
}

func TestSubmitShipping_AdvancesToPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session, err := f.sut.Begin(ctx, "cart-1")
	require.NoError(t, err)
	updated, err := f.sut.SubmitShipping(ctx, session.ID, validShipping())
	require.NoError(t, err)

	assert.Equal(t, d.StepPayment, updated.Step)
	require.NotNil(t, updated.Shipping)
	assert.Equal(t, "ada@example.com", updated.Shipping.Email)
}

func TestEnterPayment_RequiresShipping(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session, err := f.sut.Begin(ctx, "cart-1")
	require.NoError(t, err)

	_, err = f.sut.EnterPayment(ctx, session.ID)
	assert.ErrorIs(t, err, ErrShippingRequired)
	assert.Equal(t, 0, f.gateway.intentCount())
}

func TestEnterPayment_SnapshotsTotalsAndCreatesIntent(t *testing.T) {
	f := newFixture()
	session := f.toPayment(t)

	// subtotal 4000, shipping 999, tax 480 -> 5479
	require.NotNil(t, session.Snapshot)
	assert.Equal(t, int64(5479), session.Snapshot.Totals.GrandTotal)
	assert.Equal(t, d.CheckoutStatusPaymentPending, session.Status)
	assert.True(t, session.HasPaymentHandle())
	assert.Equal(t, int64(5479), f.gateway.amountFor(session.PaymentIntent))
}

func TestEnterPayment_ReEntryReusesHandle(t *testing.T) {
	f := newFixture()
	session := f.toPayment(t)
	ctx := context.Background()

	_, err := f.sut.Back(ctx, session.ID)
	require.NoError(t, err)
	again, err := f.sut.EnterPayment(ctx, session.ID)
	require.NoError(t, err)

	assert.Equal(t, session.PaymentIntent, again.PaymentIntent)
	assert.Equal(t, 1, f.gateway.intentCount(), "no duplicate intent for an unchanged total")
}

func TestEnterPayment_ChangedTotalGetsFreshIntent(t *testing.T) {
	f := newFixture()
	session := f.toPayment(t)
	ctx := context.Background()

	_, err := f.sut.Back(ctx, session.ID)
	require.NoError(t, err)
	f.carts.Cart.AddItem(cartdomain.LineItem{ProductID: "cuff-9", Name: "Brass cuff", UnitPrice: 2500, Quantity: 1})

	again, err := f.sut.EnterPayment(ctx, session.ID)
	require.NoError(t, err)

	assert.NotEqual(t, session.PaymentIntent, again.PaymentIntent)
	assert.Equal(t, 2, f.gateway.intentCount())
	// subtotal 6500 crosses the threshold: shipping 0, tax 780
	assert.Equal(t, int64(7280), again.Snapshot.Totals.GrandTotal)
	assert.Equal(t, int64(7280), f.gateway.amountFor(again.PaymentIntent))
}

func TestEnterPayment_GatewayFailureLeavesSessionOpen(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	session, err := f.sut.Begin(ctx, "cart-1")
	require.NoError(t, err)
	_, err = f.sut.SubmitShipping(ctx, session.ID, validShipping())
	require.NoError(t, err)

	f.gateway.CreateErr = &payment.GatewayError{Kind: payment.KindNetwork, Message: "connection refused"}
	_, err = f.sut.EnterPayment(ctx, session.ID)

	var gwErr *payment.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.True(t, gwErr.Transient())

	// retryable: session still open with no handle
	stored := f.repo.session(session.ID)
	assert.Equal(t, d.CheckoutStatusOpen, stored.Status)
	assert.False(t, stored.HasPaymentHandle())

	// retry succeeds
	f.gateway.CreateErr = nil
	retried, err := f.sut.EnterPayment(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, retried.HasPaymentHandle())
}

func TestConfirmPayment_SuccessClearsCartAndCompletes(t *testing.T) {
	f := newFixture()
	session := f.toPayment(t)
	f.gateway.Confirmation = payment.Confirmation{Status: payment.StatusSucceeded}

	result, err := f.sut.ConfirmPayment(context.Background(), session.ID)
	require.NoError(t, err)

	assert.Equal(t, d.CheckoutStatusCompleted, result.Status)
	assert.NotEmpty(t, result.OrderID)
	assert.True(t, f.carts.cleared())

	orders := f.confirmer.confirmed()
	require.Len(t, orders, 1)
	assert.Equal(t, int64(5479), orders[0].TotalAmount)
	assert.Equal(t, session.ID, orders[0].CheckoutID)
	assert.Equal(t, session.PaymentIntent, orders[0].PaymentIntentID)

	// outbox event enqueued with the completion
	assert.Len(t, f.repo.Events, 1)
	assert.Equal(t, d.CheckoutStatusCompleted, f.repo.session(session.ID).Status)
}

func TestConfirmPayment_ChargedAmountIsSnapshotNotLiveCart(t *testing.T) {
	f := newFixture()
	session := f.toPayment(t)

	// hypothetical cart mutation after the snapshot
	f.carts.Cart.AddItem(cartdomain.LineItem{ProductID: "cuff-9", Name: "Brass cuff", UnitPrice: 99999, Quantity: 3})

	f.gateway.Confirmation = payment.Confirmation{Status: payment.StatusSucceeded}
	_, err := f.sut.ConfirmPayment(context.Background(), session.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(5479), f.gateway.amountFor(session.PaymentIntent))
	orders := f.confirmer.confirmed()
	require.Len(t, orders, 1)
	assert.Equal(t, int64(5479), orders[0].TotalAmount)
}

func TestConfirmPayment_BackendConfirmationFailureKeepsCart(t *testing.T) {
	f := newFixture()
	session := f.toPayment(t)
	f.gateway.Confirmation = payment.Confirmation{Status: payment.StatusSucceeded}
	f.confirmer.Err = assert.AnError

	_, err := f.sut.ConfirmPayment(context.Background(), session.ID)

	assert.ErrorIs(t, err, ErrConfirmationPending)
	assert.False(t, f.carts.cleared(), "cart must survive an ambiguous order")
	assert.Empty(t, f.repo.Events)
	assert.Equal(t, d.CheckoutStatusPaymentProcessing, f.repo.session(session.ID).Status)
}

func TestConfirmPayment_DeclineIsRetryable(t *testing.T) {
	f := newFixture()
	session := f.toPayment(t)
	f.gateway.Confirmation = payment.Confirmation{
		Status: payment.StatusFailed,
		Err:    &payment.GatewayError{Kind: payment.KindCardDeclined, Message: "card declined"},
	}

	_, err := f.sut.ConfirmPayment(context.Background(), session.ID)

	var gwErr *payment.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, payment.KindCardDeclined, gwErr.Kind)
	assert.NotEmpty(t, gwErr.Suggestion())
	assert.False(t, f.carts.cleared())
	assert.Equal(t, d.CheckoutStatusPaymentPending, f.repo.session(session.ID).Status)

	// customer retries with better luck
	f.gateway.Confirmation = payment.Confirmation{Status: payment.StatusSucceeded}
	result, err := f.sut.ConfirmPayment(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, d.CheckoutStatusCompleted, result.Status)
}

func TestConfirmPayment_ProcessingIsInformational(t *testing.T) {
	f := newFixture()
	session := f.toPayment(t)
	f.gateway.Confirmation = payment.Confirmation{Status: payment.StatusProcessing}

	result, err := f.sut.ConfirmPayment(context.Background(), session.ID)
	require.NoError(t, err)

	assert.Equal(t, d.CheckoutStatusPaymentProcessing, result.Status)
	assert.NotEmpty(t, result.Message)
	assert.False(t, f.carts.cleared())
}

func TestConfirmPayment_RequiresActionKeepsSession(t *testing.T) {
	f := newFixture()
	session := f.toPayment(t)
	f.gateway.Confirmation = payment.Confirmation{Status: payment.StatusRequiresAction}

	result, err := f.sut.ConfirmPayment(context.Background(), session.ID)
	require.NoError(t, err)

	assert.Equal(t, d.CheckoutStatusRequiresAction, result.Status)
	assert.False(t, f.carts.cleared())
}

func TestConfirmPayment_WithoutIntent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	session, err := f.sut.Begin(ctx, "cart-1")
	require.NoError(t, err)

	_, err = f.sut.ConfirmPayment(ctx, session.ID)
	assert.ErrorIs(t, err, ErrPaymentNotReady)
}

func TestConfirmPayment_CancelledContextDoesNotMutate(t *testing.T) {
	f := newFixture()
	session := f.toPayment(t)
	f.gateway.ConfirmErr = context.Canceled

	_, err := f.sut.ConfirmPayment(context.Background(), session.ID)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, f.carts.cleared())
	assert.Equal(t, d.CheckoutStatusPaymentPending, f.repo.session(session.ID).Status)
}

func TestCancel_DiscardsSessionKeepsCart(t *testing.T) {
	f := newFixture()
	session := f.toPayment(t)

	require.NoError(t, f.sut.Cancel(context.Background(), session.ID))

	assert.Equal(t, d.CheckoutStatusCancelled, f.repo.session(session.ID).Status)
	assert.False(t, f.carts.cleared())

	// terminal sessions reject further work
	_, err := f.sut.ConfirmPayment(context.Background(), session.ID)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestCancel_MissingSessionIsNoOp(t *testing.T) {
	f := newFixture()
	assert.NoError(t, f.sut.Cancel(context.Background(), "missing"))
}
