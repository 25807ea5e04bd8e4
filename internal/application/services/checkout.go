package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
)

// CheckoutService runs a buyer's card checkout end to end: validation,
// tokenization, then either a direct charge or a stored customer whose
// charge is deferred to the capture listener.
type CheckoutService struct {
	settings   application.SettingsStore
	processors application.ProcessorProvider
	orders     application.OrderStore
	tokenizer  *TokenizeService
	customers  *CustomerService
	lifecycle  application.LifecyclePublisher
	events     application.PaymentEventPublisher
	cart       application.CartStore
	policy     ChargePolicy
	clock      Clock
	logger     *slog.Logger
}

type CheckoutOption func(*CheckoutService)

func WithChargePolicy(policy ChargePolicy) CheckoutOption {
	return func(s *CheckoutService) {
		s.policy = policy
	}
}

func WithCheckoutClock(clock Clock) CheckoutOption {
	return func(s *CheckoutService) {
		s.clock = clock
	}
}

func NewCheckoutService(
	settings application.SettingsStore,
	processors application.ProcessorProvider,
	orders application.OrderStore,
	tokenizer *TokenizeService,
	customers *CustomerService,
	lifecycle application.LifecyclePublisher,
	events application.PaymentEventPublisher,
	cart application.CartStore,
	logger *slog.Logger,
	opts ...CheckoutOption,
) *CheckoutService {
	s := &CheckoutService{
		settings:   settings,
		processors: processors,
		orders:     orders,
		tokenizer:  tokenizer,
		customers:  customers,
		lifecycle:  lifecycle,
		events:     events,
		cart:       cart,
		policy:     ChargeImmediately,
		clock:      systemClock,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CheckoutService) Checkout(ctx context.Context, cmd CheckoutCommand) (*CheckoutResult, error) {
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return nil, application.NewInternalError(fmt.Errorf("load payment configuration: %w", err))
	}

	order, err := s.registerOrder(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if order.IsPaid() {
		return nil, domain.NewOrderAlreadyPaidError(order.ID)
	}

	if err := cmd.Card.Validate(); err != nil {
		return nil, s.fail(ctx, order, err)
	}

	brand := cmd.Card.Brand()
	if !cfg.Accepts(brand) {
		return nil, s.fail(ctx, order, domain.NewUnsupportedCardBrandError(brand))
	}

	processor := s.processors.ForConfig(cfg)

	token, err := s.tokenizer.Tokenize(ctx, processor, cmd.Card, order.Billing)
	if err != nil {
		return nil, s.fail(ctx, order, err)
	}

	var result *CheckoutResult
	if cfg.CustomerModeEnabled && cmd.UserID != "" {
		result, err = s.checkoutWithCustomer(ctx, cfg, processor, order, cmd.UserID, token)
	} else {
		result, err = s.checkoutDirect(ctx, cfg, processor, order, token)
	}
	if err != nil {
		return nil, s.fail(ctx, order, err)
	}

	if cmd.SessionID != "" {
		if err := s.cart.Clear(ctx, cmd.SessionID); err != nil {
			s.logger.Warn("failed to clear cart after checkout",
				"order_id", order.ID,
				"session_id", cmd.SessionID,
				"error", err,
			)
		}
	}

	result.Status = ResultSuccess
	result.OrderID = order.ID
	result.RedirectURL = cfg.ReturnURL(order)
	return result, nil
}

func (s *CheckoutService) registerOrder(ctx context.Context, cmd CheckoutCommand) (*domain.Order, error) {
	snap := cmd.Order
	order, err := domain.NewOrder(snap.ID, snap.Number, cmd.UserID, snap.Currency, snap.Total)
	if err != nil {
		if domain.ErrorCode(err) != "" {
			return nil, err
		}
		return nil, application.NewInvalidInputError(err)
	}
	order.TotalTax = snap.TotalTax
	order.TotalShipping = snap.TotalShipping
	order.Billing = snap.Billing
	order.Shipping = snap.Shipping

	stored, err := s.orders.Register(ctx, order)
	if err != nil {
		return nil, application.NewInternalError(fmt.Errorf("register order %s: %w", order.ID, err))
	}
	return stored, nil
}

func (s *CheckoutService) checkoutWithCustomer(
	ctx context.Context,
	cfg domain.PaymentConfiguration,
	processor application.Processor,
	order *domain.Order,
	userID string,
	token *domain.Token,
) (*CheckoutResult, error) {
	customerID, err := s.customers.EnsureCustomer(ctx, processor, userID, token, order.Billing)
	if err != nil {
		return nil, err
	}

	next := domain.OrderOnHold
	if s.policy(ctx, order) {
		next = domain.OrderProcessing
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, next, customerID); err != nil {
		return nil, application.NewInternalError(fmt.Errorf("update order %s status: %w", order.ID, err))
	}

	s.addNote(ctx, order.ID, fmt.Sprintf("Card ending %s saved to processor customer %s; order set to %s.",
		token.Last4, customerID, next))

	if next == domain.OrderProcessing {
		s.announceStatus(ctx, order, next)
	}

	s.publish(ctx, domain.PaymentEvent{
		Type:       domain.EventCustomerDeferred,
		OrderID:    order.ID,
		Reference:  customerID,
		Currency:   cfg.SettlementCurrency,
		OccurredAt: s.clock(),
	})

	return &CheckoutResult{Mode: ModeCustomer, Reference: customerID}, nil
}

func (s *CheckoutService) checkoutDirect(
	ctx context.Context,
	cfg domain.PaymentConfiguration,
	processor application.Processor,
	order *domain.Order,
	token *domain.Token,
) (*CheckoutResult, error) {
	amount, err := domain.ToMinorUnits(order.Total, cfg.SettlementCurrency)
	if err != nil {
		return nil, err
	}

	if err := claimCharge(ctx, s.orders, order.ID); err != nil {
		return nil, err
	}

	ctx = submitted(ctx)
	charge, err := processor.CreateCharge(ctx, application.ChargeRequest{
		AmountMinor:         amount,
		Currency:            cfg.SettlementCurrency,
		Source:              token.ID,
		Capture:             !cfg.AuthorizeOnly,
		Description:         chargeDescription(cfg, order),
		ReceiptEmail:        order.Billing.Email,
		StatementDescriptor: statementDescriptor(order),
		Metadata:            chargeMetadata(order),
		Shipping:            chargeShipping(order),
		IdempotencyKey:      chargeIdempotencyKey(order.ID),
	})
	if err == nil && !charge.Paid {
		err = domain.NewChargeError(unpaidChargeMessage(charge), nil)
	}
	if err != nil {
		err = classifyProcessorFailure(err, domain.NewChargeError)
		if outcomeUnknown(err) {
			s.holdClaim(ctx, order.ID, err)
		} else {
			s.releaseClaim(ctx, order.ID)
		}
		return nil, err
	}

	if err := s.orders.CompleteCharge(ctx, &domain.Charge{
		ID:          charge.ID,
		OrderID:     order.ID,
		AmountMinor: charge.AmountMinor,
		Currency:    charge.Currency,
		Captured:    charge.Captured,
		Paid:        charge.Paid,
		CreatedAt:   charge.CreatedAt,
	}); err != nil {
		// The claim stays in place so no second charge can be taken for this order.
		s.logger.Error("UNRECORDED_CHARGE_RISK",
			"order_id", order.ID,
			"charge_id", charge.ID,
			"error", err,
		)
		return nil, application.NewInternalError(fmt.Errorf("record charge %s: %w", charge.ID, err))
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, domain.OrderProcessing, charge.ID); err != nil {
		s.logger.Error("charge recorded but order status not updated",
			"order_id", order.ID,
			"charge_id", charge.ID,
			"error", err,
		)
	}

	s.addNote(ctx, order.ID, chargeNote(charge, s.clock()))
	s.announceStatus(ctx, order, domain.OrderProcessing)
	s.publish(ctx, domain.PaymentEvent{
		Type:        domain.EventChargeSucceeded,
		OrderID:     order.ID,
		Reference:   charge.ID,
		AmountMinor: charge.AmountMinor,
		Currency:    charge.Currency,
		OccurredAt:  s.clock(),
	})

	return &CheckoutResult{Mode: ModeDirect, Reference: charge.ID}, nil
}

// fail records the failure on the order's audit trail and returns err unchanged.
// The order's status and paid marker are left as they were.
func (s *CheckoutService) fail(ctx context.Context, order *domain.Order, err error) error {
	ctx = submitted(ctx)
	s.addNote(ctx, order.ID, "Payment failed: "+failureMessage(err))
	s.publish(ctx, domain.PaymentEvent{
		Type:       domain.EventChargeFailed,
		OrderID:    order.ID,
		Message:    failureMessage(err),
		OccurredAt: s.clock(),
	})
	return err
}

func (s *CheckoutService) addNote(ctx context.Context, orderID, message string) {
	if err := s.orders.AddNote(ctx, orderID, message); err != nil {
		s.logger.Error("failed to add order note", "order_id", orderID, "error", err)
	}
}

func (s *CheckoutService) releaseClaim(ctx context.Context, orderID string) {
	if err := s.orders.ReleaseChargeClaim(ctx, orderID); err != nil {
		s.logger.Error("failed to release charge claim", "order_id", orderID, "error", err)
	}
}

// holdClaim keeps the order claimed after a charge whose outcome is unknown,
// so no second charge is attempted until the payment is reconciled.
func (s *CheckoutService) holdClaim(ctx context.Context, orderID string, err error) {
	s.logger.Error("CHARGE_OUTCOME_UNKNOWN",
		"order_id", orderID,
		"idempotency_key", chargeIdempotencyKey(orderID),
		"error", err,
	)
	s.addNote(ctx, orderID, "Charge outcome unknown; the order stays locked until the payment is reconciled.")
}

// announceStatus publishes the transition. A lost event leaves a customer-mode
// order in processing without a charge; it can be re-sent through the status endpoint.
func (s *CheckoutService) announceStatus(ctx context.Context, order *domain.Order, to domain.OrderStatus) {
	err := s.lifecycle.PublishStatusChange(ctx, domain.OrderStatusChanged{
		OrderID:    order.ID,
		FromStatus: order.Status,
		ToStatus:   to,
		OccurredAt: s.clock(),
	})
	if err != nil {
		s.logger.Error("DEFERRED_CAPTURE_NOT_SCHEDULED",
			"order_id", order.ID,
			"status", to,
			"error", err,
		)
		s.addNote(ctx, order.ID, "Status change to "+string(to)+" could not be announced: "+err.Error())
	}
}

func (s *CheckoutService) publish(ctx context.Context, event domain.PaymentEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish payment event",
			"type", event.Type,
			"order_id", event.OrderID,
			"error", err,
		)
	}
}

// claimCharge takes the order's charge guard or explains why it could not.
func claimCharge(ctx context.Context, orders application.OrderStore, orderID string) error {
	claimed, err := orders.ClaimCharge(ctx, orderID)
	if err != nil {
		return application.NewInternalError(fmt.Errorf("claim charge for order %s: %w", orderID, err))
	}
	if claimed {
		return nil
	}

	current, err := orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if current.IsPaid() {
		return domain.NewOrderAlreadyPaidError(orderID)
	}
	return domain.NewChargeInProgressError(orderID)
}

func unpaidChargeMessage(charge *application.ProcessorCharge) string {
	if charge.FailureMsg != "" {
		return charge.FailureMsg
	}
	return fmt.Sprintf("charge %s was not paid (status %s)", charge.ID, charge.Status)
}

func chargeNote(charge *application.ProcessorCharge, at time.Time) string {
	verb := "completed"
	if !charge.Captured {
		verb = "authorized"
	}
	return fmt.Sprintf("Payment %s at %s with charge ID %s", verb, at.Format(noteTimeLayout), charge.ID)
}
