package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	orderCartConstraint    = "orders_cart_id_key"
	orderSessionConstraint = "orders_checkout_session_id_key"
)

// Service assembles orders from carts and flips their payment and delivery flags.
type Service interface {
	CreateCashOrder(ctx context.Context, userID, cartID uuid.UUID, address types.ShippingAddress) (*models.Order, error)
	CreateCardOrder(ctx context.Context, input CardOrderInput) (*models.Order, bool, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, orderID, userID uuid.UUID, role enums.UserRole) (*models.Order, error)
}

// CardOrderInput is the completed checkout session the webhook hands over.
type CardOrderInput struct {
	CartID          uuid.UUID
	SessionID       string
	CustomerEmail   string
	AmountTotal     int64
	ShippingAddress types.ShippingAddress
}

// ListParams scopes order listing to the caller.
type ListParams struct {
	UserID uuid.UUID
	Role   enums.UserRole
	Page   pagination.Params
}

// ListResult is one page of orders.
type ListResult struct {
	Orders     []models.Order
	NextCursor string
}

// ServiceParams wires the order assembler.
type ServiceParams struct {
	Repository Repository
	Carts      cart.CartRepository
	Inventory  InventoryAdjuster
	Users      UserDirectory
	Tx         txRunner
	Outbox     outboxPublisher
	Charges    pricing.Charges
	Metrics    orderMetrics
	Logger     *logger.Logger
}

type service struct {
	repo      Repository
	carts     cart.CartRepository
	inventory InventoryAdjuster
	users     UserDirectory
	tx        txRunner
	outbox    outboxPublisher
	charges   pricing.Charges
	metrics   orderMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the order assembler.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory adjuster required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      params.Repository,
		carts:     params.Carts,
		inventory: params.Inventory,
		users:     params.Users,
		tx:        params.Tx,
		outbox:    params.Outbox,
		charges:   params.Charges,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreateCashOrder(ctx context.Context, userID, cartID uuid.UUID, address types.ShippingAddress) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	address = address.Normalize()

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRow, err := s.carts.WithTx(tx).FindByIDForUpdate(ctx, cartID)
		if err != nil {
			return mapCartError(err)
		}
		if cartRow.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}

		quote := pricing.QuoteCart(cartRow, s.charges)
		if quote.Subtotal.IsZero() {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no priced items")
		}

		order := buildOrder(cartRow, address, quote, s.charges)
		order.PaymentMethod = enums.PaymentMethodCash
		order.IsPaid = false

		if err := s.assemble(ctx, tx, cartRow, order); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, orderCartConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already exists for cart")
		}
		return nil, err
	}
	s.logCreated(ctx, created)
	return created, nil
}

func (s *service) CreateCardOrder(ctx context.Context, input CardOrderInput) (*models.Order, bool, error) {
	if input.CartID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "client reference id is required")
	}
	sessionID := strings.TrimSpace(input.SessionID)

	existing, err := s.findExisting(ctx, input.CartID, sessionID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return s.settleExisting(ctx, existing, sessionID)
	}

	customerID, err := s.resolveCustomer(ctx, input.CustomerEmail)
	if err != nil {
		return nil, false, err
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRow, err := s.carts.WithTx(tx).FindByIDForUpdate(ctx, input.CartID)
		if err != nil {
			return mapCartError(err)
		}
		userID := customerID
		if userID == uuid.Nil {
			userID = cartRow.UserID
		}

		quote := pricing.QuoteCart(cartRow, s.charges)
		if len(cartRow.Items) == 0 || (quote.Subtotal.IsZero() && input.AmountTotal <= 0) {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no priced items")
		}

		order := buildOrder(cartRow, input.ShippingAddress.Normalize(), quote, s.charges)
		order.UserID = userID
		order.PaymentMethod = enums.PaymentMethodCard
		order.IsPaid = true
		paidAt := s.now()
		order.PaidAt = &paidAt
		if input.AmountTotal > 0 {
			order.TotalOrderPrice = pricing.FromMinorUnits(input.AmountTotal)
		}
		if sessionID != "" {
			order.CheckoutSessionID = &sessionID
		}

		if err := s.assemble(ctx, tx, cartRow, order); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, orderCartConstraint) || db.IsUniqueViolation(err, orderSessionConstraint) {
			existing, findErr := s.findExisting(ctx, input.CartID, sessionID)
			if findErr != nil {
				return nil, false, findErr
			}
			if existing != nil {
				return s.settleExisting(ctx, existing, sessionID)
			}
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already exists for cart")
		}
		return nil, false, err
	}
	s.logCreated(ctx, created)
	return created, true, nil
}

// settleExisting reconciles a completed checkout with the order its cart already became.
// A replay of the same session returns the order untouched. An unpaid order takes the card
// payment. Any other case is a payment no order accounts for and fails with Conflict.
func (s *service) settleExisting(ctx context.Context, existing *models.Order, sessionID string) (*models.Order, bool, error) {
	if existing.PaymentMethod == enums.PaymentMethodCard && sameSession(existing.CheckoutSessionID, sessionID) {
		return existing, false, nil
	}
	if existing.IsPaid {
		return nil, false, s.orphanedPayment(ctx, existing.ID, sessionID)
	}

	order, err := s.transition(ctx, existing.ID, func(tx *gorm.DB, repo Repository, at time.Time) error {
		changed, err := repo.SettleByCard(ctx, existing.ID, sessionID, at)
		switch {
		case err != nil && db.IsUniqueViolation(err, orderSessionConstraint):
			return s.orphanedPayment(ctx, existing.ID, sessionID)
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle order by card")
		case !changed:
			return s.orphanedPayment(ctx, existing.ID, sessionID)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   existing.ID,
			Data: payloads.OrderPaidEvent{
				OrderID:         existing.ID,
				UserID:          existing.UserID,
				PaymentMethod:   enums.PaymentMethodCard,
				TotalOrderPrice: existing.TotalOrderPrice.StringFixed(2),
				PaidAt:          at,
			},
		})
	})
	if err != nil {
		return nil, false, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id":   order.ID.String(),
			"session_id": sessionID,
		}), "unpaid order settled by checkout session")
	}
	return order, false, nil
}

func (s *service) orphanedPayment(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	err := pkgerrors.New(pkgerrors.CodeConflict, "checkout session paid for an already settled order").
		WithDetails(map[string]any{"orderId": orderID.String(), "sessionId": sessionID})
	if s.logg != nil {
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"order_id":   orderID.String(),
			"session_id": sessionID,
		}), "card payment not attached to any order", err)
	}
	return err
}

func sameSession(recorded *string, sessionID string) bool {
	if sessionID == "" {
		return true
	}
	return recorded != nil && *recorded == sessionID
}

func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, orderID, func(tx *gorm.DB, repo Repository, at time.Time) error {
		changed, err := repo.MarkPaid(ctx, orderID, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if !changed {
			return nil
		}
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return mapOrderError(err)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPaidEvent{
				OrderID:         order.ID,
				UserID:          order.UserID,
				PaymentMethod:   order.PaymentMethod,
				TotalOrderPrice: order.TotalOrderPrice.StringFixed(2),
				PaidAt:          at,
			},
		})
	})
}

func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, orderID, func(tx *gorm.DB, repo Repository, at time.Time) error {
		changed, err := repo.MarkDelivered(ctx, orderID, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order delivered")
		}
		if !changed {
			return nil
		}
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return mapOrderError(err)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderDeliveredEvent{
				OrderID:     order.ID,
				UserID:      order.UserID,
				DeliveredAt: at,
			},
		})
	})
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	var scope *uuid.UUID
	if !params.Role.IsStaff() {
		if params.UserID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
		}
		scope = &params.UserID
	}

	after, err := params.Page.After()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	size := params.Page.Size()
	rows, err := s.repo.List(ctx, scope, size+1, after)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	page, next := pagination.Cut(rows, size, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &ListResult{Orders: page, NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, orderID, userID uuid.UUID, role enums.UserRole) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err)
	}
	if !role.IsStaff() && order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// assemble persists the order, adjusts inventory, drops the cart and queues order_created, in that order.
func (s *service) assemble(ctx context.Context, tx *gorm.DB, cartRow *models.Cart, order *models.Order) error {
	if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
		if db.IsUniqueViolation(err, orderCartConstraint) || db.IsUniqueViolation(err, orderSessionConstraint) {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	if err := s.inventory.AdjustInventoryTx(ctx, tx, adjustmentsFor(order.Items)); err != nil {
		var missing *products.MissingProductError
		if errors.As(err, &missing) {
			return pkgerrors.Wrap(pkgerrors.CodeInventoryAdjustment, err, "inventory adjustment failed").
				WithDetails(map[string]any{"productId": missing.ProductID.String()})
		}
		return pkgerrors.Wrap(pkgerrors.CodeInventoryAdjustment, err, "inventory adjustment failed")
	}

	if err := s.carts.WithTx(tx).Delete(ctx, cartRow.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
	}

	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: order.UserID, Role: string(enums.UserRoleUser)},
		Data:          createdPayload(order),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order event")
	}
	return nil
}

func (s *service) transition(ctx context.Context, orderID uuid.UUID, fn func(tx *gorm.DB, repo Repository, at time.Time) error) (*models.Order, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, orderID); err != nil {
			return mapOrderError(err)
		}
		if err := fn(tx, repo, s.now()); err != nil {
			return err
		}
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return mapOrderError(err)
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) findExisting(ctx context.Context, cartID uuid.UUID, sessionID string) (*models.Order, error) {
	order, err := s.repo.FindByCartID(ctx, cartID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by cart")
	}
	if sessionID == "" {
		return nil, nil
	}
	order, err = s.repo.FindByCheckoutSessionID(ctx, sessionID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by session")
	}
	return nil, nil
}

// resolveCustomer maps the session email to a user; uuid.Nil means the cart owner is used.
func (s *service) resolveCustomer(ctx context.Context, email string) (uuid.UUID, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return uuid.Nil, nil
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found").
				WithDetails(map[string]any{"email": email})
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return user.ID, nil
}

func (s *service) logCreated(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	if s.metrics != nil {
		s.metrics.IncOrderCreated(order.PaymentMethod.String())
	}
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":       order.ID.String(),
		"user_id":        order.UserID.String(),
		"payment_method": order.PaymentMethod.String(),
		"total":          order.TotalOrderPrice.StringFixed(2),
	})
	s.logg.Info(logCtx, "order created")
}

func buildOrder(cartRow *models.Cart, address types.ShippingAddress, quote pricing.Quote, charges pricing.Charges) *models.Order {
	cartID := cartRow.ID
	order := &models.Order{
		UserID:          cartRow.UserID,
		CartID:          &cartID,
		ShippingPrice:   charges.Shipping,
		TaxPrice:        charges.Tax,
		TotalOrderPrice: quote.Total,
		ShippingAddress: address,
		Items:           make([]models.OrderItem, 0, len(cartRow.Items)),
	}
	for i, item := range cartRow.Items {
		order.Items = append(order.Items, models.OrderItem{
			Position:  i,
			ProductID: item.ProductID,
			Color:     item.Color,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return order
}

func adjustmentsFor(items []models.OrderItem) []products.InventoryAdjustment {
	totals := make(map[uuid.UUID]int, len(items))
	order := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, seen := totals[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		totals[item.ProductID] += item.Quantity
	}
	out := make([]products.InventoryAdjustment, 0, len(order))
	for _, id := range order {
		out = append(out, products.InventoryAdjustment{ProductID: id, Quantity: totals[id]})
	}
	return out
}

func createdPayload(order *models.Order) payloads.OrderCreatedEvent {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID: item.ProductID,
			Color:     item.Color,
			Quantity:  item.Quantity,
			Price:     item.Price.StringFixed(2),
		})
	}
	return payloads.OrderCreatedEvent{
		OrderID:         order.ID,
		UserID:          order.UserID,
		CartID:          order.CartID,
		PaymentMethod:   order.PaymentMethod,
		IsPaid:          order.IsPaid,
		TotalOrderPrice: order.TotalOrderPrice.StringFixed(2),
		Items:           lines,
		CreatedAt:       order.CreatedAt,
	}
}

func mapCartError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
}

func mapOrderError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
