package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/datavend/backend/internal/domain/bundle"
	domainErrors "github.com/datavend/backend/internal/domain/errors"
	"github.com/datavend/backend/internal/domain/order"
	"github.com/datavend/backend/internal/domain/reseller"
	"github.com/datavend/backend/internal/gateway"
	"github.com/datavend/backend/pkg/saga"
)

// CreateOrderRequest holds the input for placing an order through a
// reseller's storefront.
type CreateOrderRequest struct {
	ReferralCode  string
	BundleID      uuid.UUID
	CustomerPhone string
	Quantity      int
}

// CreateOrderResponse holds the created order, the bundle it was priced
// from, and the checkout handle the customer is redirected to.
type CreateOrderResponse struct {
	Order            *order.Order
	Bundle           *bundle.Bundle
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// CreateOrderUseCase orchestrates order placement: price the bundle, persist
// the order, open a checkout session at the gateway.
type CreateOrderUseCase struct {
	orderRepo    order.Repository
	resellerRepo reseller.Repository
	bundleRepo   bundle.Repository
	gateway      gateway.Gateway
	callbackURL  string
}

// NewCreateOrderUseCase creates a new CreateOrderUseCase.
func NewCreateOrderUseCase(
	orderRepo order.Repository,
	resellerRepo reseller.Repository,
	bundleRepo bundle.Repository,
	gw gateway.Gateway,
	callbackURL string,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		orderRepo:    orderRepo,
		resellerRepo: resellerRepo,
		bundleRepo:   bundleRepo,
		gateway:      gw,
		callbackURL:  callbackURL,
	}
}

// Execute places an order and initializes a gateway transaction whose
// reference is the order number. Settlement happens later, when the gateway
// reports the charge on the webhook; the order returned here is still
// pending.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	// 1. Resolve the storefront. Suspended resellers keep their history but
	// cannot take new orders.
	r, err := uc.resellerRepo.GetByReferralCode(ctx, req.ReferralCode)
	if err != nil {
		return nil, err
	}
	if !r.IsActive() {
		return nil, domainErrors.ErrResellerInactive
	}

	// 2. The bundle must still be on sale.
	b, err := uc.bundleRepo.GetByID(ctx, req.BundleID)
	if err != nil {
		return nil, err
	}
	if !b.Active {
		return nil, domainErrors.ErrBundleUnavailable
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	// 3. Price the order: the customer pays base price plus the reseller
	// margin, per unit.
	qty := int64(req.Quantity)
	amount := b.SellingPrice() * qty
	commission := b.Commission * qty

	o, err := order.NewOrder(r.ID, b.ID, req.CustomerPhone, req.Quantity, amount, commission, b.Currency)
	if err != nil {
		return nil, err
	}

	// 4. Persist the order, then open the checkout session. When the gateway
	// call fails the persisted order is marked failed rather than deleted, so
	// abandoned checkouts stay visible.
	var init *gateway.InitializeResult

	sg := saga.New("create-order").
		AddStep(saga.Step{
			Name: "persist-order",
			Execute: func(ctx context.Context) error {
				return uc.orderRepo.Create(ctx, o)
			},
			Compensate: func(ctx context.Context) error {
				if err := o.MarkPaymentFailed(); err != nil {
					return err
				}
				return uc.orderRepo.Update(ctx, o)
			},
		}).
		AddStep(saga.Step{
			Name: "initialize-checkout",
			Execute: func(ctx context.Context) error {
				res, err := uc.gateway.InitializeTransaction(ctx, gateway.InitializeRequest{
					Reference:   o.OrderNumber,
					Email:       r.Email,
					AmountMinor: o.Amount,
					Currency:    o.Currency,
					CallbackURL: uc.callbackURL,
					Metadata: map[string]any{
						"order_number": o.OrderNumber,
						"bundle":       b.Name,
						"reseller_id":  r.ID.String(),
					},
				})
				if err != nil {
					return err
				}
				init = res
				return nil
			},
		})

	if err := sg.Execute(ctx); err != nil {
		return nil, err
	}

	return &CreateOrderResponse{
		Order:            o,
		Bundle:           b,
		AuthorizationURL: init.AuthorizationURL,
		AccessCode:       init.AccessCode,
		Reference:        init.Reference,
	}, nil
}
