package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appOrder "github.com/datavend/backend/internal/application/order"
	domainErrors "github.com/datavend/backend/internal/domain/errors"
	"github.com/datavend/backend/internal/domain/ledger"
	"github.com/datavend/backend/internal/domain/order"
	"github.com/datavend/backend/internal/infrastructure/observability"
)

// OrderController handles the storefront order endpoints.
type OrderController struct {
	createOrder *appOrder.CreateOrderUseCase
	orderRepo   order.Repository
	ledgerRepo  ledger.Repository
	metrics     *observability.Metrics
}

// NewOrderController creates a new OrderController.
func NewOrderController(
	createOrder *appOrder.CreateOrderUseCase,
	orderRepo order.Repository,
	ledgerRepo ledger.Repository,
	metrics *observability.Metrics,
) *OrderController {
	return &OrderController{
		createOrder: createOrder,
		orderRepo:   orderRepo,
		ledgerRepo:  ledgerRepo,
		metrics:     metrics,
	}
}

// Create handles POST /api/v1/orders?ref={referral_code}
func (h *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	referralCode := r.URL.Query().Get("ref")
	if referralCode == "" {
		writeError(w, domainErrors.NewValidationError("ref", "referral code is required"))
		return
	}

	var req CreateOrderRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	bundleID, err := uuid.Parse(req.BundleID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid bundle_id", Code: "invalid_id"})
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	resp, err := h.createOrder.Execute(r.Context(), appOrder.CreateOrderRequest{
		ReferralCode:  referralCode,
		BundleID:      bundleID,
		CustomerPhone: req.CustomerPhone,
		Quantity:      quantity,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.OrdersCreated.WithLabelValues(string(resp.Bundle.Network), "accepted").Inc()
	}

	writeJSON(w, http.StatusCreated, CheckoutResponse{
		Order:            FromOrder(resp.Order),
		AuthorizationURL: resp.AuthorizationURL,
		AccessCode:       resp.AccessCode,
		Reference:        resp.Reference,
	})
}

// Get handles GET /api/v1/orders/{orderNumber}
func (h *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	o, err := h.orderRepo.GetByOrderNumber(r.Context(), orderNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromOrder(o))
}

// List handles GET /api/v1/orders
func (h *OrderController) List(w http.ResponseWriter, r *http.Request) {
	filter := order.ListFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		status := order.Status(s)
		filter.Status = &status
	}
	if s := r.URL.Query().Get("payment_status"); s != "" {
		status := order.PaymentStatus(s)
		filter.PaymentStatus = &status
	}
	if s := r.URL.Query().Get("reseller_id"); s != "" {
		id, err := uuid.Parse(s)
		if err == nil {
			filter.ResellerID = &id
		}
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	orders, err := h.orderRepo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, FromOrder(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTransactions handles GET /api/v1/orders/{orderNumber}/transactions
func (h *OrderController) GetTransactions(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	// Confirm the order exists so unknown numbers 404 instead of listing
	// nothing.
	if _, err := h.orderRepo.GetByOrderNumber(r.Context(), orderNumber); err != nil {
		writeError(w, err)
		return
	}

	txns, err := h.ledgerRepo.GetByOrderNumber(r.Context(), orderNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		resp = append(resp, FromTransaction(txn))
	}
	writeJSON(w, http.StatusOK, resp)
}
