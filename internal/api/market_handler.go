package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/backend"
	"github.com/sakhihub/sakhi/internal/gamification"
	"github.com/sakhihub/sakhi/internal/store"
)

// MarketHandler exposes the marketplace: hub listings cached locally, plus
// locally recorded orders and simulated payments.
type MarketHandler struct {
	db      *store.DB
	backend *backend.Client
	game    *gamification.Service
	logger  *zap.Logger
}

// NewMarketHandler creates the market handler.
func NewMarketHandler(db *store.DB, b *backend.Client, g *gamification.Service, logger *zap.Logger) *MarketHandler {
	return &MarketHandler{db: db, backend: b, game: g, logger: logger.Named("api.market")}
}

// ListProducts prefers the hub and falls back to the local cache offline.
// Own listings are always local-first, so they survive hub outages.
func (h *MarketHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	mineOnly := r.URL.Query().Get("mine") == "true"
	if mineOnly {
		products, err := h.db.ListProducts(true, 100)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "list products: %v", err)
			return
		}
		respondJSON(w, http.StatusOK, products)
		return
	}

	remote, err := h.backend.ListProducts(r.Context())
	if err != nil {
		h.logger.Warn("hub unreachable, serving cached products", zap.Error(err))
		cached, cerr := h.db.ListProducts(false, 100)
		if cerr != nil {
			respondError(w, http.StatusInternalServerError, "list products: %v", cerr)
			return
		}
		respondJSON(w, http.StatusOK, cached)
		return
	}

	for _, p := range remote {
		err := h.db.UpsertProduct(&store.Product{
			ProductID:   p.ID,
			Name:        p.Name,
			Price:       p.Price,
			Category:    p.Category,
			Description: p.Description,
		})
		if err != nil {
			h.logger.Warn("failed to cache product", zap.String("product_id", p.ID), zap.Error(err))
		}
	}
	respondJSON(w, http.StatusOK, remote)
}

// CreateProduct records the listing locally and pushes the creator profile to
// the hub best effort. Listing a product awards points.
func (h *MarketHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string  `json:"name"`
		Price       float64 `json:"price"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Name == "" || req.Price <= 0 {
		respondError(w, http.StatusBadRequest, "name and a positive price are required")
		return
	}

	product := &store.Product{
		ProductID:   uuid.NewString(),
		Name:        req.Name,
		Price:       req.Price,
		Category:    req.Category,
		Description: req.Description,
		Mine:        true,
		CreatedAt:   time.Now().UnixMilli(),
	}
	if err := h.db.UpsertProduct(product); err != nil {
		respondError(w, http.StatusInternalServerError, "store product: %v", err)
		return
	}

	if err := h.backend.CreateProfile(r.Context(), map[string]any{
		"products": []map[string]any{{
			"name":        product.Name,
			"price":       product.Price,
			"category":    product.Category,
			"description": product.Description,
		}},
	}); err != nil {
		h.logger.Warn("hub listing push failed", zap.String("product_id", product.ProductID), zap.Error(err))
	}

	if _, err := h.game.Award(gamification.ActionProductList); err != nil {
		h.logger.Warn("product listing award failed", zap.Error(err))
	}
	respondJSON(w, http.StatusCreated, product)
}

// RecordOrder records a purchase against a known product.
func (h *MarketHandler) RecordOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	product, err := h.db.GetProduct(req.ProductID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "load product: %v", err)
		return
	}
	if product == nil {
		respondError(w, http.StatusNotFound, "unknown product %q", req.ProductID)
		return
	}

	order := &store.Order{
		OrderID:   uuid.NewString(),
		ProductID: product.ProductID,
		Quantity:  req.Quantity,
		Total:     product.Price * float64(req.Quantity),
		Status:    "placed",
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := h.db.RecordOrder(order); err != nil {
		respondError(w, http.StatusInternalServerError, "record order: %v", err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *MarketHandler) ListOrders(w http.ResponseWriter, _ *http.Request) {
	orders, err := h.db.ListOrders()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list orders: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// RecordPayment records a simulated payment for an order.
func (h *MarketHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID string  `json:"order_id"`
		Amount  float64 `json:"amount"`
		Method  string  `json:"method"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Method == "" {
		req.Method = "upi"
	}
	payment := &store.Payment{
		PaymentID: uuid.NewString(),
		OrderID:   req.OrderID,
		Amount:    req.Amount,
		Method:    req.Method,
		Status:    "completed",
	}
	if err := h.db.RecordPayment(payment); err != nil {
		respondError(w, http.StatusInternalServerError, "record payment: %v", err)
		return
	}
	respondJSON(w, http.StatusCreated, payment)
}

func (h *MarketHandler) ListPayments(w http.ResponseWriter, _ *http.Request) {
	payments, err := h.db.ListPayments()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list payments: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, payments)
}

// ViewProduct awards the browse action for a single listing fetch.
func (h *MarketHandler) ViewProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.db.GetProduct(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "load product: %v", err)
		return
	}
	if product == nil {
		respondError(w, http.StatusNotFound, "unknown product")
		return
	}
	if _, err := h.game.Award(gamification.ActionProductView); err != nil {
		h.logger.Warn("product view award failed", zap.Error(err))
	}
	respondJSON(w, http.StatusOK, product)
}
