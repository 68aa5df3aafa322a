package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Pawandasila/Ecom-backend/internal/domain/orders"
	"github.com/Pawandasila/Ecom-backend/internal/domain/sales"
	"github.com/Pawandasila/Ecom-backend/internal/params"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const idempotencyHeader = "Idempotency-Key"

type CreateOrderPayload struct {
	ShippingAddress string           `json:"shipping_address" validate:"required,max=500"`
	ShippingCost    *decimal.Decimal `json:"shipping_cost"`
	Notes           string           `json:"notes" validate:"max=1000"`
}

type OrderListResponse struct {
	Orders     []orders.Order    `json:"orders"`
	Pagination params.Pagination `json:"pagination"`
}

func orderIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid order ID")
	}
	return id, nil
}

// createOrderHandler godoc
//
//	@Summary		Place order
//	@Description	Turns the caller's cart into a pending order and empties the cart. Send an Idempotency-Key header to make retries safe: a repeated key returns the first order with 200.
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string				false	"Client generated retry key"
//	@Param			payload			body		CreateOrderPayload	true	"Shipping details"
//	@Success		201				{object}	orders.Order		"Created"
//	@Success		200				{object}	orders.Order		"Replayed"
//	@Failure		400				{object}	error
//	@Failure		409				{object}	error	"Cart is empty or the same key is in flight"
//	@Failure		422				{object}	error	"Cart references deleted products"
//	@Security		ApiKeyAuth
//	@Router			/orders [post]
func (app *application) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateOrderPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	in := sales.CheckoutInput{
		ShippingAddress: payload.ShippingAddress,
		Notes:           payload.Notes,
		IdempotencyKey:  strings.TrimSpace(r.Header.Get(idempotencyHeader)),
	}
	if payload.ShippingCost != nil {
		in.ShippingCost = *payload.ShippingCost
	}
	if len(in.IdempotencyKey) > 128 {
		app.badRequestResponse(w, r, errors.New("idempotency key must be at most 128 characters"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, replayed, err := app.sales.CreateOrder(ctx, getUserFromContext(r).ID, in)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	if err := app.jsonResponse(w, status, o); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listMyOrdersHandler godoc
//
//	@Summary		List my orders
//	@Description	Newest first.
//	@Tags			orders
//	@Produce		json
//	@Param			page	query		int	false	"Page number (default: 1)"
//	@Param			limit	query		int	false	"Items per page (default: 10, max: 100)"
//	@Success		200		{object}	OrderListResponse
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/orders [get]
func (app *application) listMyOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p := params.ParsePagination(r.URL.Query())
	list, total, err := app.sales.ListMyOrders(ctx, getUserFromContext(r).ID, p.Limit, p.Offset)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	p.ComputeMeta(total)

	if list == nil {
		list = []orders.Order{}
	}
	if err := app.jsonResponse(w, http.StatusOK, OrderListResponse{Orders: list, Pagination: p}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getMyOrderHandler godoc
//
//	@Summary		Get my order
//	@Tags			orders
//	@Produce		json
//	@Param			orderID	path		int	true	"Order ID"
//	@Success		200		{object}	orders.Order
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/orders/{orderID} [get]
func (app *application) getMyOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := app.sales.GetMyOrder(ctx, getUserFromContext(r).ID, orderID)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, o); err != nil {
		app.internalServerError(w, r, err)
	}
}

// cancelOrderHandler godoc
//
//	@Summary		Cancel my order
//	@Description	Allowed while the order is pending or processing.
//	@Tags			orders
//	@Produce		json
//	@Param			orderID	path		int	true	"Order ID"
//	@Success		200		{object}	orders.Order
//	@Failure		404		{object}	error
//	@Failure		409		{object}	error	"Order can no longer be cancelled"
//	@Security		ApiKeyAuth
//	@Router			/orders/{orderID}/cancel [patch]
func (app *application) cancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := app.sales.CancelOrder(ctx, getUserFromContext(r).ID, orderID)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, o); err != nil {
		app.internalServerError(w, r, err)
	}
}
