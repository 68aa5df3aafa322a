package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Pawandasila/Ecom-backend/internal/domain/orders"
	"github.com/Pawandasila/Ecom-backend/internal/params"
)

// AdminOrderListResponse is the payload inside your standard envelope { "data": ... }.
type AdminOrderListResponse struct {
	Orders     []orders.Order    `json:"orders"`
	Pagination params.Pagination `json:"pagination"`
	Status     string            `json:"status"` // applied filter (echoed back)
}

// AdminUpdateOrderStatusRequest is PATCH body.
type AdminUpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,orderstatus" example:"shipped"`
}

// adminListOrdersHandler godoc
//
//	@Summary		List orders (admin)
//	@Description	List all orders. Supports optional status filter and pagination.
//	@Tags			orders-admin
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"	Enums(pending,processing,shipped,delivered,cancelled)
//	@Param			page	query		int		false	"Page number (default: 1)"
//	@Param			limit	query		int		false	"Items per page (default: 10, max: 100)"
//	@Success		200		{object}	AdminOrderListResponse
//	@Failure		400		{object}	error	"Bad Request"
//	@Failure		500		{object}	error	"Internal Server Error"
//	@Router			/orders/all [get]
//	@Security		ApiKeyAuth
func (app *application) adminListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	p := params.ParsePagination(r.URL.Query())

	list, total, err := app.sales.ListAllOrders(ctx, orders.Status(status), p.Limit, p.Offset)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	p.ComputeMeta(total)

	if list == nil {
		list = []orders.Order{}
	}
	resp := AdminOrderListResponse{
		Orders:     list,
		Pagination: p,
		Status:     status,
	}
	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// adminUpdateOrderStatusHandler godoc
//
//	@Summary		Update order status (admin)
//	@Description	Moves an order forward through pending, processing, shipped and delivered, or cancels it. Delivered records the delivery time.
//	@Tags			orders-admin
//	@Accept			json
//	@Produce		json
//	@Param			orderID	path		int								true	"Order ID"
//	@Param			payload	body		AdminUpdateOrderStatusRequest	true	"Target status"
//	@Success		200		{object}	orders.Order
//	@Failure		400		{object}	error
//	@Failure		404		{object}	error
//	@Failure		409		{object}	error	"Transition not allowed"
//	@Router			/orders/{orderID}/status [patch]
//	@Security		ApiKeyAuth
func (app *application) adminUpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var req AdminUpdateOrderStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(req); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := app.sales.AdvanceOrder(ctx, orderID, orders.Status(req.Status))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, o); err != nil {
		app.internalServerError(w, r, err)
	}
}
