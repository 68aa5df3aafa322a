package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Pawandasila/Ecom-backend/internal/domain/products"
	"github.com/Pawandasila/Ecom-backend/internal/domain/sales"

	"github.com/go-chi/chi/v5"
)

type AddCartItemPayload struct {
	ProductID       int64              `json:"product_id" validate:"required,gt=0"`
	Quantity        *int               `json:"quantity" validate:"omitnil,min=1,max=1000"`
	SelectedVariant products.Selection `json:"selected_variant"`
}

type UpdateCartItemPayload struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=1000"`
}

func itemIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid cart item ID")
	}
	return id, nil
}

// getCartHandler godoc
//
//	@Summary		Get cart
//	@Description	Returns the caller's cart with freshly computed line prices. Products that no longer exist are listed under unavailable_products.
//	@Tags			cart
//	@Produce		json
//	@Success		200	{object}	sales.CartView
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/cart [get]
func (app *application) getCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, err := app.sales.GetCart(ctx, getUserFromContext(r).ID)
	app.writeCart(w, r, http.StatusOK, view, err)
}

// addCartItemHandler godoc
//
//	@Summary		Add item to cart
//	@Description	Adds a product. The same product with the same variant selection is merged into one line.
//	@Tags			cart
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		AddCartItemPayload	true	"Item (quantity defaults to 1)"
//	@Success		200		{object}	sales.CartView
//	@Failure		400		{object}	error
//	@Failure		404		{object}	error	"Product not found"
//	@Security		ApiKeyAuth
//	@Router			/cart [post]
func (app *application) addCartItemHandler(w http.ResponseWriter, r *http.Request) {
	var payload AddCartItemPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	qty := 1
	if payload.Quantity != nil {
		qty = *payload.Quantity
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, err := app.sales.AddItem(ctx, getUserFromContext(r).ID, sales.AddItemInput{
		ProductID:       payload.ProductID,
		Quantity:        qty,
		SelectedVariant: payload.SelectedVariant,
	})
	app.writeCart(w, r, http.StatusOK, view, err)
}

// updateCartItemHandler godoc
//
//	@Summary		Set item quantity
//	@Tags			cart
//	@Accept			json
//	@Produce		json
//	@Param			itemID	path		int						true	"Cart item ID"
//	@Param			payload	body		UpdateCartItemPayload	true	"New quantity"
//	@Success		200		{object}	sales.CartView
//	@Failure		400		{object}	error
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/cart/{itemID} [put]
func (app *application) updateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	itemID, err := itemIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload UpdateCartItemPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, err := app.sales.UpdateItem(ctx, getUserFromContext(r).ID, itemID, payload.Quantity)
	app.writeCart(w, r, http.StatusOK, view, err)
}

// removeCartItemHandler godoc
//
//	@Summary		Remove item from cart
//	@Tags			cart
//	@Produce		json
//	@Param			itemID	path		int	true	"Cart item ID"
//	@Success		200		{object}	sales.CartView
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/cart/{itemID} [delete]
func (app *application) removeCartItemHandler(w http.ResponseWriter, r *http.Request) {
	itemID, err := itemIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, err := app.sales.RemoveItem(ctx, getUserFromContext(r).ID, itemID)
	app.writeCart(w, r, http.StatusOK, view, err)
}

// clearCartHandler godoc
//
//	@Summary		Clear cart
//	@Tags			cart
//	@Produce		json
//	@Success		200	{object}	sales.CartView
//	@Security		ApiKeyAuth
//	@Router			/cart [delete]
func (app *application) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, err := app.sales.ClearCart(ctx, getUserFromContext(r).ID)
	app.writeCart(w, r, http.StatusOK, view, err)
}

func (app *application) writeCart(w http.ResponseWriter, r *http.Request, status int, view *sales.CartView, err error) {
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	if err := app.jsonResponse(w, status, view); err != nil {
		app.internalServerError(w, r, err)
	}
}
