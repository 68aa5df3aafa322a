package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Pawandasila/Ecom-backend/internal/domain/products"
	"github.com/Pawandasila/Ecom-backend/internal/params"

	"github.com/creasty/defaults"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
	"github.com/shopspring/decimal"
)

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	// page and limit are read by params.ParsePagination
	d.IgnoreUnknownKeys(true)
	return d
}()

// decodeProductFilter applies the defaults and then the query string.
func decodeProductFilter(r *http.Request) (products.ListFilter, error) {
	var f products.ListFilter
	if err := defaults.Set(&f); err != nil {
		return f, err
	}
	if err := queryDecoder.Decode(&f, r.URL.Query()); err != nil {
		return f, err
	}
	return f, nil
}

type ProductListResponse struct {
	Products   []*products.Product `json:"products"`
	Pagination params.Pagination   `json:"pagination"`
}

type ProductPayload struct {
	Name        string             `json:"name" validate:"required,max=200"`
	Description string             `json:"description" validate:"required,max=5000"`
	Category    string             `json:"category" validate:"required,max=100"`
	BasePrice   *decimal.Decimal   `json:"base_price" validate:"required"`
	Discount    decimal.Decimal    `json:"discount"`
	ImageURL    string             `json:"image_url" validate:"omitempty,url"`
	Variants    []products.Variant `json:"variants"`
}

func (p ProductPayload) apply(dst *products.Product) {
	dst.Name = strings.TrimSpace(p.Name)
	dst.Description = p.Description
	dst.Category = strings.TrimSpace(p.Category)
	dst.BasePrice = *p.BasePrice
	dst.Discount = p.Discount
	dst.ImageURL = p.ImageURL
	dst.Variants = p.Variants
}

// listProductsHandler godoc
//
//	@Summary		List products
//	@Description	Filtered, sorted and paginated catalog listing.
//	@Tags			products
//	@Produce		json
//	@Param			category	query		string	false	"Category (substring match)"
//	@Param			minPrice	query		number	false	"Minimum base price"
//	@Param			maxPrice	query		number	false	"Maximum base price"
//	@Param			search		query		string	false	"Matches name or description"
//	@Param			sortBy		query		string	false	"Sort column"	Enums(createdAt,basePrice,name,averageRating,discount)
//	@Param			sortOrder	query		string	false	"Sort direction"	Enums(asc,desc)
//	@Param			page		query		int		false	"Page number (default: 1)"
//	@Param			limit		query		int		false	"Items per page (default: 10, max: 100)"
//	@Success		200			{object}	ProductListResponse
//	@Failure		400			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/products [get]
func (app *application) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	f, err := decodeProductFilter(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	app.listProducts(w, r, f)
}

// listProductsByCategoryHandler godoc
//
//	@Summary		List products in a category
//	@Tags			products
//	@Produce		json
//	@Param			category	path		string	true	"Category (exact, case-insensitive)"
//	@Param			page		query		int		false	"Page number (default: 1)"
//	@Param			limit		query		int		false	"Items per page (default: 10, max: 100)"
//	@Success		200			{object}	ProductListResponse
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/products/category/{category} [get]
func (app *application) listProductsByCategoryHandler(w http.ResponseWriter, r *http.Request) {
	f, err := decodeProductFilter(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	f.Category = chi.URLParam(r, "category")
	f.ExactCategory = true
	app.listProducts(w, r, f)
}

func (app *application) listProducts(w http.ResponseWriter, r *http.Request, f products.ListFilter) {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		app.badRequestResponse(w, r, errors.New("minPrice must not exceed maxPrice"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p := params.ParsePagination(r.URL.Query())
	list, total, err := app.store.Products.List(ctx, f, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, ProductListResponse{Products: list, Pagination: p}); err != nil {
		app.internalServerError(w, r, err)
	}
}

func productIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid product ID")
	}
	return id, nil
}

// getProductHandler godoc
//
//	@Summary		Get product
//	@Tags			products
//	@Produce		json
//	@Param			productID	path		int	true	"Product ID"
//	@Success		200			{object}	products.Product
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/products/{productID} [get]
func (app *application) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := app.store.Products.FindByID(ctx, id)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, p); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createProductHandler godoc
//
//	@Summary		Create product (admin)
//	@Tags			products-admin
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		ProductPayload	true	"Product"
//	@Success		201		{object}	products.Product
//	@Failure		400		{object}	error
//	@Failure		403		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/products [post]
func (app *application) createProductHandler(w http.ResponseWriter, r *http.Request) {
	var payload ProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	var p products.Product
	payload.apply(&p)
	if err := p.Validate(); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := app.store.Products.Create(ctx, &p); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, &p); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateProductHandler godoc
//
//	@Summary		Replace product (admin)
//	@Tags			products-admin
//	@Accept			json
//	@Produce		json
//	@Param			productID	path		int				true	"Product ID"
//	@Param			payload		body		ProductPayload	true	"Product"
//	@Success		200			{object}	products.Product
//	@Failure		400			{object}	error
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/products/{productID} [put]
func (app *application) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload ProductPayload
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

	p, err := app.store.Products.FindByID(ctx, id)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	payload.apply(p)
	if err := p.Validate(); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.store.Products.Update(ctx, p); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, p); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteProductHandler godoc
//
//	@Summary		Delete product (admin)
//	@Description	Removes the product from the catalog. Carts still holding it report it as unavailable; past orders keep their snapshot.
//	@Tags			products-admin
//	@Param			productID	path		int		true	"Product ID"
//	@Success		204			{string}	string	"No Content"
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/products/{productID} [delete]
func (app *application) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := app.store.Products.Delete(ctx, id); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
