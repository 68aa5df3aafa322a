package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Pawandasila/Ecom-backend/internal/domain/errs"
	"github.com/Pawandasila/Ecom-backend/internal/domain/users"
	"github.com/Pawandasila/Ecom-backend/internal/params"

	"github.com/go-chi/chi/v5"
)

type userKey string

const userCtx userKey = "user"

func getUserFromContext(r *http.Request) *users.User {
	user, _ := r.Context().Value(userCtx).(*users.User)
	return user
}

// getProfileHandler godoc
//
//	@Summary		Get profile
//	@Description	Returns the authenticated user.
//	@Tags			users
//	@Produce		json
//	@Success		200	{object}	users.User
//	@Failure		401	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users/profile [get]
func (app *application) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.jsonResponse(w, http.StatusOK, getUserFromContext(r)); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateProfilePayload struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email   *string `json:"email" validate:"omitempty,email,max=255"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}

// updateProfileHandler godoc
//
//	@Summary		Update profile
//	@Description	Updates name, email and address. Omitted fields are left unchanged.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		UpdateProfilePayload	true	"Profile fields"
//	@Success		200		{object}	users.User
//	@Failure		400		{object}	error
//	@Failure		409		{object}	error	"Email already in use"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users/profile [put]
func (app *application) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var payload UpdateProfilePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	// work on a copy so a failed update leaves the context user intact
	user := *getUserFromContext(r)
	if payload.Name != nil {
		user.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.Email != nil {
		user.Email = *payload.Email
	}
	if payload.Address != nil {
		user.Address = *payload.Address
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := app.store.Users.Update(ctx, &user); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, &user); err != nil {
		app.internalServerError(w, r, err)
	}
}

type ChangePasswordPayload struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

// changePasswordHandler godoc
//
//	@Summary		Change password
//	@Description	Replaces the password after checking the current one. Existing refresh tokens are revoked.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		ChangePasswordPayload	true	"Passwords"
//	@Success		204		{string}	string					"No Content"
//	@Failure		400		{object}	error
//	@Failure		401		{object}	error	"Current password is wrong"
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users/change-password [put]
func (app *application) changePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var payload ChangePasswordPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	user := *getUserFromContext(r)
	if err := user.Password.Compare(payload.CurrentPassword); err != nil {
		app.unauthorizedErrorResponse(w, r, err)
		return
	}
	if err := user.Password.Set(payload.NewPassword); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := app.store.Users.UpdatePassword(ctx, &user); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LogoutUser godoc
//
//	@Summary		logout user
//	@Description	logout user which will nullify refresh token
//	@Tags			authentication
//	@Produce		json
//	@Success		204	{string}	string	"No Content"
//	@Failure		500	{object}	error	"Internal server error"
//	@Security		ApiKeyAuth
//	@Router			/users/logout [post]
func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	if err := app.store.Users.DeleteRefreshToken(r.Context(), user.ID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type UserListResponse struct {
	Users      []users.User      `json:"users"`
	Pagination params.Pagination `json:"pagination"`
}

// listUsersHandler godoc
//
//	@Summary		List users (admin)
//	@Tags			users-admin
//	@Produce		json
//	@Param			role	query		string	false	"Filter by role"	Enums(customer,admin)
//	@Param			page	query		int		false	"Page number (default: 1)"
//	@Param			limit	query		int		false	"Items per page (default: 10, max: 100)"
//	@Success		200		{object}	UserListResponse
//	@Failure		400		{object}	error
//	@Failure		403		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users [get]
func (app *application) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	role := users.Role(strings.TrimSpace(q.Get("role")))
	if role != "" && role != users.RoleCustomer && role != users.RoleAdmin {
		app.domainErrorResponse(w, r, errs.InvalidArgument("role must be customer or admin"))
		return
	}

	p := params.ParsePagination(q)
	list, total, err := app.store.Users.List(ctx, role, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	if list == nil {
		list = []users.User{}
	}
	if err := app.jsonResponse(w, http.StatusOK, UserListResponse{Users: list, Pagination: p}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteUserHandler godoc
//
//	@Summary		Delete user (admin)
//	@Description	Deletes a user account. Admins cannot delete themselves.
//	@Tags			users-admin
//	@Param			userID	path		int		true	"User ID"
//	@Success		204		{string}	string	"No Content"
//	@Failure		400		{object}	error
//	@Failure		404		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users/{userID} [delete]
func (app *application) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		app.badRequestResponse(w, r, errors.New("invalid user ID"))
		return
	}

	if userID == getUserFromContext(r).ID {
		app.badRequestResponse(w, r, errors.New("you cannot delete your own account"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := app.store.Users.Delete(ctx, userID); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
