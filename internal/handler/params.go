package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/fleetops/internal/domain"
)

// pathID binds the UUID path parameter name.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s parameter", domain.ErrValidation, name)
	}
	return id, nil
}

// query binds the form-style query parameter name into dest. Optional
// parameters bind into a pointer and stay nil when absent.
func query(r *http.Request, name string, required bool, dest any) error {
	if err := runtime.BindQueryParameter("form", true, required, name, r.URL.Query(), dest); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}
	return nil
}

// pagination reads ?page and ?limit, applying the defaults and the limit cap.
func pagination(r *http.Request) (domain.PaginationParams, error) {
	var page, limit *int
	if err := query(r, "page", false, &page); err != nil {
		return domain.PaginationParams{}, err
	}
	if err := query(r, "limit", false, &limit); err != nil {
		return domain.PaginationParams{}, err
	}
	return domain.NewPaginationParams(page, limit), nil
}

type paginationMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type pageResponse[T any] struct {
	Data       []T            `json:"data"`
	Pagination paginationMeta `json:"pagination"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

func newPageResponse[T any](pg domain.Page[T], p domain.PaginationParams) pageResponse[T] {
	data := pg.Items
	if data == nil {
		data = []T{}
	}
	return pageResponse[T]{
		Data:       data,
		Pagination: paginationMeta{Page: p.Page, Limit: p.Limit, Total: pg.Total},
	}
}

func newListResponse[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Data: items}
}
