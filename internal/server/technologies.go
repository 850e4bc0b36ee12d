package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"staffline/internal/domain"
	"staffline/internal/engine"
	"staffline/internal/query"
)

type idPath struct {
	ID int64 `path:"id"`
}

func registerTechnologies(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-technology",
		Method:        http.MethodPost,
		Path:          "/technologies",
		Summary:       "Add a technology to the catalog",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body TechnologyRequest `json:"body"`
	}) (*struct {
		Body domain.Technology `json:"body"`
	}, error) {
		t, err := e.CreateTechnology(ctx, input.Body.Name, actorID(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Technology `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-technologies",
		Method:      http.MethodGet,
		Path:        "/technologies",
		Summary:     "List technologies",
		Description: query.Technologies.Describe(),
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Technology `json:"body"`
	}, error) {
		items, err := e.Repo.ListTechnologies(ctx, query.Technologies.Parse(queryParams(ctx)))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Technology `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-technology",
		Method:      http.MethodGet,
		Path:        "/technologies/{id}",
		Summary:     "Get technology",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct {
		Body domain.Technology `json:"body"`
	}, error) {
		t, err := e.Repo.GetTechnology(ctx, input.ID)
		if err != nil {
			return nil, lookupError(err, "technology", input.ID)
		}
		return &struct {
			Body domain.Technology `json:"body"`
		}{Body: t}, nil
	})

	rename := func(ctx context.Context, input *struct {
		ID   int64             `path:"id"`
		Body TechnologyRequest `json:"body"`
	}) (*struct {
		Body domain.Technology `json:"body"`
	}, error) {
		t, err := e.RenameTechnology(ctx, input.ID, input.Body.Name, actorID(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Technology `json:"body"`
		}{Body: t}, nil
	}
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		opID := "replace-technology"
		if method == http.MethodPatch {
			opID = "update-technology"
		}
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      method,
			Path:        "/technologies/{id}",
			Summary:     "Rename technology",
			Description: "Rejected with technology_in_use while any programmer or project references the current name.",
			Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
		}, rename)
	}

	huma.Register(api, huma.Operation{
		OperationID:   "delete-technology",
		Method:        http.MethodDelete,
		Path:          "/technologies/{id}",
		Summary:       "Delete technology",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := e.DeleteTechnology(ctx, input.ID, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
