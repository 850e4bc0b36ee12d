package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"staffline/internal/engine"
	"staffline/internal/query"
)

type programmerOutput struct {
	Body ProgrammerResponse `json:"body"`
}

func registerProgrammers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-programmer",
		Method:        http.MethodPost,
		Path:          "/programmers",
		Summary:       "Create programmer",
		Description:   "Named skills must exist in the technology catalog; nothing is stored when one does not.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body CreateProgrammerRequest `json:"body"`
	}) (*programmerOutput, error) {
		p, err := e.CreateProgrammer(ctx, engine.ProgrammerCreateOptions{
			Name:    input.Body.Name,
			Skills:  input.Body.Skills,
			ActorID: actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &programmerOutput{Body: programmerResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-programmers",
		Method:      http.MethodGet,
		Path:        "/programmers",
		Summary:     "List programmers",
		Description: query.Programmers.Describe(),
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ProgrammerResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListProgrammers(ctx, query.Programmers.Parse(queryParams(ctx)))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ProgrammerResponse `json:"body"`
		}{Body: mapSlice(items, programmerResponse)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-programmer",
		Method:      http.MethodGet,
		Path:        "/programmers/{id}",
		Summary:     "Get programmer",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*programmerOutput, error) {
		p, err := e.Repo.GetProgrammer(ctx, input.ID)
		if err != nil {
			return nil, lookupError(err, "programmer", input.ID)
		}
		return &programmerOutput{Body: programmerResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replace-programmer",
		Method:      http.MethodPut,
		Path:        "/programmers/{id}",
		Summary:     "Update programmer",
		Description: "All fields are required. Skills are appended to the current list.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   int64                `path:"id"`
		Body PutProgrammerRequest `json:"body"`
	}) (*programmerOutput, error) {
		p, err := e.UpdateProgrammer(ctx, engine.ProgrammerUpdateOptions{
			ID:      input.ID,
			Name:    &input.Body.Name,
			Skills:  input.Body.Skills,
			ActorID: actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &programmerOutput{Body: programmerResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-programmer",
		Method:      http.MethodPatch,
		Path:        "/programmers/{id}",
		Summary:     "Partially update programmer",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   int64                  `path:"id"`
		Body PatchProgrammerRequest `json:"body"`
	}) (*programmerOutput, error) {
		p, err := e.UpdateProgrammer(ctx, engine.ProgrammerUpdateOptions{
			ID:      input.ID,
			Name:    input.Body.Name,
			Skills:  input.Body.Skills,
			ActorID: actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &programmerOutput{Body: programmerResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-programmer-skills",
		Method:      http.MethodPost,
		Path:        "/programmers/{id}/skills",
		Summary:     "Append skills to programmer",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   int64               `path:"id"`
		Body AssignSkillsRequest `json:"body"`
	}) (*programmerOutput, error) {
		p, err := e.AssignProgrammerSkills(ctx, input.ID, input.Body.Skills, actorID(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &programmerOutput{Body: programmerResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-programmer",
		Method:        http.MethodDelete,
		Path:          "/programmers/{id}",
		Summary:       "Delete programmer and their allocations",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := e.DeleteProgrammer(ctx, input.ID, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
