package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"staffline/internal/engine"
	"staffline/internal/query"
)

type allocationOutput struct {
	Body AllocationResponse `json:"body"`
}

var ledgerErrors = []int{
	http.StatusBadRequest,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusUnprocessableEntity,
}

const ledgerRules = "The write is rejected when the programmer shares no skill with the project (skill_mismatch), " +
	"the project requires none (no_required_skills), today is outside the project window (temporal_fence), " +
	"the project would exceed its capacity ceiling (capacity_exceeded) or the pair is already allocated (duplicate_pair)."

func registerAllocations(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-allocation",
		Method:        http.MethodPost,
		Path:          "/allocations",
		Summary:       "Allocate programmer hours to a project",
		Description:   ledgerRules,
		DefaultStatus: http.StatusCreated,
		Errors:        ledgerErrors,
	}, func(ctx context.Context, input *struct {
		Body AllocationRequest `json:"body"`
	}) (*allocationOutput, error) {
		a, err := e.CreateAllocation(ctx, engine.AllocationCreateOptions{
			ProjectID:   input.Body.Project,
			DeveloperID: input.Body.Developer,
			Hours:       input.Body.Hours.Decimal,
			ActorID:     actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &allocationOutput{Body: allocationResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-allocations",
		Method:      http.MethodGet,
		Path:        "/allocations",
		Summary:     "List allocations",
		Description: query.Allocations.Describe(),
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []AllocationResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListAllocations(ctx, query.Allocations.Parse(queryParams(ctx)))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []AllocationResponse `json:"body"`
		}{Body: mapSlice(items, allocationResponse)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-allocation",
		Method:      http.MethodGet,
		Path:        "/allocations/{id}",
		Summary:     "Get allocation",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*allocationOutput, error) {
		a, err := e.Repo.GetAllocation(ctx, input.ID)
		if err != nil {
			return nil, lookupError(err, "allocation", input.ID)
		}
		return &allocationOutput{Body: allocationResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replace-allocation",
		Method:      http.MethodPut,
		Path:        "/allocations/{id}",
		Summary:     "Update allocation",
		Description: "All fields are required. The allocation's own hours do not count against the ceiling. " + ledgerRules,
		Errors:      ledgerErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64             `path:"id"`
		Body AllocationRequest `json:"body"`
	}) (*allocationOutput, error) {
		b := input.Body
		a, err := e.UpdateAllocation(ctx, engine.AllocationUpdateOptions{
			ID:          input.ID,
			ProjectID:   &b.Project,
			DeveloperID: &b.Developer,
			Hours:       &b.Hours.Decimal,
			ActorID:     actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &allocationOutput{Body: allocationResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-allocation",
		Method:      http.MethodPatch,
		Path:        "/allocations/{id}",
		Summary:     "Partially update allocation",
		Description: ledgerRules,
		Errors:      ledgerErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64                  `path:"id"`
		Body PatchAllocationRequest `json:"body"`
	}) (*allocationOutput, error) {
		b := input.Body
		var hours *decimal.Decimal
		if b.Hours != nil {
			hours = &b.Hours.Decimal
		}
		a, err := e.UpdateAllocation(ctx, engine.AllocationUpdateOptions{
			ID:          input.ID,
			ProjectID:   b.Project,
			DeveloperID: b.Developer,
			Hours:       hours,
			ActorID:     actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &allocationOutput{Body: allocationResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-allocation",
		Method:        http.MethodDelete,
		Path:          "/allocations/{id}",
		Summary:       "Delete allocation",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := e.DeleteAllocation(ctx, input.ID, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
