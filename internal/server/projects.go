package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"staffline/internal/domain"
	"staffline/internal/engine"
	"staffline/internal/query"
)

type projectOutput struct {
	Body ProjectResponse `json:"body"`
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		Description:   "required_skills are stored as given; they are not checked against the catalog.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*projectOutput, error) {
		p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
			Name:           input.Body.Name,
			StartDate:      input.Body.StartDate,
			EndDate:        input.Body.EndDate,
			RequiredSkills: input.Body.RequiredSkills,
			Status:         input.Body.Status,
			ActorID:        actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: projectResponse(e, p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Description: query.Projects.Describe(),
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ProjectResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListProjects(ctx, query.Projects.Parse(queryParams(ctx)))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ProjectResponse `json:"body"`
		}{Body: mapSlice(items, func(p domain.Project) ProjectResponse { return projectResponse(e, p) })}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*projectOutput, error) {
		p, err := e.Repo.GetProject(ctx, input.ID)
		if err != nil {
			return nil, lookupError(err, "project", input.ID)
		}
		return &projectOutput{Body: projectResponse(e, p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replace-project",
		Method:      http.MethodPut,
		Path:        "/projects/{id}",
		Summary:     "Update project",
		Description: "All fields are required. required_skills are appended through the catalog. DONE is terminal unless force is set.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   int64             `path:"id"`
		Body PutProjectRequest `json:"body"`
	}) (*projectOutput, error) {
		b := input.Body
		p, err := e.UpdateProject(ctx, engine.ProjectUpdateOptions{
			ID:             input.ID,
			Name:           &b.Name,
			StartDate:      &b.StartDate,
			EndDate:        &b.EndDate,
			Status:         &b.Status,
			RequiredSkills: b.RequiredSkills,
			Force:          b.Force,
			ActorID:        actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: projectResponse(e, p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}",
		Summary:     "Partially update project",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   int64               `path:"id"`
		Body PatchProjectRequest `json:"body"`
	}) (*projectOutput, error) {
		b := input.Body
		p, err := e.UpdateProject(ctx, engine.ProjectUpdateOptions{
			ID:             input.ID,
			Name:           b.Name,
			StartDate:      b.StartDate,
			EndDate:        b.EndDate,
			Status:         b.Status,
			RequiredSkills: b.RequiredSkills,
			Force:          b.Force,
			ActorID:        actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: projectResponse(e, p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-project-skills",
		Method:      http.MethodPost,
		Path:        "/projects/{id}/skills",
		Summary:     "Append required skills to project",
		Description: "Items already required are skipped.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   int64               `path:"id"`
		Body AssignSkillsRequest `json:"body"`
	}) (*projectOutput, error) {
		p, err := e.AssignProjectSkills(ctx, input.ID, input.Body.Skills, actorID(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: projectResponse(e, p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-project",
		Method:        http.MethodDelete,
		Path:          "/projects/{id}",
		Summary:       "Delete project and its allocations",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := e.DeleteProject(ctx, input.ID, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
