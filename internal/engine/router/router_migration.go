package router

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/rosterbridge/rosterbridge/internal/engine/logic"
	"github.com/rosterbridge/rosterbridge/internal/engine/repo"
	"github.com/rosterbridge/rosterbridge/pkg/http"
	"github.com/rosterbridge/rosterbridge/pkg/log"
)

const authenticatedUserHeader = "X-Authenticated-Userid"

func (rt *Router) migrationRouter(r fiber.Router) {
	userGroup := r.Group("/user")
	{
		userGroup.Post("/migrate", rt.migrateUsers) // POST /user/migrate - stage a migration table
	}
	batchGroup := r.Group("/batch")
	{
		batchGroup.Get("/:processId", rt.getBatch) // GET /batch/:processId - batch status
	}
}

// migrateUsers accepts a migration spreadsheet, either as a multipart file
// under the "file" field or as the raw request body, and stages it for the
// next reconciliation pass. The response carries the generated process id.
func (rt *Router) migrateUsers(c *fiber.Ctx) error {
	createdBy := c.Get(authenticatedUserHeader)
	if createdBy == "" {
		createdBy = c.FormValue("createdBy")
	}
	if createdBy == "" {
		return http.WithRepErrMsg(c, http.CreatedByIsRequired.Code, http.CreatedByIsRequired.Msg, c.Path())
	}

	payload, err := rt.readPayload(c)
	if err != nil {
		return http.WithRepErrMsg(c, http.RequestParameterParsingFailed.Code, err.Error(), c.Path())
	}
	if len(payload) == 0 {
		return http.WithRepErrMsg(c, http.FileIsRequired.Code, http.FileIsRequired.Msg, c.Path())
	}

	processId, err := rt.Upload.Upload(c.UserContext(), payload, createdBy)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return http.WithRepErrMsg(c, http.UploaderNotExist.Code, http.UploaderNotExist.Msg, c.Path())
		case errors.Is(err, logic.ErrEmptyPayload), errors.Is(err, logic.ErrMalformedPayload):
			return http.WithRepErrMsg(c, http.EmptyMigrationData.Code, err.Error(), c.Path())
		default:
			log.Errorw("failed to stage migration batch", "createdBy", createdBy, "error", err)
			return http.WithRepErrMsg(c, http.InternalError.Code, http.InternalError.Msg, c.Path())
		}
	}

	return http.WithRepJSON(c, fiber.Map{"processId": processId})
}

// getBatch returns the staging record for one process id.
func (rt *Router) getBatch(c *fiber.Ctx) error {
	processId := c.Params("processId")
	if processId == "" {
		return http.WithRepErrMsg(c, http.BadRequest.Code, "process id is required", c.Path())
	}

	batch, err := rt.Upload.GetBatch(c.UserContext(), processId)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return http.WithRepErrMsg(c, http.NotFound.Code, http.NotFound.Msg, c.Path())
		}
		log.Errorw("failed to load batch", "processId", processId, "error", err)
		return http.WithRepErrMsg(c, http.InternalError.Code, http.InternalError.Msg, c.Path())
	}

	return http.WithRepJSON(c, fiber.Map{
		"processId":     batch.ProcessId,
		"status":        batch.Status,
		"rowCount":      batch.RowCount,
		"retryBudget":   batch.RetryBudget,
		"createdBy":     batch.CreatedBy,
		"createdOn":     batch.CreatedOn,
		"lastUpdatedOn": batch.LastUpdatedOn,
	})
}

func (rt *Router) readPayload(c *fiber.Ctx) ([]byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		// no multipart file; fall back to the raw body
		return c.Body(), nil
	}
	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
