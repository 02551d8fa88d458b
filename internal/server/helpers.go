package server

import (
	"errors"

	"blogapi/internal/models"
	"blogapi/internal/repository"

	"github.com/gofiber/fiber/v2"
)

const (
	// choicesPageSize is the default window for tag listings offered as form choices.
	choicesPageSize = 30
	// allChoicesPageSize returns every sequencing candidate in one page.
	allChoicesPageSize = repository.MaxPageSize
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) repository.Page {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	return repository.Page{
		Limit:  limit,
		Offset: c.QueryInt("offset", 0),
	}.Normalize()
}

// currentUserID returns the authenticated caller, or 0 for anonymous requests.
func currentUserID(c *fiber.Ctx) uint {
	if id, ok := c.Locals("userID").(uint); ok {
		return id
	}
	return 0
}

// errResponseWritten indicates a helper already committed the HTTP response.
// Handlers must return nil (not this error) so the ErrorHandler does not overwrite it.
var errResponseWritten = errors.New("response already written")

// parseBody decodes the JSON body into dest. On failure it writes a 400 JSON response
// and returns errResponseWritten. Callers should check: if err != nil { return nil }
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// respond renders a service result, mapping errors to their HTTP status.
func respond(c *fiber.Ctx, status int, result any, err error) error {
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(status).JSON(result)
}

// messageResponse is the body of endpoints that only report an outcome.
type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func respondMessage(c *fiber.Ctx, message string, err error) error {
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(messageResponse{Success: true, Message: message})
}
