package handlers

import (
	"errors"
	"log/slog"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/dto"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/services"
)

const (
	codeNotFound             = "NOT_FOUND"
	codeAlreadyResolved      = "ALREADY_RESOLVED"
	codeResolutionInProgress = "RESOLUTION_IN_PROGRESS"
	codeInvalidArgument      = "INVALID_ARGUMENT"
	codeActionFailed         = "ACTION_FAILED"
	codeUnauthorized         = "UNAUTHORIZED"
	codeInternal             = "INTERNAL"
)

// writeError maps service errors onto HTTP responses. ALREADY_RESOLVED means
// the client should refresh; ACTION_FAILED means the same request may be
// retried.
func writeError(c *fiber.Ctx, err error) error {
	// Action errors come first: their cause may be a platform not-found.
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		capture(c, err)
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Code: codeUnauthorized, Message: "Moderation service is not allowed to perform this action",
		})
	case errors.Is(err, services.ErrActionFailed):
		capture(c, err)
		var actionErr *services.ActionError
		retryable := errors.As(err, &actionErr) && actionErr.Retryable()
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Code: codeActionFailed, Message: actionFailedMessage(actionErr), Retryable: retryable,
		})
	case errors.Is(err, services.ErrInvalidArgument):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Code: codeInvalidArgument, Message: err.Error(),
		})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Code: codeNotFound, Message: "Report not found",
		})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Code: codeAlreadyResolved, Message: "Report has already been resolved",
		})
	case errors.Is(err, services.ErrResolutionInProgress):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Code: codeResolutionInProgress, Message: "Report is being resolved by another admin",
		})
	default:
		slog.Error("unhandled request error",
			"method", c.Method(),
			"path", c.Path(),
			"error", err.Error(),
		)
		capture(c, err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Code: codeInternal, Message: "Internal server error",
		})
	}
}

func actionFailedMessage(err *services.ActionError) string {
	if err == nil {
		return "Moderation action failed"
	}
	switch err.Kind {
	case services.ActionEntityNotFound:
		return "The reported entity no longer exists; close the report without action"
	case services.ActionTransientFailure:
		return "The platform did not respond; try again"
	case services.ActionUnsupportedEntityType:
		return "This entity type cannot be moderated"
	default:
		return "The platform rejected the moderation action"
	}
}

func capture(c *fiber.Ctx, err error) {
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
}
