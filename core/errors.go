package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	WebhookErrorBadInput         = "WEBHOOK_BAD_INPUT"
	WebhookErrorEndpointNotFound = "WEBHOOK_ENDPOINT_NOT_FOUND"
	WebhookErrorEventNotFound    = "WEBHOOK_EVENT_NOT_FOUND"
	WebhookErrorEndpointDisabled = "WEBHOOK_ENDPOINT_DISABLED"
	WebhookErrorConflict         = "WEBHOOK_CONFLICT"
	WebhookErrorInternal         = "WEBHOOK_INTERNAL_ERROR"
)

func webhookErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureWebhookErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "endpoint not found"):
		return newWebhookError(err.Error(), goerrors.CategoryNotFound, WebhookErrorEndpointNotFound)
	case strings.Contains(msg, "event not found"):
		return newWebhookError(err.Error(), goerrors.CategoryNotFound, WebhookErrorEventNotFound)
	case strings.Contains(msg, "endpoint is disabled"):
		return newWebhookError(err.Error(), goerrors.CategoryConflict, WebhookErrorEndpointDisabled)
	case strings.Contains(msg, "invariant violated"):
		return newWebhookError(err.Error(), goerrors.CategoryConflict, WebhookErrorConflict)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "must be"):
		return newWebhookError(err.Error(), goerrors.CategoryBadInput, WebhookErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureWebhookErrorEnvelope(mapped)
}

func newWebhookError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureWebhookErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureWebhookErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = webhookHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultWebhookTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultWebhookTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return WebhookErrorBadInput
	case goerrors.CategoryNotFound:
		return WebhookErrorEventNotFound
	case goerrors.CategoryConflict:
		return WebhookErrorConflict
	default:
		return WebhookErrorInternal
	}
}

func webhookHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
