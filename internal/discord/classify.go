package discord

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// Retryable reports whether a failed REST call may succeed on a later attempt.
// Rate limits, server errors and transport failures are retried; other client
// errors are permanent.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var rateLimited *discordgo.RateLimitError
	if errors.As(err, &rateLimited) {
		return true
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Response == nil {
			return true
		}
		status := restErr.Response.StatusCode
		return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	}
	return true
}
