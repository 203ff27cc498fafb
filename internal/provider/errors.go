package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/notifyhub/role-manager-bot/internal/domain"
)

// classify wraps a discordgo error with the matching domain sentinel so
// callers can branch on errors.Is(err, domain.ErrNotFound) and friends.
// The original error stays in the chain for logging.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var rateLimited *discordgo.RateLimitError
	if errors.As(err, &rateLimited) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransient, err)
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			switch restErr.Message.Code {
			case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownRole:
				return fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, err)
			case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
				return fmt.Errorf("%s: %w: %w", op, domain.ErrForbidden, err)
			}
		}
		if restErr.Response != nil {
			switch code := restErr.Response.StatusCode; {
			case code == http.StatusNotFound:
				return fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, err)
			case code == http.StatusForbidden || code == http.StatusUnauthorized:
				return fmt.Errorf("%s: %w: %w", op, domain.ErrForbidden, err)
			case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
				return fmt.Errorf("%s: %w: %w", op, domain.ErrTransient, err)
			}
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
