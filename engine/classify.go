package engine

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/zero-day-ai/aitool/adapter"
	"github.com/zero-day-ai/aitool/descriptor"
)

// rateLimitMarkers are message fragments that indicate an upstream rate
// limit when no explicit status code is available.
var rateLimitMarkers = []string{
	"rate limit",
	"rate-limit",
	"too many requests",
	"quota exceeded",
	"429",
}

// Classify maps a raised failure onto the fixed error taxonomy. The
// mapping is total: an unclassifiable failure degrades to unknown,
// never to a meta-error.
//
// Precedence: an explicit adapter-reported category wins; then status
// code and message markers for rate limits; then context deadline
// errors as timeouts; everything else is unknown. Schema violations
// never reach Classify - the engine maps those directly to
// invalid_input / invalid_output at the validation site.
func Classify(err error) descriptor.ErrorType {
	if err == nil {
		return descriptor.ErrorUnknown
	}

	var adapterErr *adapter.Error
	if errors.As(err, &adapterErr) {
		switch adapterErr.Category {
		case adapter.CategoryTimeout:
			return descriptor.ErrorTimeout
		case adapter.CategoryTransport:
			return descriptor.ErrorTransport
		}
		if adapterErr.StatusCode == http.StatusTooManyRequests {
			return descriptor.ErrorRateLimit
		}
		if isRateLimitMessage(adapterErr.Message) {
			return descriptor.ErrorRateLimit
		}
		return descriptor.ErrorUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return descriptor.ErrorTimeout
	}

	if isRateLimitMessage(err.Error()) {
		return descriptor.ErrorRateLimit
	}

	return descriptor.ErrorUnknown
}

func isRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range rateLimitMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
