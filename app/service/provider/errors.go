package provider

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindQuotaExceeded
	KindConfigurationAbsent
	KindAllProvidersExhausted
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindConfigurationAbsent:
		return "configuration_absent"
	case KindAllProvidersExhausted:
		return "all_providers_exhausted"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyText = errors.New("provider returned empty text")

	quotaSignatures = []string{
		"quota",
		"rate limit",
		"rate_limit",
		"resource_exhausted",
		"insufficient_quota",
		"too many requests",
	}

	retryInPattern    = regexp.MustCompile(`(?i)retry in (\d+(?:\.\d+)?)\s*s`)
	retryDelayPattern = regexp.MustCompile(`"retryDelay"\s*:\s*"(\d+(?:\.\d+)?)s"`)
)

// ExhaustedError ends a dispatch that produced no text.
type ExhaustedError struct {
	Kind ErrorKind
	// Last is the error of the final attempt, nil when nothing was attempted.
	Last error
	// RetryAfter is set for KindQuotaExceeded.
	RetryAfter time.Duration
	Attempts   int
}

func (e *ExhaustedError) Error() string {
	switch {
	case e.Kind == KindConfigurationAbsent:
		return "no completion provider is configured"
	case e.Last == nil:
		return fmt.Sprintf("%s after %d attempts", e.Kind, e.Attempts)
	default:
		return fmt.Sprintf("%s after %d attempts: %v", e.Kind, e.Attempts, e.Last)
	}
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

type httpStatusError interface {
	HTTPStatus() int
}

type retryAfterError interface {
	RetryAfter() time.Duration
}

// classify sorts an attempt failure into transient or quota. For quota
// failures it also returns the provider's retry hint, zero if there is none.
func classify(err error) (ErrorKind, time.Duration) {
	if err == nil {
		return KindTransient, 0
	}

	quota := false

	var statusErr httpStatusError
	if errors.As(err, &statusErr) && statusErr.HTTPStatus() == http.StatusTooManyRequests {
		quota = true
	}

	text := strings.ToLower(err.Error())
	if !quota {
		for _, signature := range quotaSignatures {
			if strings.Contains(text, signature) {
				quota = true
				break
			}
		}
	}

	if !quota {
		return KindTransient, 0
	}

	return KindQuotaExceeded, retryHint(err)
}

func retryHint(err error) time.Duration {
	var hinted retryAfterError
	if errors.As(err, &hinted) && hinted.RetryAfter() > 0 {
		return hinted.RetryAfter()
	}

	text := err.Error()
	for _, pattern := range []*regexp.Regexp{retryInPattern, retryDelayPattern} {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		seconds, parseErr := strconv.ParseFloat(match[1], 64)
		if parseErr != nil || seconds <= 0 {
			continue
		}

		return time.Duration(math.Ceil(seconds)) * time.Second
	}

	return 0
}
