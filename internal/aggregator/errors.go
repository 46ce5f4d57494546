package aggregator

import (
	"errors"
	"fmt"
)

// ErrSelectorNotFound signals that the page was reachable but no listing
// section could be located. Callers log this distinctly from network
// failures: it usually means the site has no openings or was redesigned.
var ErrSelectorNotFound = errors.New("no job listing selector found")

// ErrNoCareerPage signals a company record without a career page URL.
var ErrNoCareerPage = errors.New("No career page URL found")

// FetchError wraps transport-level failures: timeouts, refused connections,
// and non-2xx responses. These are retryable on the next run.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err is a transport-level fetch failure.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
