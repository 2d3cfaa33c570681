package fetcher

import (
	"fmt"
	"strings"
	"time"
)

// dateLayout is the wire format for fetch date bounds.
const dateLayout = "2006-01-02"

// FetchRequest is the external shape of a fetch session request.
type FetchRequest struct {
	Group     string `json:"group"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// FetchOptions is the validated form consumed by the service.
type FetchOptions struct {
	Group     string
	StartDate time.Time
	EndDate   time.Time
}

// Validate checks the request and converts it into FetchOptions.
// All failures are validation-kind fetch errors.
func (r FetchRequest) Validate() (FetchOptions, error) {
	group := strings.TrimSpace(r.Group)
	if group == "" {
		return FetchOptions{}, newFetchError(ErrKindValidation, "group reference is required", nil)
	}

	start, err := time.Parse(dateLayout, r.StartDate)
	if err != nil {
		return FetchOptions{}, newFetchError(ErrKindValidation,
			fmt.Sprintf("invalid start_date %q, expected YYYY-MM-DD", r.StartDate), err)
	}
	end, err := time.Parse(dateLayout, r.EndDate)
	if err != nil {
		return FetchOptions{}, newFetchError(ErrKindValidation,
			fmt.Sprintf("invalid end_date %q, expected YYYY-MM-DD", r.EndDate), err)
	}
	if start.After(end) {
		return FetchOptions{}, newFetchError(ErrKindValidation, "start_date is after end_date", nil)
	}

	// The end bound is inclusive for the whole day.
	end = end.Add(24*time.Hour - time.Second)

	return FetchOptions{Group: group, StartDate: start, EndDate: end}, nil
}
