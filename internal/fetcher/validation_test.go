package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// test fetch request validation
func TestFetchRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     FetchRequest
		wantErr bool
	}{
		{
			name:    "empty request - requires group",
			req:     FetchRequest{StartDate: "2026-01-01", EndDate: "2026-01-31"},
			wantErr: true,
		},
		{
			name:    "valid",
			req:     FetchRequest{Group: "@golang_jobs", StartDate: "2026-01-01", EndDate: "2026-01-31"},
			wantErr: false,
		},
		{
			name:    "same day window",
			req:     FetchRequest{Group: "golang_jobs", StartDate: "2026-01-15", EndDate: "2026-01-15"},
			wantErr: false,
		},
		{
			name:    "invalid start date format",
			req:     FetchRequest{Group: "@test", StartDate: "15.01.2026", EndDate: "2026-01-31"},
			wantErr: true,
		},
		{
			name:    "invalid end date format",
			req:     FetchRequest{Group: "@test", StartDate: "2026-01-01", EndDate: "not-a-date"},
			wantErr: true,
		},
		{
			name:    "start after end",
			req:     FetchRequest{Group: "@test", StartDate: "2026-02-01", EndDate: "2026-01-01"},
			wantErr: true,
		},
		{
			name:    "whitespace-only group",
			req:     FetchRequest{Group: "   ", StartDate: "2026-01-01", EndDate: "2026-01-31"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.Validate()
			if tt.wantErr {
				require.Error(t, err)
				fe := AsFetchError(err)
				assert.Equal(t, ErrKindValidation, fe.Kind)
				return
			}
			require.NoError(t, err)
		})
	}
}

// the end bound covers the whole end day
func TestFetchRequest_InclusiveEndDate(t *testing.T) {
	opts, err := FetchRequest{
		Group:     "@test",
		StartDate: "2026-01-01",
		EndDate:   "2026-01-31",
	}.Validate()
	require.NoError(t, err)

	lastSecond := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, lastSecond, opts.EndDate)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), opts.StartDate)
}
