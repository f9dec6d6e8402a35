package adminapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/hotspotbill/internal/hotspot"
)

func TestFailErrTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{
			name:   "rate limit",
			err:    fmt.Errorf("device 1: %w", hotspot.ErrRateLimitExceeded),
			status: http.StatusTooManyRequests,
			kind:   "rate_limit_exceeded",
		},
		{
			name:   "not found on device",
			err:    fmt.Errorf("hotspot user X: %w", hotspot.ErrNotFoundOnDevice),
			status: http.StatusNotFound,
			kind:   "not_found_on_device",
		},
		{
			name:   "voucher not found",
			err:    hotspot.ErrVoucherNotFound,
			status: http.StatusNotFound,
			kind:   "voucher_not_found",
		},
		{
			name: "remote operation failed",
			err: &hotspot.RemoteOperationError{
				DeviceID: 1, Operation: "get_statistics", Attempts: 3,
				Err: errors.New("i/o timeout"),
			},
			status: http.StatusBadGateway,
			kind:   "remote_operation_failed",
		},
		{
			name:   "connection error",
			err:    &hotspot.ConnectionError{DeviceID: 1, Addr: "192.168.88.1:8728", Err: errors.New("refused")},
			status: http.StatusBadGateway,
			kind:   "connection_error",
		},
		{
			name:   "persistence error",
			err:    &hotspot.PersistenceError{Code: "WF-ABCD2345", Err: errors.New("disk full")},
			status: http.StatusInternalServerError,
			kind:   "persistence_error",
		},
		{
			name:   "unclassified",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			kind:   "internal_error",
		},
	}

	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			require.NoError(t, failErr(c, tc.err))
			assert.Equal(t, tc.status, rec.Code)

			var resp apiResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, 1, resp.Code)
			assert.Equal(t, tc.kind, resp.Kind)
		})
	}
}

func TestOkEnvelope(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, ok(c, map[string]string{"hello": "world"}))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Empty(t, resp.Kind)
}
