package adminapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/talkincode/hotspotbill/internal/hotspot"
)

// Server exposes the device integration engine over HTTP.
type Server struct {
	Devices   *hotspot.DeviceService
	Vouchers  *hotspot.VoucherService
	Reconcile *hotspot.ReconcileService
	History   *hotspot.ConfigHistoryService
	Store     hotspot.Store
}

// Register mounts the API routes.
func (s *Server) Register(e *echo.Echo) {
	e.Use(middleware.Recover())

	g := e.Group("/api/v1")

	g.GET("/devices", s.ListDevices)
	g.GET("/devices/:id/statistics", s.GetDeviceStatistics)
	g.GET("/devices/:id/interfaces", s.GetDeviceInterfaces)
	g.POST("/devices/:id/interfaces/:iface/toggle", s.ToggleDeviceInterface)
	g.GET("/devices/:id/hotspot/users", s.GetDeviceHotspotUsers)
	g.GET("/devices/:id/logs", s.GetDeviceLogs)
	g.POST("/devices/:id/backup", s.CreateBackup)
	g.POST("/devices/:id/backup/:snapshot/restore", s.RestoreBackup)
	g.POST("/devices/:id/config", s.RecordConfiguration)
	g.GET("/devices/:id/config/history", s.GetConfigHistory)

	g.POST("/vouchers", s.ProvisionVoucher)
	g.POST("/vouchers/batch", s.ProvisionVoucherBatch)
	g.GET("/vouchers/:code", s.GetVoucher)
	g.POST("/vouchers/:code/sync", s.SyncVoucher)
	g.GET("/vouchers/:code/logs", s.GetVoucherLogs)
}

type apiResponse struct {
	Code    int         `json:"code"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, apiResponse{Code: 0, Data: data})
}

func fail(c echo.Context, status int, kind, message string) error {
	return c.JSON(status, apiResponse{Code: 1, Kind: kind, Message: message})
}

// failErr maps engine errors onto the failure taxonomy so raw transport
// errors never escape the API boundary.
func failErr(c echo.Context, err error) error {
	var (
		connErr    *hotspot.ConnectionError
		remoteErr  *hotspot.RemoteOperationError
		persistErr *hotspot.PersistenceError
	)
	switch {
	case errors.Is(err, hotspot.ErrRateLimitExceeded):
		return fail(c, http.StatusTooManyRequests, "rate_limit_exceeded",
			"device call budget exhausted for the current window")
	case errors.Is(err, hotspot.ErrNotFoundOnDevice):
		return fail(c, http.StatusNotFound, "not_found_on_device",
			"requested record does not exist on the device")
	case errors.Is(err, hotspot.ErrVoucherNotFound):
		return fail(c, http.StatusNotFound, "voucher_not_found", "voucher not found")
	case errors.As(err, &remoteErr):
		return fail(c, http.StatusBadGateway, "remote_operation_failed", remoteErr.Error())
	case errors.As(err, &connErr):
		return fail(c, http.StatusBadGateway, "connection_error", connErr.Error())
	case errors.As(err, &persistErr):
		return fail(c, http.StatusInternalServerError, "persistence_error", persistErr.Error())
	default:
		return fail(c, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
