package adminapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

func parseID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ListDevices returns all managed devices.
func (s *Server) ListDevices(c echo.Context) error {
	devices, err := s.Store.Devices().List(c.Request().Context())
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, devices)
}

// GetDeviceStatistics returns the cached resource snapshot.
func (s *Server) GetDeviceStatistics(c echo.Context) error {
	id, okID := parseID(c, "id")
	if !okID {
		return fail(c, http.StatusBadRequest, "invalid_request", "invalid device id")
	}
	stats, err := s.Devices.GetStatistics(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, stats)
}

// GetDeviceInterfaces returns the cached interface list.
func (s *Server) GetDeviceInterfaces(c echo.Context) error {
	id, okID := parseID(c, "id")
	if !okID {
		return fail(c, http.StatusBadRequest, "invalid_request", "invalid device id")
	}
	ifaces, err := s.Devices.GetInterfaces(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, ifaces)
}

type toggleRequest struct {
	Disabled bool `json:"disabled"`
}

// ToggleDeviceInterface enables/disables one interface.
func (s *Server) ToggleDeviceInterface(c echo.Context) error {
	id, okID := parseID(c, "id")
	if !okID {
		return fail(c, http.StatusBadRequest, "invalid_request", "invalid device id")
	}
	ifaceID := c.Param("iface")
	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_request", "invalid request body")
	}
	if err := s.Devices.ToggleInterface(c.Request().Context(), id, ifaceID, req.Disabled); err != nil {
		return failErr(c, err)
	}
	return ok(c, map[string]interface{}{"iface": ifaceID, "disabled": req.Disabled})
}

// GetDeviceHotspotUsers returns the cached hotspot user list.
func (s *Server) GetDeviceHotspotUsers(c echo.Context) error {
	id, okID := parseID(c, "id")
	if !okID {
		return fail(c, http.StatusBadRequest, "invalid_request", "invalid device id")
	}
	users, err := s.Devices.GetHotspotUsers(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, users)
}

// GetDeviceLogs returns recent device logs.
func (s *Server) GetDeviceLogs(c echo.Context) error {
	id, okID := parseID(c, "id")
	if !okID {
		return fail(c, http.StatusBadRequest, "invalid_request", "invalid device id")
	}
	logs, err := s.Devices.GetLogs(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, logs)
}
