package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/hotspotbill/internal/domain"
)

func actor(c echo.Context) string {
	if a := c.Request().Header.Get("X-Operator"); a != "" {
		return a
	}
	return "system"
}

// CreateBackup saves a device-side backup and records it in history.
func (s *Server) CreateBackup(c echo.Context) error {
	id, okID := parseID(c, "id")
	if !okID {
		return fail(c, http.StatusBadRequest, "invalid_request", "invalid device id")
	}
	snapshotID, err := s.History.CreateBackup(c.Request().Context(), id, actor(c))
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, map[string]interface{}{"snapshot_id": snapshotID})
}

// RestoreBackup loads a recorded device backup back onto the device.
func (s *Server) RestoreBackup(c echo.Context) error {
	id, okID := parseID(c, "id")
	if !okID {
		return fail(c, http.StatusBadRequest, "invalid_request", "invalid device id")
	}
	snapshotID, okSnap := parseID(c, "snapshot")
	if !okSnap {
		return fail(c, http.StatusBadRequest, "invalid_request", "invalid snapshot id")
	}
	newID, err := s.History.RestoreBackup(c.Request().Context(), id, snapshotID, actor(c))
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, map[string]interface{}{"snapshot_id": newID})
}

type recordConfigRequest struct {
	Content    string `json:"content"`
	ChangeType string `json:"change_type"`
}

// RecordConfiguration stores a configuration blob as the device's new
// current snapshot.
func (s *Server) RecordConfiguration(c echo.Context) error {
	id, okID := parseID(c, "id")
	if !okID {
		return fail(c, http.StatusBadRequest, "invalid_request", "invalid device id")
	}
	var req recordConfigRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_request", "invalid request body")
	}
	if req.Content == "" {
		return fail(c, http.StatusBadRequest, "invalid_request", "content is required")
	}
	if req.ChangeType == "" {
		req.ChangeType = domain.ConfigChangeUpdate
	}
	snapshotID, err := s.History.Record(c.Request().Context(), id, req.Content, req.ChangeType, actor(c))
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, map[string]interface{}{"snapshot_id": snapshotID})
}

// GetConfigHistory lists a device's snapshots, newest first.
func (s *Server) GetConfigHistory(c echo.Context) error {
	id, okID := parseID(c, "id")
	if !okID {
		return fail(c, http.StatusBadRequest, "invalid_request", "invalid device id")
	}
	snaps, err := s.History.History(c.Request().Context(), id, 50)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, snaps)
}
