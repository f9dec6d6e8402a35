package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/hotspotbill/internal/hotspot"
)

// ProvisionVoucher creates one voucher: remote hotspot user first, local
// record second, SMS delivery best effort.
func (s *Server) ProvisionVoucher(c echo.Context) error {
	var req hotspot.ProvisionRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_request", "invalid request body")
	}
	if req.DeviceID == 0 {
		return fail(c, http.StatusBadRequest, "invalid_request", "device_id is required")
	}
	voucher, err := s.Vouchers.ProvisionVoucher(c.Request().Context(), req)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, voucher)
}

type batchRequest struct {
	Items []hotspot.ProvisionRequest `json:"items"`
}

// ProvisionVoucherBatch provisions several vouchers inside one local
// transaction, accumulating per-item outcomes.
func (s *Server) ProvisionVoucherBatch(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_request", "invalid request body")
	}
	if len(req.Items) == 0 {
		return fail(c, http.StatusBadRequest, "invalid_request", "items is empty")
	}
	result, err := s.Vouchers.ProvisionBatch(c.Request().Context(), req.Items)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, result)
}

// GetVoucher returns one voucher by code.
func (s *Server) GetVoucher(c echo.Context) error {
	voucher, err := s.Store.Vouchers().GetByCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, voucher)
}

// SyncVoucher reconciles one voucher against its device.
func (s *Server) SyncVoucher(c echo.Context) error {
	result, err := s.Reconcile.SyncVoucher(c.Request().Context(), c.Param("code"))
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, result)
}

// GetVoucherLogs returns the audit trail for a voucher code.
func (s *Server) GetVoucherLogs(c echo.Context) error {
	logs, err := s.Store.Logs().GetByCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, logs)
}
