package sms

import (
	"context"
	"fmt"
	"time"

	"github.com/guonaihong/gout"
	"go.uber.org/zap"

	"github.com/talkincode/hotspotbill/config"
	"github.com/talkincode/hotspotbill/internal/domain"
)

// Sender delivers voucher credentials over SMS. Delivery is best effort
// throughout the engine: callers log failures instead of propagating.
type Sender interface {
	SendVoucherMessage(ctx context.Context, phone string, v *domain.HotspotVoucher) error
}

// GatewaySender posts messages to an HTTP SMS gateway.
type GatewaySender struct {
	gateway string
	apikey  string
	sender  string
	timeout time.Duration
}

// NewGatewaySender builds a sender from config. Returns nil when SMS is
// disabled so callers can treat delivery as a no-op.
func NewGatewaySender(cfg config.SmsConfig) *GatewaySender {
	if !cfg.Enabled || cfg.Gateway == "" {
		return nil
	}
	return &GatewaySender{
		gateway: cfg.Gateway,
		apikey:  cfg.Apikey,
		sender:  cfg.Sender,
		timeout: 10 * time.Second,
	}
}

type gatewayResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SendVoucherMessage posts the voucher credentials to the gateway.
func (s *GatewaySender) SendVoucherMessage(ctx context.Context, phone string, v *domain.HotspotVoucher) error {
	body := fmt.Sprintf("WiFi voucher %s password %s valid %dh", v.Code, v.Password, v.ValidityHours)

	var resp gatewayResponse
	err := gout.POST(s.gateway).
		WithContext(ctx).
		SetTimeout(s.timeout).
		SetHeader(gout.H{"Authorization": "Bearer " + s.apikey}).
		SetJSON(gout.H{
			"to":      phone,
			"from":    s.sender,
			"message": body,
		}).
		BindJSON(&resp).
		Do()
	if err != nil {
		return fmt.Errorf("sms gateway request: %w", err)
	}
	if resp.Status != "" && resp.Status != "ok" && resp.Status != "sent" {
		return fmt.Errorf("sms gateway rejected message: %s", resp.Message)
	}

	zap.L().Info("voucher SMS sent",
		zap.String("phone", phone),
		zap.String("code", v.Code),
	)
	return nil
}
