package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/hotspotbill/config"
	"github.com/talkincode/hotspotbill/internal/domain"
)

func TestNewGatewaySenderDisabled(t *testing.T) {
	assert.Nil(t, NewGatewaySender(config.SmsConfig{Enabled: false, Gateway: "http://sms.local"}))
	assert.Nil(t, NewGatewaySender(config.SmsConfig{Enabled: true, Gateway: ""}))
	assert.NotNil(t, NewGatewaySender(config.SmsConfig{Enabled: true, Gateway: "http://sms.local"}))
}

func TestSendVoucherMessage(t *testing.T) {
	var got map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "sent"})
	}))
	defer srv.Close()

	sender := NewGatewaySender(config.SmsConfig{
		Enabled: true, Gateway: srv.URL, Apikey: "k3y", Sender: "hotspotbill",
	})
	require.NotNil(t, sender)

	err := sender.SendVoucherMessage(context.Background(), "+628123456789", &domain.HotspotVoucher{
		Code: "WF-ABCD2345", Password: "123456", ValidityHours: 24,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer k3y", auth)
	assert.Equal(t, "+628123456789", got["to"])
	assert.Equal(t, "hotspotbill", got["from"])
	assert.Contains(t, got["message"], "WF-ABCD2345")
	assert.Contains(t, got["message"], "123456")
}

func TestSendVoucherMessageRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "failed", "message": "invalid number"})
	}))
	defer srv.Close()

	sender := NewGatewaySender(config.SmsConfig{Enabled: true, Gateway: srv.URL})
	err := sender.SendVoucherMessage(context.Background(), "bad", &domain.HotspotVoucher{Code: "WF-X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid number")
}
