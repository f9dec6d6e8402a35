package app

import (
	"errors"

	"github.com/spf13/cast"
	"gorm.io/gorm"

	"github.com/talkincode/hotspotbill/internal/domain"
	"github.com/talkincode/hotspotbill/pkg/common"
)

// ConfigManager reads typed values from the sys_config table. Settings
// override compiled defaults for tunables like the rate-limit ceiling.
type ConfigManager struct {
	db *gorm.DB
}

func NewConfigManager(db *gorm.DB) *ConfigManager {
	return &ConfigManager{db: db}
}

func (m *ConfigManager) value(category, name string) string {
	if m == nil || m.db == nil {
		return ""
	}
	var row domain.SysConfig
	err := m.db.Where("type = ? AND name = ?", category, name).First(&row).Error
	if err != nil {
		return ""
	}
	return row.Value
}

func (m *ConfigManager) GetString(category, name string) string {
	return m.value(category, name)
}

func (m *ConfigManager) GetInt64(category, name string) int64 {
	return cast.ToInt64(m.value(category, name))
}

func (m *ConfigManager) GetBool(category, name string) bool {
	return cast.ToBool(m.value(category, name))
}

// SetValue creates or updates a setting row.
func (m *ConfigManager) SetValue(category, name, value string) error {
	var row domain.SysConfig
	err := m.db.Where("type = ? AND name = ?", category, name).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return m.db.Create(&domain.SysConfig{
			ID:    common.UUIDint64(),
			Type:  category,
			Name:  name,
			Value: value,
		}).Error
	case err != nil:
		return err
	default:
		return m.db.Model(&domain.SysConfig{}).
			Where("id = ?", row.ID).
			Update("value", value).Error
	}
}

// Settings provider delegation.

func (a *Application) GetSettingsStringValue(category, key string) string {
	return a.configManager.GetString(category, key)
}

func (a *Application) GetSettingsInt64Value(category, key string) int64 {
	return a.configManager.GetInt64(category, key)
}

func (a *Application) GetSettingsBoolValue(category, key string) bool {
	return a.configManager.GetBool(category, key)
}
