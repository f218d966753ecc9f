package models

import "time"

// HostMode selects which provider hosts are tried
type HostMode string

const (
	HostModeAuto     HostMode = "auto"
	HostModeDomestic HostMode = "domestic"
	HostModeOverseas HostMode = "overseas"
)

// Valid reports whether the mode is one of the known values
func (m HostMode) Valid() bool {
	switch m {
	case HostModeAuto, HostModeDomestic, HostModeOverseas:
		return true
	}
	return false
}

// ProviderConfigID is the primary key of the single configuration row
const ProviderConfigID uint = 1

// ProviderConfig holds the process-wide provider settings
type ProviderConfig struct {
	ID            uint      `gorm:"primarykey"`
	UpdatedAt     time.Time
	APIKey        string    `gorm:"type:text"`
	Token         string    `gorm:"type:text"`
	HostMode      HostMode  `gorm:"size:16;not null;default:'auto'"`
	QueryDefaults JSON      `gorm:"type:text"`
}

// TableName overrides the table name
func (ProviderConfig) TableName() string {
	return "provider_configs"
}
