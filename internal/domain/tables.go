package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	&SysOpr{},
	// Network
	&HotspotDevice{},
	&NetScheduler{},
	// Hotspot billing
	&HotspotVoucher{},
	&HotspotVoucherLog{},
	&ConfigSnapshot{},
}
