package driver

import "strings"

// Settings sections and keys understood by the driver.
const (
	// SettingsSectionDriver holds driver-wide configuration.
	SettingsSectionDriver = "PoseLockDriver"

	// SettingsSectionProxy holds per-tracker proxy targets.
	SettingsSectionProxy = "PoseLockProxy"

	// SettingsKeyNumVirtualTrackers is the number of trackers to create at
	// startup. Absent or negative means zero.
	SettingsKeyNumVirtualTrackers = "num_virtual_trackers"

	// SettingsKeyEnabledTrackers is a comma-separated list of serial
	// numbers that have pose locking enabled.
	SettingsKeyEnabledTrackers = "enabled_trackers"

	proxyTargetKeyPrefix = "proxy_target_for_"
)

// ProxyTargetKey returns the settings key holding the proxy target index for
// the tracker with the given serial number, e.g.
// "proxy_target_for_MyTrackerModelNumber0".
func ProxyTargetKey(serial string) string {
	return proxyTargetKeyPrefix + serial
}

// DriverSettings wraps the host Settings interface with the driver's keys
// and defaults. A failed or absent read is never an error; it yields the
// documented default for that key.
type DriverSettings struct {
	s Settings
}

// NewDriverSettings returns a typed reader over s.
func NewDriverSettings(s Settings) DriverSettings {
	return DriverSettings{s: s}
}

// NumVirtualTrackers returns how many virtual trackers to create. Absent or
// negative values read as zero.
func (d DriverSettings) NumVirtualTrackers() int {
	n, ok := d.s.Int32(SettingsSectionDriver, SettingsKeyNumVirtualTrackers)
	if !ok || n < 0 {
		return 0
	}
	return int(n)
}

// PoseLockingEnabled reports whether the tracker with the given serial
// number appears in the enabled_trackers list. Entries are compared as
// whole, whitespace-trimmed tokens so that one serial never matches another
// it happens to prefix.
func (d DriverSettings) PoseLockingEnabled(serial string) bool {
	list, ok := d.s.String(SettingsSectionDriver, SettingsKeyEnabledTrackers)
	if !ok || list == "" {
		return false
	}
	for _, entry := range strings.Split(list, ",") {
		if strings.TrimSpace(entry) == serial {
			return true
		}
	}
	return false
}

// ProxyTarget returns the configured proxy target for the given serial
// number. ok is false when no target is configured; by convention -1 (or any
// negative value) disables proxying.
func (d DriverSettings) ProxyTarget(serial string) (DeviceIndex, bool) {
	v, ok := d.s.Int32(SettingsSectionProxy, ProxyTargetKey(serial))
	if !ok || v < 0 {
		return DeviceIndexInvalid, false
	}
	return DeviceIndex(v), true
}
