package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumVirtualTrackers(t *testing.T) {
	h := newFakeHost()
	s := NewDriverSettings(h)

	assert.Equal(t, 0, s.NumVirtualTrackers(), "absent setting reads as zero")

	h.setInt(SettingsSectionDriver, SettingsKeyNumVirtualTrackers, 3)
	assert.Equal(t, 3, s.NumVirtualTrackers())

	h.setInt(SettingsSectionDriver, SettingsKeyNumVirtualTrackers, -2)
	assert.Equal(t, 0, s.NumVirtualTrackers(), "negative count reads as zero")
}

func TestPoseLockingEnabled(t *testing.T) {
	tests := []struct {
		name   string
		list   string
		serial string
		want   bool
	}{
		{"absent", "", "MyTrackerModelNumber0", false},
		{"single match", "MyTrackerModelNumber0", "MyTrackerModelNumber0", true},
		{"listed second", "MyTrackerModelNumber1,MyTrackerModelNumber0", "MyTrackerModelNumber0", true},
		{"spaces trimmed", " MyTrackerModelNumber1 , MyTrackerModelNumber0 ", "MyTrackerModelNumber0", true},
		{"not listed", "MyTrackerModelNumber1", "MyTrackerModelNumber0", false},
		// Whole-token comparison: tracker 1 must not match an entry for
		// tracker 10.
		{"prefix of longer serial", "MyTrackerModelNumber10", "MyTrackerModelNumber1", false},
		{"longer serial listed", "MyTrackerModelNumber1,MyTrackerModelNumber10", "MyTrackerModelNumber10", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newFakeHost()
			if tt.list != "" {
				h.setString(SettingsSectionDriver, SettingsKeyEnabledTrackers, tt.list)
			}
			s := NewDriverSettings(h)

			assert.Equal(t, tt.want, s.PoseLockingEnabled(tt.serial))
		})
	}
}

func TestProxyTarget(t *testing.T) {
	h := newFakeHost()
	s := NewDriverSettings(h)
	serial := "MyTrackerModelNumber0"

	target, ok := s.ProxyTarget(serial)
	assert.False(t, ok, "absent key means no target")
	assert.Equal(t, DeviceIndexInvalid, target)

	h.setInt(SettingsSectionProxy, ProxyTargetKey(serial), 5)
	target, ok = s.ProxyTarget(serial)
	assert.True(t, ok)
	assert.Equal(t, DeviceIndex(5), target)

	h.setInt(SettingsSectionProxy, ProxyTargetKey(serial), -1)
	target, ok = s.ProxyTarget(serial)
	assert.False(t, ok, "-1 disables proxying")
	assert.Equal(t, DeviceIndexInvalid, target)

	h.setInt(SettingsSectionProxy, ProxyTargetKey(serial), -7)
	_, ok = s.ProxyTarget(serial)
	assert.False(t, ok, "any negative value disables proxying")
}

func TestProxyTargetKey(t *testing.T) {
	assert.Equal(t, "proxy_target_for_MyTrackerModelNumber2", ProxyTargetKey("MyTrackerModelNumber2"))
}
