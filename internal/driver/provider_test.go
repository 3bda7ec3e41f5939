package driver

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderInitCreatesConfiguredTrackers(t *testing.T) {
	h := newFakeHost()
	h.setInt(SettingsSectionDriver, SettingsKeyNumVirtualTrackers, 3)

	p := NewProvider(h)
	require.NoError(t, p.Init())

	require.Len(t, p.Devices(), 3)
	require.Len(t, h.registered, 3)
	for i, reg := range h.registered {
		assert.Equal(t, "MyTrackerModelNumber"+string(rune('0'+i)), reg.serial)
		assert.Equal(t, DeviceClassGenericTracker, reg.class)
		assert.NotNil(t, reg.dev)
	}
}

func TestProviderInitWithoutSettingCreatesNone(t *testing.T) {
	h := newFakeHost()

	p := NewProvider(h)
	require.NoError(t, p.Init())

	assert.Empty(t, p.Devices())
	assert.Empty(t, h.registered)
}

func TestProviderInitRegistrationFailure(t *testing.T) {
	h := newFakeHost()
	h.setInt(SettingsSectionDriver, SettingsKeyNumVirtualTrackers, 2)
	h.registerErr = errors.New("host rejected device")

	p := NewProvider(h)
	err := p.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MyTrackerModelNumber0")
}

func TestProviderRunFrameDrainsEvents(t *testing.T) {
	h := newFakeHost()
	h.setInt(SettingsSectionDriver, SettingsKeyNumVirtualTrackers, 2)
	h.pushEvent(Event{Type: EventEnterStandby})
	h.pushEvent(Event{Type: EventLeaveStandby, Index: 1})

	p := NewProvider(h)
	require.NoError(t, p.Init())

	p.RunFrame()
	assert.Equal(t, 0, h.eventCount(), "RunFrame drains the host event queue")
}

func TestProviderCleanupDeactivatesDevices(t *testing.T) {
	h := newFakeHost()
	h.setPoses(snapshotWithHead(validHead(Vec3{}, QuatIdentity())))
	h.setInt(SettingsSectionDriver, SettingsKeyNumVirtualTrackers, 2)

	p := NewProvider(h, WithUpdatePeriod(time.Millisecond))
	require.NoError(t, p.Init())

	devices := p.Devices()
	for i, dev := range devices {
		require.NoError(t, dev.Activate(DeviceIndex(i+1)))
	}
	waitForSubmissions(t, h, 2)

	p.Cleanup()

	for _, dev := range devices {
		assert.False(t, dev.Active())
	}
	assert.Empty(t, p.Devices())
}
