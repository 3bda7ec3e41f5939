package driver

import (
	"fmt"

	"github.com/qashinka/PoseLockTool/internal/monitoring"
)

// Provider owns the set of virtual trackers for the lifetime of the plugin.
// It creates and registers them at Init, forwards per-frame work and events,
// and tears them down at Cleanup.
type Provider struct {
	host    Host
	opts    []TrackerOption
	devices []*TrackerDevice
}

// NewProvider returns a provider driving devices through host. opts are
// applied to every tracker it creates.
func NewProvider(host Host, opts ...TrackerOption) *Provider {
	return &Provider{host: host, opts: opts}
}

// Init reads the configured tracker count and creates and registers that
// many devices, with ids counting up from zero. A missing or malformed
// count means no devices, which is not an error.
func (p *Provider) Init() error {
	settings := NewDriverSettings(p.host)
	n := settings.NumVirtualTrackers()
	monitoring.Logf("creating %d virtual trackers", n)

	for i := 0; i < n; i++ {
		dev := NewTrackerDevice(uint32(i), p.host, p.opts...)
		if err := p.host.RegisterDevice(dev.SerialNumber(), DeviceClassGenericTracker, dev); err != nil {
			return fmt.Errorf("register %s: %w", dev.SerialNumber(), err)
		}
		p.devices = append(p.devices, dev)
	}
	return nil
}

// RunFrame is called once per host main-loop frame. It lets every device
// refresh its inputs, then drains the host event queue and hands each event
// to every device.
func (p *Provider) RunFrame() {
	for _, dev := range p.devices {
		dev.RunFrame()
	}

	for {
		ev, ok := p.host.PollNextEvent()
		if !ok {
			return
		}
		for _, dev := range p.devices {
			dev.ProcessEvent(ev)
		}
	}
}

// EnterStandby forwards standby entry to every device.
func (p *Provider) EnterStandby() {
	for _, dev := range p.devices {
		dev.EnterStandby()
	}
}

// LeaveStandby forwards standby exit to every device.
func (p *Provider) LeaveStandby() {
	for _, dev := range p.devices {
		dev.LeaveStandby()
	}
}

// Cleanup deactivates and releases every device. Devices normally deactivate
// before the host calls Cleanup; Deactivate is a no-op in that case.
func (p *Provider) Cleanup() {
	for _, dev := range p.devices {
		dev.Deactivate()
	}
	p.devices = nil
}

// Devices returns the trackers created by Init, in id order.
func (p *Provider) Devices() []*TrackerDevice {
	return p.devices
}
