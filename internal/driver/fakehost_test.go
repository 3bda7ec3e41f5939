package driver

import (
	"errors"
	"sync"
)

var errComponentRegistryFull = errors.New("component registry full")

type submittedPose struct {
	index DeviceIndex
	pose  DriverPose
}

type registration struct {
	serial string
	class  DeviceClass
	dev    Device
}

// fakeHost is an in-memory Host for tests. Safe for concurrent use by a
// device update loop and the test goroutine.
type fakeHost struct {
	mu          sync.Mutex
	poses       []TrackedPose
	ints        map[string]int32
	strs        map[string]string
	submissions []submittedPose
	registered  []registration
	events      []Event
	props       map[DeviceIndex]map[Property]string
	bools       map[InputHandle]bool
	scalars     map[InputHandle]float64
	nextHandle  InputHandle
	failInputs  bool
	registerErr error
	onSubmit    func()
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		ints:    make(map[string]int32),
		strs:    make(map[string]string),
		props:   make(map[DeviceIndex]map[Property]string),
		bools:   make(map[InputHandle]bool),
		scalars: make(map[InputHandle]float64),
	}
}

func settingKey(section, key string) string { return section + "/" + key }

func (h *fakeHost) setInt(section, key string, v int32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ints[settingKey(section, key)] = v
}

func (h *fakeHost) clearInt(section, key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.ints, settingKey(section, key))
}

func (h *fakeHost) setString(section, key, v string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.strs[settingKey(section, key)] = v
}

func (h *fakeHost) setPoses(poses []TrackedPose) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.poses = append([]TrackedPose(nil), poses...)
}

func (h *fakeHost) setPose(index DeviceIndex, pose TrackedPose) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for int(index) >= len(h.poses) {
		h.poses = append(h.poses, TrackedPose{})
	}
	h.poses[index] = pose
}

func (h *fakeHost) pushEvent(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *fakeHost) eventCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func (h *fakeHost) submissionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.submissions)
}

func (h *fakeHost) allSubmissions() []submittedPose {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]submittedPose(nil), h.submissions...)
}

func (h *fakeHost) lastSubmission() (submittedPose, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.submissions) == 0 {
		return submittedPose{}, false
	}
	return h.submissions[len(h.submissions)-1], true
}

func (h *fakeHost) property(index DeviceIndex, prop Property) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.props[index][prop]
}

func (h *fakeHost) boolValue(handle InputHandle) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bools[handle]
}

func (h *fakeHost) scalarValue(handle InputHandle) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scalars[handle]
}

// Host implementation.

func (h *fakeHost) RawTrackedPoses(predictedSecondsFromNow float64, out []TrackedPose) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := copy(out, h.poses)
	for i := n; i < len(out); i++ {
		out[i] = TrackedPose{}
	}
}

func (h *fakeHost) SubmitPose(index DeviceIndex, pose DriverPose) {
	h.mu.Lock()
	h.submissions = append(h.submissions, submittedPose{index: index, pose: pose})
	hook := h.onSubmit
	h.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (h *fakeHost) Int32(section, key string) (int32, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.ints[settingKey(section, key)]
	return v, ok
}

func (h *fakeHost) String(section, key string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.strs[settingKey(section, key)]
	return v, ok
}

func (h *fakeHost) RegisterDevice(serial string, class DeviceClass, dev Device) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.registerErr != nil {
		return h.registerErr
	}
	h.registered = append(h.registered, registration{serial: serial, class: class, dev: dev})
	return nil
}

func (h *fakeHost) SetStringProperty(index DeviceIndex, prop Property, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.props[index]
	if !ok {
		m = make(map[Property]string)
		h.props[index] = m
	}
	m[prop] = value
}

func (h *fakeHost) CreateBoolComponent(index DeviceIndex, path string) (InputHandle, error) {
	return h.createComponent()
}

func (h *fakeHost) CreateScalarComponent(index DeviceIndex, path string) (InputHandle, error) {
	return h.createComponent()
}

func (h *fakeHost) createComponent() (InputHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failInputs {
		return InputHandleInvalid, errComponentRegistryFull
	}
	h.nextHandle++
	return h.nextHandle, nil
}

func (h *fakeHost) UpdateBoolComponent(handle InputHandle, value bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bools[handle] = value
}

func (h *fakeHost) UpdateScalarComponent(handle InputHandle, value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scalars[handle] = value
}

func (h *fakeHost) PollNextEvent() (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) == 0 {
		return Event{}, false
	}
	ev := h.events[0]
	h.events = h.events[1:]
	return ev, true
}

var _ Host = (*fakeHost)(nil)
