package driver

import "fmt"

// Input component paths exposed by every tracker. They mirror the bindings
// declared in the input profile.
const (
	inputPathATouch       = "/input/a/touch"
	inputPathAClick       = "/input/a/click"
	inputPathTriggerValue = "/input/trigger/value"
	inputPathTriggerClick = "/input/trigger/click"

	inputProfilePath = "{poselock}/input/tracker_profile.json"
)

// inputComponents holds the handles for one tracker's input components,
// created at activation.
type inputComponents struct {
	aTouch       InputHandle
	aClick       InputHandle
	triggerValue InputHandle
	triggerClick InputHandle
}

func createInputComponents(in InputSource, index DeviceIndex) (inputComponents, error) {
	var c inputComponents
	var err error

	if c.aTouch, err = in.CreateBoolComponent(index, inputPathATouch); err != nil {
		return c, fmt.Errorf("create %s: %w", inputPathATouch, err)
	}
	if c.aClick, err = in.CreateBoolComponent(index, inputPathAClick); err != nil {
		return c, fmt.Errorf("create %s: %w", inputPathAClick, err)
	}
	if c.triggerValue, err = in.CreateScalarComponent(index, inputPathTriggerValue); err != nil {
		return c, fmt.Errorf("create %s: %w", inputPathTriggerValue, err)
	}
	if c.triggerClick, err = in.CreateBoolComponent(index, inputPathTriggerClick); err != nil {
		return c, fmt.Errorf("create %s: %w", inputPathTriggerClick, err)
	}
	return c, nil
}

// pushNeutral reports every component at rest. The virtual trackers carry no
// real inputs; the host still expects a fresh value each frame.
func (c inputComponents) pushNeutral(in InputSource) {
	in.UpdateBoolComponent(c.aTouch, false)
	in.UpdateBoolComponent(c.aClick, false)
	in.UpdateBoolComponent(c.triggerClick, false)
	in.UpdateScalarComponent(c.triggerValue, 0)
}
