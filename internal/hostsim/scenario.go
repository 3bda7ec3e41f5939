package hostsim

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/qashinka/PoseLockTool/internal/driver"
)

// Keyframe is one point on a scripted headset path. Valid defaults to true;
// a false keyframe simulates a tracking dropout until the next keyframe.
type Keyframe struct {
	At         string     `yaml:"at" validate:"required"` // duration from scenario start, e.g. "2.5s"
	Position   [3]float64 `yaml:"position"`
	YawDegrees float64    `yaml:"yaw_degrees"`
	Valid      *bool      `yaml:"valid"`
}

// Scenario is a scripted headset motion loaded from YAML. Between keyframes
// the position and yaw are interpolated linearly; validity is taken from the
// keyframe being left.
type Scenario struct {
	Name      string     `yaml:"name" validate:"required"`
	Loop      bool       `yaml:"loop"`
	Keyframes []Keyframe `yaml:"keyframes" validate:"required,min=2,dive"`

	times []time.Duration
}

// LoadScenario reads and validates a scenario file. The file must have a
// .yaml or .yml extension and be at most 1MB.
func LoadScenario(path string) (*Scenario, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("scenario file must have .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scenario file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("scenario file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}

	v := validator.New()
	if err := v.Struct(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	s.times = make([]time.Duration, len(s.Keyframes))
	for i, kf := range s.Keyframes {
		d, err := time.ParseDuration(kf.At)
		if err != nil {
			return nil, fmt.Errorf("keyframe %d: invalid at %q: %w", i, kf.At, err)
		}
		if i == 0 && d != 0 {
			return nil, fmt.Errorf("keyframe 0 must be at 0s, got %q", kf.At)
		}
		if i > 0 && d <= s.times[i-1] {
			return nil, fmt.Errorf("keyframe %d: at %q is not after the previous keyframe", i, kf.At)
		}
		s.times[i] = d
	}

	return &s, nil
}

// Duration returns the time from the first to the last keyframe.
func (s *Scenario) Duration() time.Duration {
	return s.times[len(s.times)-1]
}

func (k Keyframe) valid() bool {
	return k.Valid == nil || *k.Valid
}

// PoseAt returns the headset pose at the given offset from scenario start.
// A looping scenario wraps; otherwise time past the end holds the final
// keyframe.
func (s *Scenario) PoseAt(elapsed time.Duration) driver.TrackedPose {
	total := s.Duration()
	if s.Loop && total > 0 {
		elapsed = elapsed % total
	}
	if elapsed >= total {
		last := s.Keyframes[len(s.Keyframes)-1]
		return keyframePose(last, last, 0)
	}

	i := 0
	for i < len(s.times)-1 && s.times[i+1] <= elapsed {
		i++
	}
	span := s.times[i+1] - s.times[i]
	f := float64(elapsed-s.times[i]) / float64(span)
	return keyframePose(s.Keyframes[i], s.Keyframes[i+1], f)
}

func keyframePose(from, to Keyframe, f float64) driver.TrackedPose {
	if !from.valid() {
		return driver.TrackedPose{
			Valid:       false,
			Result:      driver.TrackingResultUninitialized,
			Orientation: driver.QuatIdentity(),
		}
	}

	var pos driver.Vec3
	for i := range pos {
		pos[i] = from.Position[i] + (to.Position[i]-from.Position[i])*f
	}
	yaw := (from.YawDegrees + (to.YawDegrees-from.YawDegrees)*f) * math.Pi / 180

	return driver.TrackedPose{
		Valid:       true,
		Result:      driver.TrackingResultRunningOK,
		Position:    pos,
		Orientation: driver.QuatFromAxisAngle(driver.Vec3{0, 1, 0}, yaw),
	}
}
