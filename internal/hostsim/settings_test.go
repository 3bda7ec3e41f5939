package hostsim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettingsFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadSettings(t *testing.T) {
	path := writeSettingsFile(t, "settings.json", `{
		"PoseLockDriver": {
			"num_virtual_trackers": 2,
			"enabled_trackers": "MyTrackerModelNumber0"
		},
		"PoseLockProxy": {
			"proxy_target_for_MyTrackerModelNumber0": 1
		}
	}`)

	s, err := LoadSettings(path)
	require.NoError(t, err)

	n, ok := s.Int32("PoseLockDriver", "num_virtual_trackers")
	require.True(t, ok)
	assert.Equal(t, int32(2), n)

	list, ok := s.String("PoseLockDriver", "enabled_trackers")
	require.True(t, ok)
	assert.Equal(t, "MyTrackerModelNumber0", list)

	target, ok := s.Int32("PoseLockProxy", "proxy_target_for_MyTrackerModelNumber0")
	require.True(t, ok)
	assert.Equal(t, int32(1), target)
}

func TestLoadSettingsRejectsWrongExtension(t *testing.T) {
	path := writeSettingsFile(t, "settings.txt", `{}`)

	_, err := LoadSettings(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".json")
}

func TestLoadSettingsMissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoadSettingsBadJSON(t *testing.T) {
	path := writeSettingsFile(t, "settings.json", `{"PoseLockDriver": [1, 2]}`)

	_, err := LoadSettings(path)
	require.Error(t, err)
}

func TestSettingsInt32Conversions(t *testing.T) {
	path := writeSettingsFile(t, "settings.json", `{
		"S": {"integral": 3, "fractional": 1.5, "text": "nope"}
	}`)

	s, err := LoadSettings(path)
	require.NoError(t, err)

	v, ok := s.Int32("S", "integral")
	assert.True(t, ok)
	assert.Equal(t, int32(3), v)

	_, ok = s.Int32("S", "fractional")
	assert.False(t, ok, "non-integral numbers read as absent")

	_, ok = s.Int32("S", "text")
	assert.False(t, ok, "strings read as absent for Int32")

	_, ok = s.Int32("S", "missing")
	assert.False(t, ok)

	_, ok = s.String("S", "integral")
	assert.False(t, ok, "numbers read as absent for String")
}

func TestSettingsMutation(t *testing.T) {
	s := NewSettingsStore()

	_, ok := s.Int32("PoseLockProxy", "proxy_target_for_X")
	require.False(t, ok)

	s.SetInt32("PoseLockProxy", "proxy_target_for_X", 4)
	v, ok := s.Int32("PoseLockProxy", "proxy_target_for_X")
	require.True(t, ok)
	assert.Equal(t, int32(4), v)

	s.SetString("PoseLockDriver", "enabled_trackers", "A,B")
	list, ok := s.String("PoseLockDriver", "enabled_trackers")
	require.True(t, ok)
	assert.Equal(t, "A,B", list)

	s.Delete("PoseLockProxy", "proxy_target_for_X")
	_, ok = s.Int32("PoseLockProxy", "proxy_target_for_X")
	assert.False(t, ok)
}

func TestSettingsSnapshotIsACopy(t *testing.T) {
	s := NewSettingsStore()
	s.SetString("S", "k", "v")

	snap := s.Snapshot()
	snap["S"]["k"] = "changed"

	v, ok := s.String("S", "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}
