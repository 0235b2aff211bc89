//go:build linux

package tap

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("creating a tap device needs root")
	}
	if _, err := os.Stat(cloneDevicePath); err != nil {
		t.Skip("no " + cloneDevicePath)
	}
	d, err := Create("tapmeshtest%d", 1400, "")
	if err != nil {
		t.Skipf("cannot create tap device here: %v", err)
	}
	defer d.Close()
	assert.NotEmpty(t, d.Name())
	assert.False(t, d.HardwareAddr().IsZero())
}

func TestCreateBadName(t *testing.T) {
	_, err := Create("a-name-much-too-long-for-the-kernel", 1500, "")
	var derr *DeviceError
	require.ErrorAs(t, err, &derr)
}
