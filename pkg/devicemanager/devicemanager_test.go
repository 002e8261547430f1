package devicemanager

import (
	"testing"
	"time"

	"github.com/aliciabus/alicia/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CapabilityIndexStaysInLockstep(t *testing.T) {
	r := NewRegistry()
	r.Register(&types.Device{
		DeviceID: "speaker-1",
		Capabilities: map[string]*types.CapabilityDescriptor{
			"play_audio": {Name: "play_audio"},
		},
	})
	r.Register(&types.Device{
		DeviceID: "speaker-2",
		Capabilities: map[string]*types.CapabilityDescriptor{
			"play_audio": {Name: "play_audio"},
		},
	})

	members := r.Members("play_audio")
	require.Len(t, members, 2)

	r.Unregister("speaker-1")
	members = r.Members("play_audio")
	require.Len(t, members, 1)
	assert.Equal(t, "speaker-2", members[0])

	assert.Len(t, r.ListCapabilities(), 1, "expected capability still listed while speaker-2 has it")
}

func TestRegistry_ReregisterReplacesCapabilities(t *testing.T) {
	r := NewRegistry()
	r.Register(&types.Device{
		DeviceID:     "light-1",
		Capabilities: map[string]*types.CapabilityDescriptor{"dim": {Name: "dim"}},
	})
	r.Register(&types.Device{
		DeviceID:     "light-1",
		Capabilities: map[string]*types.CapabilityDescriptor{"color": {Name: "color"}},
	})

	assert.Empty(t, r.Members("dim"), "expected old capability deindexed on reregister")
	assert.Len(t, r.Members("color"), 1, "expected new capability indexed on reregister")
}

func TestRegistry_SweepOfflineMarksStaleDevices(t *testing.T) {
	r := NewRegistry()
	r.Register(&types.Device{DeviceID: "sensor-1"})

	r.mu.Lock()
	r.devices["sensor-1"].LastSeen = time.Now().Add(-10 * time.Minute)
	r.mu.Unlock()

	r.SweepOffline()

	d, _ := r.GetDevice("sensor-1")
	assert.Equal(t, types.DeviceStatusOffline, d.Status)
}

func TestCommandIDFromCorrelation(t *testing.T) {
	commandID := "cmd-123"
	deviceID := "speaker-1"
	correlation := commandID + "_" + deviceID + "_a1b2c3d4"

	got := commandIDFromCorrelation(correlation, deviceID)
	assert.Equal(t, commandID, got)
}

func TestCommandIDFromCorrelation_MismatchedDevice(t *testing.T) {
	correlation := "cmd-123_speaker-1_a1b2c3d4"
	assert.Empty(t, commandIDFromCorrelation(correlation, "speaker-2"))
}

func TestManager_SendAndCompleteCommand(t *testing.T) {
	m := NewManager(nil, NewRegistry())

	commandID := m.SendCommand([]string{"speaker-1"}, "play", map[string]any{"url": "http://x"}, types.PriorityHigh)

	// Simulate dispatch bookkeeping directly since Run requires a live bus client.
	m.mu.Lock()
	m.pending[commandID] = &pendingCommand{
		cmd:         types.Command{CommandID: commandID, Status: types.CommandStatusExecuting},
		pendingDevs: map[string]bool{"speaker-1": true},
		responses:   make(map[string]any),
	}
	m.mu.Unlock()

	nonce := "abcd1234"
	m.HandleResponse("speaker-1", commandID+"_speaker-1_"+nonce, map[string]any{"ok": true})

	cmd, ok := m.GetCommand(commandID)
	require.True(t, ok, "expected command in history after completion")
	assert.Equal(t, types.CommandStatusCompleted, cmd.Status)
}

func TestManager_TimeoutFinalizesOnce(t *testing.T) {
	m := NewManager(nil, NewRegistry())
	commandID := "cmd-timeout"

	pc := &pendingCommand{
		cmd:         types.Command{CommandID: commandID, Status: types.CommandStatusExecuting},
		pendingDevs: map[string]bool{"speaker-1": true},
		responses:   make(map[string]any),
	}
	m.mu.Lock()
	m.pending[commandID] = pc
	m.mu.Unlock()

	m.finalize(commandID, types.CommandStatusTimeout, "")
	m.finalize(commandID, types.CommandStatusTimeout, "") // must be a no-op

	cmd, ok := m.GetCommand(commandID)
	require.True(t, ok, "expected command in history")
	assert.Equal(t, types.CommandStatusTimeout, cmd.Status)

	m.mu.Lock()
	historyCount := 0
	for _, c := range m.history {
		if c.CommandID == commandID {
			historyCount++
		}
	}
	m.mu.Unlock()
	assert.Equal(t, 1, historyCount, "expected command finalized exactly once in history")
}
