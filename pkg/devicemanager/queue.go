package devicemanager

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aliciabus/alicia/pkg/bus"
	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/aliciabus/alicia/pkg/log"
	"github.com/aliciabus/alicia/pkg/metrics"
	"github.com/aliciabus/alicia/pkg/types"
	"github.com/google/uuid"
)

// maxConcurrentCommands bounds how many commands may be executing at
// once across the whole manager.
const maxConcurrentCommands = 10

// commandTimeout is the default deadline from dispatch to completion.
const commandTimeout = 30 * time.Second

// historyCapacity bounds the completed-command ring; oldest evicted
// first.
const historyCapacity = 1000

// agingEvery is how often (in dispatch count) the dispatcher reserves
// a slot for normal/low priority even while high-priority work is
// pending, so high-priority traffic can't starve the other lanes.
const agingEvery = 4

type pendingCommand struct {
	cmd          types.Command
	pendingDevs  map[string]bool
	responses    map[string]any
	timeoutTimer *time.Timer
	finalizeOnce sync.Once
}

// Manager owns the device/capability registry, the priority command
// queue, and the in-flight/history command ledger.
type Manager struct {
	registry *Registry
	client   *bus.Client

	lanes map[types.Priority]chan *types.Command

	mu        sync.Mutex
	pending   map[string]*pendingCommand
	history   []types.Command
	dispatchN uint64
}

// NewManager creates a device manager bound to client for dispatch and
// response correlation. Call Run to start its dispatcher goroutine.
func NewManager(client *bus.Client, registry *Registry) *Manager {
	return &Manager{
		registry: registry,
		client:   client,
		lanes: map[types.Priority]chan *types.Command{
			types.PriorityHigh:   make(chan *types.Command, 256),
			types.PriorityNormal: make(chan *types.Command, 256),
			types.PriorityLow:    make(chan *types.Command, 256),
		},
		pending: make(map[string]*pendingCommand),
	}
}

// SendCommand enqueues a fan-out command against device_ids and
// returns its command_id.
func (m *Manager) SendCommand(deviceIDs []string, command string, parameters map[string]any, priority types.Priority) string {
	cmd := &types.Command{
		CommandID:  uuid.NewString(),
		DeviceIDs:  deviceIDs,
		Command:    command,
		Parameters: parameters,
		Priority:   priority,
		QueuedAt:   time.Now(),
		Status:     types.CommandStatusQueued,
	}
	m.enqueue(cmd)
	return cmd.CommandID
}

// SendCapabilityCommand resolves capability's current member set and
// enqueues a command against it.
func (m *Manager) SendCapabilityCommand(capability, command string, parameters map[string]any, priority types.Priority) string {
	return m.SendCommand(m.registry.Members(capability), command, parameters, priority)
}

func (m *Manager) enqueue(cmd *types.Command) {
	lane := m.lanes[cmd.Priority]
	if lane == nil {
		lane = m.lanes[types.PriorityNormal]
	}
	metrics.CommandQueueDepth.WithLabelValues(string(cmd.Priority)).Inc()
	lane <- cmd
}

// Run drains the priority lanes and dispatches commands until ctx is
// canceled. High priority is served first, but every agingEvery'th
// dispatch reserves the slot for normal/low so those lanes can't
// starve under sustained high-priority load.
func (m *Manager) Run(ctx context.Context) {
	sem := make(chan struct{}, maxConcurrentCommands)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cmd := m.nextCommand(ctx)
		if cmd == nil {
			return
		}

		sem <- struct{}{}
		go func(c *types.Command) {
			defer func() { <-sem }()
			m.dispatch(ctx, c)
		}(cmd)
	}
}

func (m *Manager) nextCommand(ctx context.Context) *types.Command {
	m.mu.Lock()
	m.dispatchN++
	agingTurn := m.dispatchN%agingEvery == 0
	m.mu.Unlock()

	if agingTurn {
		select {
		case cmd := <-m.lanes[types.PriorityNormal]:
			return cmd
		case cmd := <-m.lanes[types.PriorityLow]:
			return cmd
		default:
		}
	}

	select {
	case cmd := <-m.lanes[types.PriorityHigh]:
		return cmd
	default:
	}

	select {
	case cmd := <-m.lanes[types.PriorityHigh]:
		return cmd
	case cmd := <-m.lanes[types.PriorityNormal]:
		return cmd
	case cmd := <-m.lanes[types.PriorityLow]:
		return cmd
	case <-ctx.Done():
		return nil
	}
}

func (m *Manager) dispatch(ctx context.Context, cmd *types.Command) {
	metrics.CommandQueueDepth.WithLabelValues(string(cmd.Priority)).Dec()

	now := time.Now()
	cmd.StartedAt = &now
	cmd.Status = types.CommandStatusExecuting

	pc := &pendingCommand{
		cmd:         *cmd,
		pendingDevs: make(map[string]bool, len(cmd.DeviceIDs)),
		responses:   make(map[string]any),
	}
	for _, id := range cmd.DeviceIDs {
		pc.pendingDevs[id] = true
	}

	m.mu.Lock()
	m.pending[cmd.CommandID] = pc
	m.mu.Unlock()

	if len(cmd.DeviceIDs) == 0 {
		m.finalize(cmd.CommandID, types.CommandStatusCompleted, "")
		return
	}

	pc.timeoutTimer = time.AfterFunc(commandTimeout, func() {
		m.finalize(cmd.CommandID, types.CommandStatusTimeout, "")
	})

	for _, deviceID := range cmd.DeviceIDs {
		nonce := uuid.NewString()[:8]
		correlation := fmt.Sprintf("%s_%s_%s", cmd.CommandID, deviceID, nonce)
		payload := map[string]any{
			"correlation_id": correlation,
			"command_id":     cmd.CommandID,
			"command":        cmd.Command,
			"parameters":     cmd.Parameters,
		}
		if err := m.client.Publish(ctx, bus.DeviceCommandTopic(deviceID), payload, bus.PublishOptions{
			Destination: deviceID,
			MessageType: types.MessageTypeCommand,
			Priority:    cmd.Priority,
		}); err != nil {
			log.WithDeviceID(deviceID).Error().Err(err).
				Str("command_id", cmd.CommandID).
				Msg("publish command failed")
		}
	}
	metrics.CommandsTotal.WithLabelValues("dispatched").Inc()
}

// HandleResponse correlates a device's response by stripping the
// "_{device_id}_{nonce}" suffix from correlation_id to recover
// command_id, and completes the command once every targeted device
// has responded.
func (m *Manager) HandleResponse(deviceID, correlationID string, response any) {
	commandID := commandIDFromCorrelation(correlationID, deviceID)
	if commandID == "" {
		return
	}

	m.mu.Lock()
	pc, ok := m.pending[commandID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(pc.pendingDevs, deviceID)
	pc.responses[deviceID] = response
	done := len(pc.pendingDevs) == 0
	m.mu.Unlock()

	if done {
		m.finalize(commandID, types.CommandStatusCompleted, "")
	}
}

// commandIDFromCorrelation recovers command_id from a
// "{command_id}_{device_id}_{nonce}" correlation id by stripping the
// trailing nonce segment, then the device_id segment.
func commandIDFromCorrelation(correlationID, deviceID string) string {
	lastUnderscore := strings.LastIndex(correlationID, "_")
	if lastUnderscore < 0 {
		return ""
	}
	withoutNonce := correlationID[:lastUnderscore]

	suffix := "_" + deviceID
	if !strings.HasSuffix(withoutNonce, suffix) {
		return ""
	}
	return withoutNonce[:len(withoutNonce)-len(suffix)]
}

// finalize moves a command from pending to history exactly once,
// guarded by sync.Once so a race between a late response and the
// timeout can't double-finalize.
func (m *Manager) finalize(commandID string, status types.CommandStatus, errMsg string) {
	m.mu.Lock()
	pc, ok := m.pending[commandID]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	pc.finalizeOnce.Do(func() {
		if pc.timeoutTimer != nil {
			pc.timeoutTimer.Stop()
		}
		now := time.Now()
		pc.cmd.CompletedAt = &now
		pc.cmd.Status = status
		pc.cmd.Responses = pc.responses
		pc.cmd.Error = errMsg

		m.mu.Lock()
		delete(m.pending, commandID)
		m.history = append(m.history, pc.cmd)
		if len(m.history) > historyCapacity {
			m.history = m.history[len(m.history)-historyCapacity:]
		}
		m.mu.Unlock()

		log.WithCommandID(commandID).Debug().Str("status", string(status)).Msg("command finalized")
		metrics.CommandsTotal.WithLabelValues(string(status)).Inc()
	})
}

// GetCommand returns a command's current state from either the
// pending or history ledger.
func (m *Manager) GetCommand(commandID string) (types.Command, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pc, ok := m.pending[commandID]; ok {
		cmd := pc.cmd
		cmd.Responses = pc.responses
		return cmd, true
	}
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].CommandID == commandID {
			return m.history[i], true
		}
	}
	return types.Command{}, false
}

var errCommandNotFound = errs.New(errs.KindNotFound, "command not found")
