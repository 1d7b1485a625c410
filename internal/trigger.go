package internal

import "sync"

// Labels shown on the refresh trigger
const (
	TriggerIdleLabel = "Refresh Data"
	TriggerBusyLabel = "Processing..."
)

// TriggerState is a snapshot of the refresh trigger
type TriggerState struct {
	Enabled bool
	Label   string
}

// Trigger models the control that starts a knowledge refresh
type Trigger struct {
	mu       sync.Mutex
	state    TriggerState
	onChange func(TriggerState)
}

// NewTrigger returns an enabled trigger with the idle label. onChange, when
// non-nil, is called after every state change.
func NewTrigger(onChange func(TriggerState)) *Trigger {
	return &Trigger{
		state:    TriggerState{Enabled: true, Label: TriggerIdleLabel},
		onChange: onChange,
	}
}

// State returns the current state
func (t *Trigger) State() TriggerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Disable marks the trigger busy
func (t *Trigger) Disable() {
	t.set(TriggerState{Enabled: false, Label: TriggerBusyLabel})
}

// Restore re-enables the trigger with its idle label
func (t *Trigger) Restore() {
	t.set(TriggerState{Enabled: true, Label: TriggerIdleLabel})
}

func (t *Trigger) set(s TriggerState) {
	t.mu.Lock()
	t.state = s
	onChange := t.onChange
	t.mu.Unlock()
	if onChange != nil {
		onChange(s)
	}
}
