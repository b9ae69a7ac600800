package actions

import (
	"sync"
	"time"
)

// ActuatorState is one cached actuator value. Provisional marks values
// applied optimistically that the backend has not yet confirmed.
type ActuatorState struct {
	Value       string    `json:"value"`
	Provisional bool      `json:"provisional"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StateCache holds the locally known actuator state per target. Optimistic
// writes land as provisional; authoritative updates from the backend
// always win, clearing the provisional mark.
type StateCache struct {
	mu     sync.RWMutex
	states map[string]map[string]ActuatorState
}

// NewStateCache builds an empty cache.
func NewStateCache() *StateCache {
	return &StateCache{states: make(map[string]map[string]ActuatorState)}
}

// ApplyOptimistic records a provisional local value for one actuator.
func (c *StateCache) ApplyOptimistic(targetID, sensor, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(targetID, sensor, ActuatorState{
		Value:       value,
		Provisional: true,
		UpdatedAt:   time.Now().UTC(),
	})
}

// ApplyAuthoritative records backend-confirmed values for a target. It
// overwrites whatever is cached, provisional or not.
func (c *StateCache) ApplyAuthoritative(targetID string, values map[string]string) {
	now := time.Now().UTC()
	c.mu.Lock()
	defer c.mu.Unlock()
	for sensor, value := range values {
		c.set(targetID, sensor, ActuatorState{
			Value:     value,
			UpdatedAt: now,
		})
	}
}

// Revert restores an actuator to a previously observed state, or removes
// the entry when none existed before the optimistic write.
func (c *StateCache) Revert(targetID, sensor string, prev ActuatorState, existed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !existed {
		if target, ok := c.states[targetID]; ok {
			delete(target, sensor)
			if len(target) == 0 {
				delete(c.states, targetID)
			}
		}
		return
	}
	c.set(targetID, sensor, prev)
}

func (c *StateCache) set(targetID, sensor string, state ActuatorState) {
	target, ok := c.states[targetID]
	if !ok {
		target = make(map[string]ActuatorState)
		c.states[targetID] = target
	}
	target[sensor] = state
}

// Get returns the cached state for one actuator.
func (c *StateCache) Get(targetID, sensor string) (ActuatorState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.states[targetID][sensor]
	return state, ok
}

// Snapshot returns a deep copy of the whole cache.
func (c *StateCache) Snapshot() map[string]map[string]ActuatorState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]map[string]ActuatorState, len(c.states))
	for targetID, sensors := range c.states {
		cp := make(map[string]ActuatorState, len(sensors))
		for sensor, state := range sensors {
			cp[sensor] = state
		}
		out[targetID] = cp
	}
	return out
}
