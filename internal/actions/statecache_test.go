package actions

import "testing"

func TestStateCacheOptimisticThenAuthoritative(t *testing.T) {
	cache := NewStateCache()

	cache.ApplyOptimistic("device-1", "temperature", "ON")
	state, ok := cache.Get("device-1", "temperature")
	if !ok || state.Value != "ON" || !state.Provisional {
		t.Fatalf("after optimistic apply: %+v ok=%v", state, ok)
	}

	cache.ApplyAuthoritative("device-1", map[string]string{"temperature": "OFF", "humidity": "ON"})
	state, ok = cache.Get("device-1", "temperature")
	if !ok || state.Value != "OFF" || state.Provisional {
		t.Fatalf("authoritative update must win: %+v", state)
	}
	if state, _ := cache.Get("device-1", "humidity"); state.Value != "ON" {
		t.Errorf("humidity = %+v", state)
	}
}

func TestStateCacheGetMissing(t *testing.T) {
	cache := NewStateCache()
	if _, ok := cache.Get("device-1", "temperature"); ok {
		t.Fatal("empty cache reported a value")
	}
}

func TestStateCacheSnapshotIsACopy(t *testing.T) {
	cache := NewStateCache()
	cache.ApplyOptimistic("device-1", "fan", "ON")

	snap := cache.Snapshot()
	snap["device-1"]["fan"] = ActuatorState{Value: "MUTATED"}

	state, _ := cache.Get("device-1", "fan")
	if state.Value != "ON" {
		t.Errorf("snapshot mutation leaked into cache: %+v", state)
	}
}
