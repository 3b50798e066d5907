// Package decaymap implements a generic map whose entries expire after a
// per-entry duration.
package decaymap

import (
	"sync"
	"time"
)

// Zilch returns the zero value of type T.
func Zilch[T any]() T {
	var zero T
	return zero
}

// Impl is a lazy key->value map. It's a wrapper around a map and a mutex. If
// values exceed their time-to-live, they are pruned at Get time or during
// Cleanup.
type Impl[K comparable, V any] struct {
	data map[K]decayMapEntry[V]
	lock sync.RWMutex
}

type decayMapEntry[V any] struct {
	Value  V
	expiry time.Time
}

// New creates a new DecayMap of key type K and value type V.
//
// Key types must be comparable to be used as keys in a map.
func New[K comparable, V any]() *Impl[K, V] {
	return &Impl[K, V]{
		data: make(map[K]decayMapEntry[V]),
	}
}

func (m *Impl[K, V]) expire(key K) bool {
	m.lock.RLock()
	if _, ok := m.data[key]; !ok {
		m.lock.RUnlock()
		return false
	}
	m.lock.RUnlock()

	m.lock.Lock()
	// Entry may have been refreshed between the locks.
	if val, ok := m.data[key]; ok && time.Now().After(val.expiry) {
		delete(m.data, key)
		m.lock.Unlock()
		return true
	}
	m.lock.Unlock()

	return false
}

// Delete a value from the DecayMap by key.
//
// If the value does not exist, return false. Return true after deletion.
func (m *Impl[K, V]) Delete(key K) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	val, ok := m.data[key]
	if !ok {
		return false
	}
	delete(m.data, key)

	return !time.Now().After(val.expiry)
}

// Get gets a value from the DecayMap by key.
//
// If a value has expired, forcibly delete it if it was not updated.
func (m *Impl[K, V]) Get(key K) (V, bool) {
	m.lock.RLock()
	value, ok := m.data[key]
	m.lock.RUnlock()

	if !ok {
		return Zilch[V](), false
	}

	if time.Now().After(value.expiry) {
		m.expire(key)
		return Zilch[V](), false
	}

	return value.Value, true
}

// GetDelete fetches a value and removes it under a single lock, so two
// callers racing on the same key never both observe it.
func (m *Impl[K, V]) GetDelete(key K) (V, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	value, ok := m.data[key]
	if !ok {
		return Zilch[V](), false
	}
	delete(m.data, key)

	if time.Now().After(value.expiry) {
		return Zilch[V](), false
	}

	return value.Value, true
}

// Set sets a key value pair in the map.
func (m *Impl[K, V]) Set(key K, value V, ttl time.Duration) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.data[key] = decayMapEntry[V]{
		Value:  value,
		expiry: time.Now().Add(ttl),
	}
}

// Cleanup removes all expired entries from the DecayMap.
func (m *Impl[K, V]) Cleanup() {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := time.Now()
	for key, val := range m.data {
		if now.After(val.expiry) {
			delete(m.data, key)
		}
	}
}

// Len returns the number of entries in the DecayMap, expired or not.
func (m *Impl[K, V]) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.data)
}
