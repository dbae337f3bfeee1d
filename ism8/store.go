// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ism8

import (
	"sort"
	"sync"
	"time"
)

// StoredValue is the last value received for a datapoint
type StoredValue struct {
	ID        DatapointID
	Value     Value
	UpdatedAt time.Time
}

// Store holds the latest decoded value per datapoint.
// Values are only ever overwritten, never removed.
type Store struct {
	mu     sync.RWMutex
	values map[DatapointID]StoredValue
	now    func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		values: make(map[DatapointID]StoredValue),
		now:    time.Now,
	}
}

// Read returns the last value received for id
func (s *Store) Read(id DatapointID) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.values[id]
	return sv.Value, ok
}

// Get returns the last value and its update time
func (s *Store) Get(id DatapointID) (StoredValue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.values[id]
	return sv, ok
}

// Updated returns when id was last written, or the zero time
func (s *Store) Updated(id DatapointID) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[id].UpdatedAt
}

// Update overwrites the value of id
func (s *Store) Update(id DatapointID, v Value) StoredValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	sv := StoredValue{ID: id, Value: v, UpdatedAt: s.now()}
	s.values[id] = sv
	return sv
}

// Len returns the number of datapoints with a value
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Snapshot returns a copy of all values ordered by id
func (s *Store) Snapshot() []StoredValue {
	s.mu.RLock()
	out := make([]StoredValue, 0, len(s.values))
	for _, sv := range s.values {
		out = append(out, sv)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
