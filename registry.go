// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package contentcore

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry holds named processors and answers capability queries.
//
// Registration is administrative: it happens at process start or in test
// setup, never concurrently with in-flight requests. Reads are safe to
// share across concurrent extraction calls. Availability is evaluated once
// at registration and again only on Reset/Reinitialize.
type Registry struct {
	mu      sync.RWMutex
	entries []registryEntry

	// known tracks every processor ever passed to Register, including
	// ones skipped as unavailable, so Reinitialize can restore the
	// registry after a Reset.
	known []Processor
}

type registryEntry struct {
	name string
	proc Processor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register inserts a processor by name. Processors whose availability
// check fails are skipped. A name collision logs a warning and overwrites
// the existing entry in place, preserving its registration position.
func (r *Registry) Register(p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.remember(p)

	if !p.Available() {
		log.Debug().Str("processor", p.Name()).Msg("processor not available, skipping registration")
		return
	}
	r.insert(p)
}

func (r *Registry) remember(p Processor) {
	for _, k := range r.known {
		if k.Name() == p.Name() {
			return
		}
	}
	r.known = append(r.known, p)
}

func (r *Registry) insert(p Processor) {
	name := p.Name()
	for i := range r.entries {
		if r.entries[i].name == name {
			log.Warn().Str("processor", name).Msg("processor already registered, overwriting")
			r.entries[i].proc = p
			return
		}
	}
	r.entries = append(r.entries, registryEntry{name: name, proc: p})
	log.Debug().
		Str("processor", name).
		Int("priority", p.Capabilities().Priority).
		Msg("registered processor")
}

// Unregister removes a processor by name. Returns false if absent.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].name == name {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the processor registered under name, or nil.
func (r *Registry) Get(name string) Processor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.name == name {
			return e.proc
		}
	}
	return nil
}

// FindForMIMEType returns all processors supporting the MIME type,
// wildcard patterns included, sorted by descending priority. Equal
// priorities preserve registration order.
func (r *Registry) FindForMIMEType(mimeType string) []Processor {
	return r.find(func(p Processor) bool {
		return p.Capabilities().SupportsMIMEType(mimeType)
	})
}

// FindForExtension returns all processors supporting the file extension,
// sorted like FindForMIMEType.
func (r *Registry) FindForExtension(ext string) []Processor {
	return r.find(func(p Processor) bool {
		return p.Capabilities().SupportsExtension(ext)
	})
}

// FindForCategory returns all processors in the category, sorted like
// FindForMIMEType.
func (r *Registry) FindForCategory(category string) []Processor {
	return r.find(func(p Processor) bool {
		return p.Capabilities().Category == category
	})
}

func (r *Registry) find(match func(Processor) bool) []Processor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Processor
	for _, e := range r.entries {
		if match(e.proc) {
			out = append(out, e.proc)
		}
	}
	// Stable sort keeps registration order on priority ties.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Capabilities().Priority > out[j].Capabilities().Priority
	})
	return out
}

// ListAvailable returns all registered processors in registration order.
func (r *Registry) ListAvailable() []Processor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Processor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.proc)
	}
	return out
}

// ListNames returns the names of all registered processors in
// registration order.
func (r *Registry) ListNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.name)
	}
	return out
}

// Reset clears the registry. When clearKnown is true the record of
// previously registered processors is dropped too, so a later
// Reinitialize restores nothing. Primarily for tests.
func (r *Registry) Reset(clearKnown bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = nil
	if clearKnown {
		r.known = nil
	}
}

// Reinitialize re-registers every known processor, re-evaluating
// availability.
func (r *Registry) Reinitialize() {
	r.mu.Lock()
	known := make([]Processor, len(r.known))
	copy(known, r.known)
	r.mu.Unlock()

	for _, p := range known {
		r.Register(p)
	}
}
