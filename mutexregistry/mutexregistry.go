// Package mutexregistry implements the MutexRegistry: the table of mutex
// subnets and the maps from LLIR locals (and their data places) to the
// mutex identities they carry; there is no lookup from a mutex back to
// its locals. It is kept outside per-function state
// because mutex identity must flow across call frames (§4.6, §9).
package mutexregistry

import (
	"fmt"
	"log/slog"

	"llir2pn/llir"
	"llir2pn/petrinet"
)

// MutexRef is a stable reference to one mutex's four-place subnet.
type MutexRef struct {
	index int
}

type mutex struct {
	uninitialised petrinet.PlaceRef
	unlocked      petrinet.PlaceRef
	locked        petrinet.PlaceRef
	dead          petrinet.PlaceRef
}

// slotKey identifies a local uniquely across frames: the translator
// re-enters callees per call site, so the same llir.Local index can denote
// different storage in different frames. Frame is an opaque per-frame
// identity the translator hands in (e.g. a call-stack depth counter or
// frame pointer), not the LLIR local index alone.
type slotKey struct {
	frame int
	local llir.Local
}

// Registry is the MutexRegistry: a vector of mutex records plus the
// local→mutex and guard→mutex maps.
type Registry struct {
	net        *petrinet.PetriNet
	log        *slog.Logger
	mutexes    []mutex
	links      map[slotKey]MutexRef
	guards     map[slotKey]MutexRef
	byPlace    map[petrinet.PlaceRef]MutexRef
}

// New creates an empty registry bound to net. log may be nil, in which
// case a no-op discard logger is used.
func New(net *petrinet.PetriNet, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.New(slog.NewTextHandler(nullWriter{}, nil))
	}
	return &Registry{
		net:     net,
		log:     log,
		links:   make(map[slotKey]MutexRef),
		guards:  make(map[slotKey]MutexRef),
		byPlace: make(map[petrinet.PlaceRef]MutexRef),
	}
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

// Add creates a new mutex's four-place subnet with its uninitialised place
// carrying the initial token, and returns a reference to it.
func (r *Registry) Add() MutexRef {
	index := len(r.mutexes)
	uninit := r.net.NamedPlace(fmt.Sprintf("mutex%d.uninitialised", index))
	_ = r.net.SetMarking(uninit, 1)
	unlocked := r.net.NamedPlace(fmt.Sprintf("mutex%d.unlocked", index))
	locked := r.net.NamedPlace(fmt.Sprintf("mutex%d.locked", index))
	dead := r.net.NamedPlace(fmt.Sprintf("mutex%d.dead", index))
	r.mutexes = append(r.mutexes, mutex{uninitialised: uninit, unlocked: unlocked, locked: locked, dead: dead})
	return MutexRef{index: index}
}

// Uninitialised returns a mutex's uninitialised place.
func (r *Registry) Uninitialised(m MutexRef) petrinet.PlaceRef { return r.mutexes[m.index].uninitialised }

// Unlocked returns a mutex's unlocked place.
func (r *Registry) Unlocked(m MutexRef) petrinet.PlaceRef { return r.mutexes[m.index].unlocked }

// Locked returns a mutex's locked place.
func (r *Registry) Locked(m MutexRef) petrinet.PlaceRef { return r.mutexes[m.index].locked }

// Dead returns a mutex's dead place.
func (r *Registry) Dead(m MutexRef) petrinet.PlaceRef { return r.mutexes[m.index].dead }

// Link records that a local (in a given frame) now names mutex m. If the
// local was already linked to a different mutex, the old link is
// overridden and a warning is logged — re-linking is permitted but may
// reflect either a genuine ownership transfer or a modelling gap (§4.6).
func (r *Registry) Link(frame int, local llir.Local, m MutexRef) {
	key := slotKey{frame: frame, local: local}
	if old, exists := r.links[key]; exists && old != m {
		r.log.Warn("mutex re-link: local already linked to a different mutex",
			"frame", frame, "local", int(local), "old_mutex", old.index, "new_mutex", m.index)
	}
	r.links[key] = m
}

// LinkByPlace records that the data place a mutex's local lives in now
// identifies mutex m, so a later aliasing local (e.g. a callee parameter
// that shares the same place via cross-frame aliasing, §9) can be
// resolved back to the same mutex with LinkIfAliased.
func (r *Registry) LinkByPlace(place petrinet.PlaceRef, m MutexRef) {
	r.byPlace[place] = m
}

// LinkIfAliased links a local (in a given frame) to whatever mutex the
// given data place is already known to identify, if any. It reports
// whether a link was made. Used when a callee parameter aliases a
// caller's data place directly (regular calls inherit the caller's
// argument places rather than copying, §4.4), so mutex identity carried
// in that place keeps flowing across the call boundary.
func (r *Registry) LinkIfAliased(frame int, local llir.Local, place petrinet.PlaceRef) bool {
	m, ok := r.byPlace[place]
	if !ok {
		return false
	}
	r.Link(frame, local, m)
	return true
}

// Linked returns the mutex a local (in a given frame) is currently linked
// to, if any.
func (r *Registry) Linked(frame int, local llir.Local) (MutexRef, bool) {
	m, ok := r.links[slotKey{frame: frame, local: local}]
	return m, ok
}

// LinkGuard records that a local (in a given frame) holds the guard
// returned by locking mutex m.
func (r *Registry) LinkGuard(frame int, local llir.Local, m MutexRef) {
	r.guards[slotKey{frame: frame, local: local}] = m
}

// Guard returns the mutex a local's guard was registered against, if any.
func (r *Registry) Guard(frame int, local llir.Local) (MutexRef, bool) {
	m, ok := r.guards[slotKey{frame: frame, local: local}]
	return m, ok
}

// ClearGuard removes a guard link after the unlock transition has been
// emitted for it, so a later storage-leave of the same local (dead code or
// re-declared slot) does not double-unlock.
func (r *Registry) ClearGuard(frame int, local llir.Local) {
	delete(r.guards, slotKey{frame: frame, local: local})
}

// Count returns the number of registered mutexes.
func (r *Registry) Count() int { return len(r.mutexes) }

// All returns every registered mutex reference, in creation order.
func (r *Registry) All() []MutexRef {
	refs := make([]MutexRef, len(r.mutexes))
	for i := range r.mutexes {
		refs[i] = MutexRef{index: i}
	}
	return refs
}

// Groups returns the (uninitialised, unlocked, locked, dead) quadruple for
// every mutex, in creation order — a reachable marking always carries
// exactly one token across each quadruple (§8's mutex conservation
// property).
func (r *Registry) Groups() [][4]petrinet.PlaceRef {
	groups := make([][4]petrinet.PlaceRef, len(r.mutexes))
	for i, m := range r.mutexes {
		groups[i] = [4]petrinet.PlaceRef{m.uninitialised, m.unlocked, m.locked, m.dead}
	}
	return groups
}
