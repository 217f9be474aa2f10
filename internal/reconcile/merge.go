// Package reconcile merges an imported ledger into the current one.
//
// Merge is a pure function: it never mutates its inputs and, for the same
// inputs and policy, always yields the same ledger and the same statistics.
// Merging the same import twice adds nothing the second time.
package reconcile

import (
	"time"

	"github.com/google/uuid"

	"eventledger/internal/core"
)

// collisionSpace namespaces the ids derived for imported items whose id is
// already taken by a different item.
var collisionSpace = uuid.MustParse("5b0f9c7e-3c1d-4b7e-9a51-2f6d8e4a1c03")

// Result is the outcome of a merge.
type Result struct {
	Ledger core.Ledger
	Stats  Stats
}

// Import normalizes a decoded payload and merges it into current.
func Import(current core.Ledger, p Payload, now time.Time, policy Policy) Result {
	return Merge(current, Normalize(p, now), policy)
}

// Merge appends every imported item that has no counterpart in current,
// as decided by the per-collection key policy.
//
// Items are visited in imported order. A skipped duplicate is remapped to
// its existing counterpart so imported children follow it. An imported
// head or entry whose parent is in neither ledger is dropped and counted
// as orphaned. An imported item without an id gets one derived from its
// business fields, so it is recognized when the same file is merged again.
func Merge(current, imported core.Ledger, policy Policy) Result {
	out := current.Clone()
	var st Stats

	// events
	eventIDs := idSet(out.Events, func(e core.Event) string { return e.ID })
	eventKeys := keyIndex(out.Events, func(e core.Event) (string, string) {
		return eventKey(policy.Events, e), e.ID
	})
	eventRemap := make(map[string]string)
	for _, ev := range imported.Events {
		orig := ev.ID
		if ev.ID == "" {
			ev.ID = blankID(core.PrefixEvent, eventKey(ByNaturalKey, ev))
		}
		k := eventKey(policy.Events, ev)
		if existing, ok := eventKeys[k]; ok {
			st.SkippedEvents++
			remapOnce(eventRemap, orig, existing)
			continue
		}
		newID := freshID(eventIDs, core.PrefixEvent, ev.ID, k)
		remapOnce(eventRemap, orig, newID)
		ev.ID = newID
		if ev.EndDate != nil {
			end := *ev.EndDate
			ev.EndDate = &end
		}
		out.Events = append(out.Events, ev)
		eventIDs[newID] = struct{}{}
		eventKeys[k] = newID
		st.AddedEvents++
	}

	// heads
	headIDs := idSet(out.ExpenseHeads, func(h core.ExpenseHead) string { return h.ID })
	headKeys := keyIndex(out.ExpenseHeads, func(h core.ExpenseHead) (string, string) {
		return headKey(policy.Heads, h), h.ID
	})
	headRemap := make(map[string]string)
	for _, h := range imported.ExpenseHeads {
		h.EventID = remapped(eventRemap, h.EventID)
		orig := h.ID
		if h.ID == "" {
			h.ID = blankID(core.PrefixHead, headKey(ByNaturalKey, h))
		}
		k := headKey(policy.Heads, h)
		if existing, ok := headKeys[k]; ok {
			st.SkippedHeads++
			remapOnce(headRemap, orig, existing)
			continue
		}
		if _, ok := eventIDs[h.EventID]; !ok {
			st.OrphanedHeads++
			continue
		}
		newID := freshID(headIDs, core.PrefixHead, h.ID, k)
		remapOnce(headRemap, orig, newID)
		h.ID = newID
		out.ExpenseHeads = append(out.ExpenseHeads, h)
		headIDs[newID] = struct{}{}
		headKeys[k] = newID
		st.AddedHeads++
	}

	// entries
	entryIDs := idSet(out.ExpenseEntries, func(e core.ExpenseEntry) string { return e.ID })
	entryKeys := keyIndex(out.ExpenseEntries, func(e core.ExpenseEntry) (string, string) {
		return entryKey(policy.Entries, e), e.ID
	})
	for _, e := range imported.ExpenseEntries {
		e.ExpenseHeadID = remapped(headRemap, e.ExpenseHeadID)
		if e.ID == "" {
			e.ID = blankID(core.PrefixEntry, entryKey(ByNaturalKey, e))
		}
		k := entryKey(policy.Entries, e)
		if _, ok := entryKeys[k]; ok {
			st.SkippedEntries++
			continue
		}
		if _, ok := headIDs[e.ExpenseHeadID]; !ok {
			st.OrphanedEntries++
			continue
		}
		e.ID = freshID(entryIDs, core.PrefixEntry, e.ID, k)
		out.ExpenseEntries = append(out.ExpenseEntries, e)
		entryIDs[e.ID] = struct{}{}
		entryKeys[k] = e.ID
		st.AddedEntries++
	}

	return Result{Ledger: out, Stats: st}
}

// blankID derives the id of an imported item that has none.
func blankID(prefix, naturalKey string) string {
	return prefix + "-" + uuid.NewSHA1(collisionSpace, []byte("blank"+keySep+naturalKey)).String()
}

// freshID keeps id unless it is already taken, in which case it derives a
// replacement from the id and the natural key. Under the id policy a taken
// id is always a duplicate, so this only ever renames under the natural
// key policy.
func freshID(taken map[string]struct{}, prefix, id, key string) string {
	if _, ok := taken[id]; !ok {
		return id
	}
	seed := id + keySep + key
	for {
		candidate := prefix + "-" + uuid.NewSHA1(collisionSpace, []byte(seed)).String()
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
		seed = candidate
	}
}

func remapOnce(m map[string]string, from, to string) {
	if _, ok := m[from]; !ok {
		m[from] = to
	}
}

func remapped(m map[string]string, id string) string {
	if to, ok := m[id]; ok {
		return to
	}
	return id
}

func idSet[T any](items []T, id func(T) string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[id(it)] = struct{}{}
	}
	return out
}

// keyIndex maps each key to the first item carrying it.
func keyIndex[T any](items []T, kv func(T) (string, string)) map[string]string {
	out := make(map[string]string, len(items))
	for _, it := range items {
		k, id := kv(it)
		if _, ok := out[k]; !ok {
			out[k] = id
		}
	}
	return out
}
