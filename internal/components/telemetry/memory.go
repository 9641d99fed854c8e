package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is a single report captured by MemoryAPI.
type Entry struct {
	Kind   string
	Id     string
	Params []any
}

func (e Entry) String() string {
	var out strings.Builder
	out.WriteString(e.Kind)
	out.WriteString(" ")
	out.WriteString(e.Id)
	for _, p := range e.Params {
		out.WriteString(" ")
		out.WriteString(fmt.Sprint(p))
	}
	return out.String()
}

// MemoryAPI keeps every report in memory, it is used by tests to assert on
// what a component reported.
type MemoryAPI struct {
	mutex   sync.Mutex
	entries []Entry
}

func NewMemoryAPI() *MemoryAPI {
	return &MemoryAPI{}
}

func (m *MemoryAPI) push(kind, id string, params []any) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.entries = append(m.entries, Entry{Kind: kind, Id: id, Params: params})
}

func (m *MemoryAPI) ReportBroken(id string, params ...any) {
	m.push("broken", id, params)
}

func (m *MemoryAPI) ReportWarning(id string, params ...any) {
	m.push("warning", id, params)
}

func (m *MemoryAPI) ReportDebug(msg string, params ...any) {
	m.push("debug", msg, params)
}

func (m *MemoryAPI) ReportCount(id string, count int64) {
	m.push("count", id, []any{count})
}

// Entries returns a copy of everything reported so far.
func (m *MemoryAPI) Entries() []Entry {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Broken returns the ids of every ReportBroken call.
func (m *MemoryAPI) Broken() []string {
	var ids []string
	for _, e := range m.Entries() {
		if e.Kind == "broken" {
			ids = append(ids, e.Id)
		}
	}
	return ids
}

// Dump renders every entry on its own line.
func (m *MemoryAPI) Dump() string {
	var out strings.Builder
	for _, e := range m.Entries() {
		out.WriteString(e.String())
		out.WriteString("\n")
	}
	return out.String()
}
