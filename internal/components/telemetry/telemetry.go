// Package telemetry is how components report what happened to them. Components
// take an API instead of logging directly, so tests can assert on reports
// through MemoryAPI.
package telemetry

// API receives reports from components.
//
// Ids name the component that reported, not the line of code: a broken
// assignments table inside Session.FetchRecords is reported as
// "session.fetch-records" with the details in params. Ids are lowercase,
// with dashes between words of a method name.
//
// Params must never contain credentials.
//
// note: fault injection point
type API interface {
	// ReportBroken is for failures that mean the code needs fixing, such as
	// handins changing its markup.
	ReportBroken(id string, params ...any)
	// ReportWarning is for failures that are expected now and then, such as
	// the network being down.
	ReportWarning(id string, params ...any)
	// ReportDebug is only shown with --debug.
	ReportDebug(msg string, params ...any)
	// ReportCount records a gauge-like count at the current time.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, like a sub-logger.
type ScopedAPI struct {
	prefix string
	inner  API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{prefix: namespace + ": ", inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.prefix+id, params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.prefix+id, params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.prefix+msg, params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.prefix+id, count)
}
