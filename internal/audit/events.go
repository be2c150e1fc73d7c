package audit

import "time"

type Result string

const (
	ResultOK     Result = "ok"
	ResultError  Result = "error"
	ResultCached Result = "cached"
)

// CompileEvent records one compile request. Criteria is kept verbatim so
// rejected searches can be replayed.
type CompileEvent struct {
	Endpoint   string    `json:"endpoint"`
	Mode       string    `json:"mode,omitempty"`
	Criteria   string    `json:"criteria"`
	Canonical  string    `json:"canonical,omitempty"`
	Field      string    `json:"field"`
	Result     Result    `json:"result"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Advisories int       `json:"advisories"`
	LatencyUs  int64     `json:"latency_us"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e CompileEvent) key() string {
	if e.RequestID != "" {
		return e.RequestID
	}
	return e.Endpoint
}
