package services

// Model is one entry of the containers manager's /models list.
type Model struct {
	Name       string   `json:"name"`
	Version    int      `json:"version"`
	SLA        float64  `json:"sla"`
	Alpha      float64  `json:"alpha"`
	ProfiledRT *float64 `json:"profiled_rt"`
}

// Container is one entry of the containers manager's /containers list.
type Container struct {
	Model       string  `json:"model"`
	Container   string  `json:"container"`
	ContainerID string  `json:"container_id"`
	Version     int     `json:"version"`
	Active      bool    `json:"active"`
	Device      int     `json:"device"`
	Node        string  `json:"node"`
	Port        int     `json:"port"`
	Endpoint    string  `json:"endpoint"`
	Quota       float64 `json:"quota"`
}

// ShortID returns the first 12 characters of the container id.
func (c Container) ShortID() string {
	return ShortID(c.ContainerID)
}

// ShortID truncates a container id to its conventional 12 character prefix.
func ShortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// WindowMetrics are request counters computed over [from_ts, now]. The
// statistics are null when no request completed in the window.
type WindowMetrics struct {
	Created    float64  `json:"created"`
	Completed  float64  `json:"completed"`
	InputReqs  float64  `json:"input_reqs"`
	OnGPU      float64  `json:"on_gpu"`
	OnCPU      float64  `json:"on_cpu"`
	Avg        *float64 `json:"avg"`
	AvgProcess *float64 `json:"avg_process"`
	Dev        *float64 `json:"dev"`
	Min        *float64 `json:"min"`
	Max        *float64 `json:"max"`
}

// ModelMetrics is one entry of the requests store's /metrics/model list.
// FromTs is set when the query carried from_ts, Totals otherwise.
type ModelMetrics struct {
	Model   string         `json:"model"`
	Version int            `json:"version"`
	FromTs  *WindowMetrics `json:"metrics_from_ts,omitempty"`
	Totals  *WindowMetrics `json:"metrics,omitempty"`
}

// Window returns whichever metrics block is present.
func (m ModelMetrics) Window() *WindowMetrics {
	if m.FromTs != nil {
		return m.FromTs
	}
	return m.Totals
}
