package server

// DiagnosticsReport summarizes coordinator state for the diagnostics
// endpoint.
type DiagnosticsReport struct {
	Tick          uint64             `json:"t"`
	ServerTime    int64              `json:"serverTime"`
	Subscriptions int                `json:"subscriptions"`
	Groups        []DiagnosticsGroup `json:"groups"`
	Telemetry     TelemetrySnapshot  `json:"telemetry"`
}

// DiagnosticsGroup is one registry entry in a diagnostics report, listed in
// creation order.
type DiagnosticsGroup struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
	Meters  int    `json:"meters"`
}
