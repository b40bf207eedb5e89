package net

import (
	"encoding/json"
	nethttp "net/http"

	server "pulsemeter/server"
	"pulsemeter/server/internal/net/ws"
	"pulsemeter/server/internal/sim"
	"pulsemeter/server/internal/telemetry"
)

// HTTPHandlerConfig wires the HTTP surface's collaborators.
type HTTPHandlerConfig struct {
	Logger telemetry.Logger
	World  *sim.World
}

// NewHTTPHandler builds the server's HTTP mux: the websocket upgrade
// endpoint, health and diagnostics probes, and the debug world controls.
func NewHTTPHandler(coordinator *server.Coordinator, wsHandler *ws.Handler, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/ws", wsHandler.Handle)

	mux.HandleFunc("/healthz", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(coordinator.DiagnosticsSnapshot()); err != nil {
			logger.Printf("failed to encode diagnostics: %v", err)
		}
	})

	if cfg.World != nil {
		mux.HandleFunc("/debug/power", handleDebugPower(cfg.World, logger))
		mux.HandleFunc("/debug/piston", handleDebugPiston(cfg.World, logger))
	}

	return mux
}

type debugPowerRequest struct {
	World   string `json:"world"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Z       int    `json:"z"`
	Powered bool   `json:"powered"`
}

type debugPistonRequest struct {
	World     string `json:"world"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Z         int    `json:"z"`
	Direction string `json:"direction"`
}

func handleDebugPower(world *sim.World, logger telemetry.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			nethttp.Error(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		var req debugPowerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad request", nethttp.StatusBadRequest)
			return
		}
		world.SetPowered(server.WorldRef(req.World), server.Position{X: req.X, Y: req.Y, Z: req.Z}, req.Powered)
		logger.Printf("debug power %s (%d,%d,%d) -> %v", req.World, req.X, req.Y, req.Z, req.Powered)
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

func handleDebugPiston(world *sim.World, logger telemetry.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			nethttp.Error(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		var req debugPistonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad request", nethttp.StatusBadRequest)
			return
		}
		world.Push(server.WorldRef(req.World), server.Position{X: req.X, Y: req.Y, Z: req.Z}, server.Direction(req.Direction))
		logger.Printf("debug piston %s (%d,%d,%d) %s", req.World, req.X, req.Y, req.Z, req.Direction)
		w.WriteHeader(nethttp.StatusNoContent)
	}
}
