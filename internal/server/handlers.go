package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshp123/deebot-bridge/internal/manager"
)

type healthResponse struct {
	Status           string `json:"status"`
	DevicesConnected int    `json:"devices_connected"`
	Message          string `json:"message"`
}

type commandResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	DeviceID string `json:"device_id"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type indexResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
	Health  string `json:"health"`
}

// Routes builds the bridge's HTTP mux: the device API, health,
// metrics, and the embedded API docs.
func Routes(m *manager.Manager, registry *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("GET /health", handleHealth(m))
	mux.HandleFunc("GET /devices", handleDevices(m))
	mux.HandleFunc("GET /devices/{id}/status", handleStatus(m))
	mux.HandleFunc("POST /devices/{id}/{command}", handleCommand(m))
	mux.Handle("GET /metrics", MetricsHandler(registry))
	mux.HandleFunc("GET /openapi.json", handleOpenAPI)
	mux.HandleFunc("GET /docs", handleDocs)

	return mux
}

func handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, indexResponse{
		Name:    "deebot-bridge",
		Version: Version,
		Docs:    "/docs",
		Health:  "/health",
	})
}

// Health always answers 200; degraded states are reported in the body.
func handleHealth(m *manager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		connected := m.Connected()
		resp := healthResponse{DevicesConnected: connected}
		switch {
		case !m.Initialized():
			resp.Status = "unhealthy"
			resp.Message = "device manager not initialized"
		case connected == 0:
			resp.Status = "degraded"
			resp.Message = "no devices discovered"
		default:
			resp.Status = "healthy"
			resp.Message = fmt.Sprintf("connected to %d devices", connected)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleDevices(m *manager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, m.Devices())
	}
}

func handleStatus(m *manager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := m.Status(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

func handleCommand(m *manager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID := r.PathValue("id")
		command := manager.Command(r.PathValue("command"))
		if !validCommand(command) {
			writeJSON(w, http.StatusNotFound, errorResponse{
				Error:   "unknown_command",
				Message: fmt.Sprintf("unknown command %q", command),
			})
			return
		}

		if err := m.SendCommand(r.Context(), deviceID, command); err != nil {
			var cmdErr manager.CommandError
			if errors.As(err, &cmdErr) {
				writeJSON(w, http.StatusBadGateway, commandResponse{
					Success:  false,
					Message:  cmdErr.Err.Error(),
					DeviceID: deviceID,
				})
				return
			}
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, commandResponse{
			Success:  true,
			Message:  fmt.Sprintf("%s command sent", command),
			DeviceID: deviceID,
		})
	}
}

func validCommand(command manager.Command) bool {
	for _, known := range manager.Commands() {
		if command == known {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, manager.ErrDeviceNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:   "device_not_found",
			Message: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   "internal",
		Message: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}
