package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sensorhub/sensorhub-core/internal/query"
)

// handleListDevices returns every registered device.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.query.ListDevices(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleListCommandable returns devices that advertise commands.
func (s *Server) handleListCommandable(w http.ResponseWriter, r *http.Request) {
	devices, err := s.query.ListCommandable(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleGetDevice returns a single device by device_id.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.query.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleGetCommands returns the commands a device accepts.
func (s *Server) handleGetCommands(w http.ResponseWriter, r *http.Request) {
	v, err := s.query.GetCommands(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleGetDataTypes returns the data types a device reports.
func (s *Server) handleGetDataTypes(w http.ResponseWriter, r *http.Request) {
	v, err := s.query.GetDataTypes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleGetReadings returns a device's readings.
//
// Query parameters:
//   - range: 1h, 24h (default), 7d, week, 30d or month
//   - type: filter by data type
//   - limit: maximum readings, default 1000
func (s *Server) handleGetReadings(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := query.ReadingsQuery{
		Window:   params.Get("range"),
		DataType: params.Get("type"),
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeValidationError(w, "limit must be a positive integer")
			return
		}
		q.Limit = limit
	}

	readings, err := s.query.Readings(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// commandRequest is the body of both command endpoints. DeviceID is only
// read by POST /api/commands.
type commandRequest struct {
	DeviceID string          `json:"device_id"`
	Command  json.RawMessage `json:"command"`
}

// decodeCommand reads a command request body, writing the 400 itself on failure.
func decodeCommand(w http.ResponseWriter, r *http.Request) (commandRequest, bool) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			writeBadRequest(w, "no data provided")
		} else {
			writeBadRequest(w, "invalid JSON body")
		}
		return req, false
	}
	return req, true
}

// handleDeviceCommand publishes a command to the device named in the path.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCommand(w, r)
	if !ok {
		return
	}
	s.submitCommand(w, r, chi.URLParam(r, "id"), req.Command)
}

// handleSubmitCommand publishes a command to the device named in the body.
func (s *Server) handleSubmitCommand(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCommand(w, r)
	if !ok {
		return
	}
	if req.DeviceID == "" {
		writeBadRequest(w, "device_id is required")
		return
	}
	s.submitCommand(w, r, req.DeviceID, req.Command)
}

func (s *Server) submitCommand(w http.ResponseWriter, r *http.Request, deviceID string, raw json.RawMessage) {
	res, err := s.query.SubmitCommand(r.Context(), deviceID, raw)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
