package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/oedatamodel/internal/core"
	"github.com/JonMunkholm/oedatamodel/internal/logging"
	"github.com/JonMunkholm/oedatamodel/internal/mapping"
)

// mappingFormat labels custom mapping conversions in metrics.
const mappingFormat = "mapping"

// FormatInfo describes one output format in the format listing.
type FormatInfo struct {
	Name    string `json:"name"`
	Archive bool   `json:"archive"`
}

// MappingsResponse is the body of GET /api/mappings.
type MappingsResponse struct {
	Defaults []string `json:"defaults"`
	Custom   []string `json:"custom"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	formats := core.Formats()
	out := make([]FormatInfo, 0, len(formats))
	for _, f := range formats {
		out = append(out, FormatInfo{Name: f.String(), Archive: f.IsArchive()})
	}
	writeJSON(w, out)
}

// handleFormat converts the raw response in the body to the format named in
// the path. Archive formats are sent as zip attachments.
func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	format, err := core.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	raw, err := s.readRaw(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	start := time.Now()
	out, err := core.FormatData(raw, format)
	s.metrics.ObserveConversion(format.String(), time.Since(start), err)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("format %s: %w", format, err), statusFor(err))
		return
	}

	logger := logging.WithFields(r.Context(), "format", format.String())
	if archive, ok := out.(core.Archive); ok {
		s.writeArchive(w, r, format, archive)
		return
	}

	logger.Debug("format converted", "rows", len(raw.Data))
	writeJSON(w, out)
}

// handleMapping applies the custom or default mapping named in the path.
func (s *Server) handleMapping(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	raw, err := s.readRaw(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	start := time.Now()
	out, err := s.mapper.Apply(raw, name)
	s.metrics.ObserveConversion(mappingFormat, time.Since(start), err)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	logging.WithFields(r.Context(), "mapping", name).Debug("mapping applied", "rows", len(raw.Data))
	writeJSON(w, out)
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	names, err := s.mappings.Names()
	if err != nil {
		s.respondError(w, r, fmt.Errorf("list mappings: %w", err), http.StatusInternalServerError)
		return
	}

	// Files named after a default mapping are never consulted.
	custom := make([]string, 0, len(names))
	for _, n := range names {
		if !mapping.IsDefault(n) {
			custom = append(custom, n)
		}
	}

	writeJSON(w, MappingsResponse{
		Defaults: []string{mapping.Normalized, mapping.Concrete},
		Custom:   custom,
	})
}

// readRaw reads at most Request.MaxBodyBytes of the body and decodes it.
func (s *Server) readRaw(w http.ResponseWriter, r *http.Request) (*core.RawResponse, error) {
	limit := s.cfg.Request.MaxBodyBytes
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, limit)
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	s.metrics.ObserveBodySize(int64(len(body)))

	return core.DecodeRaw(bytes.NewReader(body))
}

// writeArchive sends a zip download named after the format and a fresh
// export id.
func (s *Server) writeArchive(w http.ResponseWriter, r *http.Request, format core.Format, archive core.Archive) {
	exportID := uuid.New()
	filename := fmt.Sprintf("oedatamodel_%s_%s.zip", format, exportID)

	logging.WithFields(r.Context(),
		"format", format.String(),
		"export_id", exportID.String(),
	).Info("archive exported", "bytes", len(archive))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Export-ID", exportID.String())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(archive); err != nil {
		logging.FromContext(r.Context()).Warn("archive write failed", "error", err)
	}
}

// writeJSON encodes v as JSON and writes it to w.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
