package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/coordinator"
	"github.com/AnyUserName/saveimg/internal/dataurl"
	"github.com/AnyUserName/saveimg/internal/messaging"
	"github.com/rs/zerolog"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

type handlers struct {
	coord *coordinator.Coordinator
	log   zerolog.Logger
}

// ConvertRequestDTO is the body of POST /convert. Omitted fields take the
// current settings.
type ConvertRequestDTO struct {
	URI             string   `json:"uri"`
	WithCredentials *bool    `json:"withCredentials,omitempty"`
	Format          *string  `json:"format,omitempty"`
	Quality         *float64 `json:"quality,omitempty"`
	MaxDimension    *int     `json:"maxDimension,omitempty"`
	TabID           *int     `json:"tabId,omitempty"`
}

// ActionRequestDTO is the body of POST /save and POST /copy.
type ActionRequestDTO struct {
	ImageURL string `json:"imageUrl"`
	PageURL  string `json:"pageUrl"`
	TabID    *int   `json:"tabId,omitempty"`
}

// ActionResponseDTO answers POST /save and POST /copy.
type ActionResponseDTO struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
	Tab     int    `json:"tabId,omitempty"`
}

func (h *handlers) ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messaging.Response{Success: true, Pong: true})
}

func (h *handlers) menu(w http.ResponseWriter, _ *http.Request) {
	save, cp := h.coord.MenuTitles()
	writeJSON(w, http.StatusOK, map[string]string{"save": save, "copy": cp})
}

func (h *handlers) convert(w http.ResponseWriter, r *http.Request) {
	var dto ConvertRequestDTO
	if !decode(w, r, &dto) {
		return
	}
	if dto.URI == "" {
		writeJSON(w, http.StatusBadRequest, messaging.Response{Error: "uri is required"})
		return
	}

	req := h.coord.Settings().Request(dto.URI)
	if dto.WithCredentials != nil {
		req.WithCredentials = *dto.WithCredentials
	}
	if dto.Format != nil {
		req.Format = conversion.ParseFormat(*dto.Format)
	}
	if dto.Quality != nil {
		req.Quality = *dto.Quality
	}
	if dto.MaxDimension != nil {
		req.MaxDimension = *dto.MaxDimension
	}
	req = req.Normalized()

	res := h.coord.Converter().Convert(r.Context(), req, tabHint(dto.TabID))
	if !res.OK() {
		writeJSON(w, http.StatusUnprocessableEntity, messaging.Failed(res.Err()))
		return
	}
	writeJSON(w, http.StatusOK, messaging.Response{
		Success: true,
		DataURL: dataurl.Encode(res.MIMEType, res.Encoded),
	})
}

func (h *handlers) save(w http.ResponseWriter, r *http.Request) {
	var dto ActionRequestDTO
	if !decode(w, r, &dto) {
		return
	}
	out, err := h.coord.SaveImage(r.Context(), dto.ImageURL, dto.PageURL)
	resp := ActionResponseDTO{
		Success: err == nil && out.Outcome.Saved(),
		Path:    out.Outcome.Path,
		Message: out.Outcome.Message,
	}
	writeAction(w, resp, out.Result, err)
}

func (h *handlers) copy(w http.ResponseWriter, r *http.Request) {
	var dto ActionRequestDTO
	if !decode(w, r, &dto) {
		return
	}
	out, err := h.coord.CopyImage(r.Context(), dto.ImageURL, dto.PageURL, tabHint(dto.TabID))
	resp := ActionResponseDTO{Success: err == nil, Tab: int(out.Tab)}
	if err == nil {
		resp.Message = "copied"
	}
	writeAction(w, resp, out.Result, err)
}

func writeAction(w http.ResponseWriter, resp ActionResponseDTO, res conversion.Result, err error) {
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusUnprocessableEntity
		switch {
		case errors.Is(err, coordinator.ErrNoImage), errors.Is(err, coordinator.ErrNotHTTPPage):
			status = http.StatusBadRequest
		case errors.Is(err, coordinator.ErrUnsupported):
			status = http.StatusNotImplemented
		}
	}
	if res.Failure != nil {
		resp.Reason = string(res.Failure.Kind)
	}
	writeJSON(w, status, resp)
}

func tabHint(id *int) *conversion.TabID {
	if id == nil || *id <= 0 {
		return nil
	}
	t := conversion.TabID(*id)
	return &t
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, messaging.Response{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
