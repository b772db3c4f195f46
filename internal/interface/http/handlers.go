package httpservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/waveportal/waved/internal/core/application"
	"github.com/waveportal/waved/internal/core/domain"
)

const maxRequestBodySize = 64 * 1024

type handler struct {
	svc        application.Service
	waveBroker *broker[domain.Wave]
	stopped    chan struct{}
}

func newHandler(svc application.Service) *handler {
	h := &handler{
		svc:        svc,
		waveBroker: newBroker[domain.Wave](),
		stopped:    make(chan struct{}),
	}
	go h.listenToEvents()
	return h
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	info := h.svc.GetSession(r.Context())
	writeJSON(w, http.StatusOK, SessionResponse{
		WalletPresent: info.WalletPresent,
		Connected:     info.Connected,
		Address:       info.Address,
		Subscribed:    info.Subscribed,
	})
}

func (h *handler) connect(w http.ResponseWriter, r *http.Request) {
	address, err := h.svc.Connect(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConnectResponse{address})
}

func (h *handler) listWaves(w http.ResponseWriter, r *http.Request) {
	waves := h.svc.ListWaves(r.Context())
	writeJSON(w, http.StatusOK, ListWavesResponse{waveList(waves).toResponse()})
}

func (h *handler) submitWave(w http.ResponseWriter, r *http.Request) {
	var req SubmitWaveRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{"invalid request body"})
		return
	}

	s, err := h.svc.SubmitWave(r.Context(), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SubmitWaveResponse{submission(*s).toResponse()})
}

func (h *handler) getTotalWaves(w http.ResponseWriter, r *http.Request) {
	total, err := h.svc.GetTotalWaves(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TotalWavesResponse{total})
}

func (h *handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.ListSubmissions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submissionsInfo(*info).toResponse())
}

func (h *handler) getSubmission(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.GetSubmission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GetSubmissionResponse{submission(*s).toResponse()})
}

func (h *handler) listenToEvents() {
	defer h.waveBroker.close()

	ch := h.svc.GetWaveEventsChannel(context.Background())
	for {
		select {
		case <-h.stopped:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			h.waveBroker.publish(ev)
		}
	}
}

func (h *handler) stop() {
	select {
	case <-h.stopped:
	default:
		close(h.stopped)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Debug("failed to write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFromError(err), ErrorResponse{err.Error()})
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrWalletUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAuthorizationRejected):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrSessionNotConnected):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSubmissionNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
