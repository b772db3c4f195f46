package httpservice

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/waveportal/waved/internal/core/domain"
)

const (
	streamBufferSize = 32
	writeTimeout     = 5 * time.Second
)

// streamWaves pushes every live wave to the websocket client, one JSON
// object per text frame.
func (h *handler) streamWaves(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("failed to accept websocket connection")
		return
	}
	// nolint:all
	defer conn.CloseNow()

	l := &listener[domain.Wave]{
		id: uuid.New().String(),
		ch: make(chan domain.Wave, streamBufferSize),
	}
	if err := h.waveBroker.pushListener(l); err != nil {
		// nolint:all
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.waveBroker.removeListener(l.id)
	log.Debugf("added new wave stream listener %s", l.id)

	// Incoming frames are discarded, ctx is canceled once the client goes.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			log.Debugf("wave stream listener %s disconnected", l.id)
			return
		case ev, ok := <-l.ch:
			if !ok {
				// nolint:all
				conn.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			if err := writeWave(ctx, conn, ev); err != nil {
				log.WithError(err).Debugf("failed to send wave to listener %s", l.id)
				return
			}
		}
	}
}

func writeWave(ctx context.Context, conn *websocket.Conn, w domain.Wave) error {
	payload, err := json.Marshal(wave(w).toResponse())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
