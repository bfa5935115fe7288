package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/PabloGalante/studychat/internal/domain"
	"github.com/PabloGalante/studychat/internal/observability"
)

const (
	eventBuffer       = 16
	keepAliveInterval = 15 * time.Second
)

// handleEvents streams session snapshots as server-sent events. The current
// snapshot is sent first, then one event per change. Slow readers lose
// intermediate snapshots; the revision field lets them notice. The stream
// ends when the client goes away or the session is ended.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrorMessage(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	id := sessionIDParam(r)
	log := observability.LoggerFromContext(ctx)

	updates := make(chan domain.Snapshot, eventBuffer)
	unsubscribe, done, err := s.conv.Subscribe(ctx, id, func(snap domain.Snapshot) {
		select {
		case updates <- snap:
		default:
			log.Warn("event dropped for slow reader", "revision", snap.Revision)
		}
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer unsubscribe()

	current, err := s.conv.GetSession(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	last := current.Revision
	if err := writeEvent(w, current); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("event stream closed")
			return
		case <-done:
			log.Debug("session ended, closing event stream")
			return
		case snap := <-updates:
			if snap.Revision <= last {
				continue
			}
			last = snap.Revision
			if err := writeEvent(w, snap); err != nil {
				log.Debug("event write failed", "error", err)
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, snap domain.Snapshot) error {
	data, err := json.Marshal(toSessionResponse(snap))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Revision, data)
	return err
}
