package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"donorhub/internal/session"
	"donorhub/pkg/platform/httputil"
	"donorhub/pkg/requestcontext"
)

// SessionWatcher subscribes to pushed session snapshots for a credential.
type SessionWatcher interface {
	Watch(ctx context.Context, credential string) *session.Subscription
}

// StreamEvent is the JSON payload of each server-sent event.
type StreamEvent struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
	Location string `json:"location,omitempty"`
}

// StreamHandler exposes a Mount over server-sent events so a page can show
// loading, reveal content, or navigate away as the session changes.
type StreamHandler struct {
	guard      *Guard
	watcher    SessionWatcher
	credential CredentialFunc
	logger     *slog.Logger
}

func NewStreamHandler(g *Guard, watcher SessionWatcher, credential CredentialFunc, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		guard:      g,
		watcher:    watcher,
		credential: credential,
		logger:     logger,
	}
}

// ServeHTTP streams effects until the client disconnects. The requirement is
// taken from the "require" query parameter; "next" names the page the viewer
// is on, so a login redirect brings them back to it.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, err := ParseRequirement(r.URL.Query().Get("require"))
	if err != nil {
		httputil.WriteError(w, httputil.Wrap(err, httputil.CodeBadRequest, err.Error()))
		return
	}
	next := SafeNext(r.URL.Query().Get("next"), "")
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.ErrorContext(ctx, "response writer does not support streaming",
			"request_id", requestID,
		)
		httputil.WriteError(w, httputil.New(httputil.CodeInternal, "streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub := h.watcher.Watch(ctx, h.credential(r))
	h.guard.Mount(ctx, sub, req, RendererFunc(func(e Effect) {
		if e.Kind == EffectRedirect && e.Verdict.Reason == ReasonUnauthenticated && next != "" {
			e.Location = withNext(e.Location, next)
		}
		if err := writeEvent(w, e); err != nil {
			h.logger.WarnContext(ctx, "failed to write guard event",
				"error", err,
				"request_id", requestID,
			)
			cancel()
			return
		}
		flusher.Flush()
	}))
}

func writeEvent(w http.ResponseWriter, e Effect) error {
	payload, err := json.Marshal(StreamEvent{
		Decision: e.Verdict.Decision.String(),
		Reason:   string(e.Verdict.Reason),
		Location: e.Location,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, payload)
	return err
}
