package handler

import (
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

const maxSlackBodySize = 1 << 20

// SlackHandler verifies the request signature before touching the
// payload, then hands the parsed form to the dispatcher. Dispatcher
// replies are always 200; only a bad signature is rejected.
func (h *Handler) SlackHandler(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSlackBodySize))
	if err != nil {
		h.writeError(rw, http.StatusBadRequest, "failed to read request body")
		return
	}

	timestamp := r.Header.Get("X-Slack-Request-Timestamp")
	signature := r.Header.Get("X-Slack-Signature")

	if err := h.verifier.Verify(timestamp, signature, body); err != nil {
		h.logger.Warn("Rejected Slack request", zap.Error(err))
		h.writeError(rw, http.StatusUnauthorized, "invalid signature")
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		h.writeError(rw, http.StatusBadRequest, "invalid form payload")
		return
	}

	resp := h.slack.Dispatch(r.Context(), form)
	h.writeJSON(rw, http.StatusOK, resp)
}
