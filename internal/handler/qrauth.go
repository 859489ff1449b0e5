package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"photobox/internal/middleware"
	"photobox/internal/qrauth"
)

type QRAuthHandler struct {
	broker *qrauth.Broker
	logger *slog.Logger
}

func NewQRAuthHandler(broker *qrauth.Broker, logger *slog.Logger) *QRAuthHandler {
	return &QRAuthHandler{broker: broker, logger: logger}
}

// Generate mints a ticket for the logged-in caller. Authentication is
// checked inside the broker rather than by RequireAuth middleware so
// the 401 body matches the scan flow's messages.
func (h *QRAuthHandler) Generate(w http.ResponseWriter, r *http.Request) {
	res, err := h.broker.Generate(middleware.BearerToken(r))
	if err != nil {
		switch {
		case errors.Is(err, qrauth.ErrUnauthenticated):
			writeError(w, http.StatusUnauthorized, "Invalid or expired session")
		case errors.Is(err, qrauth.ErrIdentityNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			h.logger.Error("generate ticket", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *QRAuthHandler) Scan(w http.ResponseWriter, r *http.Request) {
	res, err := h.broker.Redeem(r.PathValue("ticketKey"))
	if err != nil {
		switch {
		case errors.Is(err, qrauth.ErrTicketNotFound):
			writeError(w, http.StatusNotFound, "QR code not found or expired")
		case errors.Is(err, qrauth.ErrTicketUsed):
			writeError(w, http.StatusBadRequest, "QR code already used")
		case errors.Is(err, qrauth.ErrIdentityNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			h.logger.Error("redeem ticket", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *QRAuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.broker.TicketStatus(r.PathValue("ticketKey"))
	writeJSON(w, http.StatusOK, map[string]qrauth.Status{"status": status})
}
