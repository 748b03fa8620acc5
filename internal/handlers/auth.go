package handlers

import (
	"net/http"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/middleware"
)

type profileResponse struct {
	Subject   string     `json:"subject"`
	Role      string     `json:"role"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Profile returns the operator behind the request. Without authentication
// the caller is reported as anonymous.
func (h *DashboardHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, profileResponse{Subject: "anonymous", Role: "anonymous"})
		return
	}

	resp := profileResponse{Subject: claims.Subject, Role: string(claims.Role)}
	if claims.Exp > 0 {
		exp := time.Unix(claims.Exp, 0).UTC()
		resp.ExpiresAt = &exp
	}
	writeJSON(w, http.StatusOK, resp)
}
