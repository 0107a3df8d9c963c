package api

import (
	"net/http"

	"github.com/bookcourier/bookcourier/pkg/httputil"
)

type tokenRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// issueToken exchanges a verified frontend identity for a short-lived
// bearer credential.
func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" {
		httputil.WriteBadRequest(w, "email is required")
		return
	}

	token, err := s.signer.Issue(req.Email, req.Name)
	if err != nil {
		s.internalError(w, r, "token issuance failed", err)
		return
	}
	httputil.WriteSuccess(w, tokenResponse{Token: token})
}
