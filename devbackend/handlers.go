package devbackend

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-session-client/backend"
	"github.com/jrsteele09/go-session-client/users"
)

type contextKey string

const contextKeyAccount contextKey = "account"

// TokenRequest signs a user in. Any username is accepted.
type TokenRequest struct {
	Username string `json:"username"`
	UserType string `json:"userType,omitempty"`
}

// TokenResponse is the token pair returned on sign-in.
type TokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Username) == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "username is required")
			return
		}

		role := users.RoleType("")
		if req.UserType != "" {
			role = users.ParseRole(req.UserType)
		}
		account := s.accounts.Ensure(req.Username, role)

		access, err := s.creator.CreateAccessToken(account)
		if err != nil {
			s.serverError(w, err)
			return
		}
		refresh, jti, err := s.creator.CreateRefreshToken(account)
		if err != nil {
			s.serverError(w, err)
			return
		}
		s.accounts.SetRefresh(account.ID, jti)

		s.logger.Info().Int64("account_id", account.ID).Str("username", account.Username).Msg("issued token pair")
		writeJSON(w, http.StatusOK, TokenResponse{Access: access, Refresh: refresh})
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req backend.RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "refresh is required")
			return
		}

		claims, err := s.signer.Verify(req.Refresh)
		if err != nil || claims["token_type"] != tokenTypeRefresh {
			writeError(w, http.StatusUnauthorized, "token_not_valid", "refresh token is invalid or expired")
			return
		}
		account, err := s.accountFromClaims(claims)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "token_not_valid", "unknown account")
			return
		}
		jti, _ := claims["jti"].(string)
		if !s.accounts.ConsumeRefresh(account.ID, jti) {
			s.logger.Warn().Int64("account_id", account.ID).Msg("revoked refresh token presented")
			writeError(w, http.StatusForbidden, "token_revoked", "refresh token has been revoked")
			return
		}

		access, err := s.creator.CreateAccessToken(account)
		if err != nil {
			s.serverError(w, err)
			return
		}

		resp := backend.RefreshResponse{Access: access}
		if s.rotate {
			refresh, nextJTI, err := s.creator.CreateRefreshToken(account)
			if err != nil {
				s.serverError(w, err)
				return
			}
			resp.Refresh = refresh
			jti = nextJTI
		}
		s.accounts.SetRefresh(account.ID, jti)

		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) IdentityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := r.Context().Value(contextKeyAccount).(*Account)
		if !ok {
			writeError(w, http.StatusUnauthorized, "not_authenticated", "missing account")
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

// RequireBearer validates the access token in the Authorization header and
// stores the account it belongs to in the request context.
func (s *Server) RequireBearer() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			scheme, raw, found := strings.Cut(r.Header.Get("Authorization"), " ")
			if !found || !strings.EqualFold(scheme, "bearer") || raw == "" {
				writeError(w, http.StatusUnauthorized, "not_authenticated", "missing bearer token")
				return
			}

			claims, err := s.signer.Verify(raw)
			if err != nil || claims["token_type"] != tokenTypeAccess {
				writeError(w, http.StatusUnauthorized, "token_not_valid", "access token is invalid or expired")
				return
			}
			account, err := s.accountFromClaims(claims)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "token_not_valid", "unknown account")
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), contextKeyAccount, account)))
		}
	}
}

func (s *Server) accountFromClaims(claims jwtlib.MapClaims) (*Account, error) {
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, err
	}
	return s.accounts.Get(id)
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("minting token")
	writeError(w, http.StatusInternalServerError, "server_error", "could not issue token")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{"error": code, "error_description": description})
}
