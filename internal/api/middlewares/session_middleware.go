package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/TubeSage/internal/core"
	"github.com/markdave123-py/TubeSage/internal/models"
)

// SessionCookie carries the signed session token.
const SessionCookie = "tubesage_session"

// SessionKey is the request context key holding the session id string.
const SessionKey = "session_id"

// SessionMiddleware identifies the anonymous visitor. A valid cookie
// yields its session id; anything else provisions a fresh user with the
// default channel set and sets a new cookie. Requests are never
// rejected for lacking identity.
func SessionMiddleware(db core.DbClient, secret string, defaultChannels []string, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if c, err := r.Cookie(SessionCookie); err == nil {
				sessionID = parseSessionToken(c.Value, secret)
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				user := &models.User{SessionID: sessionID, ChannelIDs: defaultChannels}
				if err := db.CreateUser(r.Context(), user); err != nil {
					log.Error().Err(err).Msg("could not provision session user")
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    signSessionToken(sessionID, secret),
					Path:     "/",
					MaxAge:   int((365 * 24 * time.Hour).Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
				log.Debug().Str("session_id", sessionID).Msg("provisioned anonymous session")
			}

			ctx := context.WithValue(r.Context(), SessionKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID extracts the session id placed by SessionMiddleware.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionKey).(string)
	return id
}

func signSessionToken(sessionID, secret string) string {
	claims := jwt.MapClaims{
		"session_id": sessionID,
		"iat":        time.Now().Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, _ := tok.SignedString([]byte(secret))
	return token
}

// parseSessionToken returns the embedded session id, or "" for any
// token that does not verify.
func parseSessionToken(tokenStr, secret string) string {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return ""
	}
	sessionID, _ := claims["session_id"].(string)
	return sessionID
}
