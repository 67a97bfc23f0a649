package api

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/arencloud/sitebucket/internal/db"
	"github.com/arencloud/sitebucket/internal/models"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

// small in-memory session store
var (
	sessMu   sync.RWMutex
	sessions = make(map[string]uint) // sessionID -> userID
)

var secret = sessionSecret()

func sessionSecret() []byte {
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		return []byte(v)
	}
	return []byte("sitebucket-dev-secret")
}

func sign(value string) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func newSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}

func setSessionCookie(w http.ResponseWriter, sessionID string) {
	cookie := &http.Cookie{Name: "sbsess", Value: sessionID + "." + sign(sessionID), Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode, Expires: time.Now().Add(24 * time.Hour)}
	http.SetCookie(w, cookie)
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: "sbsess", Value: "", Path: "/", Expires: time.Unix(0, 0), MaxAge: -1})
}

func currentUser(r *http.Request) *models.User {
	c, err := r.Cookie("sbsess")
	if err != nil {
		return nil
	}
	var sid, sig string
	for i := 0; i < len(c.Value); i++ {
		if c.Value[i] == '.' {
			sid = c.Value[:i]
			sig = c.Value[i+1:]
			break
		}
	}
	if sid == "" || sig == "" || !hmac.Equal([]byte(sign(sid)), []byte(sig)) {
		return nil
	}
	sessMu.RLock()
	uid, ok := sessions[sid]
	sessMu.RUnlock()
	if !ok {
		return nil
	}
	var u models.User
	if err := db.DB.First(&u, uid).Error; err != nil {
		return nil
	}
	return &u
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := currentUser(r); u != nil {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := currentUser(r)
		if u == nil {
			http.Error(w, "unauthorized", 401)
			return
		}
		if u.Role != "admin" {
			http.Error(w, "forbidden", 403)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireEditorOrAdmin allows roles admin and editor; viewers are read-only
func requireEditorOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := currentUser(r)
		if u == nil {
			http.Error(w, "unauthorized", 401)
			return
		}
		if u.Role != "admin" && u.Role != "editor" {
			http.Error(w, "forbidden", 403)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func registerAuth(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", login)
		r.Post("/change-password", changePassword)
		r.Get("/me", me)
		r.Post("/logout", logout)
		// Bootstrap status (unauthenticated): whether default admin must change password
		r.Get("/bootstrap", authBootstrap)
	})
}

func login(w http.ResponseWriter, r *http.Request) {
	var in struct{ Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, r, 400, err.Error())
		return
	}
	var u models.User
	if err := db.DB.Where("email = ?", in.Email).First(&u).Error; err != nil {
		respondError(w, r, 401, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.Password)) != nil {
		respondError(w, r, 401, "invalid credentials")
		return
	}
	sid := newSessionID()
	if sid == "" {
		respondError(w, r, 500, "session error")
		return
	}
	sessMu.Lock()
	sessions[sid] = u.ID
	sessMu.Unlock()
	setSessionCookie(w, sid)
	writeJSON(w, 200, u)
}

func logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie("sbsess"); err == nil {
		for i := 0; i < len(c.Value); i++ {
			if c.Value[i] == '.' {
				sessMu.Lock()
				delete(sessions, c.Value[:i])
				sessMu.Unlock()
				break
			}
		}
	}
	clearSessionCookie(w)
	w.WriteHeader(204)
}

func me(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if u == nil {
		respondError(w, r, 401, "unauthorized")
		return
	}
	writeJSON(w, 200, u)
}

func changePassword(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if u == nil {
		respondError(w, r, 401, "unauthorized")
		return
	}
	var in struct{ Current, New string }
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, r, 400, err.Error())
		return
	}
	if len(in.New) < 8 {
		respondError(w, r, 400, "new password must be at least 8 characters")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.Current)) != nil {
		respondError(w, r, 401, "invalid credentials")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.New), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, r, 500, err.Error())
		return
	}
	u.Password = string(hash)
	u.MustChangePassword = false
	if err := db.DB.Save(u).Error; err != nil {
		respondError(w, r, 500, err.Error())
		return
	}
	writeJSON(w, 200, u)
}

// authBootstrap reports whether the bootstrap admin still has its
// generated password, so a client can prompt for a change on first login.
func authBootstrap(w http.ResponseWriter, r *http.Request) {
	var u models.User
	pending := false
	if err := db.DB.Where("email = ?", "admin@local").First(&u).Error; err == nil {
		pending = u.MustChangePassword
	}
	writeJSON(w, 200, map[string]bool{"adminMustChangePassword": pending})
}
