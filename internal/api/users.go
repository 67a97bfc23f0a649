package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/arencloud/sitebucket/internal/db"
	"github.com/arencloud/sitebucket/internal/models"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

func validRole(role string) bool {
	return role == "admin" || role == "editor" || role == "viewer"
}

func (s *server) listUsers(w http.ResponseWriter, r *http.Request) {
	var items []models.User
	if err := db.DB.Order("email asc").Find(&items).Error; err != nil {
		respondError(w, r, 500, err.Error())
		return
	}
	writeJSON(w, 200, items)
}

func (s *server) createUser(w http.ResponseWriter, r *http.Request) {
	addEvent(r, "user.create", nil)
	var in struct{ Email, Password, Role string }
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, r, 400, err.Error())
		return
	}
	if in.Email == "" || len(in.Password) < 8 {
		respondError(w, r, 400, "email and a password of at least 8 characters are required")
		return
	}
	if !validRole(in.Role) {
		respondError(w, r, 400, "role must be admin, editor or viewer")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, r, 500, err.Error())
		return
	}
	u := models.User{Email: in.Email, Password: string(hash), Role: in.Role}
	if err := db.DB.Create(&u).Error; err != nil {
		respondError(w, r, 500, err.Error())
		return
	}
	writeJSON(w, 201, u)
}

func (s *server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondError(w, r, 400, "invalid user id")
		return
	}
	var u models.User
	if err := db.DB.First(&u, id).Error; err != nil {
		respondError(w, r, 404, "not found")
		return
	}
	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, r, 400, err.Error())
		return
	}
	if role, ok := in["role"].(string); ok {
		if !validRole(role) {
			respondError(w, r, 400, "role must be admin, editor or viewer")
			return
		}
		u.Role = role
	}
	if pass, ok := in["password"].(string); ok && pass != "" {
		if len(pass) < 8 {
			respondError(w, r, 400, "password must be at least 8 characters")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
		if err != nil {
			respondError(w, r, 500, err.Error())
			return
		}
		u.Password = string(hash)
		u.MustChangePassword = false
	}
	if err := db.DB.Save(&u).Error; err != nil {
		respondError(w, r, 500, err.Error())
		return
	}
	writeJSON(w, 200, u)
}

func (s *server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondError(w, r, 400, "invalid user id")
		return
	}
	if u := currentUser(r); u != nil && u.ID == uint(id) {
		respondError(w, r, 400, "cannot delete the current user")
		return
	}
	if err := db.DB.Delete(&models.User{}, id).Error; err != nil {
		respondError(w, r, 500, err.Error())
		return
	}
	w.WriteHeader(204)
}
