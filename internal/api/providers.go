package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/arencloud/sitebucket/internal/db"
	"github.com/arencloud/sitebucket/internal/models"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
)

func registerProviders(r chi.Router, s *server) {
	// Read-only provider endpoints available to any authenticated user
	r.Get("/providers", listProviders)
	r.Get("/providers/{id}", getProvider)
	r.Get("/providers/{id}/buckets", s.listProviderBuckets)
	// Mutating provider endpoints require editor or admin
	r.Group(func(gr chi.Router) {
		gr.Use(requireEditorOrAdmin)
		gr.Post("/providers", createProvider)
		gr.Put("/providers/{id}", updateProvider)
		gr.Delete("/providers/{id}", deleteProvider)
	})
}

func providerByParam(r *http.Request) (*models.Provider, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return nil, false
	}
	var p models.Provider
	if err := db.DB.First(&p, id).Error; err != nil {
		return nil, false
	}
	return &p, true
}

func listProviders(w http.ResponseWriter, r *http.Request) {
	var items []models.Provider
	if err := db.DB.Find(&items).Error; err != nil {
		respondError(w, r, 500, err.Error())
		return
	}
	writeJSON(w, 200, items)
}

func createProvider(w http.ResponseWriter, r *http.Request) {
	addEvent(r, "provider.create", nil)
	var p models.Provider
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, r, 400, err.Error())
		return
	}
	if p.Name == "" || p.Region == "" {
		respondError(w, r, 400, "name and region are required")
		return
	}
	if err := db.DB.Create(&p).Error; err != nil {
		respondError(w, r, 500, err.Error())
		return
	}
	writeJSON(w, 201, p)
}

func getProvider(w http.ResponseWriter, r *http.Request) {
	p, ok := providerByParam(r)
	if !ok {
		respondError(w, r, 404, "provider not found")
		return
	}
	writeJSON(w, 200, p)
}

func updateProvider(w http.ResponseWriter, r *http.Request) {
	p, ok := providerByParam(r)
	if !ok {
		respondError(w, r, 404, "provider not found")
		return
	}
	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, r, 400, err.Error())
		return
	}
	// Patch-like update: apply provided fields only
	if name, ok := in["name"].(string); ok {
		p.Name = name
	}
	if typ, ok := in["type"].(string); ok {
		p.Type = typ
	}
	if ep, ok := in["endpoint"].(string); ok {
		p.Endpoint = ep
	}
	if ak, ok := in["accessKey"].(string); ok {
		p.AccessKey = ak
	}
	if sk, ok := in["secretKey"].(string); ok {
		p.SecretKey = sk
	}
	if rg, ok := in["region"].(string); ok {
		p.Region = rg
	}
	if ussl, ok := in["useSSL"].(bool); ok {
		p.UseSSL = ussl
	}
	if p.Name == "" || p.Region == "" {
		respondError(w, r, 400, "name and region are required")
		return
	}
	if err := db.DB.Save(p).Error; err != nil {
		respondError(w, r, 500, err.Error())
		return
	}
	writeJSON(w, 200, p)
}

func deleteProvider(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondError(w, r, 400, "invalid provider id")
		return
	}
	if err := db.DB.Delete(&models.Provider{}, id).Error; err != nil {
		respondError(w, r, 500, err.Error())
		return
	}
	w.WriteHeader(204)
}

// listProviderBuckets lists live buckets at the provider, a read-only
// verification view next to the persisted sites.
func (s *server) listProviderBuckets(w http.ResponseWriter, r *http.Request) {
	addEvent(r, "provider.buckets", nil)
	p, ok := providerByParam(r)
	if !ok {
		respondError(w, r, 404, "provider not found")
		return
	}
	client, err := s.clients(r.Context(), *p)
	if err != nil {
		respondError(w, r, 502, err.Error())
		return
	}
	out, err := client.ListBuckets(r.Context(), &awss3.ListBucketsInput{})
	if err != nil {
		respondError(w, r, 502, err.Error())
		return
	}
	type bucketView struct {
		Name      string `json:"name"`
		CreatedAt string `json:"createdAt,omitempty"`
	}
	items := make([]bucketView, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		v := bucketView{}
		if b.Name != nil {
			v.Name = *b.Name
		}
		if b.CreationDate != nil {
			v.CreatedAt = b.CreationDate.UTC().Format("2006-01-02T15:04:05Z")
		}
		items = append(items, v)
	}
	writeJSON(w, 200, items)
}
