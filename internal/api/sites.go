package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/arencloud/sitebucket/internal/db"
	"github.com/arencloud/sitebucket/internal/models"
	"github.com/arencloud/sitebucket/internal/provision"
	s3client "github.com/arencloud/sitebucket/internal/s3"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
)

// StorageClient is what the API layer needs from a provider connection:
// the provisioning calls plus bucket listing.
type StorageClient interface {
	provision.BucketAPI
	ListBuckets(ctx context.Context, params *awss3.ListBucketsInput, optFns ...func(*awss3.Options)) (*awss3.ListBucketsOutput, error)
}

// ClientFactory builds a client for a stored provider. Swapped out in tests.
type ClientFactory func(ctx context.Context, p models.Provider) (StorageClient, error)

func defaultClients(ctx context.Context, p models.Provider) (StorageClient, error) {
	return s3client.NewFromProvider(ctx, p)
}

func registerSites(r chi.Router, s *server) {
	r.Get("/sites", listSites)
	r.Get("/sites/{id}", getSite)
	r.Get("/sites/{id}/runs", siteRuns)
	// Mutating site operations require editor/admin
	r.Group(func(gr chi.Router) {
		gr.Use(requireEditorOrAdmin)
		gr.Post("/sites", s.createSite)
		gr.Post("/sites/{id}/provision", s.reprovisionSite)
	})
}

func statusForKind(kind provision.ErrorKind) int {
	switch kind {
	case provision.KindInvalidInput, provision.KindInvalidRegion:
		return 400
	case provision.KindAccessDenied:
		return 403
	case provision.KindConflict:
		return 409
	default:
		return 502
	}
}

func siteByParam(r *http.Request) (*models.Site, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return nil, false
	}
	var site models.Site
	if err := db.DB.First(&site, id).Error; err != nil {
		return nil, false
	}
	return &site, true
}

func listSites(w http.ResponseWriter, r *http.Request) {
	var items []models.Site
	if err := db.DB.Order("bucket asc").Find(&items).Error; err != nil {
		respondError(w, r, 500, err.Error())
		return
	}
	writeJSON(w, 200, items)
}

func getSite(w http.ResponseWriter, r *http.Request) {
	site, ok := siteByParam(r)
	if !ok {
		respondError(w, r, 404, "site not found")
		return
	}
	writeJSON(w, 200, site)
}

type runView struct {
	models.Run
	Steps []models.RunStep `json:"steps"`
}

func siteRuns(w http.ResponseWriter, r *http.Request) {
	site, ok := siteByParam(r)
	if !ok {
		respondError(w, r, 404, "site not found")
		return
	}
	var runs []models.Run
	if err := db.DB.Where("site_id = ?", site.ID).Order("id desc").Find(&runs).Error; err != nil {
		respondError(w, r, 500, err.Error())
		return
	}
	out := make([]runView, 0, len(runs))
	for _, run := range runs {
		var steps []models.RunStep
		if err := db.DB.Where("run_id = ?", run.ID).Order("seq asc").Find(&steps).Error; err != nil {
			respondError(w, r, 500, err.Error())
			return
		}
		out = append(out, runView{Run: run, Steps: steps})
	}
	writeJSON(w, 200, out)
}

func (s *server) createSite(w http.ResponseWriter, r *http.Request) {
	addEvent(r, "site.create", nil)
	var in struct {
		ProviderID uint   `json:"providerId"`
		Bucket     string `json:"bucket"`
		Region     string `json:"region"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, r, 400, err.Error())
		return
	}
	if in.Bucket == "" || in.ProviderID == 0 {
		respondError(w, r, 400, "providerId and bucket are required")
		return
	}
	var p models.Provider
	if err := db.DB.First(&p, in.ProviderID).Error; err != nil {
		respondError(w, r, 404, "provider not found")
		return
	}
	region := in.Region
	if region == "" {
		region = p.Region
	}
	if region == "" {
		region = s.cfg.DefaultRegion
	}
	var existing models.Site
	if err := db.DB.Where("provider_id = ? AND bucket = ?", p.ID, in.Bucket).First(&existing).Error; err == nil {
		respondError(w, r, 409, "site already exists for this provider and bucket")
		return
	}
	site := models.Site{ProviderID: p.ID, Bucket: in.Bucket, Region: region, Status: models.SiteStatusPending}
	if err := db.DB.Create(&site).Error; err != nil {
		respondError(w, r, 500, err.Error())
		return
	}
	s.provisionSite(w, r, &site, p, 201)
}

func (s *server) reprovisionSite(w http.ResponseWriter, r *http.Request) {
	addEvent(r, "site.provision", nil)
	site, ok := siteByParam(r)
	if !ok {
		respondError(w, r, 404, "site not found")
		return
	}
	var p models.Provider
	if err := db.DB.First(&p, site.ProviderID).Error; err != nil {
		respondError(w, r, 404, "provider not found")
		return
	}
	s.provisionSite(w, r, site, p, 200)
}

// provisionSite runs the pipeline, persists the run and its step rows,
// updates the site and writes the combined response. A created but
// partially configured bucket is never silent: every attempted step is
// persisted with its outcome.
func (s *server) provisionSite(w http.ResponseWriter, r *http.Request, site *models.Site, p models.Provider, okStatus int) {
	client, err := s.clients(r.Context(), p)
	if err != nil {
		respondError(w, r, 502, err.Error())
		return
	}
	prov := provision.New(client, s.log)
	started := time.Now()
	res := prov.Provision(r.Context(), provision.Request{Bucket: site.Bucket, Region: site.Region})
	ended := time.Now()

	run := models.Run{
		SiteID:     site.ID,
		Status:     "succeeded",
		Started:    started,
		Ended:      ended,
		DurationNs: int64(ended.Sub(started)),
	}
	if !res.OK() {
		run.Status = "failed"
		run.Error = res.Err.Error()
		run.ErrorKind = string(res.Kind)
	}
	if err := db.DB.Create(&run).Error; err != nil {
		respondError(w, r, 500, err.Error())
		return
	}
	steps := make([]models.RunStep, 0, len(res.Steps))
	for i, sr := range res.Steps {
		step := models.RunStep{RunID: run.ID, Seq: i, Name: string(sr.Step), Status: "ok", DurationNs: int64(sr.Duration)}
		if sr.Err != nil {
			step.Status = "failed"
			step.Error = sr.Err.Error()
		}
		if err := db.DB.Create(&step).Error; err != nil {
			respondError(w, r, 500, err.Error())
			return
		}
		steps = append(steps, step)
		addEvent(r, "provision."+step.Name, map[string]any{"status": step.Status})
	}

	if res.OK() {
		site.Status = models.SiteStatusProvisioned
		site.URL = res.URL
	} else {
		site.Status = models.SiteStatusFailed
	}
	if err := db.DB.Save(site).Error; err != nil {
		respondError(w, r, 500, err.Error())
		return
	}

	body := map[string]any{"site": site, "run": runView{Run: run, Steps: steps}}
	if res.OK() {
		writeJSON(w, okStatus, body)
		return
	}
	writeJSON(w, statusForKind(res.Kind), body)
}
