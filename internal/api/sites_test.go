package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/arencloud/sitebucket/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeStorage satisfies StorageClient without any network.
type fakeStorage struct {
	calls     []string
	createErr error
}

func (f *fakeStorage) CreateBucket(ctx context.Context, params *awss3.CreateBucketInput, optFns ...func(*awss3.Options)) (*awss3.CreateBucketOutput, error) {
	f.calls = append(f.calls, "CreateBucket")
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &awss3.CreateBucketOutput{}, nil
}

func (f *fakeStorage) PutPublicAccessBlock(ctx context.Context, params *awss3.PutPublicAccessBlockInput, optFns ...func(*awss3.Options)) (*awss3.PutPublicAccessBlockOutput, error) {
	f.calls = append(f.calls, "PutPublicAccessBlock")
	return &awss3.PutPublicAccessBlockOutput{}, nil
}

func (f *fakeStorage) PutBucketWebsite(ctx context.Context, params *awss3.PutBucketWebsiteInput, optFns ...func(*awss3.Options)) (*awss3.PutBucketWebsiteOutput, error) {
	f.calls = append(f.calls, "PutBucketWebsite")
	return &awss3.PutBucketWebsiteOutput{}, nil
}

func (f *fakeStorage) PutBucketPolicy(ctx context.Context, params *awss3.PutBucketPolicyInput, optFns ...func(*awss3.Options)) (*awss3.PutBucketPolicyOutput, error) {
	f.calls = append(f.calls, "PutBucketPolicy")
	return &awss3.PutBucketPolicyOutput{}, nil
}

func (f *fakeStorage) ListBuckets(ctx context.Context, params *awss3.ListBucketsInput, optFns ...func(*awss3.Options)) (*awss3.ListBucketsOutput, error) {
	f.calls = append(f.calls, "ListBuckets")
	now := time.Now()
	return &awss3.ListBucketsOutput{Buckets: []types.Bucket{{Name: aws.String("existing"), CreationDate: &now}}}, nil
}

func fixedFactory(fs *fakeStorage) ClientFactory {
	return func(ctx context.Context, p models.Provider) (StorageClient, error) { return fs, nil }
}

type siteResponse struct {
	Site models.Site `json:"site"`
	Run  struct {
		models.Run
		Steps []models.RunStep `json:"steps"`
	} `json:"run"`
}

func TestCreateSiteProvisionsBucket(t *testing.T) {
	fs := &fakeStorage{}
	ts, _ := setupTestServer(t, fixedFactory(fs))
	cookie := loginAs(t, ts, "editor@example.com", "editor")

	resp := doJSON(t, "POST", ts.URL+"/api/v1/providers", cookie, map[string]any{"name": "aws-sa", "type": "aws", "region": "sa-east-1"})
	var p models.Provider
	json.NewDecoder(resp.Body).Decode(&p)
	resp.Body.Close()

	resp = doJSON(t, "POST", ts.URL+"/api/v1/sites", cookie, map[string]any{"providerId": p.ID, "bucket": "cloud-app-project-1"})
	defer resp.Body.Close()
	if resp.StatusCode != 201 {
		t.Fatalf("create site status=%d", resp.StatusCode)
	}
	var out siteResponse
	json.NewDecoder(resp.Body).Decode(&out)
	if out.Site.Status != models.SiteStatusProvisioned {
		t.Fatalf("site status = %q", out.Site.Status)
	}
	if out.Site.URL != "http://cloud-app-project-1.s3-website-sa-east-1.amazonaws.com" {
		t.Fatalf("site url = %q", out.Site.URL)
	}
	if out.Run.Status != "succeeded" || len(out.Run.Steps) != 4 {
		t.Fatalf("run = %+v", out.Run)
	}
	want := []string{"CreateBucket", "PutPublicAccessBlock", "PutBucketWebsite", "PutBucketPolicy"}
	if len(fs.calls) != len(want) {
		t.Fatalf("calls = %v", fs.calls)
	}
	for i := range want {
		if fs.calls[i] != want[i] {
			t.Fatalf("call %d = %s, want %s", i, fs.calls[i], want[i])
		}
	}
}

func TestCreateSiteConflictOnExistingBucket(t *testing.T) {
	fs := &fakeStorage{createErr: &types.BucketAlreadyExists{}}
	ts, _ := setupTestServer(t, fixedFactory(fs))
	cookie := loginAs(t, ts, "editor@example.com", "editor")

	resp := doJSON(t, "POST", ts.URL+"/api/v1/providers", cookie, map[string]any{"name": "aws-sa", "type": "aws", "region": "sa-east-1"})
	var p models.Provider
	json.NewDecoder(resp.Body).Decode(&p)
	resp.Body.Close()

	resp = doJSON(t, "POST", ts.URL+"/api/v1/sites", cookie, map[string]any{"providerId": p.ID, "bucket": "taken"})
	defer resp.Body.Close()
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409 on bucket conflict, got %d", resp.StatusCode)
	}
	var out siteResponse
	json.NewDecoder(resp.Body).Decode(&out)
	if out.Site.Status != models.SiteStatusFailed {
		t.Fatalf("site status = %q", out.Site.Status)
	}
	if len(out.Run.Steps) != 1 || out.Run.Steps[0].Status != "failed" {
		t.Fatalf("expected a single failed step, got %+v", out.Run.Steps)
	}
	if len(fs.calls) != 1 {
		t.Fatalf("no step after a failed create may run, calls = %v", fs.calls)
	}
	if out.Run.ErrorKind != "conflict" {
		t.Fatalf("error kind = %q", out.Run.ErrorKind)
	}
}

func TestReprovisionSiteRecordsSecondRun(t *testing.T) {
	fs := &fakeStorage{}
	ts, _ := setupTestServer(t, fixedFactory(fs))
	cookie := loginAs(t, ts, "editor@example.com", "editor")

	resp := doJSON(t, "POST", ts.URL+"/api/v1/providers", cookie, map[string]any{"name": "aws-sa", "type": "aws", "region": "sa-east-1"})
	var p models.Provider
	json.NewDecoder(resp.Body).Decode(&p)
	resp.Body.Close()

	resp = doJSON(t, "POST", ts.URL+"/api/v1/sites", cookie, map[string]any{"providerId": p.ID, "bucket": "b"})
	var out siteResponse
	json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()

	resp = doJSON(t, "POST", ts.URL+"/api/v1/sites/1/provision", cookie, nil)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("reprovision status=%d", resp.StatusCode)
	}

	resp = doJSON(t, "GET", ts.URL+"/api/v1/sites/1/runs", cookie, nil)
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("runs status=%d", resp.StatusCode)
	}
	var runs []struct {
		Status string           `json:"status"`
		Steps  []models.RunStep `json:"steps"`
	}
	json.NewDecoder(resp.Body).Decode(&runs)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	for _, run := range runs {
		if len(run.Steps) != 4 {
			t.Fatalf("expected 4 steps per run, got %d", len(run.Steps))
		}
		for i, st := range run.Steps {
			if st.Seq != i {
				t.Fatalf("steps out of order: seq=%d at index %d", st.Seq, i)
			}
		}
	}
}

func TestCreateSiteDuplicateRejected(t *testing.T) {
	fs := &fakeStorage{}
	ts, _ := setupTestServer(t, fixedFactory(fs))
	cookie := loginAs(t, ts, "editor@example.com", "editor")

	resp := doJSON(t, "POST", ts.URL+"/api/v1/providers", cookie, map[string]any{"name": "aws-sa", "type": "aws", "region": "sa-east-1"})
	var p models.Provider
	json.NewDecoder(resp.Body).Decode(&p)
	resp.Body.Close()

	resp = doJSON(t, "POST", ts.URL+"/api/v1/sites", cookie, map[string]any{"providerId": p.ID, "bucket": "b"})
	resp.Body.Close()
	resp = doJSON(t, "POST", ts.URL+"/api/v1/sites", cookie, map[string]any{"providerId": p.ID, "bucket": "b"})
	defer resp.Body.Close()
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409 for duplicate site, got %d", resp.StatusCode)
	}
}

func TestListProviderBuckets(t *testing.T) {
	fs := &fakeStorage{}
	ts, _ := setupTestServer(t, fixedFactory(fs))
	cookie := loginAs(t, ts, "viewer@example.com", "viewer")

	// an editor creates the provider; the viewer may read it
	admin := loginAs(t, ts, "editor@example.com", "editor")
	resp := doJSON(t, "POST", ts.URL+"/api/v1/providers", admin, map[string]any{"name": "aws-sa", "type": "aws", "region": "sa-east-1"})
	resp.Body.Close()

	resp = doJSON(t, "GET", ts.URL+"/api/v1/providers/1/buckets", cookie, nil)
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("list buckets status=%d", resp.StatusCode)
	}
	var items []map[string]string
	json.NewDecoder(resp.Body).Decode(&items)
	if len(items) != 1 || items[0]["name"] != "existing" {
		t.Fatalf("unexpected buckets: %v", items)
	}
}
