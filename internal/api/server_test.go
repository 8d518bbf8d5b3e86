package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corrdash/corrdash/internal/db"
	"github.com/corrdash/corrdash/internal/httputil"
	"github.com/corrdash/corrdash/internal/testutil"
	"github.com/corrdash/corrdash/internal/units"
)

const sampleLog = "wheel_angle,speed\n0.0,10.0\n0.0,10.0\n0.0,10.0\n0.0,10.0\n"

func newTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	d := testutil.NewTestDB(t)
	return NewServer(d, units.MPS, &httputil.MockGetter{}), d
}

func insertTestDrive(t *testing.T, d *db.DB, name string, hz float64) string {
	t.Helper()
	id, err := d.InsertDrive(name, "", hz, testutil.DriveTable(t, 4, 0, 10))
	require.NoError(t, err)
	return id
}

func doRequest(s *Server, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndVersion(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/version", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Contains(t, info, "version")
}

func TestListDrives_Empty(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/drives", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]\n", rec.Body.String())
}

func TestCreateDrive_Upload(t *testing.T) {
	s, _ := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "drive-1.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(sampleLog))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("hz", "10"))
	require.NoError(t, mw.Close())

	rec := doRequest(s, http.MethodPost, "/api/drives", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code)

	var drive db.Drive
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &drive))
	require.Equal(t, "drive-1.csv", drive.Name)
	require.Equal(t, 10.0, drive.SampleHz)
	require.Equal(t, 4, drive.Samples)
}

func TestCreateDrive_FromURL(t *testing.T) {
	d := testutil.NewTestDB(t)
	fetcher := &httputil.MockGetter{
		Responses: map[string]string{"http://logs.example/d.csv": sampleLog},
	}
	s := NewServer(d, units.MPS, fetcher)

	form := url.Values{"url": {"http://logs.example/d.csv"}, "name": {"remote-drive"}, "hz": {"10"}}
	body := bytes.NewBufferString(form.Encode())
	rec := doRequest(s, http.MethodPost, "/api/drives", body, "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusCreated, rec.Code)

	var drive db.Drive
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &drive))
	require.Equal(t, "remote-drive", drive.Name)
	require.Equal(t, "http://logs.example/d.csv", drive.Source)
}

func TestCreateDrive_Errors(t *testing.T) {
	s, d := newTestServer(t)
	insertTestDrive(t, d, "taken.csv", 100)

	// No file and no URL.
	body := bytes.NewBufferString("")
	rec := doRequest(s, http.MethodPost, "/api/drives", body, "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Duplicate name.
	var mp bytes.Buffer
	mw := multipart.NewWriter(&mp)
	fw, err := mw.CreateFormFile("file", "taken.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(sampleLog))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	rec = doRequest(s, http.MethodPost, "/api/drives", &mp, mw.FormDataContentType())
	require.Equal(t, http.StatusConflict, rec.Code)

	// Bad hz.
	form := url.Values{"url": {"http://x/d.csv"}, "hz": {"-1"}}
	rec = doRequest(s, http.MethodPost, "/api/drives", bytes.NewBufferString(form.Encode()), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Non-finite sample cell.
	var nf bytes.Buffer
	nw := multipart.NewWriter(&nf)
	fw, err = nw.CreateFormFile("file", "poisoned.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("wheel_angle,speed\n0.0,10.0\n0.0,NaN\n"))
	require.NoError(t, err)
	require.NoError(t, nw.Close())
	rec = doRequest(s, http.MethodPost, "/api/drives", &nf, nw.FormDataContentType())
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShowDrive(t *testing.T) {
	s, d := newTestServer(t)
	id := insertTestDrive(t, d, "stats.csv", 100)

	rec := doRequest(s, http.MethodGet, "/api/drives/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Name  string `json:"name"`
		Stats map[string]struct {
			Count int     `json:"count"`
			Mean  float64 `json:"mean"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "stats.csv", payload.Name)
	require.Equal(t, 4, payload.Stats["speed"].Count)
	require.Equal(t, 10.0, payload.Stats["speed"].Mean)

	rec = doRequest(s, http.MethodGet, "/api/drives/unknown-id", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteDrive(t *testing.T) {
	s, d := newTestServer(t)
	id := insertTestDrive(t, d, "bye.csv", 100)

	rec := doRequest(s, http.MethodDelete, "/api/drives/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodDelete, "/api/drives/"+id, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShowPath(t *testing.T) {
	s, d := newTestServer(t)
	// 4 samples of straight travel at 10 m/s and 10 Hz: x advances 1 m
	// per step.
	id, err := d.InsertDrive("straight.csv", "", 10, testutil.DriveTable(t, 4, 0, 10))
	require.NoError(t, err)

	rec := doRequest(s, http.MethodGet, "/api/drives/"+id+"/path", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Drive string `json:"drive"`
		Path  []struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"path"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "straight.csv", payload.Drive)
	require.Len(t, payload.Path, 5)
	require.InDelta(t, 4.0, payload.Path[4].X, 1e-9)
	require.InDelta(t, 0.0, payload.Path[4].Y, 1e-9)
}

func TestShowPath_Options(t *testing.T) {
	s, d := newTestServer(t)
	id := insertTestDrive(t, d, "opts.csv", 10)

	rec := doRequest(s, http.MethodGet, "/api/drives/"+id+"/path?ratio=0", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/drives/"+id+"/path?angle_unit=grad", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/drives/"+id+"/path?angle_unit=deg&ratio=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestShowPath_SampleRateOverride(t *testing.T) {
	s, d := newTestServer(t)
	id := insertTestDrive(t, d, "override.csv", 10)

	rec := doRequest(s, http.MethodGet, "/api/drives/"+id+"/path?hz=5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Path []struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"path"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	// Halving the stored 10 Hz doubles dt, so each 10 m/s step covers
	// 2 m instead of 1 m.
	require.Len(t, payload.Path, 5)
	require.InDelta(t, 8.0, payload.Path[4].X, 1e-9)

	rec = doRequest(s, http.MethodGet, "/api/drives/"+id+"/path?hz=0", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShowPath_Preprocess(t *testing.T) {
	s, d := newTestServer(t)
	id := insertTestDrive(t, d, "filtered.csv", 10)

	// Smoothing constant channels leaves the straight path intact.
	rec := doRequest(s, http.MethodGet, "/api/drives/"+id+"/path?preprocess=smoothing&window=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Path []struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"path"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Path, 5)
	require.InDelta(t, 4.0, payload.Path[4].X, 1e-9)
	require.InDelta(t, 0.0, payload.Path[4].Y, 1e-9)

	rec = doRequest(s, http.MethodGet, "/api/drives/"+id+"/path?preprocess=fourier", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/drives/"+id+"/path?preprocess=smoothing&window=-1", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComputeSimilarity(t *testing.T) {
	s, d := newTestServer(t)
	insertTestDrive(t, d, "a.csv", 10)
	insertTestDrive(t, d, "b.csv", 10)

	// GET computes without recording a run.
	rec := doRequest(s, http.MethodGet, "/api/similarity?names=a.csv,b.csv", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		RunID  string `json:"run_id"`
		Matrix struct {
			Names  []string    `json:"names"`
			Values [][]float64 `json:"values"`
		} `json:"matrix"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Empty(t, payload.RunID)
	require.Equal(t, []string{"a.csv", "b.csv"}, payload.Matrix.Names)
	require.Equal(t, 1.0, payload.Matrix.Values[0][0])
	require.Equal(t, payload.Matrix.Values[0][1], payload.Matrix.Values[1][0])

	runs, err := d.ListSimilarityRuns(0)
	require.NoError(t, err)
	require.Empty(t, runs)

	// POST records the run, which is then retrievable.
	rec = doRequest(s, http.MethodPost, "/api/similarity?names=a.csv,b.csv", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.RunID)

	rec = doRequest(s, http.MethodGet, "/api/similarity/runs/"+payload.RunID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/similarity/runs", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), payload.RunID))
}

func TestComputeSimilarity_Errors(t *testing.T) {
	s, d := newTestServer(t)
	insertTestDrive(t, d, "only.csv", 10)

	rec := doRequest(s, http.MethodGet, "/api/similarity", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/similarity?names=only.csv,ghost.csv", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/similarity/runs/no-such-run", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChartEndpoints(t *testing.T) {
	s, d := newTestServer(t)
	insertTestDrive(t, d, "c1.csv", 10)
	insertTestDrive(t, d, "c2.csv", 10)

	rec := doRequest(s, http.MethodGet, "/charts/paths?names=c1.csv,c2.csv", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = doRequest(s, http.MethodGet, "/charts/histogram?names=c1.csv&signal=speed&bins=10", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = doRequest(s, http.MethodGet, "/charts/histogram?names=c1.csv&signal=nope", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, fmt.Sprintf("/charts/histogram?names=c1.csv&signal=speed&bins=%d", 5), nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlotPNG(t *testing.T) {
	s, d := newTestServer(t)
	insertTestDrive(t, d, "png.csv", 10)

	rec := doRequest(s, http.MethodGet, "/plots/path.png?names=png.csv", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte{0x89, 'P', 'N', 'G'}))

	rec = doRequest(s, http.MethodGet, "/plots/path.png?names=ghost.csv", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
