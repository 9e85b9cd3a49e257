// Package apitest runs an in-process fake of the report API for tests.
package apitest

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/reportview/reportview/pkg/domain"
)

// Route names used by Hits, Authorization and Fail.
const (
	RouteReports  = "reports"
	RouteFiles    = "files"
	RouteDocument = "document"
	RouteLogin    = "login"
)

// Default credentials served by New.
const (
	Password = "hunter2"
	Token    = "tok-123"
)

// SamplePDF is the decoded document served for every assignment in the default fixture.
var SamplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

// Server is a chi-routed fake of the report API that records what it was asked.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	reports   []domain.Report
	files     map[int64][]string
	documents map[string]string
	password  string
	token     string
	hits      map[string]int
	auth      map[string][]string
	fail      map[string]int
	raw       map[string]string
}

// New starts a fake API with two reports, their files, and one PDF per assignment.
func New() *Server {
	s := &Server{
		reports: []domain.Report{
			{ID: 101, Assignments: []domain.Assignment{
				{Name: "hw1", Status: domain.StatusSubmitted},
				{Name: "hw2", Status: domain.StatusLate},
			}},
			{ID: 102, Assignments: []domain.Assignment{
				{Name: "hw1", Status: domain.StatusNotSubmitted},
			}},
		},
		files: map[int64][]string{
			101: {"hw1/report.pdf", "hw2/report.pdf", "README.md"},
			102: {"README.md"},
		},
		documents: map[string]string{},
		password:  Password,
		token:     Token,
		hits:      map[string]int{},
		auth:      map[string][]string{},
		fail:      map[string]int{},
		raw:       map[string]string{},
	}
	encoded := base64.StdEncoding.EncodeToString(SamplePDF)
	for _, r := range s.reports {
		for _, a := range r.Assignments {
			s.documents[docKey(r.ID, a.Name)] = encoded
		}
	}

	r := chi.NewRouter()
	r.Get("/", s.handleReports)
	r.Get("/files/{reportID}", s.handleFiles)
	r.Get("/reports/{reportID}/assignments/{assignment}", s.handleDocument)
	r.Post("/login", s.handleLogin)
	s.Server = httptest.NewServer(r)
	return s
}

// SetReports replaces the report fixture.
func (s *Server) SetReports(reports []domain.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = reports
}

// SetFiles replaces the file list of one report.
func (s *Server) SetFiles(reportID int64, files []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[reportID] = files
}

// SetDocument stores the base64 payload served for an assignment.
func (s *Server) SetDocument(reportID int64, assignment, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[docKey(reportID, assignment)] = payload
}

// Fail makes route answer with status until Fail(route, 0) is called.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[route] = status
}

// Raw makes route answer 200 with body verbatim instead of the fixture.
func (s *Server) Raw(route, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[route] = body
}

// Hits returns how many requests reached route.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Authorization returns the Authorization headers seen on route, in order.
func (s *Server) Authorization(route string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.auth[route]...)
}

// record counts the hit and reports whether the handler should continue.
func (s *Server) record(route string, w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	s.hits[route]++
	s.auth[route] = append(s.auth[route], r.Header.Get("Authorization"))
	status := s.fail[route]
	raw, hasRaw := s.raw[route]
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
		return false
	}
	if hasRaw {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(raw)) //nolint:errcheck
		return false
	}
	return true
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if !s.record(RouteReports, w, r) {
		return
	}
	s.mu.Lock()
	reports := s.reports
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if !s.record(RouteFiles, w, r) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "reportID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad report id"})
		return
	}
	s.mu.Lock()
	files := s.files[id]
	s.mu.Unlock()
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	if !s.record(RouteDocument, w, r) {
		return
	}
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if r.Header.Get("Authorization") != "Bearer "+token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "reportID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad report id"})
		return
	}
	name := chi.URLParam(r, "assignment")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	s.mu.Lock()
	payload, ok := s.documents[docKey(id, name)]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such assignment"})
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.record(RouteLogin, w, r) {
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	s.mu.Lock()
	password, token := s.password, s.token
	s.mu.Unlock()
	if req.Password != password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "wrong password"})
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func docKey(reportID int64, assignment string) string {
	return strconv.FormatInt(reportID, 10) + "/" + assignment
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
