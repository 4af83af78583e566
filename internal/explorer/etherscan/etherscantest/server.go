// Package etherscantest provides an in-process fake of the Etherscan verification API.
package etherscantest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Submission is a verifysourcecode request as received by the fake
type Submission struct {
	ChainID              string
	APIKey               string
	Address              string
	SourceCode           string
	CodeFormat           string
	ContractName         string
	CompilerVersion      string
	ConstructorArguments string
}

// Server is a fake explorer. Status results are served in order; the last one repeats.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	submitError string
	statuses    []string
	submissions []Submission
	polls       int
}

// Option configures a Server
type Option func(*Server)

// WithStatuses sets the checkverifystatus results to return in order
func WithStatuses(results ...string) Option {
	return func(s *Server) {
		s.statuses = results
	}
}

// WithSubmitError makes verifysourcecode fail with the given result text
func WithSubmitError(result string) Option {
	return func(s *Server) {
		s.submitError = result
	}
}

// NewServer starts a fake explorer. The API lives at URL()+"/v2/api".
func NewServer(opts ...Option) *Server {
	s := &Server{statuses: []string{"Pending in queue", "Pass - Verified"}}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Post("/v2/api", s.handleSubmit)
	r.Get("/v2/api", s.handleStatus)
	s.Server = httptest.NewServer(r)
	return s
}

// APIURL returns the endpoint to configure a client with
func (s *Server) APIURL() string {
	return s.URL + "/v2/api"
}

// Submissions returns the submissions received so far
func (s *Server) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions...)
}

// Polls returns the number of status checks received
func (s *Server) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("module") != "contract" || r.PostForm.Get("action") != "verifysourcecode" {
		writeJSON(w, "0", "NOTOK", "Error! Missing or invalid action name")
		return
	}

	s.mu.Lock()
	s.submissions = append(s.submissions, submissionFrom(r.URL.Query(), r.PostForm))
	n := len(s.submissions)
	submitError := s.submitError
	s.mu.Unlock()

	if submitError != "" {
		writeJSON(w, "0", "NOTOK", submitError)
		return
	}
	writeJSON(w, "1", "OK", fmt.Sprintf("guid-%d", n))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("action") != "checkverifystatus" || q.Get("guid") == "" {
		writeJSON(w, "0", "NOTOK", "Error! Missing or invalid action name")
		return
	}

	s.mu.Lock()
	i := s.polls
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	result := s.statuses[i]
	s.polls++
	s.mu.Unlock()

	status := "0"
	if result == "Pass - Verified" {
		status = "1"
	}
	writeJSON(w, status, "OK", result)
}

func submissionFrom(q, form url.Values) Submission {
	return Submission{
		ChainID:              q.Get("chainid"),
		APIKey:               form.Get("apikey"),
		Address:              form.Get("contractaddress"),
		SourceCode:           form.Get("sourceCode"),
		CodeFormat:           form.Get("codeformat"),
		ContractName:         form.Get("contractname"),
		CompilerVersion:      form.Get("compilerversion"),
		ConstructorArguments: form.Get("constructorArguements"),
	}
}

func writeJSON(w http.ResponseWriter, status, message, result string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  status,
		"message": message,
		"result":  result,
	})
}
