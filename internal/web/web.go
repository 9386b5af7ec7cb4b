package web

import (
	"database/sql"
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"time"

	"mspro-labs/weekly-shop/internal/db"
	"mspro-labs/weekly-shop/internal/models"
	"mspro-labs/weekly-shop/internal/report"
)

// Embed the 'templates' directory.
// The path is relative to this file (internal/web/web.go).
//
//go:embed templates
var Assets embed.FS

// Helper for templates
var funcMap = template.FuncMap{
	"when": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04")
	},
	"basket": report.BasketState,
}

// Server renders the run history.
type Server struct {
	database *sql.DB
	homeTmpl *template.Template
	runTmpl  *template.Template
}

// NewServer pre-builds templates (SEPARATELY to avoid block collisions).
func NewServer(database *sql.DB) (*Server, error) {
	// A. Base Template (shared layout + funcs)
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(Assets, "templates/base.html")
	if err != nil {
		return nil, err
	}

	// B. Home Template (= base + home.html)
	homeTmpl, err := template.Must(base.Clone()).ParseFS(Assets, "templates/home.html")
	if err != nil {
		return nil, err
	}

	// C. Run Template (= base + run.html)
	runTmpl, err := template.Must(base.Clone()).ParseFS(Assets, "templates/run.html")
	if err != nil {
		return nil, err
	}

	return &Server{database: database, homeTmpl: homeTmpl, runTmpl: runTmpl}, nil
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /runs/{id}", s.handleRun)
	return mux
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	runs, err := db.ListRuns(s.database)
	if err != nil {
		log.Printf("DB error: %v", err)
		http.Error(w, "Failed to load runs", http.StatusInternalServerError)
		return
	}
	if err := s.homeTmpl.ExecuteTemplate(w, "base.html", runs); err != nil {
		log.Printf("Template error: %v", err)
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	run, err := db.GetRun(s.database, id)
	if errors.Is(err, sql.ErrNoRows) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.Printf("DB error: %v", err)
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}
	items, err := db.GetRunItems(s.database, id)
	if err != nil {
		log.Printf("DB error: %v", err)
		http.Error(w, "Failed to load run items", http.StatusInternalServerError)
		return
	}

	data := struct {
		Run   *models.Run
		Items []models.RunItem
	}{
		Run:   run,
		Items: items,
	}
	if err := s.runTmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Template error: %v", err)
	}
}
