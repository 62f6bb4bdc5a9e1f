package admin

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"firec2-sim/internal/covert"
	"firec2-sim/internal/sim"
)

//go:embed templates/index.html
var content embed.FS

// Server exposes a running simulation over HTTP: an HTML status page,
// JSON snapshots of the grid and covert channel, and operator actions
// for injecting downlink commands and manual ignitions.
type Server struct {
	sim *sim.Simulator
	log *slog.Logger
	tpl *template.Template
	mux *http.ServeMux
}

// NewServer builds the admin server around a simulator. A nil metrics
// leaves /metrics unregistered.
func NewServer(log *slog.Logger, s *sim.Simulator, metrics *sim.Metrics) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	srv := &Server{sim: s, log: log, tpl: tpl, mux: http.NewServeMux()}
	srv.routes(metrics)
	return srv
}

func (s *Server) routes(metrics *sim.Metrics) {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/grid", s.handleGrid)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/command", s.handleCommand)
	s.mux.HandleFunc("/api/ignite", s.handleIgnite)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	if metrics != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	}
}

// Handler returns the route set, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves until the listener fails.
func (s *Server) Start(addr string) error {
	s.log.Info("admin server listening", "addr", addr)
	return http.ListenAndServe(addr, s.mux)
}

type cellView struct {
	ID    int
	TempC float64
	Label string
	Class string
}

type indexData struct {
	Status   sim.Status
	Rows     [][]cellView
	Commands []covert.Command
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	cfg := s.sim.Config()
	rows := make([][]cellView, cfg.Grid.Height)
	for i := range rows {
		rows[i] = make([]cellView, 0, cfg.Grid.Width)
	}
	for _, n := range s.sim.GridSnapshot() {
		if n.Row < 0 || n.Row >= len(rows) {
			continue
		}
		rows[n.Row] = append(rows[n.Row], cellView{
			ID:    n.ID,
			TempC: n.TempC,
			Label: cellLabel(n),
			Class: cellClass(n),
		})
	}

	data := indexData{
		Status:   s.sim.Status(),
		Rows:     rows,
		Commands: covert.Commands(),
	}
	if err := s.tpl.Execute(w, data); err != nil {
		s.log.Warn("render status page", "err", err)
	}
}

func cellLabel(n sim.NodeSnapshot) string {
	if n.BurnedOut {
		return "x"
	}
	if n.IsAttacker && len(n.Mode) > 0 {
		return string(n.Mode[0]-'a'+'A') + strconv.Itoa(n.ID)
	}
	return strconv.Itoa(n.ID)
}

func cellClass(n sim.NodeSnapshot) string {
	switch {
	case n.BurnedOut:
		return "burned"
	case n.OnFire:
		return "fire"
	case n.IsAttacker && n.Mode == "active":
		return "attack"
	case n.Heat > 0.3:
		return "warm"
	default:
		return "calm"
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.sim.Status())
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.sim.GridSnapshot())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.sim.Events())
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	node, err := strconv.Atoi(r.FormValue("node"))
	if err != nil {
		http.Error(w, "node must be an integer", http.StatusBadRequest)
		return
	}
	cmd, err := covert.ParseCommand(r.FormValue("cmd"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.sim.InjectCommand(node, cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Info("admin command queued", "node", node, "cmd", cmd.String())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIgnite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	node, err := strconv.Atoi(r.FormValue("node"))
	if err != nil {
		http.Error(w, "node must be an integer", http.StatusBadRequest)
		return
	}
	if err := s.sim.IgniteNode(node); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Info("admin ignition queued", "node", node)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}
