// Package testbed is a self-contained target application for the built-in
// suites. It serves a few HTML pages for browser cases and an in-memory
// items API for REST cases. State resets on restart.
package testbed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
)

// Item is the testbed's single resource type.
type Item struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Server holds the in-memory state behind the HTTP handler.
type Server struct {
	mu     sync.RWMutex
	items  map[string]Item
	logger arbor.ILogger
}

// NewServer creates a Server seeded with a few items.
func NewServer(logger arbor.ILogger) *Server {
	s := &Server{
		items:  make(map[string]Item),
		logger: logger,
	}
	for _, seed := range []Item{
		{Name: "Widget", Price: 9.99},
		{Name: "Gadget", Price: 19.99},
		{Name: "Doohickey", Price: 4.25},
	} {
		seed.ID = newItemID()
		s.items[seed.ID] = seed
	}
	return s
}

func newItemID() string {
	return "item_" + uuid.New().String()
}

// Handler returns the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// HTML pages for browser cases
	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/items", s.handleItemsPage)

	// JSON API for REST cases
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/items", s.handleItemsCollection)
	mux.HandleFunc("/api/items/", s.handleItem)

	return s.logRequests(mux)
}

// Listen starts the server on port in a goroutine and returns it for
// shutdown.
func (s *Server) Listen(port int) *http.Server {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Testbed server error")
		}
	}()

	s.logger.Info().Int("port", port).Msg("Testbed server listening")
	return server
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("Request handled")
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, `<!DOCTYPE html>
<html>
<head><title>Probo Testbed</title></head>
<body>
    <h1 id="page-title">Probo Testbed</h1>
    <nav>
        <a href="/login">Login</a>
        <a href="/items">Items</a>
    </nav>
    <button id="action-button">Click Me</button>
    <div id="action-output" style="display:none"></div>
    <script>
        document.getElementById('action-button').addEventListener('click', function() {
            var out = document.getElementById('action-output');
            out.textContent = 'Button clicked!';
            out.style.display = 'block';
        });
    </script>
</body>
</html>`)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, `<!DOCTYPE html>
<html>
<head><title>Login - Probo Testbed</title></head>
<body>
    <h1>Login</h1>
    <form id="login-form">
        <input type="text" id="username" name="username">
        <input type="password" id="password" name="password">
        <button type="button" id="login-submit">Sign in</button>
    </form>
    <div id="welcome" style="display:none"></div>
    <script>
        document.getElementById('login-submit').addEventListener('click', function() {
            var name = document.getElementById('username').value;
            var el = document.getElementById('welcome');
            el.textContent = 'Welcome, ' + name + '!';
            el.style.display = 'block';
        });
    </script>
</body>
</html>`)
}

func (s *Server) handleItemsPage(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	items := s.sortedItems()
	s.mu.RUnlock()

	var rows strings.Builder
	for _, item := range items {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%.2f</td></tr>\n", item.Name, item.Price)
	}

	writeHTML(w, fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Items - Probo Testbed</title></head>
<body>
    <h1>Items</h1>
    <table id="items-table">
        <tr><th>Name</th><th>Price</th></tr>
        %s
    </table>
</body>
</html>`, rows.String()))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"server":    "probo-testbed",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleItemsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.RLock()
		items := s.sortedItems()
		s.mu.RUnlock()
		writeJSON(w, http.StatusOK, items)

	case http.MethodPost:
		var item Item
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if item.Name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
			return
		}
		item.ID = newItemID()

		s.mu.Lock()
		s.items[item.ID] = item
		s.mu.Unlock()

		writeJSON(w, http.StatusCreated, item)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/items/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.mu.RLock()
		item, ok := s.items[id]
		s.mu.RUnlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		writeJSON(w, http.StatusOK, item)

	case http.MethodPut:
		var update Item
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		s.mu.Lock()
		_, ok := s.items[id]
		if ok {
			update.ID = id
			s.items[id] = update
		}
		s.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		writeJSON(w, http.StatusOK, update)

	case http.MethodDelete:
		s.mu.Lock()
		_, ok := s.items[id]
		delete(s.items, id)
		s.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// sortedItems returns items by name for stable page and API output. Caller
// holds the lock.
func (s *Server) sortedItems() []Item {
	items := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
