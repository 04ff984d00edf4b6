package handlers

import (
	"net/http"
	"path"
	"path/filepath"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// RouterConfig holds what the router needs beyond the handlers.
type RouterConfig struct {
	StaticDir      string
	AllowedOrigins []string
}

// NewRouter wires the API, the websocket feed and the page routes, wrapped
// in CORS and request logging.
func NewRouter(cfg RouterConfig, data *DataHandler, feed *FeedHandler) http.Handler {
	r := mux.NewRouter()
	r.Use(Recoverer, RequestLogger)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", data.GetState).Methods("GET")
	api.HandleFunc("/boards", data.ListBoards).Methods("GET")
	api.HandleFunc("/boards", data.CreateBoard).Methods("POST")
	api.HandleFunc("/boards/{boardId}", data.GetBoard).Methods("GET")
	api.HandleFunc("/boards/{boardId}/columns", data.CreateColumn).Methods("POST")
	api.HandleFunc("/boards/{boardId}/columns/{columnId}", data.DeleteColumn).Methods("DELETE")
	api.HandleFunc("/columns/{columnId}", data.EditColumn).Methods("PATCH")
	api.HandleFunc("/columns/{columnId}/cards", data.CreateCard).Methods("POST")
	api.HandleFunc("/columns/{columnId}/cards/{cardId}", data.DeleteCard).Methods("DELETE")
	api.HandleFunc("/columns/{columnId}/cards/{cardId}/reorder", data.ReorderCard).Methods("POST")
	api.HandleFunc("/cards/{cardId}", data.EditCard).Methods("PATCH")
	api.HandleFunc("/cards/{cardId}/move", data.MoveCard).Methods("POST")
	api.HandleFunc("/drop", data.Drop).Methods("POST")

	// WebSocket route for state updates
	api.HandleFunc("/ws", feed.HandleWebSocket)

	api.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Unknown endpoint")
	})

	index := serveIndex(cfg.StaticDir)
	r.HandleFunc("/boards", index).Methods("GET")
	r.HandleFunc("/board/{boardId}", index).Methods("GET")
	r.PathPrefix("/").Handler(staticOrRedirect(cfg.StaticDir))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})
	return c.Handler(r)
}

func serveIndex(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	}
}

// staticOrRedirect serves files from dir and sends every other path to the
// board list.
func staticOrRedirect(dir string) http.Handler {
	root := http.Dir(dir)
	files := http.FileServer(root)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			if f, err := root.Open(path.Clean(r.URL.Path)); err == nil {
				info, statErr := f.Stat()
				_ = f.Close()
				if statErr == nil && !info.IsDir() {
					files.ServeHTTP(w, r)
					return
				}
			}
		}
		http.Redirect(w, r, "/boards", http.StatusFound)
	})
}
