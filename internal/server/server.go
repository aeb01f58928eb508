package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/dmfalke/stash/internal/bin"
	"github.com/dmfalke/stash/internal/handler"
	"github.com/dmfalke/stash/internal/middleware"
	"github.com/dmfalke/stash/internal/store"
	ws "github.com/dmfalke/stash/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	itemH         *handler.ItemHandler
	binH          *handler.RecycleBinHandler
	borrowH       *handler.BorrowHandler
	warrantyH     *handler.WarrantyHandler
	locationH     *handler.LocationHandler
	settingsH     *handler.SettingsHandler
	settingsStore *store.SettingsStore
	cleaner       *bin.Cleaner
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	itemStore := store.NewItemStore(db)
	stateStore := store.NewStateStore(db)
	locationStore := store.NewLocationStore(db)
	borrowStore := store.NewBorrowStore(db)
	warrantyStore := store.NewWarrantyStore(db)
	settingsStore := store.NewSettingsStore(db)

	engine := store.NewLifecycleEngine(db)
	binStore := store.NewRecycleBinStore(db, engine)
	cleaner := bin.NewCleaner(binStore, settingsStore, logger.With("component", "bin-cleaner"))

	return &Server{
		db:            db,
		hub:           hub,
		itemH:         handler.NewItemHandler(itemStore, engine, stateStore, locationStore, borrowStore, hub),
		binH:          handler.NewRecycleBinHandler(binStore, cleaner, hub),
		borrowH:       handler.NewBorrowHandler(borrowStore, itemStore, hub),
		warrantyH:     handler.NewWarrantyHandler(warrantyStore, itemStore),
		locationH:     handler.NewLocationHandler(locationStore),
		settingsH:     handler.NewSettingsHandler(settingsStore),
		settingsStore: settingsStore,
		cleaner:       cleaner,
		rateLimiter:   middleware.NewRateLimiter(),
		logger:        logger,
	}
}

// Cleaner exposes the bin auto-clean manager so main can start and stop it
// with the server lifecycle.
func (s *Server) Cleaner() *bin.Cleaner {
	return s.cleaner
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Items
	mux.HandleFunc("POST /api/items", s.itemH.Create)
	mux.HandleFunc("GET /api/items", s.itemH.List)
	mux.HandleFunc("GET /api/items/{id}", s.itemH.Get)
	mux.HandleFunc("PUT /api/items/{id}", s.itemH.Update)
	mux.HandleFunc("DELETE /api/items/{id}", s.itemH.Delete)
	mux.HandleFunc("POST /api/items/{id}/transfer", s.itemH.Transfer)
	mux.HandleFunc("GET /api/items/{id}/history", s.itemH.History)

	// Recycle bin
	mux.HandleFunc("GET /api/bin", s.binH.List)
	mux.HandleFunc("POST /api/bin", s.binH.MoveMany)
	mux.HandleFunc("POST /api/bin/restore/{id}", s.binH.Restore)
	mux.HandleFunc("DELETE /api/bin/{id}", s.binH.Delete)
	mux.HandleFunc("POST /api/bin/clear", s.binH.Clear)
	mux.HandleFunc("POST /api/bin/clean", s.binH.Clean)

	// Borrow records
	mux.HandleFunc("POST /api/items/{id}/borrows", s.borrowH.Create)
	mux.HandleFunc("GET /api/items/{id}/borrows", s.borrowH.ListByItem)
	mux.HandleFunc("POST /api/borrows/{id}/return", s.borrowH.Return)

	// Warranties
	mux.HandleFunc("POST /api/items/{id}/warranties", s.warrantyH.Create)
	mux.HandleFunc("GET /api/items/{id}/warranties", s.warrantyH.ListByItem)
	mux.HandleFunc("GET /api/warranties/expiring", s.warrantyH.Expiring)

	// Locations
	mux.HandleFunc("GET /api/locations", s.locationH.List)
	mux.HandleFunc("POST /api/locations", s.locationH.Create)

	// Settings
	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Update)
	mux.HandleFunc("POST /api/pin", s.settingsH.SetPIN)
	mux.HandleFunc("POST /api/pin/verify", s.settingsH.VerifyPIN)

	// Live change feed
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	protected := middleware.RequirePIN(s.settingsStore, s.rateLimiter)(mux)

	outer := http.NewServeMux()
	outer.HandleFunc("GET /health", s.healthHandler)
	outer.Handle("/", protected)

	return middleware.RequestLogger(s.logger)(outer)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
