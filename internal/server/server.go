package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jmcneish/castbridge/internal/api"
	"github.com/jmcneish/castbridge/internal/auth"
	"github.com/jmcneish/castbridge/internal/capability"
	"github.com/jmcneish/castbridge/internal/cast"
	"github.com/jmcneish/castbridge/internal/config"
	"github.com/jmcneish/castbridge/internal/db"
	"github.com/jmcneish/castbridge/internal/dispatcher"
	"github.com/jmcneish/castbridge/internal/library"
	"github.com/jmcneish/castbridge/internal/notify"
	"github.com/jmcneish/castbridge/internal/registry"
	"github.com/jmcneish/castbridge/internal/settings"
	"github.com/jmcneish/castbridge/internal/videosearch"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLoggerMiddleware logs all incoming HTTP requests
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, wrapped.status, time.Since(start).Round(time.Millisecond))
	})
}

// Options controls server wiring.
type Options struct {
	// DisableDiscovery skips the initial device scan and rescan schedule
	// (for tests).
	DisableDiscovery bool

	// Discoverer overrides mDNS discovery (for tests).
	Discoverer cast.Discoverer

	// ClientFactory overrides the cast client constructor (for tests).
	ClientFactory cast.Factory
}

// NewHandler builds the HTTP handler and returns a shutdown function.
func NewHandler(cfg config.Config, options Options) (http.Handler, func(context.Context) error, error) {
	log.Printf("Using database: %s", cfg.SQLiteDBPath)
	dbPair, err := db.Init(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, err
	}
	store := settings.NewSQLiteStore(dbPair)

	discoverer := options.Discoverer
	if discoverer == nil {
		discoverer = cast.NewDNSDiscoverer(time.Duration(cfg.CastConnectTimeoutMs)*time.Millisecond, nil)
	}
	clientFactory := options.ClientFactory
	if clientFactory == nil {
		clientFactory = func(info cast.DeviceInfo) cast.Client {
			return cast.NewChromecastClient(info, nil)
		}
	}

	reg := registry.New(registry.Options{
		Discoverer:     discoverer,
		ClientFactory:  clientFactory,
		BackendFactory: backendFactory(cfg, store),
		AppIDs:         backendAppIDs(cfg),
		RescanInterval: time.Duration(cfg.RescanIntervalMin) * time.Minute,
	})

	if !options.DisableDiscovery {
		startCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := reg.Start(startCtx); err != nil {
			dbPair.Close()
			return nil, nil, fmt.Errorf("device discovery: %w", err)
		}
		log.Printf("Registered devices: %v", reg.Names())
	}

	dispatch := dispatcher.New(reg, time.Duration(cfg.CommandTimeoutMs)*time.Millisecond, nil)
	notifyService := notify.NewService(dispatch, nil)

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(requestLoggerMiddleware)
	router.Use(api.CorrelationIDMiddleware)
	router.Use(api.RecovererMiddleware)
	router.Use(auth.Middleware(cfg))

	registerHealthRoutes(router)
	router.Route("/v1", func(r chi.Router) {
		notifyService.Routes(r)
		registerDeviceRoutes(r, reg)
	})

	shutdown := func(ctx context.Context) error {
		notifyService.Close()
		reg.Stop()
		return dbPair.Close()
	}

	return router, shutdown, nil
}

// backendFactory wires the configured streaming backends. A backend whose
// configuration is absent yields nil, which the registry reports as
// unavailable.
func backendFactory(cfg config.Config, store settings.Store) registry.BackendFactory {
	var libClient *library.Client
	if cfg.HasLibrary() {
		baseURL := fmt.Sprintf("http://%s:%d", cfg.LibraryHost, cfg.LibraryPort)
		libClient = library.NewClient(baseURL, cfg.LibraryToken, nil)
	}

	var videoClient *videosearch.Client
	if cfg.HasVideoSearch() {
		videoClient = videosearch.NewClient(cfg.VideoSearchAPIURL, cfg.VideoSearchAPIKey,
			cfg.MovieDBAPIURL, cfg.MovieDBAPIKey, nil)
	}

	return func(name, deviceName string, client cast.Client) capability.MediaCapability {
		switch name {
		case "library":
			if libClient == nil {
				return nil
			}
			return library.NewController(libClient, client, deviceName, cfg.LibrarySubtitleLang, store, nil)
		case "video":
			if videoClient == nil {
				return nil
			}
			return videosearch.NewController(videoClient, client, nil)
		default:
			return nil
		}
	}
}

func backendAppIDs(cfg config.Config) map[string]string {
	appIDs := make(map[string]string)
	if cfg.HasLibrary() {
		appIDs[library.AppID] = "library"
	}
	if cfg.HasVideoSearch() {
		appIDs[videosearch.AppID] = "video"
	}
	return appIDs
}

func registerDeviceRoutes(router chi.Router, reg *registry.Registry) {
	router.Method(http.MethodGet, "/devices", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{
			"devices": reg.Names(),
		})
	}))
}

func registerHealthRoutes(router chi.Router) {
	router.Method(http.MethodGet, "/v1/health", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		response := map[string]any{
			"status":    "healthy",
			"service":   "castbridge",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		return api.WriteJSON(w, http.StatusOK, response)
	}))
	router.Method(http.MethodGet, "/v1/health/live", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}))
	router.Method(http.MethodGet, "/v1/health/ready", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	}))
}
