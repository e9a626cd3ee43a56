package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/cors"

	"github.com/openclaw/clawboard/database"
	"github.com/openclaw/clawboard/handlers"
	"github.com/openclaw/clawboard/openclaw"
	"github.com/openclaw/clawboard/services"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	store := database.NewStore(db)

	// Initialize services
	authService := services.NewAuthService(cfg.JWTSecret)
	cipher := services.NewTokenCipher(cfg.EncryptionKey)

	// OpenClaw integration
	client := openclaw.NewService(store, cipher)
	reconciler := openclaw.NewReconciler(store, client)
	dispatcher := openclaw.NewDispatcher(store, client, reconciler)

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, store, handlers.OpenClawDefaults{
		Mode:       cfg.OpenClawDefaultMode,
		BaseURL:    cfg.OpenClawDefaultBaseURL,
		HealthPath: cfg.OpenClawDefaultHealthPath,
	})
	authMiddleware := handlers.NewAuthMiddleware(authService)
	boardHandler := handlers.NewBoardHandler(store, hub)
	taskHandler := handlers.NewTaskHandler(store, hub, client, reconciler)
	commandHandler := handlers.NewCommandHandler(store, dispatcher, hub)
	openclawHandler := handlers.NewOpenClawHandler(store, client, cipher, cfg.WebhookSecret)
	webhookHandler := handlers.NewWebhookHandler(store, reconciler, hub, cfg.WebhookSecret)
	diagnosticsHandler := handlers.NewDiagnosticsHandler(store)
	wsHandler := handlers.NewWebSocketHandler(store, authService, hub)

	// Setup router
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/openclaw/contract", openclawHandler.Contract).Methods("GET")

	// Shared-secret routes (OpenClaw calls in, no user session)
	r.HandleFunc("/api/openclaw/dispatch", openclawHandler.Dispatch).Methods("POST")
	r.HandleFunc("/api/openclaw/webhook/job-status", webhookHandler.JobStatus).Methods("POST")
	r.HandleFunc("/api/openclaw/webhook/log", webhookHandler.Log).Methods("POST")

	// WebSocket route for board re-sync (token in query parameter)
	r.HandleFunc("/api/ws", wsHandler.Handle)

	// Protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(authMiddleware.Auth)

	protected.HandleFunc("/auth/verify", authHandler.Verify).Methods("GET")

	protected.HandleFunc("/boards", boardHandler.ListBoards).Methods("GET")
	protected.HandleFunc("/boards", boardHandler.CreateBoard).Methods("POST")
	protected.HandleFunc("/boards/{boardId}", boardHandler.GetBoard).Methods("GET")
	protected.HandleFunc("/boards/{boardId}", boardHandler.UpdateBoard).Methods("PUT")
	protected.HandleFunc("/boards/{boardId}", boardHandler.DeleteBoard).Methods("DELETE")
	protected.HandleFunc("/boards/{boardId}/columns", boardHandler.ListColumns).Methods("GET")
	protected.HandleFunc("/boards/{boardId}/columns", boardHandler.CreateColumn).Methods("POST")
	protected.HandleFunc("/boards/{boardId}/columns", boardHandler.ReorderColumns).Methods("PUT")
	protected.HandleFunc("/boards/{boardId}/columns/{columnId}", boardHandler.UpdateColumn).Methods("PUT")
	protected.HandleFunc("/boards/{boardId}/columns/{columnId}", boardHandler.DeleteColumn).Methods("DELETE")
	protected.HandleFunc("/boards/{boardId}/columns/{columnId}/tasks", taskHandler.CreateTask).Methods("POST")

	protected.HandleFunc("/tasks/{taskId}", taskHandler.GetTask).Methods("GET")
	protected.HandleFunc("/tasks/{taskId}", taskHandler.UpdateTask).Methods("PUT")
	protected.HandleFunc("/tasks/{taskId}", taskHandler.DeleteTask).Methods("DELETE")
	protected.HandleFunc("/tasks/{taskId}/move", taskHandler.MoveTask).Methods("PUT")
	protected.HandleFunc("/tasks/{taskId}/activity", taskHandler.GetActivity).Methods("GET")
	protected.HandleFunc("/tasks/{taskId}/job/cancel", taskHandler.CancelJob).Methods("POST")

	protected.HandleFunc("/command-center/execute", commandHandler.Execute).Methods("POST")
	protected.HandleFunc("/command-center/history", commandHandler.History).Methods("GET")

	protected.HandleFunc("/openclaw/config", openclawHandler.GetConfig).Methods("GET")
	protected.HandleFunc("/openclaw/config", openclawHandler.UpdateConfig).Methods("PUT")
	protected.HandleFunc("/openclaw/health", openclawHandler.Health).Methods("GET")
	protected.HandleFunc("/openclaw/wiring-pack", openclawHandler.WiringPack).Methods("GET")

	protected.HandleFunc("/diagnostics", diagnosticsHandler.Get).Methods("GET")

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // In production, change to your domain
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-OPENCLAW-SECRET"},
		AllowCredentials: true,
	})

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      c.Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Server starting on port %s", cfg.Port)
	log.Fatal(server.ListenAndServe())
}
