package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"linkUpAPI/handlers"
	"linkUpAPI/internal/schema"
	"linkUpAPI/middleware"
	"linkUpAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	userService         *services.UserService
	connectionService   *services.ConnectionService
	notificationService *services.NotificationService
	feedService         *services.FeedService
	postService         *services.PostService
	conversationService *services.ConversationService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	if _, err := dbPool.Exec(ctx, schema.DDL); err != nil {
		log.Fatal("Failed to apply schema:", err)
	}

	// All deployments must agree on the calendar day used for notification
	// dedup, so the zone comes from config rather than the host.
	loc := time.UTC
	if tz := os.Getenv("NOTIF_TIMEZONE"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			log.Fatal("Invalid NOTIF_TIMEZONE:", err)
		}
	}

	notificationService = services.NewNotificationService(dbPool, loc)
	userService = services.NewUserService(dbPool)
	connectionService = services.NewConnectionService(dbPool, notificationService)
	feedService = services.NewFeedService(dbPool, connectionService)
	postService = services.NewPostService(dbPool, notificationService)
	conversationService = services.NewConversationService(dbPool, notificationService)

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	userHandler := handlers.NewUserHandler(userService, connectionService, feedService, notificationService)
	connectionHandler := handlers.NewConnectionHandler(userService, connectionService, feedService)
	feedHandler := handlers.NewFeedHandler(userService, postService, feedService)
	notificationHandler := handlers.NewNotificationHandler(userService, notificationService)
	messageHandler := handlers.NewMessageHandler(userService, conversationService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "linkUp-api"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Routes that adapt to an optional identity: anonymous viewers get the
	// public slice, authenticated viewers get what the graph allows.
	public := api.PathPrefix("").Subrouter()
	public.Use(middleware.OptionalAuthMiddleware)

	public.HandleFunc("/users/{username}/profile", userHandler.GetProfile).Methods("GET")
	public.HandleFunc("/posts/{id:[0-9]+}", feedHandler.GetPost).Methods("GET")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/users/me", userHandler.EnsureMe).Methods("PUT")
	protected.HandleFunc("/users/me", userHandler.GetMe).Methods("GET")
	protected.HandleFunc("/users/me/privacy", userHandler.UpdatePrivacy).Methods("PUT")
	protected.HandleFunc("/users/search", userHandler.SearchUsers).Methods("GET")

	protected.HandleFunc("/connections/request", connectionHandler.RequestConnection).Methods("POST")
	protected.HandleFunc("/connections/{id}/respond", connectionHandler.RespondToConnection).Methods("PUT")
	protected.HandleFunc("/connections/{id}", connectionHandler.CancelConnection).Methods("DELETE")
	protected.HandleFunc("/connections/with/{userId}", connectionHandler.RemoveConnection).Methods("DELETE")
	protected.HandleFunc("/connections/block/{userId}", connectionHandler.BlockUser).Methods("POST")
	protected.HandleFunc("/connections/network", connectionHandler.GetNetwork).Methods("GET")
	protected.HandleFunc("/connections/discover", connectionHandler.DiscoverUsers).Methods("GET")

	protected.HandleFunc("/feed", feedHandler.GetFeed).Methods("GET")
	protected.HandleFunc("/posts", feedHandler.CreatePost).Methods("POST")
	protected.HandleFunc("/posts/{id:[0-9]+}/react", feedHandler.ReactToPost).Methods("POST")
	protected.HandleFunc("/posts/{id:[0-9]+}/comments", feedHandler.AddComment).Methods("POST")
	protected.HandleFunc("/posts/{id:[0-9]+}/comments", feedHandler.ListComments).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.ListNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkRead).Methods("PUT")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllRead).Methods("PUT")

	protected.HandleFunc("/messages/inbox", messageHandler.GetInbox).Methods("GET")
	protected.HandleFunc("/messages", messageHandler.SendMessage).Methods("POST")
	protected.HandleFunc("/messages/conversations/{id}", messageHandler.ListMessages).Methods("GET")
	protected.HandleFunc("/messages/conversations/{id}", messageHandler.PostMessage).Methods("POST")
	protected.HandleFunc("/messages/{messageId:[0-9]+}", messageHandler.EditMessage).Methods("PUT")
	protected.HandleFunc("/messages/{messageId:[0-9]+}", messageHandler.DeleteMessage).Methods("DELETE")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
