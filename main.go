package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk"
	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fastTrackAPI/handlers"
	"fastTrackAPI/internal/notification"
	"fastTrackAPI/middleware"
	"fastTrackAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	notificationService *services.NotificationService
	userService         *services.UserService
	fastService         *services.FastService
	weightService       *services.WeightService
	challengeService    *services.ChallengeService
	syncService         *services.SyncService
	coachService        *services.CoachService
	circleService       *services.CircleService
	liveManager         *services.CircleLiveManager
	paddleService       *services.PaddleService
	fcmService          *notification.FCMService
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

	log.Println("Successfully connected to Postgres")

	notificationService = services.NewNotificationService(dbPool)
	userService = services.NewUserService(dbPool, notificationService)
	fastService = services.NewFastService(dbPool, notificationService)
	weightService = services.NewWeightService(dbPool)
	challengeService = services.NewChallengeService(dbPool, fastService, notificationService)
	syncService = services.NewSyncService(dbPool)
	coachService = services.NewCoachService(dbPool, fastService)
	liveManager = services.NewCircleLiveManager()
	circleService = services.NewCircleService(dbPool, liveManager, notificationService)

	paddleAPIKey := os.Getenv("PADDLE_API_KEY")
	if paddleAPIKey != "" {
		paddleClient, err := paddle.New(paddleAPIKey, paddle.WithBaseURL(paddle.SandboxBaseURL))
		if err != nil {
			log.Printf("Warning: Could not initialize Paddle: %v", err)
		} else {
			paddleService = services.NewPaddleService(paddleClient, dbPool, userService)
			log.Println("Paddle initialized successfully")
		}
	} else {
		log.Println("PADDLE_API_KEY not set, billing routes disabled")
	}

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	userHandler := handlers.NewUserHandler(userService)
	fastHandler := handlers.NewFastHandler(fastService)
	weightHandler := handlers.NewWeightHandler(weightService)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	syncHandler := handlers.NewSyncHandler(syncService)
	coachHandler := handlers.NewCoachHandler(coachService, userService)
	circleHandler := handlers.NewCircleHandler(circleService, liveManager)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(userService)
	docHandler := handlers.NewDocHandler()

	r := mux.NewRouter()

	// WebSocket route skips the rate limiter; connections are long-lived.
	r.HandleFunc("/api/v1/circles/{id}/live", circleHandler.JoinLive)

	standardRouter := r.PathPrefix("/").Subrouter()

	go middleware.CleanupVisitors()
	challengeService.StartWeeklyRotation()

	standardRouter.Use(middleware.RateLimitMiddleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	assetsDir := "./assets"
	fs := http.FileServer(http.Dir(assetsDir))
	standardRouter.PathPrefix("/assets/").Handler(http.StripPrefix("/assets/", fs))
	log.Printf("Serving static files from %s at /assets/", assetsDir)

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
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
		w.Write([]byte(`{"status": "healthy", "service": "fastTrack-api"}`))
	}).Methods("GET")

	standardRouter.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/privacy-policy", docHandler.ServePrivacyPolicy).Methods("GET")
	api.HandleFunc("/terms-of-services", docHandler.ServeTermsOfServices).Methods("GET")
	api.HandleFunc("/min-version", docHandler.GetAppMinVersion).Methods("GET")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user", userHandler.DeleteAccount).Methods("DELETE")
	protected.HandleFunc("/user/stats", userHandler.GetStats).Methods("GET")
	protected.HandleFunc("/user/badges", userHandler.GetBadges).Methods("GET")
	protected.HandleFunc("/user/premium", userHandler.GetPremiumStatus).Methods("GET")
	protected.HandleFunc("/user/search", userHandler.SearchUsers).Methods("GET")
	protected.HandleFunc("/users/{id}", userHandler.GetProfileView).Methods("GET")

	protected.HandleFunc("/friends", userHandler.GetFriends).Methods("GET")
	protected.HandleFunc("/friends", userHandler.AddFriend).Methods("POST")
	protected.HandleFunc("/friends/{id}/accept", userHandler.AcceptFriend).Methods("PUT")
	protected.HandleFunc("/friends/{id}", userHandler.RemoveFriend).Methods("DELETE")
	protected.HandleFunc("/friends/leaderboard", userHandler.GetLeaderboard).Methods("GET")
	protected.HandleFunc("/friends/invite-qr", userHandler.GenerateInviteQR).Methods("POST")
	protected.HandleFunc("/friends/invite-qr/accept", userHandler.AcceptInvite).Methods("POST")

	protected.HandleFunc("/fasts", fastHandler.GetFasts).Methods("GET")
	protected.HandleFunc("/fasts", fastHandler.StartFast).Methods("POST")
	protected.HandleFunc("/fasts/active", fastHandler.GetActiveFast).Methods("GET")
	protected.HandleFunc("/fasts/end", fastHandler.EndFast).Methods("POST")
	protected.HandleFunc("/fasts/calendar", fastHandler.GetCalendar).Methods("GET")
	protected.HandleFunc("/fasts/streak", fastHandler.GetStreak).Methods("GET")
	protected.HandleFunc("/fasts/{id}", fastHandler.UpdateFast).Methods("PUT")
	protected.HandleFunc("/fasts/{id}", fastHandler.DeleteFast).Methods("DELETE")

	protected.HandleFunc("/weights", weightHandler.GetEntries).Methods("GET")
	protected.HandleFunc("/weights", weightHandler.AddEntry).Methods("POST")
	protected.HandleFunc("/weights/trend", weightHandler.GetTrend).Methods("GET")
	protected.HandleFunc("/weights/{id}", weightHandler.DeleteEntry).Methods("DELETE")

	protected.HandleFunc("/challenges", challengeHandler.ListActive).Methods("GET")
	protected.HandleFunc("/challenges/{id}/join", challengeHandler.Join).Methods("POST")
	protected.HandleFunc("/challenges/{id}/leave", challengeHandler.Leave).Methods("DELETE")
	protected.HandleFunc("/challenges/{id}/status", challengeHandler.GetStatus).Methods("GET")
	protected.HandleFunc("/challenges/{id}/leaderboard", challengeHandler.GetLeaderboard).Methods("GET")

	protected.HandleFunc("/circles", circleHandler.ListCircles).Methods("GET")
	protected.HandleFunc("/circles", circleHandler.CreateCircle).Methods("POST")
	protected.HandleFunc("/circles/join", circleHandler.JoinCircle).Methods("POST")
	protected.HandleFunc("/circles/{id}", circleHandler.LeaveCircle).Methods("DELETE")
	protected.HandleFunc("/circles/{id}/members", circleHandler.GetMembers).Methods("GET")
	protected.HandleFunc("/circles/{id}/messages", circleHandler.GetMessages).Methods("GET")
	protected.HandleFunc("/circles/{id}/messages", circleHandler.PostMessage).Methods("POST")

	protected.HandleFunc("/sync/push", syncHandler.Push).Methods("POST")
	protected.HandleFunc("/sync/snapshot", syncHandler.Snapshot).Methods("GET")

	protected.HandleFunc("/coach/chat", coachHandler.Chat).Methods("POST")
	protected.HandleFunc("/coach/history", coachHandler.GetHistory).Methods("GET")
	protected.HandleFunc("/coach/insight", coachHandler.DailyInsight).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/preferences", notificationHandler.GetPreferences).Methods("GET")
	protected.HandleFunc("/notifications/preferences", notificationHandler.UpdatePreferences).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")
	protected.HandleFunc("/notifications/devices/{token}", notificationHandler.UnregisterDevice).Methods("DELETE")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/{id}", notificationHandler.DeleteNotification).Methods("DELETE")

	if paddleService != nil {
		paddleHandler := handlers.NewPaddleHandler(paddleService)
		standardRouter.HandleFunc("/webhooks/paddle", paddleHandler.PaddleWebhookHandler).Methods("POST")
		api.HandleFunc("/payment-success", paddleHandler.PaymentSuccessPage).Methods("GET")
		protected.HandleFunc("/billing/prices", paddleHandler.GetPrices).Methods("GET")
		protected.HandleFunc("/billing/transactions", paddleHandler.CreateTransaction).Methods("POST")
		protected.HandleFunc("/billing/subscription", paddleHandler.GetSubscription).Methods("GET")
	}

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
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
		WriteTimeout: 35 * time.Second,
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

	challengeService.StopWeeklyRotation()
	notificationService.Dispatcher().Stop()

	log.Println("Server shutdown complete")
}
