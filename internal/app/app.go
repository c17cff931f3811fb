package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "tomanage/docs"
	"tomanage/internal/ai"
	"tomanage/internal/config"
	"tomanage/internal/handlers"
	"tomanage/internal/mcpserver"
	"tomanage/internal/notify"
	"tomanage/internal/pdf"
	"tomanage/internal/recommend"
	"tomanage/internal/repositories"
	"tomanage/internal/routes"
	"tomanage/internal/services"
	"tomanage/internal/ticktick"
	"tomanage/internal/utils"
)

// Version is stamped at build time.
var Version = "dev"

// App holds the wired services shared by the HTTP server and the CLI.
type App struct {
	Config *config.Config
	DB     *sqlx.DB

	Tools         *ai.Dispatcher
	Profile       services.ProfileService
	TickTick      services.TickTickService
	Sync          services.SyncService
	Tasks         services.TaskService
	Assistant     services.AssistantService
	Recommend     services.RecommendationService
	Notifications services.NotificationService
	Reports       services.ReportService
}

// New opens the database and wires repositories and services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// === DB ===
	db, err := repositories.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := repositories.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	// === Repos ===
	kv := repositories.NewKVRepository(db)
	taskRepo := repositories.NewTaskRepository(kv)
	prefsRepo := repositories.NewPreferencesRepository(kv)
	patternRepo := repositories.NewPatternRepository(kv)
	ttRepo := repositories.NewTickTickRepository(kv)
	analyticsRepo := repositories.NewAnalyticsRepository(db)

	sealer, err := utils.NewSealer(cfg.TickTick.TokenSecret)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("token sealer: %w", err)
	}

	// === TickTick ===
	tc := cfg.TickTick
	oauth := ticktick.NewOAuth(tc.ClientID, tc.ClientSecret, tc.AuthURL, tc.TokenURL, tc.Timeout)
	client := ticktick.NewClient(tc.APIBaseURL, tc.Timeout)
	if !oauth.Configured() {
		log.Printf("[app] ticktick oauth not configured, integration disabled")
	}

	// === Services ===
	locks := services.NewUserLocks()
	profileService := services.NewProfileService(prefsRepo, patternRepo, analyticsRepo, nil)
	ttService := services.NewTickTickService(ttRepo, oauth, client, sealer, services.TickTickOptions{
		RedirectURI: tc.RedirectURI,
		Timeout:     tc.Timeout,
		CacheMaxAge: tc.CacheMaxAge,
	}, nil)
	syncService := services.NewSyncService(taskRepo, ttService, profileService, locks, nil)
	taskService := services.NewTaskService(taskRepo, profileService, ttService, syncService, locks, services.TaskOptions{
		PushTimeout:      tc.PushTimeout,
		AutoSyncInterval: tc.AutoSyncInterval,
	}, nil)

	// AI
	tools := ai.NewDispatcher(profileService)
	anthropic := ai.NewAnthropicClient(ai.ClientConfig{
		APIKey:    cfg.Anthropic.APIKey,
		BaseURL:   cfg.Anthropic.BaseURL,
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		Timeout:   cfg.Anthropic.Timeout,
	})
	var assistant *ai.Assistant
	if anthropic.Configured() {
		assistant = ai.NewAssistant(anthropic, tools)
	} else {
		log.Printf("[app] anthropic api key not set, recommendations use local rationale")
	}
	engine := recommend.NewEngine(cfg.Anthropic.Timeout)

	recService := services.NewRecommendationService(taskService, profileService, engine, assistant, nil)
	assistantService := services.NewAssistantService(assistant, profileService, taskService)

	notifiers := map[notify.Channel]notify.Notifier{}
	if tg := notify.NewTelegram(cfg.Telegram.BotToken); cfg.Telegram.Enabled && tg.Enabled() {
		notifiers[notify.ChannelTelegram] = tg
	}
	ec := cfg.Email
	if mail := notify.NewEmail(ec.SMTPHost, ec.SMTPPort, ec.SMTPUser, ec.SMTPPassword, ec.FromEmail); mail.Enabled() {
		notifiers[notify.ChannelEmail] = mail
	}
	notificationService := services.NewNotificationService(recService, profileService, notifiers)

	pdfGen := pdf.NewReportGenerator(cfg.Reports.FontPath)
	reportService := services.NewReportService(taskService, profileService, pdfGen, nil)

	return &App{
		Config:        cfg,
		DB:            db,
		Tools:         tools,
		Profile:       profileService,
		TickTick:      ttService,
		Sync:          syncService,
		Tasks:         taskService,
		Assistant:     assistantService,
		Recommend:     recService,
		Notifications: notificationService,
		Reports:       reportService,
	}, nil
}

// Close waits for pending pushes, then closes the database.
func (a *App) Close(ctx context.Context) error {
	if err := a.Tasks.Wait(ctx); err != nil {
		log.Printf("[app][close][err] pending pushes: %v", err)
	}
	return a.DB.Close()
}

// Handler builds the gin engine with every route and wraps it in CORS.
func (a *App) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, []byte(a.Config.Auth.JWTSecret), routes.Handlers{
		Tasks:           handlers.NewTaskHandler(a.Tasks, a.Assistant),
		Reports:         handlers.NewReportHandler(a.Reports),
		Integrations:    handlers.NewIntegrationsHandler(a.TickTick, a.Sync),
		Recommendations: handlers.NewRecommendationHandler(a.Recommend, a.Notifications),
		Chat:            handlers.NewChatHandler(a.Assistant),
		Profile:         handlers.NewProfileHandler(a.Profile),
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   a.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(router)
}

// MCPServer exposes the assistant tools for one user over MCP.
func (a *App) MCPServer(userID string) *mcpserver.Server {
	return mcpserver.New(userID, Version, a.Tools, a.Tasks, a.Recommend)
}

// IssueToken mints a bearer token for userID with the configured secret.
func (a *App) IssueToken(userID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = a.Config.Auth.TokenTTL
	}
	return utils.IssueToken([]byte(a.Config.Auth.JWTSecret), userID, ttl)
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[app] server listening on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Printf("[app] shutdown requested")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[app][shutdown][err] %v", err)
	}
	return a.Close(shutdownCtx)
}

// Run loads the configuration at path and serves until interrupted.
func Run(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return a.Serve(ctx)
}
