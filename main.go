// MQTT Guard API 서버 진입점
//
// 부팅 순서:
//  1. .env 로드 및 설정 구성
//  2. PostgreSQL 연결 및 스키마 보장
//  3. 외부 클라이언트 초기화 (메일, AI, Redis dedupe - 전부 선택 사항)
//  4. service / handler 조립 후 라우트 등록

package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mqtt-guard/backend/internal/client"
	"github.com/mqtt-guard/backend/internal/config"
	"github.com/mqtt-guard/backend/internal/db"
	"github.com/mqtt-guard/backend/internal/handler"
	"github.com/mqtt-guard/backend/internal/service"
)

func main() {
	// .env 파일이 없어도 환경변수로 동작 가능
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	// PostgreSQL 연결
	pool, err := db.NewPostgresPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pool.Close()
	store := &db.Postgres{Pool: pool}

	// 스키마 보장 (디바이스 → 알림 → 메트릭 → 임베딩 → 사용자 순서, FK 의존성 때문)
	if err := ensureSchemas(ctx, store); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// 메일 클라이언트 (API 키 없으면 비활성, IsConfigured로 판별)
	mailer := client.NewMailClient(cfg.Mailer)
	if !mailer.IsConfigured() {
		log.Printf("Mail notifications disabled (RESEND_API_KEY not set)")
	}

	// AI 분석 클라이언트 (선택 사항)
	var analysisService *service.AnalysisService
	if cfg.AI.APIKey != "" {
		aiClient, err := client.NewGenAIClient(cfg.AI)
		if err != nil {
			log.Fatalf("Failed to initialize AI client: %v", err)
		}
		analysisService = service.NewAnalysisService(store, aiClient)
	} else {
		log.Printf("AI analysis disabled (AI_API_KEY not set)")
	}

	// Redis dedupe (선택 사항, TTL이 설정된 경우에만)
	var dedupe *client.DedupeStore
	if cfg.Ingest.DedupeTTL != "" {
		ttl, err := time.ParseDuration(cfg.Ingest.DedupeTTL)
		if err != nil {
			log.Fatalf("Invalid INGEST_DEDUPE_TTL: %v", err)
		}
		dedupe, err = client.NewDedupeStore(cfg.Redis, ttl)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Printf("Webhook dedupe enabled: ttl=%s", ttl)
	}

	// service 조립
	alertService := service.NewAlertService(store, mailer, analysisService, dedupe)
	metricService := service.NewMetricService(store, cfg.Ingest.OwnerID, dedupe)
	authService, err := service.NewAuthService(store, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}

	// handler 조립
	webhookHandler := handler.NewWebhookHandler(alertService, metricService)
	dashboardHandler := handler.NewDashboardHandler(store, cfg.Ingest.OwnerID, analysisService)
	authHandler := handler.NewAuthHandler(authService)

	router := gin.Default()
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins))

	// 헬스체크
	router.GET("/ping", handler.Ping)
	router.GET("/", handler.Root)

	// Prometheus 스크레이프 엔드포인트
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 웹훅 수집 (프로듀서용, 인증 없음)
	router.POST("/webhook/alerts", webhookHandler.AlertWebhook)
	router.POST("/webhook/metrics", webhookHandler.MetricWebhook)

	// 인증
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", handler.AuthMiddleware(authService), authHandler.Me)
	}

	// 대시보드 조회 API (운영자용, JWT 필요)
	api := router.Group("/api/v1", handler.AuthMiddleware(authService))
	{
		api.GET("/devices", dashboardHandler.ListDevices)
		api.PATCH("/devices/:id/status", dashboardHandler.UpdateDeviceStatus)
		api.GET("/alerts", dashboardHandler.ListAlerts)
		api.GET("/alerts/:id", dashboardHandler.GetAlert)
		api.PATCH("/alerts/:id/status", dashboardHandler.UpdateAlertStatus)
		api.POST("/alerts/:id/analyze", dashboardHandler.AnalyzeAlert)
		api.GET("/alerts/:id/similar", dashboardHandler.SimilarAlerts)
		api.GET("/metrics", dashboardHandler.ListMetrics)
		api.GET("/metrics/:key", dashboardHandler.GetMetric)
	}

	log.Printf("Starting server: addr=%s", cfg.Server.Addr)
	if err := router.Run(cfg.Server.Addr); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}

func ensureSchemas(ctx context.Context, store *db.Postgres) error {
	for _, ensure := range []func(context.Context) error{
		store.EnsureDeviceSchema,
		store.EnsureAlertSchema,
		store.EnsureMetricSchema,
		store.EnsureEmbeddingSchema,
		store.EnsureAuthSchema,
	} {
		if err := ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}
