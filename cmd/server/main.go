// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grant-trust-go/internal/config"
	"grant-trust-go/internal/handler"
	"grant-trust-go/internal/middleware"
	"grant-trust-go/internal/pipeline"
	"grant-trust-go/internal/repository"
	"grant-trust-go/internal/service"
	"grant-trust-go/pkg/database"
	"grant-trust-go/pkg/embedding"
	"grant-trust-go/pkg/es"
	"grant-trust-go/pkg/kafka"
	"grant-trust-go/pkg/llm"
	"grant-trust-go/pkg/log"
	"grant-trust-go/pkg/storage"
	"grant-trust-go/pkg/tika"
	"grant-trust-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储、ES 和 Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	userRepository := repository.NewUserRepository(database.DB)
	documentRepo := repository.NewDocumentRepository(database.DB)
	chunkRepo := repository.NewDocumentChunkRepository(database.DB)
	auditRepo := repository.NewAuditRecordRepository(database.DB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)

	userService := service.NewUserService(userRepository, jwtManager)
	confidenceService := service.NewConfidenceService(cfg.Confidence, service.NewSubstringOverlapChecker())
	trustGate := service.NewTrustGate(cfg.Confidence.MinGeneration)
	vectorSearcher := service.NewESVectorSearcher(es.ESClient, cfg.Elasticsearch.IndexName)
	retrievalService := service.NewRetrievalService(embeddingClient, vectorSearcher, cfg.Retrieval.TopK, cfg.Retrieval.MinScore)
	auditService := service.NewAuditService(auditRepo)
	generationService := service.NewGenerationService(retrievalService, confidenceService, trustGate, llmClient, auditService)
	documentService := service.NewDocumentService(documentRepo, chunkRepo, cfg.MinIO, cfg.Elasticsearch)

	// 6. 初始化文档入库管线 (Processor)
	processor := pipeline.NewProcessor(
		tikaClient,
		embeddingClient,
		confidenceService,
		cfg.Elasticsearch,
		cfg.MinIO,
		cfg.Embedding,
		documentRepo,
		chunkRepo,
	)

	// 7. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", handler.NewAuthHandler(userService).RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", handler.NewUserHandler(userService).Register)
			users.POST("/login", handler.NewUserHandler(userService).Login)

			// 需要认证的路由 (仅限登录用户访问)
			authed := users.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager, userService))
			{
				authed.GET("/me", handler.NewUserHandler(userService).GetProfile)
				authed.POST("/logout", handler.NewUserHandler(userService).Logout)
			}
		}

		// Document 路由组，需要认证
		documents := apiV1.Group("/documents")
		documents.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			documents.POST("", handler.NewDocumentHandler(documentService).Upload)
			documents.GET("", handler.NewDocumentHandler(documentService).List)
			documents.GET("/:id", handler.NewDocumentHandler(documentService).Get)
			documents.DELETE("/:id", handler.NewDocumentHandler(documentService).Delete)
		}

		// Memory 检索路由组，需要认证
		memory := apiV1.Group("/memory")
		memory.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			memory.GET("/search", handler.NewSearchHandler(generationService).SearchMemory)
		}

		// Generate 路由组，需要认证
		generate := apiV1.Group("/generate")
		generate.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			generate.POST("", handler.NewGenerateHandler(generationService).Generate)
		}

		// Audit 路由组，需要认证和管理员授权
		audit := apiV1.Group("/audit")
		audit.Use(middleware.AuthMiddleware(jwtManager, userService), middleware.AdminAuthMiddleware())
		{
			audit.GET("", handler.NewAuditHandler(auditService).Query)
			audit.GET("/:id", handler.NewAuditHandler(auditService).Get)
		}
	}

	// 10. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
