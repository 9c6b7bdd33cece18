package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apporder "github.com/xiebiao/eshop/internal/application/order"
	"github.com/xiebiao/eshop/internal/domain/inventory"
	"github.com/xiebiao/eshop/internal/domain/order"
	"github.com/xiebiao/eshop/internal/domain/staff"
	"github.com/xiebiao/eshop/internal/infrastructure/config"
	"github.com/xiebiao/eshop/internal/infrastructure/notify"
	infrapayment "github.com/xiebiao/eshop/internal/infrastructure/payment"
	"github.com/xiebiao/eshop/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/eshop/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/eshop/internal/interface/http/handler"
	"github.com/xiebiao/eshop/internal/interface/http/middleware"
	"github.com/xiebiao/eshop/internal/scheduler"
	"github.com/xiebiao/eshop/pkg/jwt"
	"github.com/xiebiao/eshop/pkg/logger"
	"github.com/xiebiao/eshop/pkg/metrics"
	"github.com/xiebiao/eshop/pkg/mq"
	"github.com/xiebiao/eshop/pkg/response"
	"github.com/xiebiao/eshop/pkg/tracing"
)

// main 主程序入口
// 说明：手动依赖注入，组装顺序 Repository → 领域服务 → 应用服务 → Handler
func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化日志
	zlog, err := logger.New(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zlog.Sync()

	// 3. 注册Prometheus指标
	metrics.Init()

	// 4. 链路追踪（可选）
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer("eshop-order", cfg.Tracing.Endpoint)
		if err != nil {
			zlog.Warn("初始化链路追踪失败，继续以无追踪模式运行", zap.Error(err))
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(ctx)
			}()
		}
	}

	// 5. 初始化存储
	db, err := mysql.NewDB(cfg)
	if err != nil {
		zlog.Fatal("初始化数据库失败", zap.Error(err))
	}

	redisClient, err := redis.NewClient(cfg)
	if err != nil {
		zlog.Fatal("初始化Redis失败", zap.Error(err))
	}

	// 6. 消息队列（可选，未配置时事件通知退化为no-op）
	var notifier order.Notifier = notify.NopNotifier{}
	if cfg.MQ.URL != "" {
		publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
		if err != nil {
			zlog.Warn("连接消息队列失败，事件通知停用", zap.Error(err))
		} else {
			defer publisher.Close()
			notifier = notify.NewMQNotifier(publisher, zlog)
		}
	}

	// 7. 依赖注入（手动组装）

	// 基础设施层
	orderRepo := mysql.NewOrderRepository(db)
	inventoryRepo := mysql.NewInventoryRepository(db)
	shiftRepo := mysql.NewShiftRepository(db)
	txManager := mysql.NewTxManager(db)
	sessionStore := redis.NewSessionStore(redisClient)
	webhookStore := redis.NewWebhookStore(redisClient, 48*time.Hour)
	jwtManager := jwt.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpire,
		cfg.JWT.RefreshTokenExpire,
	)
	paymentClient := infrapayment.NewClient(cfg.Payment, zlog)

	// 领域层
	inventoryService := inventory.NewService(inventoryRepo, zlog)
	balancer := staff.NewBalancer(shiftRepo, orderRepo, zlog)

	// 应用层
	orderService := apporder.NewService(
		orderRepo, inventoryService, paymentClient, balancer, notifier, txManager, zlog,
	)

	// 接口层
	orderHandler := handler.NewOrderHandler(orderService)
	paymentHandler := handler.NewPaymentHandler(orderService, paymentClient.Signer(), webhookStore, zlog)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, sessionStore)

	// 8. 后台调度器（超时取消 / 自动确认）
	schedCtx, stopScheduler := context.WithCancel(context.Background())
	sched := scheduler.New(orderService, cfg.Scheduler, zlog)
	go sched.Run(schedCtx)

	// 9. HTTP服务
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics())

	registerRoutes(r, orderHandler, paymentHandler, authMiddleware)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zlog.Info("服务启动", zap.Int("port", cfg.Server.Port), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("启动服务失败", zap.Error(err))
		}
	}()

	// 10. 优雅退出：先停调度器，再给在途请求10秒收尾
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("收到退出信号，开始优雅关闭")
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("关闭HTTP服务失败", zap.Error(err))
	}
	zlog.Info("服务已退出")
}

// registerRoutes 注册路由
func registerRoutes(
	r *gin.Engine,
	orderHandler *handler.OrderHandler,
	paymentHandler *handler.PaymentHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	// Prometheus指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		// 订单模块（需要登录）
		orders := v1.Group("/orders")
		orders.Use(authMiddleware.RequireAuth())
		{
			orders.POST("", orderHandler.Checkout)
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.PUT("/:id/status", orderHandler.UpdateStatus)

			// 履约操作（仅员工）
			staffOnly := orders.Group("")
			staffOnly.Use(authMiddleware.RequireStaff())
			{
				staffOnly.POST("/:id/claim", orderHandler.Claim)
				staffOnly.POST("/:id/assign", orderHandler.Assign)
				staffOnly.POST("/:id/print", orderHandler.MarkPrinted)
			}

			// 售前改单（客户改自己的单，员工代改）
			orders.PUT("/:id/items", orderHandler.UpdateItemVariant)
		}

		// 支付模块
		payment := v1.Group("/payment")
		{
			// 网关回调：服务端到服务端，靠签名鉴权，不走JWT
			payment.POST("/webhook", paymentHandler.Webhook)

			// 轮询兜底（需要登录）
			payment.GET("/orders/:orderNo/status", authMiddleware.RequireAuth(), paymentHandler.CheckPaymentStatus)
		}
	}
}
