//go:build wireinject
// +build wireinject

// Wire依赖注入配置
//
// 使用方式：
// 1. 修改Provider后运行 `wire gen ./cmd/api`
// 2. Wire生成wire_gen.go，main可改用InitializeApp()替代手动组装
package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	apporder "github.com/xiebiao/eshop/internal/application/order"
	"github.com/xiebiao/eshop/internal/domain/inventory"
	"github.com/xiebiao/eshop/internal/domain/order"
	"github.com/xiebiao/eshop/internal/domain/payment"
	"github.com/xiebiao/eshop/internal/domain/staff"
	"github.com/xiebiao/eshop/internal/infrastructure/config"
	"github.com/xiebiao/eshop/internal/infrastructure/notify"
	infrapayment "github.com/xiebiao/eshop/internal/infrastructure/payment"
	"github.com/xiebiao/eshop/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/eshop/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/eshop/internal/interface/http/handler"
	"github.com/xiebiao/eshop/internal/interface/http/middleware"
	"github.com/xiebiao/eshop/pkg/jwt"
	"github.com/xiebiao/eshop/pkg/logger"
)

// infrastructureSet 基础设施层依赖
var infrastructureSet = wire.NewSet(
	config.Load,
	provideLogger,
	mysql.NewDB,
	redis.NewClient,
)

// repositorySet 仓储层依赖
var repositorySet = wire.NewSet(
	mysql.NewOrderRepository,
	mysql.NewInventoryRepository,
	mysql.NewShiftRepository,
	mysql.NewTxManager,
	wire.Bind(new(apporder.TxManager), new(*mysql.TxManager)),
)

// domainSet 领域层依赖
var domainSet = wire.NewSet(
	inventory.NewService,
	staff.NewBalancer,
	provideOpenOrderCounter,
	provideNotifier,
)

// applicationSet 应用层依赖
var applicationSet = wire.NewSet(
	apporder.NewService,
)

// middlewareSet 中间件依赖
var middlewareSet = wire.NewSet(
	provideJWTManager,
	provideSessionStore,
	middleware.NewAuthMiddleware,
)

// handlerSet HTTP处理器依赖
var handlerSet = wire.NewSet(
	handler.NewOrderHandler,
	handler.NewPaymentHandler,
	provideWebhookStore,
)

// provideLogger 从配置创建zap Logger
func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
}

// provideJWTManager 从配置创建JWT管理器
func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpire,
		cfg.JWT.RefreshTokenExpire,
	)
}

// provideSessionStore 从Redis客户端创建Session存储
func provideSessionStore(client *goredis.Client) *redis.SessionStore {
	return redis.NewSessionStore(client)
}

// provideWebhookStore 回调去重存储，保留48小时
func provideWebhookStore(client *goredis.Client) *redis.WebhookStore {
	return redis.NewWebhookStore(client, 48*time.Hour)
}

// provideOpenOrderCounter 员工在手订单计数（由订单仓储提供）
func provideOpenOrderCounter(orders order.Repository) staff.OpenOrderCounter {
	return orders
}

// provideNotifier 事件通知
// MQ连接依赖运行期状态，Wire装配时固定为no-op，main中按配置替换
func provideNotifier() order.Notifier {
	return notify.NopNotifier{}
}

// providePaymentClient 支付网关客户端
func providePaymentClient(cfg *config.Config, log *zap.Logger) *infrapayment.Client {
	return infrapayment.NewClient(cfg.Payment, log)
}

// providePaymentVerifier 回调验签器（复用网关客户端的签名器）
func providePaymentVerifier(client *infrapayment.Client) payment.Verifier {
	return client.Signer()
}

// provideGinEngine 创建Gin引擎并注册路由
func provideGinEngine(
	cfg *config.Config,
	orderHandler *handler.OrderHandler,
	paymentHandler *handler.PaymentHandler,
	authMiddleware *middleware.AuthMiddleware,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics())

	// Swagger文档，生产环境建议关闭
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	registerRoutes(r, orderHandler, paymentHandler, authMiddleware)

	return r
}

// InitializeApp 组装整个应用
// 注意：事件通知与调度器依赖运行期状态（MQ连接、退出信号），仍在main中手动组装
func InitializeApp() (*gin.Engine, error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		middlewareSet,
		handlerSet,
		providePaymentClient,
		providePaymentVerifier,
		wire.Bind(new(payment.Gateway), new(*infrapayment.Client)),
		provideGinEngine,
	)
	return nil, nil
}
