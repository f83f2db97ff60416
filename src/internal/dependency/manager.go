package dependency

import (
	"edustream-access-svc/src/clients"
	"edustream-access-svc/src/internal/account"
	"edustream-access-svc/src/internal/cache"
	"edustream-access-svc/src/internal/config"
	"edustream-access-svc/src/internal/content"
	"edustream-access-svc/src/internal/identity"
	"edustream-access-svc/src/internal/session"

	"github.com/gin-gonic/gin"
)

type Manager struct {
	Router         *gin.Engine
	Config         *config.Configuration
	Mongodb        *clients.MongoDB
	Redis          *clients.RedisClient
	RabbitMQ       *clients.RabbitMQ
	ActivityClient *clients.ActivityClient
	CacheService   cache.Service
	Verifier       identity.Verifier
	Issuer         session.Issuer
	Validator      session.Validator
	Revocation     session.RevocationController
	SessionHandler session.Handler
	ContentHandler content.Handler
}

func NewDependencyManager(router *gin.Engine,
	mongodb *clients.MongoDB,
	redisClient *clients.RedisClient,
	rabbitMQ *clients.RabbitMQ,
	cfg *config.Configuration) *Manager {
	activityClient := clients.NewActivityClient(cfg, rabbitMQ.Channel)
	cacheService := cache.NewCacheService(redisClient.Client, cfg)
	accountRepo := account.NewAccountRepository(mongodb, cfg.Database.AccountCollection)
	contentRepo := content.NewContentRepository(mongodb, cfg.Database.ContentCollection)
	verifier := identity.NewVerifier(mongodb, redisClient.Client, cfg)
	issuer := session.NewIssuer(accountRepo, verifier, activityClient)
	validator := session.NewValidator(accountRepo, verifier)
	revocation := session.NewRevocationController(accountRepo, verifier, activityClient)
	sessionHandler := session.NewHandler(cfg, issuer, revocation)
	contentHandler := content.NewHandler(cfg, contentRepo, cacheService, activityClient)

	return &Manager{
		Router:         router,
		Config:         cfg,
		Mongodb:        mongodb,
		Redis:          redisClient,
		RabbitMQ:       rabbitMQ,
		ActivityClient: activityClient,
		CacheService:   cacheService,
		Verifier:       verifier,
		Issuer:         issuer,
		Validator:      validator,
		Revocation:     revocation,
		SessionHandler: sessionHandler,
		ContentHandler: contentHandler,
	}
}
