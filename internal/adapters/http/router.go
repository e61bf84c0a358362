package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dkeye/chatrelay/internal/adapters/rtc"
	"github.com/dkeye/chatrelay/internal/adapters/signal"
	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/config"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/samber/oops"
)

// Deps are the collaborators the router exposes over HTTP.
type Deps struct {
	Orch     *app.Orchestrator
	Signal   *signal.SignalWSController
	Gatherer prometheus.Gatherer
}

type notifyMessageRequest struct {
	ReceiverID string          `json:"receiverId" binding:"required"`
	Message    json.RawMessage `json:"message" binding:"required"`
}

type notifyDeletedRequest struct {
	ReceiverID string `json:"receiverId" binding:"required"`
	MessageID  string `json:"messageId" binding:"required"`
}

type notifyGroupRequest struct {
	SenderID string          `json:"senderId"`
	Message  json.RawMessage `json:"message" binding:"required"`
}

func badRequest(err error) error {
	return oops.In("adapters.http").Code(codeBadRequest).Wrapf(err, "invalid request")
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(CIDMiddleware())
	r.Use(OtelMiddleware())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ChatRelaySessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/ws/signal", HandshakeAuth(cfg.Auth.JWTSecret), func(c *gin.Context) {
		log.Info().
			Str("module", "adapters.http").
			Str("user", c.GetString(signal.UserIDKey)).
			Str("client", c.GetString(clientTokenKey)).
			Msg("ws signal endpoint hit")
		deps.Signal.HandleSignal(ctx, c)
	})

	// GET /api/online: current presence snapshot
	api.GET("/online", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"users": deps.Orch.OnlineUsers()})
	})

	// GET /api/groups: groups with online members
	api.GET("/groups", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"groups": deps.Orch.ListGroups()})
	})

	calls := api.Group("/calls")
	calls.GET("/ice-servers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"iceServers": rtc.Configuration(cfg.ICEServers).ICEServers})
	})
	calls.GET("/active/count", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"count": deps.Orch.ActiveCalls()})
	})

	// Called by the message store after it persisted a change.
	internal := api.Group("/internal", InternalTokenMiddleware(cfg.InternalToken))

	internal.POST("/messages", func(c *gin.Context) {
		var req notifyMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, badRequest(err))
			return
		}
		uid, err := domain.ParseUserID(req.ReceiverID)
		if err != nil {
			abortWithError(c, badRequest(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"delivered": deps.Orch.NotifyNewMessage(uid, req.Message)})
	})

	internal.POST("/messages/deleted", func(c *gin.Context) {
		var req notifyDeletedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, badRequest(err))
			return
		}
		uid, err := domain.ParseUserID(req.ReceiverID)
		if err != nil {
			abortWithError(c, badRequest(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"delivered": deps.Orch.NotifyMessageDeleted(uid, req.MessageID)})
	})

	internal.POST("/groups/:id/messages", func(c *gin.Context) {
		gid, err := domain.ParseGroupID(c.Param("id"))
		if err != nil {
			abortWithError(c, badRequest(err))
			return
		}
		var req notifyGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, badRequest(err))
			return
		}
		n := deps.Orch.NotifyGroupMessage(gid, domain.UserID(req.SenderID), req.Message)
		c.JSON(http.StatusOK, gin.H{"delivered": n})
	})

	return r
}
