package http

import (
	"github.com/dkeye/chatrelay/internal/cid"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	clientTokenKey = "client_token"
	tracerName     = "github.com/dkeye/chatrelay/internal/adapters/http"
)

// ClientTokenMiddleware gives every browser a stable token kept in the
// cookie session. It only correlates log lines across reconnects; it is
// not an identity.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

// CIDMiddleware keeps an incoming correlation id or assigns one, and puts it
// on the request context and the response.
func CIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(cid.HeaderName)
		if id == "" {
			id = cid.New()
		}
		c.Request = c.Request.WithContext(cid.WithCID(c.Request.Context(), id))
		c.Header(cid.HeaderName, id)
		c.Next()
	}
}

// OtelMiddleware wraps each request in a server span.
func OtelMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := otel.Tracer(tracerName).Start(ctx, c.Request.Method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.target", c.Request.URL.Path),
			attribute.String("http.route", route),
		)
		if id := cid.FromContext(ctx); id != "" {
			span.SetAttributes(attribute.String(cid.AttributeName, id))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}

// InternalTokenMiddleware guards the notify API when token is set.
func InternalTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token != "" && c.GetHeader("X-Internal-Token") != token {
			abortWithError(c, errUnauthorized("invalid internal token"))
			return
		}
		c.Next()
	}
}
