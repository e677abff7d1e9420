package realtime

import (
	"context"
	"net/http"

	"openfeed/internal/events"
	"openfeed/internal/services"
	"openfeed/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The gateway terminates the public surface; services behind it
		// accept any origin.
		return true
	},
}

// FeedHandler upgrades GET /v1/feed/live to a WebSocket that streams
// every post.created event. Apply AuthMiddleware before it.
func FeedHandler(hub *Hub, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Errorf("websocket upgrade: %v", err)
			return
		}

		client := NewClient(conn, userID.String())
		hub.Register(client)

		// The request context dies when the handler returns, so the
		// loops get their own lifetime tied to the connection.
		ctx, cancel := context.WithCancel(context.Background())
		go client.WriteLoop(ctx)
		go func() {
			client.ReadLoop(hub)
			cancel()
		}()
	}
}

// FeedBridge returns an event handler that forwards post.created
// envelopes to connected clients verbatim. Fan-out is best effort, so
// the handler never fails the delivery.
func FeedBridge(hub *Hub, log *logger.Logger) func(ctx context.Context, env events.Envelope) error {
	return func(ctx context.Context, env events.Envelope) error {
		data, err := events.Encode(env.ID, env.Kind, env.OccurredAt, env.Payload)
		if err != nil {
			log.Errorf("feed bridge encode %s: %v", env.ID, err)
			return nil
		}
		hub.Broadcast(data)
		return nil
	}
}
