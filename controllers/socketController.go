package controllers

import (
	"net/http"
	"strings"
	"time"

	"go-restaurant-pos/models"
	"go-restaurant-pos/notify"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	socketWriteWait  = 10 * time.Second
	socketPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is what a view receives when something it shows has changed.
type Message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// HandleWebSocket holds one subscription per connection and releases it when
// the connection goes away.
func (ctl *Controller) HandleWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		topics, err := parseTopics(c.Query("topics"))
		if err != nil {
			ctl.respondError(c, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			ctl.Log.WarnContext(c.Request.Context(), "websocket_upgrade_failed", "error", err)
			return
		}
		defer conn.Close()

		sub := ctl.Hub.Subscribe(topics...)
		defer ctl.Hub.Unsubscribe(sub)

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(socketPingPeriod)
		defer ping.Stop()
		for {
			select {
			case <-closed:
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
				if err := conn.WriteJSON(Message{Event: ev.Topic + ".changed", Payload: ev}); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteWait)); err != nil {
					return
				}
			}
		}
	}
}

func parseTopics(raw string) ([]string, error) {
	topics := []string{}
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		known := false
		for _, candidate := range notify.AllTopics {
			known = known || candidate == t
		}
		if !known {
			return nil, models.NewValidationError("topics", "unknown topic %q", t)
		}
		topics = append(topics, t)
	}
	return topics, nil
}
