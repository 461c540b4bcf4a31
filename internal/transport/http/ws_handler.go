package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quiz-delivery-service/internal/app"
)

type WSHandler struct {
	service  *app.QuizService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type subscribedPayload struct {
	QuizID string `json:"quiz_id"`
}

// ServeWS streams a summary of every attempt recorded for the quiz after the
// connection was established. The client only needs to read.
func (h *WSHandler) ServeWS(c *gin.Context) {
	quizID := c.Param("id")
	updates, cancel, err := h.service.Subscribe(c.Request.Context(), quizID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("quiz_id", quizID).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	readerDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Str("quiz_id", quizID).Msg("ws write failed")
				return
			}
		}
	}()

	// reads only detect the client going away
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	enqueue := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	if enqueue(outboundMessage[any]{Type: "subscribed", Payload: subscribedPayload{QuizID: quizID}}) {
	loop:
		for {
			select {
			case summary, ok := <-updates:
				if !ok || !enqueue(outboundMessage[any]{Type: "attempt", Payload: summary}) {
					break loop
				}
			case <-readerDone:
				break loop
			case <-writerDone:
				break loop
			}
		}
	}

	close(send)
	<-writerDone
}
