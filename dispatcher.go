package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is one websocket connection. userID is the verified identity
// from a JWT, or empty for anonymous players; hosts must present one.
type client struct {
	conn   *websocket.Conn
	send   chan any
	id     string
	userID string
}

// enqueue hands a message to the write pump without blocking. A full
// buffer drops the message; a dead reader must not stall a session.
func (c *client) enqueue(msg any) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) reject(op string, err error) {
	c.enqueue(RejectedMessage{
		Type:   "rejected",
		Op:     op,
		Reason: reasonCode(err),
	})
}

// bearerIdentity extracts and verifies the requester identity from the
// token query parameter or an Authorization header. An absent token is
// an anonymous connection, not an error.
func bearerIdentity(issuer *tokenIssuer, r *http.Request) string {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		token = strings.TrimPrefix(header, "Bearer ")
		if token == header {
			token = ""
		}
	}
	if token == "" {
		return ""
	}

	subject, err := issuer.verify(token)
	if err != nil {
		log.Debug().Err(err).Msg("rejected bearer token")
		return ""
	}
	return subject
}

// serveWS upgrades the connection and runs the read loop until the
// client goes away, at which point the disconnect supervisor takes
// over.
func serveWS(co *coordinator, issuer *tokenIssuer) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		userID := bearerIdentity(issuer, r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		c := &client{
			conn:   conn,
			send:   make(chan any, 16),
			id:     uuid.NewString(),
			userID: userID,
		}

		log.Debug().Str("conn", c.id).Str("user", userID).Msg("connection opened")

		go c.writePump()
		c.readPump(co)
	}
}

func (c *client) readPump(co *coordinator) {
	defer func() {
		co.connectionClosed(c)
		close(c.send)
		_ = c.conn.Close()
		log.Debug().Str("conn", c.id).Msg("connection closed")
	}()

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.dispatch(co, msg)
	}
}

// dispatch routes one inbound message. Rejections go back to this
// connection only; nothing here touches other participants.
func (c *client) dispatch(co *coordinator, msg clientMessage) {
	ctx := context.Background()
	var err error

	switch msg.Type {
	case "create":
		_, err = co.createSession(ctx, c, msg.GameID)
	case "join":
		err = co.joinSession(msg.Room, msg.Username, c)
	case "start":
		err = co.startSession(ctx, msg.Room, c)
	case "answer":
		err = co.submitAnswer(msg.Room, c, msg.Text)
	case "advance":
		err = co.advanceSong(msg.Room, c)
	case "resume":
		err = co.resumeSession(msg.Room, c)
	case "abandon":
		err = co.abandonSession(msg.Room, c)
	default:
		// ignore unknown types
		return
	}

	if err != nil {
		c.reject(msg.Type, err)
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
