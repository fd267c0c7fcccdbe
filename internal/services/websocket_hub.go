package services

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// PositionUpdate is pushed to connected clients whenever a ledger
// mutation changes an asset's cash-flow state.
type PositionUpdate struct {
	AssetID            string  `json:"assetId"`
	Symbol             string  `json:"symbol"`
	TotalOutOfPocket   float64 `json:"totalOutOfPocket"`
	CurrentCashBalance float64 `json:"currentCashBalance"`
	Roic               float64 `json:"roic"`
}

// PositionHub fans position updates out to websocket clients. Updates are
// advisory; a slow client is dropped rather than allowed to block the
// broadcast loop.
type PositionHub struct {
	clients    map[*PositionClient]bool
	broadcast  chan PositionUpdate
	register   chan *PositionClient
	unregister chan *PositionClient
	log        zerolog.Logger
}

type PositionClient struct {
	hub     *PositionHub
	conn    *websocket.Conn
	send    chan []byte
	ownerID string
}

func NewPositionHub(log zerolog.Logger) *PositionHub {
	return &PositionHub{
		clients:    make(map[*PositionClient]bool),
		broadcast:  make(chan PositionUpdate, 16),
		register:   make(chan *PositionClient),
		unregister: make(chan *PositionClient),
		log:        log,
	}
}

func (h *PositionHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.log.Debug().Int("clients", len(h.clients)).Msg("position client connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.log.Debug().Int("clients", len(h.clients)).Msg("position client disconnected")
			}

		case update := <-h.broadcast:
			message, err := json.Marshal(update)
			if err != nil {
				h.log.Error().Err(err).Msg("could not marshal position update")
				continue
			}
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

func (h *PositionHub) BroadcastPosition(update PositionUpdate) {
	select {
	case h.broadcast <- update:
	default:
		h.log.Warn().Str("asset_id", update.AssetID).Msg("position broadcast channel full, update dropped")
	}
}

func (h *PositionHub) RegisterClient(conn *websocket.Conn, ownerID string) *PositionClient {
	client := &PositionClient{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 256),
		ownerID: ownerID,
	}
	h.register <- client
	return client
}

func (c *PositionClient) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn().Err(err).Msg("websocket read error")
			}
			break
		}
	}
}

func (c *PositionClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
