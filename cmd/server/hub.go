package main

import "context"

const sendBuffer = 64

// hub fans committed entries of one room out to its websocket clients. A
// client that falls behind by more than sendBuffer messages is dropped.
type hub struct {
	clients     map[chan []byte]bool // set of active clients
	subscribe   chan chan []byte
	unsubscribe chan chan []byte
	broadcast   chan []byte
}

func newHub() *hub {
	return &hub{
		clients:     make(map[chan []byte]bool),
		subscribe:   make(chan chan []byte),
		unsubscribe: make(chan chan []byte),
		broadcast:   make(chan []byte),
	}
}

func (h *hub) run(ctx context.Context) {
	for {
		select {
		case c := <-h.subscribe:
			h.clients[c] = true
		case c := <-h.unsubscribe:
			h.drop(c)
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c <- msg:
				default:
					h.drop(c)
				}
			}
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

// drop closes c, which tells its writer to hang up.
func (h *hub) drop(c chan []byte) {
	if h.clients[c] {
		delete(h.clients, c)
		close(c)
	}
}

func (h *hub) join(ctx context.Context, c chan []byte) bool {
	select {
	case h.subscribe <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func (h *hub) leave(ctx context.Context, c chan []byte) {
	select {
	case h.unsubscribe <- c:
	case <-ctx.Done():
	}
}

func (h *hub) publish(ctx context.Context, msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-ctx.Done():
	}
}
