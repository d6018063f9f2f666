/*
Package ahrsweb broadcasts fused attitude estimates to websocket clients.
Client-server structure adapted from Mat Ryer's Go Blueprints examples,
see https://github.com/matryer/goblueprints
*/
package ahrsweb

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Port is the default port for the AHRS data publication.
const Port = 8000

// ErrClosed is returned when publishing to a room that is no longer running.
var ErrClosed = errors.New("ahrsweb: room closed")

// Room forwards every message it receives, from Publish or from a
// connected client, to all connected clients.
type Room struct {
	// forward is a channel that holds incoming messages
	// that should be forwarded to the other clients.
	forward chan []byte
	// join is a channel for clients wishing to join the room.
	join chan *client
	// leave is a channel for clients wishing to leave the room.
	leave chan *client
	// clients holds all current clients in this room.
	clients map[*client]bool
	// done is closed when Run returns.
	done chan struct{}
	n    atomic.Int32
}

// NewRoom makes a new room that is ready to go.
func NewRoom() *Room {
	return &Room{
		forward: make(chan []byte),
		join:    make(chan *client),
		leave:   make(chan *client),
		clients: make(map[*client]bool),
		done:    make(chan struct{}),
	}
}

// Run forwards messages until ctx is cancelled, then disconnects all clients.
func (r *Room) Run(ctx context.Context) {
	defer func() {
		for client := range r.clients {
			delete(r.clients, client)
			close(client.send)
		}
		r.n.Store(0)
		close(r.done)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Println("AHRSWeb: Closing room")
			return
		case client := <-r.join:
			r.clients[client] = true
			r.n.Store(int32(len(r.clients)))
			log.Println("AHRSWeb: New client joined")
		case client := <-r.leave:
			if r.clients[client] {
				delete(r.clients, client)
				close(client.send)
			}
			r.n.Store(int32(len(r.clients)))
			log.Println("AHRSWeb: Client left")
		case msg := <-r.forward:
			for client := range r.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client; it will catch up on a later message
				}
			}
		}
	}
}

// Clients returns the number of connected clients.
func (r *Room) Clients() int {
	return int(r.n.Load())
}

// Publish sends msg to all connected clients.
func (r *Room) Publish(msg []byte) error {
	select {
	case r.forward <- msg:
		return nil
	case <-r.done:
		return ErrClosed
	}
}

// PublishData sends d to all connected clients as JSON.
func (r *Room) PublishData(d *AHRSData) error {
	msg, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.Publish(msg)
}

const (
	socketBufferSize  = 1024
	messageBufferSize = 10
)

var upgrader = &websocket.Upgrader{ReadBufferSize: socketBufferSize, WriteBufferSize: socketBufferSize}

func (r *Room) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	socket, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Println("AHRSWeb: ServeHTTP:", err)
		return
	}
	client := &client{
		socket: socket,
		send:   make(chan []byte, messageBufferSize),
		room:   r,
	}
	select {
	case r.join <- client:
	case <-r.done:
		socket.Close()
		return
	}
	defer func() {
		select {
		case r.leave <- client:
		case <-r.done:
		}
	}()
	go client.write()
	client.read()
}
