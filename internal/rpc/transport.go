package rpc

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/outsourcely/leadbridge/internal/protocol"
)

// Transport is the raw envelope channel under the typed client. The wire is
// fire-and-forget in both directions; correlation lives in the Client.
type Transport interface {
	Send(env protocol.Envelope) error
	// Recv returns the incoming envelope stream. The channel closes when the
	// transport does.
	Recv() <-chan protocol.Envelope
	Close() error
}

// WSTransport speaks the coordinator's WebSocket endpoint as role "client".
type WSTransport struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	recv    chan protocol.Envelope
	once    sync.Once
}

// Dial connects to a coordinator, performs the connect handshake and starts
// the read loop.
func Dial(ctx context.Context, url, token string) (*WSTransport, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial coordinator: %w", err)
	}

	t := &WSTransport{
		ws:   ws,
		recv: make(chan protocol.Envelope, 16),
	}

	connect := protocol.NewRequest(protocol.ActionConnect, protocol.ConnectParams{
		Role:  protocol.RoleClient,
		Token: token,
	})
	if err := t.Send(connect); err != nil {
		ws.Close()
		return nil, fmt.Errorf("send connect: %w", err)
	}

	var reply protocol.Envelope
	if err := ws.ReadJSON(&reply); err != nil {
		ws.Close()
		return nil, fmt.Errorf("read connect reply: %w", err)
	}
	if reply.Error != nil {
		ws.Close()
		return nil, fmt.Errorf("connect rejected: %w", reply.Error)
	}

	go t.readLoop()
	return t, nil
}

func (t *WSTransport) readLoop() {
	defer close(t.recv)
	for {
		var env protocol.Envelope
		if err := t.ws.ReadJSON(&env); err != nil {
			return
		}
		t.recv <- env
	}
}

func (t *WSTransport) Send(env protocol.Envelope) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.ws.WriteJSON(env)
}

func (t *WSTransport) Recv() <-chan protocol.Envelope { return t.recv }

func (t *WSTransport) Close() error {
	var err error
	t.once.Do(func() { err = t.ws.Close() })
	return err
}
