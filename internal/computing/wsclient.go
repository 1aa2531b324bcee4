package computing

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/gorilla/websocket"
)

const (
	PingMsg = "ping"
)

var upgrade = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WsClient streams orchestrator status snapshots to one websocket peer.
type WsClient struct {
	client           *websocket.Conn
	message          chan wsMessage
	stopCh           chan struct{}
	stopOnce         sync.Once
	checkFailedCount int
	pingInterval     time.Duration
}

type wsMessage struct {
	data    []byte
	msgType int
}

func NewWsClient(client *websocket.Conn) *WsClient {
	wsClient := &WsClient{
		client:       client,
		message:      make(chan wsMessage, 5),
		stopCh:       make(chan struct{}),
		pingInterval: 3 * time.Second,
	}

	client.SetCloseHandler(func(code int, text string) error {
		logs.GetLogger().Infof("status stream closed by the client, code: %d", code)
		wsClient.Close()
		return nil
	})

	return wsClient
}

func (ws *WsClient) Close() {
	ws.stopOnce.Do(func() {
		close(ws.stopCh)
		if ws.client != nil {
			ws.client.Close()
		}
	})
}

func (ws *WsClient) Done() <-chan struct{} {
	return ws.stopCh
}

// HandleStatus sends the current status, then every update, until the peer goes away.
func (ws *WsClient) HandleStatus(current Status, updates <-chan Status) {
	ws.ReadMessage()
	ws.writeMessage()

	go func() {
		ticker := time.NewTicker(ws.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ws.send(wsMessage{data: []byte(PingMsg), msgType: websocket.TextMessage})
			case <-ws.stopCh:
				return
			}
		}
	}()

	ws.sendStatus(current)
	for {
		select {
		case st, ok := <-updates:
			if !ok {
				ws.Close()
				return
			}
			ws.sendStatus(st)
		case <-ws.stopCh:
			return
		}
	}
}

func (ws *WsClient) sendStatus(st Status) {
	data, err := json.Marshal(st)
	if err != nil {
		logs.GetLogger().Errorf("marshal status failed, error: %v", err)
		return
	}
	ws.send(wsMessage{data: data, msgType: websocket.TextMessage})
}

func (ws *WsClient) send(msg wsMessage) {
	select {
	case ws.message <- msg:
	case <-ws.stopCh:
	}
}

func (ws *WsClient) writeMessage() {
	go func() {
		for {
			select {
			case msg := <-ws.message:
				if err := ws.client.WriteMessage(msg.msgType, msg.data); err != nil {
					logs.GetLogger().Warnf("write status message failed, error: %v", err)
					ws.Close()
					return
				}
			case <-ws.stopCh:
				return
			}
		}
	}()
}

func (ws *WsClient) ReadMessage() {
	go func() {
		for {
			if _, _, err := ws.client.ReadMessage(); err != nil {
				if ws.checkFailedCount > 30 {
					ws.Close()
					break
				}
				select {
				case <-ws.stopCh:
					return
				default:
				}
				ws.checkFailedCount++
				time.Sleep(600 * time.Millisecond)
			} else {
				ws.checkFailedCount = 0
			}
		}
	}()
}
