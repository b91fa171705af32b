package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ikkim/review-insight-backend/pkg/logger"
)

// ClientMessage 클라이언트로부터 받은 메시지
type ClientMessage struct {
	Type string `json:"type"` // ping
}

// Client WebSocket 클라이언트 (배치 하나를 구독)
type Client struct {
	Hub           *Hub
	Conn          *Conn
	BatchID       string
	Send          chan []byte
	MessageCount  int       // 최근 1초간 받은 메시지 수
	LastResetTime time.Time // 마지막 카운터 리셋 시간
	RateMu        sync.Mutex
}

// NewClient creates a subscriber for one ingest batch.
func NewClient(hub *Hub, conn *Conn, batchID string) *Client {
	return &Client{
		Hub:     hub,
		Conn:    conn,
		BatchID: batchID,
		Send:    make(chan []byte, 64),
	}
}

// Hub 배치별 진행 상황 구독자 관리자
type Hub struct {
	// 배치별 구독자 (BatchID -> set of clients)
	batches map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	mu sync.RWMutex
}

// BroadcastMessage 브로드캐스트 메시지
type BroadcastMessage struct {
	BatchID string
	Message []byte
}

// NewHub Hub 생성
func NewHub() *Hub {
	return &Hub{
		batches:    make(map[string]map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *BroadcastMessage, 1024),
	}
}

// Run Hub 실행. ctx가 끝나면 모든 구독자 연결을 닫고 반환
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			subs, ok := h.batches[client.BatchID]
			if !ok {
				subs = make(map[*Client]bool)
				h.batches[client.BatchID] = subs
			}
			subs[client] = true
			count := len(subs)
			h.mu.Unlock()
			logger.Info("WebSocket client subscribed", map[string]interface{}{
				"batch_id":    client.BatchID,
				"subscribers": count,
			})

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			var slow []*Client
			for client := range h.batches[message.BatchID] {
				select {
				case client.Send <- message.Message:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range slow {
				logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
					"batch_id": client.BatchID,
				})
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.batches[client.BatchID]
	if !ok || !subs[client] {
		return
	}
	delete(subs, client)
	if len(subs) == 0 {
		delete(h.batches, client.BatchID)
	}
	close(client.Send)

	logger.Info("WebSocket client unsubscribed", map[string]interface{}{
		"batch_id":    client.BatchID,
		"subscribers": len(subs),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for batchID, subs := range h.batches {
		for client := range subs {
			close(client.Send)
		}
		delete(h.batches, batchID)
	}
}

// Publish 배치 구독자에게 이벤트 전송. 구독자가 없으면 버려짐
func (h *Hub) Publish(batchID string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal progress event", err)
		return err
	}

	select {
	case h.broadcast <- &BroadcastMessage{BatchID: batchID, Message: data}:
	default:
		logger.Warn("Broadcast channel full, message dropped", map[string]interface{}{
			"batch_id": batchID,
		})
	}
	return nil
}

// Register 클라이언트 등록
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 클라이언트 등록 해제
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribers 배치 구독자 수
func (h *Hub) Subscribers(batchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.batches[batchID])
}

// HandleClientMessage 클라이언트 메시지 처리
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"batch_id": client.BatchID,
			"count":    count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"batch_id": client.BatchID,
			"error":    err.Error(),
		})
		return
	}

	if msg.Type == "ping" {
		// reply to this client only
		pong, _ := json.Marshal(map[string]string{"type": "pong"})
		h.mu.RLock()
		if h.batches[client.BatchID][client] {
			select {
			case client.Send <- pong:
			default:
			}
		}
		h.mu.RUnlock()
	}
}
