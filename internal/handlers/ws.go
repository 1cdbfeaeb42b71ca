package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/example/nutriscan/internal/acquisition"
	"github.com/example/nutriscan/internal/auth"
	"github.com/example/nutriscan/internal/usecase"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 16 << 20
)

// wsMessage is the envelope of every websocket frame in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type wsScanRequest struct {
	Image       string `json:"image"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
	ProductName string `json:"product_name"`
}

func (s *server) upgrader() *websocket.Upgrader {
	u := &websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	if len(s.CORSOrigins) > 0 {
		allowed := make(map[string]bool, len(s.CORSOrigins))
		for _, o := range s.CORSOrigins {
			allowed[o] = true
		}
		u.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed[origin] {
				return true
			}
			parsed, err := url.Parse(origin)
			return err == nil && strings.EqualFold(parsed.Host, r.Host)
		}
	}
	return u
}

// scanChannel serves the websocket scan channel. "scan" submits a base64
// image and answers scan_started then scan_result; "get_history" answers
// history.
func (s *server) scanChannel(c *gin.Context) {
	conn, err := s.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageSize)

	sessionID := auth.SessionFromGin(c)
	ctx := c.Request.Context()
	logger := s.logger.With(zap.String("session_id", sessionID))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Info("websocket closed", zap.Error(err))
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendError(conn, "Invalid message format")
			continue
		}

		switch msg.Type {
		case "scan":
			s.wsScan(ctx, conn, sessionID, msg.Data)
		case "get_history":
			s.wsHistory(ctx, conn, sessionID)
		default:
			s.sendError(conn, "Unknown message type")
		}
	}
}

func (s *server) wsScan(ctx context.Context, conn *websocket.Conn, sessionID string, data json.RawMessage) {
	var req wsScanRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Image == "" {
		s.sendError(conn, acquisition.ErrNoFile.Error())
		return
	}
	payload, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		s.sendError(conn, "Invalid image data")
		return
	}

	filename := req.Filename
	if filename == "" {
		filename = defaultFilename(req.ContentType)
	}

	var captured *acquisition.Image
	upload := &acquisition.Upload{Filename: filename, ContentType: req.ContentType, Data: payload}
	if _, err := s.Uploader.Accept(upload, func(img acquisition.Image) { captured = &img }); err != nil {
		s.sendError(conn, err.Error())
		return
	}

	s.send(conn, "scan_started", nil)
	result := s.Scanner.Scan(ctx, sessionID, *captured, strings.TrimSpace(req.ProductName))

	body := result.Raw
	if len(body) == 0 {
		body, err = json.Marshal(result)
		if err != nil {
			s.sendError(conn, "Failed to encode result")
			return
		}
	}
	s.send(conn, "scan_result", body)
}

func (s *server) wsHistory(ctx context.Context, conn *websocket.Conn, sessionID string) {
	history, err := s.Scanner.GetHistory(ctx, sessionID)
	if err != nil {
		if errors.Is(err, usecase.ErrHistoryDisabled) {
			s.sendError(conn, historyDisabledMessage)
			return
		}
		s.logger.Warn("failed to load history", zap.String("session_id", sessionID), zap.Error(err))
		s.sendError(conn, "Failed to retrieve history")
		return
	}
	body, err := json.Marshal(history)
	if err != nil {
		s.sendError(conn, "Failed to retrieve history")
		return
	}
	s.send(conn, "history", body)
}

func (s *server) send(conn *websocket.Conn, msgType string, data json.RawMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(wsMessage{Type: msgType, Data: data}); err != nil {
		s.logger.Warn("websocket write failed", zap.String("type", msgType), zap.Error(err))
	}
}

func (s *server) sendError(conn *websocket.Conn, message string) {
	data, _ := json.Marshal(gin.H{"message": message})
	s.send(conn, "error", data)
}

func defaultFilename(contentType string) string {
	switch contentType {
	case "image/png":
		return "upload.png"
	case "image/jpeg", "image/jpg":
		return "upload.jpg"
	}
	return "upload"
}
