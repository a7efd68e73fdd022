package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxBodySize = 4 << 20 // 4MB

func storageKey(userID string) string { return "todos:" + userID }

type pushRequest struct {
	UserID string          `json:"userId"`
	Todos  json.RawMessage `json:"todos"`
}

func (s *Server) handleGet(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
		return
	}

	data, ok, err := s.kv.Get(c.Request.Context(), storageKey(userID))
	if err != nil {
		s.log.Error("get failed", "user", userID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok || data == "" {
		c.Data(http.StatusOK, "application/json", []byte("[]"))
		return
	}
	if !isArray([]byte(data)) {
		s.log.Error("stored value is not a task list", "user", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored value is not a task list"})
		return
	}
	c.Data(http.StatusOK, "application/json", []byte(data))
}

func (s *Server) handlePost(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)

	var req pushRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil || req.UserID == "" || !isArray(req.Todos) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, req.Todos); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := s.kv.Put(c.Request.Context(), storageKey(req.UserID), buf.String()); err != nil {
		s.log.Error("put failed", "user", req.UserID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleOptions(c *gin.Context) {
	c.Status(http.StatusOK)
}

func isArray(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '[' && json.Valid(b)
}

// handleHealth answers 200 once storage is bound and reachable, 503 otherwise.
func (s *Server) handleHealth(c *gin.Context) {
	if s.kv == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": ErrStorageUnavailable.Error()})
		return
	}
	if p, ok := s.kv.(pinger); ok {
		if err := p.Ping(c.Request.Context()); err != nil {
			s.log.Warn("storage ping failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
