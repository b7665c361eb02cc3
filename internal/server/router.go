package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/palemoky/old-maid/internal/protocol"
)

const adminPasswordHeader = "X-Admin-Password"

// createRoomRequest 创建房间请求体，口令也可以放在 X-Admin-Password 头中
type createRoomRequest struct {
	Password string `json:"password"`
}

// createRoomResponse 创建房间响应
type createRoomResponse struct {
	RoomCode   string `json:"room_code"`
	MaxPlayers int    `json:"max_players"`
}

// healthResponse 健康检查响应
type healthResponse struct {
	Status      string `json:"status"`
	Online      int    `json:"online"`
	Rooms       int    `json:"rooms"`
	ActiveGames int    `json:"active_games"`
	Time        int64  `json:"time"`
}

// errorResponse REST 错误响应
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Router HTTP 路由
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.ipFilter.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/rooms", func(r chi.Router) {
		r.Post("/", s.handleCreateRoom)
		r.Get("/", s.handleListRooms)
		r.Get("/{code}", s.handleGetRoom)
	})
	return r
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := http.StatusOK
	resp := healthResponse{
		Status:      "ok",
		Online:      s.GetOnlineCount(),
		Rooms:       s.roomManager.RoomCount(),
		ActiveGames: s.roomManager.GetActiveGamesCount(),
		Time:        time.Now().UnixMilli(),
	}
	if s.IsShuttingDown() {
		status = http.StatusServiceUnavailable
		resp.Status = "shutting_down"
	}
	writeJSON(w, status, resp)
}

// handleCreateRoom 创建房间（需要管理口令）
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if s.IsShuttingDown() {
		writeError(w, http.StatusServiceUnavailable, protocol.ErrCodeServerClosing)
		return
	}
	ip := GetClientIP(r)
	if !s.ipFilter.IsAllowed(ip) {
		writeError(w, http.StatusForbidden, protocol.ErrCodeUnauthorized)
		return
	}
	if !s.rateLimiter.Allow(ip) {
		writeError(w, http.StatusTooManyRequests, protocol.ErrCodeRateLimit)
		return
	}
	if !s.checkAdminPassword(r) {
		s.logger.WithField("ip", ip).Warn("🚫 创建房间口令错误")
		writeError(w, http.StatusUnauthorized, protocol.ErrCodeUnauthorized)
		return
	}

	rm := s.roomManager.CreateRoom()
	writeJSON(w, http.StatusCreated, createRoomResponse{
		RoomCode:   rm.Code,
		MaxPlayers: rm.MaxPlayers(),
	})
}

// checkAdminPassword 从请求头或请求体取口令并校验
func (s *Server) checkAdminPassword(r *http.Request) bool {
	if len(s.adminHash) == 0 {
		return true
	}

	password := r.Header.Get(adminPasswordHeader)
	if password == "" && r.Body != nil {
		var req createRoomRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1024)).Decode(&req); err == nil {
			password = req.Password
		}
	}
	if password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.adminHash, []byte(password)) == nil
}

// handleListRooms 可加入的房间列表
func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, protocol.RoomListResultPayload{
		Rooms: s.roomManager.GetRoomList(),
	})
}

// handleGetRoom 房间信息
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	info, ok := s.roomManager.GetRoomInfo(code)
	if !ok {
		writeError(w, http.StatusNotFound, protocol.ErrCodeRoomNotFound)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status, code int) {
	writeJSON(w, status, errorResponse{Code: code, Message: protocol.ErrorMessages[code]})
}
