package httpapi

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	sessionApp "storefront/internal/application/session"
	sessionDomain "storefront/internal/domain/session"
)

// sessionStatusPayload 對前端輸出的評估結果。
type sessionStatusPayload struct {
	State           string `json:"state"`
	ShowWarning     bool   `json:"show_warning"`
	Expired         bool   `json:"expired"`
	LastActivityAt  string `json:"last_activity_at,omitempty"`
	SecondsUntilExp int64  `json:"seconds_until_expiry"`
	EvaluatedAt     string `json:"evaluated_at"`
}

func toStatusPayload(st sessionDomain.Status) sessionStatusPayload {
	p := sessionStatusPayload{
		State:           string(st.State),
		ShowWarning:     st.ShowWarning(),
		Expired:         st.Expired(),
		SecondsUntilExp: int64(st.TimeUntilExpiry / time.Second),
		EvaluatedAt:     st.EvaluatedAt.Format(time.RFC3339),
	}
	if !st.LastActivityAt.IsZero() {
		p.LastActivityAt = st.LastActivityAt.Format(time.RFC3339)
	}
	return p
}

func (s *Server) lookupSession(c *gin.Context) (*sessionApp.Lifecycle, bool) {
	id := sessionID(c)
	if id == "" {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "session id required")
		return nil, false
	}
	lc, err := s.sessions.Get(id)
	if err != nil {
		respondError(c, http.StatusNotFound, errCodeSessionUnknown, "unknown session")
		return nil, false
	}
	return lc, true
}

// handleSessionActivity 回報一次使用者互動。from_overlay 為 true 表示
// 互動來自預警視窗本身，不算活動。
func (s *Server) handleSessionActivity(c *gin.Context) {
	lc, ok := s.lookupSession(c)
	if !ok {
		return
	}

	var body struct {
		FromOverlay bool `json:"from_overlay"`
	}
	_ = c.ShouldBindJSON(&body)

	if err := lc.RecordActivity(c.Request.Context(), body.FromOverlay); err != nil {
		log.Printf("[Session] record activity failed session_id=%s err=%v", lc.ID(), err)
		respondError(c, http.StatusInternalServerError, errCodeInternal, "record activity failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleSessionState 立即評估一次並回傳目前狀態。
func (s *Server) handleSessionState(c *gin.Context) {
	lc, ok := s.lookupSession(c)
	if !ok {
		return
	}
	status := lc.EvaluateNow(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true, "session": toStatusPayload(status)})
}

// handleSessionRefresh 使用者於預警視窗按下「保持登入」。
func (s *Server) handleSessionRefresh(c *gin.Context) {
	lc, ok := s.lookupSession(c)
	if !ok {
		return
	}
	if err := lc.Refresh(c.Request.Context()); err != nil {
		respondError(c, http.StatusConflict, errCodeConflict, "session not recoverable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": toStatusPayload(lc.Status())})
}

// handleSessionLogout 使用者於預警視窗選擇登出，或前端主動結束 session。
func (s *Server) handleSessionLogout(c *gin.Context) {
	id := sessionID(c)
	if id == "" {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "session id required")
		return
	}
	// 登出具冪等性：不存在的 session 也回成功。
	s.sessions.Close(c.Request.Context(), id)
	s.csrf.Drop(id)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// wsSink 把狀態變化事件轉給 websocket 寫入迴圈。
// 推播落後時丟棄舊事件，前端收到任何事件都會重新讀取最新狀態。
type wsSink struct {
	mu     sync.Mutex
	closed bool
	events chan sessionApp.Event
}

func newWSSink() *wsSink {
	return &wsSink{events: make(chan sessionApp.Event, 16)}
}

func (w *wsSink) SessionStateChanged(ev sessionApp.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.events <- ev:
	default:
	}
}

func (w *wsSink) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

// handleSessionWS 建立 websocket 連線，推播該 session 的狀態變化。
// 連線建立時先送一次目前狀態。
func (s *Server) handleSessionWS(c *gin.Context) {
	lc, ok := s.lookupSession(c)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Session] websocket upgrade failed session_id=%s err=%v", lc.ID(), err)
		return
	}
	defer conn.Close()

	sink := newWSSink()
	defer sink.close()
	lc.Subscribe(sink)

	type wsMessage struct {
		SessionID string               `json:"session_id"`
		Session   sessionStatusPayload `json:"session"`
	}
	if err := conn.WriteJSON(wsMessage{SessionID: lc.ID(), Session: toStatusPayload(lc.Status())}); err != nil {
		return
	}

	// 讀取迴圈只負責偵測客戶端斷線。
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-sink.events:
			if err := conn.WriteJSON(wsMessage{SessionID: ev.SessionID, Session: toStatusPayload(ev.Status)}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
