package notification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"advisorbooking/internal/database"
	"advisorbooking/internal/middleware"
	"advisorbooking/internal/pkg/clock"
	"advisorbooking/internal/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialNotifications(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(middleware.Identity())
	router.GET("/ws/notifications", NewWSHandler(hub, logging.Discard()).HandleWebSocket)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	header := http.Header{}
	header.Set(middleware.HeaderUserID, userID)
	header.Set(middleware.HeaderUserRole, "client")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notifications"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWSHandler_PushesToConnectedUser(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	conn := dialNotifications(t, hub, "42")
	require.Eventually(t, func() bool { return hub.IsOnline(42) }, time.Second, 10*time.Millisecond)

	n := &Notification{RecipientID: 42, Kind: KindReminder, Message: "see you tomorrow"}
	require.True(t, hub.SendToUser(42, pushPayload(n)))
	assert.False(t, hub.SendToUser(43, pushPayload(n)))

	var got struct {
		Type         string       `json:"type"`
		Notification Notification `json:"notification"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "notification", got.Type)
	assert.Equal(t, "see you tomorrow", got.Notification.Message)
	assert.Equal(t, KindReminder, got.Notification.Kind)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return !hub.IsOnline(42) }, time.Second, 10*time.Millisecond)
}

func TestWSHandler_RequiresIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.Identity())
	router.GET("/ws/notifications", NewWSHandler(NewHub(), logging.Discard()).HandleWebSocket)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHub_EmptyHub(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, 0, hub.OnlineCount())
	assert.False(t, hub.SendToUser(1, "x"))
}

func TestNotify_DoesNotBlockOnPeerThatNeverReads(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	// The peer never reads, so the socket buffers fill and the write pump stalls.
	_ = dialNotifications(t, hub, "42")
	require.Eventually(t, func() bool { return hub.IsOnline(42) }, time.Second, 10*time.Millisecond)

	db, err := database.Connect(database.MemoryDSN("notification_"+t.Name()), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := NewRepository(db)
	require.NoError(t, repo.AutoMigrate())
	svc := NewService(repo, hub, clock.Fixed{T: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}, logging.Discard())

	big := strings.Repeat("x", 64*1024)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < sendBuffer+64; i++ {
			if _, err := svc.Notify(context.Background(), 42, KindReminder, big, nil); err != nil {
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Notify blocked on a websocket peer that does not read")
	}

	count, err := svc.UnreadCount(context.Background(), 42)
	require.NoError(t, err)
	assert.EqualValues(t, sendBuffer+64, count)
}

func TestHub_SendToUserDropsWhenQueueFull(t *testing.T) {
	hub := NewHub()
	c := &connection{userID: 9, send: make(chan []byte, 1)}
	hub.connections[9] = c

	assert.True(t, hub.SendToUser(9, "first"))
	assert.False(t, hub.SendToUser(9, "second"))
	assert.Equal(t, `"first"`, string(<-c.send))
}
