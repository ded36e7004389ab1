package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/chatify/internal/middleware"
	"github.com/thereayou/chatify/internal/services"
	"github.com/thereayou/chatify/internal/storage"
	ws "github.com/thereayou/chatify/internal/websocket"
)

// asUser подменяет auth guard: кладёт id пользователя прямо в контекст
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

type roomFixture struct {
	store  storage.Store
	rooms  *services.RoomService
	router map[string]*gin.Engine // по id пользователя
	h      *RoomHandler
}

func newRoomFixture(t *testing.T) *roomFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryStore()
	rooms := services.NewRoomService(store)
	h := NewRoomHandler(rooms, ws.NewHub())

	return &roomFixture{store: store, rooms: rooms, h: h, router: make(map[string]*gin.Engine)}
}

func (f *roomFixture) as(userID string) *gin.Engine {
	if r, ok := f.router[userID]; ok {
		return r
	}

	r := gin.New()
	api := r.Group("/api", asUser(userID))
	{
		api.GET("/rooms", f.h.GetMyRooms)
		api.POST("/rooms", f.h.CreateRoom)
		api.POST("/rooms/join", f.h.JoinRoom)
		api.GET("/rooms/:key", f.h.GetRoom)
		api.POST("/rooms/:key/leave", f.h.LeaveRoom)
		api.DELETE("/rooms/:key", f.h.DeleteRoom)
	}
	f.router[userID] = r
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRoomHandler_CreateAndView(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t)

	w := doJSON(t, f.as("u1"), http.MethodPost, "/api/rooms", gin.H{"name": "general"})
	req.Equal(http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	key := body["key"].(string)
	req.NotEmpty(key)
	req.Equal("u1", body["created_by"])
	req.Equal([]interface{}{"u1"}, body["members"])

	w = doJSON(t, f.as("u1"), http.MethodGet, "/api/rooms/"+key, nil)
	req.Equal(http.StatusOK, w.Code)
}

func TestRoomHandler_ViewRequiresMembership(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t)

	room, err := f.rooms.Create(context.Background(), "private", "u1")
	req.NoError(err)

	w := doJSON(t, f.as("outsider"), http.MethodGet, "/api/rooms/"+room.Key, nil)
	req.Equal(http.StatusForbidden, w.Code)
}

func TestRoomHandler_JoinByKey(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t)

	room, err := f.rooms.Create(context.Background(), "general", "u1")
	req.NoError(err)

	w := doJSON(t, f.as("u2"), http.MethodPost, "/api/rooms/join", gin.H{"key": room.Key})
	req.Equal(http.StatusOK, w.Code)

	found, err := f.rooms.RoomByKey(context.Background(), room.Key)
	req.NoError(err)
	req.Contains(found.Members, "u2")

	// Повторный join — no-op
	w = doJSON(t, f.as("u2"), http.MethodPost, "/api/rooms/join", gin.H{"key": room.Key})
	req.Equal(http.StatusOK, w.Code)

	found, err = f.rooms.RoomByKey(context.Background(), room.Key)
	req.NoError(err)
	req.Len(found.Members, 2)
}

func TestRoomHandler_JoinInvalidKey(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t)

	w := doJSON(t, f.as("u1"), http.MethodPost, "/api/rooms/join", gin.H{"key": "bogus"})
	req.Equal(http.StatusNotFound, w.Code)
	req.Equal("invalid room key", decodeBody(t, w)["error"])
}

func TestRoomHandler_Leave(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t)

	room, err := f.rooms.Create(context.Background(), "general", "u1")
	req.NoError(err)
	req.NoError(f.rooms.Join(context.Background(), room.Key, "u2"))

	w := doJSON(t, f.as("u2"), http.MethodPost, "/api/rooms/"+room.Key+"/leave", nil)
	req.Equal(http.StatusOK, w.Code)

	// Создатель выйти не может
	w = doJSON(t, f.as("u1"), http.MethodPost, "/api/rooms/"+room.Key+"/leave", nil)
	req.Equal(http.StatusBadRequest, w.Code)
}

func TestRoomHandler_DeleteCreatorOnly(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t)

	room, err := f.rooms.Create(context.Background(), "general", "u1")
	req.NoError(err)

	w := doJSON(t, f.as("u2"), http.MethodDelete, "/api/rooms/"+room.Key, nil)
	req.Equal(http.StatusForbidden, w.Code)

	w = doJSON(t, f.as("u1"), http.MethodDelete, "/api/rooms/"+room.Key, nil)
	req.Equal(http.StatusOK, w.Code)

	w = doJSON(t, f.as("u1"), http.MethodGet, "/api/rooms/"+room.Key, nil)
	req.Equal(http.StatusNotFound, w.Code)
}

func TestRoomHandler_GetMyRooms(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t)

	for i := 0; i < 2; i++ {
		_, err := f.rooms.Create(context.Background(), fmt.Sprintf("room-%d", i), "u1")
		req.NoError(err)
	}
	_, err := f.rooms.Create(context.Background(), "other", "u2")
	req.NoError(err)

	w := doJSON(t, f.as("u1"), http.MethodGet, "/api/rooms", nil)
	req.Equal(http.StatusOK, w.Code)

	body := decodeBody(t, w)
	req.Len(body["rooms"], 2)
}
