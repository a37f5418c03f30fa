package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/proto"
	"github.com/sharanperla/Greenleaf-client/internal/store"
)

const (
	defaultHistoryLimit = 500
	maxHistoryLimit     = 1000
	maxImageBytes       = 10 << 20
	imagesSubdir        = "chat_images"
)

// ChatHandlers serves rooms and messages and pushes new messages to the hub.
type ChatHandlers struct {
	store    store.Store
	hub      *Hub
	mediaDir string
	log      *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(st store.Store, hub *Hub, mediaDir string, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		store:    st,
		hub:      hub,
		mediaDir: mediaDir,
		log:      logger,
	}
}

// ListRooms returns all rooms in creation order.
// GET /api/chat/rooms/
func (h *ChatHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.store.ListRooms(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]proto.RoomPayload, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, roomPayload(room))
	}
	c.JSON(http.StatusOK, out)
}

// CreateRoom handles room creation.
// POST /api/chat/rooms/
func (h *ChatHandlers) CreateRoom(c *gin.Context) {
	uid, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, proto.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req proto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid request body"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 64 {
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "room name must be 1 to 64 characters"})
		return
	}

	room, err := h.store.CreateRoom(c.Request.Context(), name, strings.TrimSpace(req.Description), uid)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, proto.ErrorResponse{Error: "room already exists"})
			return
		}
		h.log.Error().Err(err).Str("name", name).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("room_id", room.ID).Str("name", room.Name).Int64("created_by", uid).Msg("room created")
	c.JSON(http.StatusCreated, roomPayload(room))
}

// ListMessages returns a room's history oldest first.
// GET /api/chat/rooms/:id/messages/
func (h *ChatHandlers) ListMessages(c *gin.Context) {
	room, ok := h.roomFromParam(c)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	var before *int64
	if raw := c.Query("before"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid before id"})
			return
		}
		before = &id
	}

	messages, err := h.store.ListMessages(c.Request.Context(), room.ID, limit, before)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", room.ID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]proto.MessagePayload, 0, len(messages))
	for _, m := range messages {
		out = append(out, messagePayload(m))
	}
	c.JSON(http.StatusOK, out)
}

// SendMessage stores a text message and pushes it to the room's sockets.
// POST /api/chat/messages/
func (h *ChatHandlers) SendMessage(c *gin.Context) {
	uid, username, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, proto.ErrorResponse{Error: "unauthorized"})
		return
	}
	room, ok := h.roomFromForm(c)
	if !ok {
		return
	}
	content := c.PostForm("content")
	if strings.TrimSpace(content) == "" {
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "content is required"})
		return
	}

	h.persist(c, room, &store.Message{
		RoomID:   room.ID,
		UserID:   uid,
		Username: username,
		Content:  content,
	})
}

// UploadImage stores an image message and pushes it to the room's sockets.
// POST /api/chat/messages/upload_image/
func (h *ChatHandlers) UploadImage(c *gin.Context) {
	uid, username, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, proto.ErrorResponse{Error: "unauthorized"})
		return
	}
	room, ok := h.roomFromForm(c)
	if !ok {
		return
	}

	data, mt, ok := readImage(c, h.log)
	if !ok {
		return
	}

	name := uuid.NewString() + mt.Extension()
	dir := filepath.Join(h.mediaDir, imagesSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		h.log.Error().Err(err).Str("dir", dir).Msg("failed to create media dir")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		h.log.Error().Err(err).Str("file", name).Msg("failed to store image")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return
	}

	h.persist(c, room, &store.Message{
		RoomID:   room.ID,
		UserID:   uid,
		Username: username,
		Image:    "/media/" + imagesSubdir + "/" + name,
	})
}

func (h *ChatHandlers) persist(c *gin.Context, room *store.Room, msg *store.Message) {
	if err := h.store.SaveMessage(c.Request.Context(), msg); err != nil {
		h.log.Error().Err(err).Int64("room_id", room.ID).Msg("failed to save message")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return
	}

	frame, err := json.Marshal(proto.FrameFromMessage(messageFromStore(msg)))
	if err != nil {
		h.log.Error().Err(err).Int64("message_id", msg.ID).Msg("failed to encode frame")
	} else {
		h.hub.Broadcast(room.Name, frame)
	}

	h.log.Info().Int64("room_id", room.ID).Int64("message_id", msg.ID).Str("username", msg.Username).Msg("message stored")
	c.JSON(http.StatusCreated, messagePayload(msg))
}

func (h *ChatHandlers) roomFromParam(c *gin.Context) (*store.Room, bool) {
	return h.lookupRoom(c, c.Param("id"))
}

func (h *ChatHandlers) roomFromForm(c *gin.Context) (*store.Room, bool) {
	return h.lookupRoom(c, c.PostForm("room"))
}

func (h *ChatHandlers) lookupRoom(c *gin.Context, raw string) (*store.Room, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid room id"})
		return nil, false
	}
	room, err := h.store.GetRoomByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, proto.ErrorResponse{Error: "room not found"})
		return nil, false
	}
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", id).Msg("failed to load room")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return nil, false
	}
	return room, true
}

// readImage reads the "image" form file and checks that it is an image.
func readImage(c *gin.Context, logger *zerolog.Logger) ([]byte, *mimetype.MIME, bool) {
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "image file is required"})
		return nil, nil, false
	}
	if header.Size > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, proto.ErrorResponse{Error: "image is too large"})
		return nil, nil, false
	}
	f, err := header.Open()
	if err != nil {
		logger.Error().Err(err).Msg("failed to open upload")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return nil, nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		logger.Error().Err(err).Msg("failed to read upload")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return nil, nil, false
	}
	if len(data) > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, proto.ErrorResponse{Error: "image is too large"})
		return nil, nil, false
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: fmt.Sprintf("unsupported file type %s", mt.String())})
		return nil, nil, false
	}
	return data, mt, true
}
