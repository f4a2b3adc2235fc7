package controllers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/wekesaoliver/NexaChat-App/app/models"
	"github.com/wekesaoliver/NexaChat-App/app/queries"
	"github.com/wekesaoliver/NexaChat-App/pkg/metrics"
	"github.com/wekesaoliver/NexaChat-App/pkg/notify"
	"github.com/wekesaoliver/NexaChat-App/pkg/utils"
)

type ChatController struct {
	Directory *notify.Directory
	Chats     *queries.ChatQueries
}

// clientEvent is what a connected client may send over the socket; payment
// events carry the counterparty in data.recipientId.
type clientEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// WsHandler owns one websocket connection: registers it in the directory
// (which broadcasts the online-users snapshot), relays the client-side
// payment events to the other party, and unregisters on any read error.
func (cc *ChatController) WsHandler(c *websocket.Conn) {
	userID := c.Query("userId")
	if userID == "" {
		_ = c.Close()
		return
	}

	cc.Directory.Register(userID, c)
	metrics.WebsocketConnections.Set(float64(cc.Directory.Count()))
	defer func() {
		cc.Directory.Unregister(userID, c)
		metrics.WebsocketConnections.Set(float64(cc.Directory.Count()))
	}()

	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			break
		}

		ev := clientEvent{}
		if err := json.Unmarshal(msg, &ev); err != nil {
			continue
		}
		recipientID, _ := ev.Data["recipientId"].(string)
		if recipientID == "" {
			continue
		}

		switch ev.Event {
		case "payment_initiated":
			cc.Directory.EmitToUser(recipientID, "payment_initiated", ev.Data)
		case "payment_request_sent":
			cc.Directory.EmitToUser(recipientID, "payment_request_received", ev.Data)
		}
	}
}

func (cc *ChatController) PostMessage(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromHeader(c.Get("Authorization"))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	req := &models.CreateMessageRequest{}
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid body"})
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid receiverId"})
	}
	if req.Text == "" && req.Image == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "text or image is required"})
	}

	m := &models.Message{
		ID:         uuid.New(),
		SenderID:   userID,
		ReceiverID: receiverID,
		Text:       req.Text,
		Image:      req.Image,
		CreatedAt:  time.Now(),
	}
	if err := cc.Chats.CreateMessage(m); err != nil {
		log.WithError(err).Error("failed to create message")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "failed to create message"})
	}

	cc.Directory.EmitToUser(receiverID.String(), "newMessage", m)

	return c.Status(fiber.StatusCreated).JSON(m)
}

func (cc *ChatController) GetMessages(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromHeader(c.Get("Authorization"))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	otherID, err := uuid.Parse(c.Params("otherUserId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid user id"})
	}

	msgs, err := cc.Chats.GetConversation(userID, otherID, 100)
	if err != nil {
		log.WithError(err).Error("failed to get messages")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "failed to get messages"})
	}
	return c.JSON(msgs)
}

// OnlineUsers is a REST view of the same snapshot the socket broadcasts.
func (cc *ChatController) OnlineUsers(c *fiber.Ctx) error {
	return c.JSON(cc.Directory.OnlineUserIDs())
}
