package api

import (
	"time"

	"git.solsynth.dev/hypernet/circle/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"git.solsynth.dev/hypernet/circle/pkg/internal/realtime"
	"git.solsynth.dev/hypernet/circle/pkg/internal/services"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

const (
	realtimeWriteWait      = 10 * time.Second
	realtimeMaxMessageSize = 64 * 1024
)

// realtimeCommand mirrors the message endpoints for clients that keep a socket open.
type realtimeCommand struct {
	Action    string `json:"action" validate:"required,oneof=messages.new messages.update messages.delete"`
	ChatID    uint   `json:"chat_id" validate:"required"`
	MessageID uint   `json:"message_id" validate:"required_unless=Action messages.new"`
	Text      string `json:"text" validate:"required_unless=Action messages.delete,max=4096"`
}

func upgradeRealtime(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// listenRealtime pushes the ledger events of the user's chats and takes message commands.
// Only the writer goroutine touches the connection for writing.
func listenRealtime(c *websocket.Conn) {
	user := c.Locals("user").(models.Account)
	client := realtime.H.Subscribe(user.ID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for payload := range client.Messages() {
			_ = c.SetWriteDeadline(time.Now().Add(realtimeWriteWait))
			if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Debug().Err(err).Uint("user", user.ID).Msg("Unable to write realtime event...")
				return
			}
		}
	}()

	c.SetReadLimit(realtimeMaxMessageSize)
	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			break
		}
		if mt != websocket.TextMessage {
			continue
		}

		var command realtimeCommand
		if err := jsoniter.Unmarshal(data, &command); err != nil {
			realtime.H.Send(client, realtime.Event{Type: realtime.EventError, Error: "malformed command"})
			continue
		}
		if err := handleRealtimeCommand(user, command); err != nil {
			realtime.H.Send(client, realtime.Event{Type: realtime.EventError, ChatID: command.ChatID, Error: realtimeErrorMessage(err)})
		}
	}

	realtime.H.Unsubscribe(client)
	<-done
}

// handleRealtimeCommand runs the command, the outcome reaches the members through the hub.
func handleRealtimeCommand(user models.Account, command realtimeCommand) error {
	if err := exts.ValidateStruct(command); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	switch command.Action {
	case realtime.EventMessageNew:
		_, err := services.NewMessage(command.ChatID, user.Name, command.Text)
		return err
	case realtime.EventMessageUpdate:
		_, err := services.EditMessage(command.ChatID, command.MessageID, user.Name, command.Text)
		return err
	case realtime.EventMessageDelete:
		return services.DeleteMessage(user, command.MessageID, command.ChatID)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown action")
	}
}

func realtimeErrorMessage(err error) string {
	if exts.StatusOf(err) == fiber.StatusInternalServerError {
		log.Error().Err(err).Msg("An error occurred when handling realtime command...")
		return "internal server error"
	}
	return err.Error()
}
