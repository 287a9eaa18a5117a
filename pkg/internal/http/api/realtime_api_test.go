package api

import (
	"net"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"git.solsynth.dev/hypernet/circle/pkg/internal/realtime"
	"git.solsynth.dev/hypernet/circle/pkg/internal/services"
	"git.solsynth.dev/hypernet/circle/pkg/internal/testutil"
	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func friendsWithChat(t *testing.T) (models.Account, models.Account, models.Chat) {
	t.Helper()
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")
	require.NoError(t, services.NewFriendRequest(alice, bob.ID))
	require.NoError(t, services.AcceptFriendRequest(bob, alice.ID))

	chat, err := services.NewChat(alice, alice.ID, bob.ID)
	require.NoError(t, err)
	return alice, bob, chat
}

func serve(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return ln.Addr().String()
}

func readEvent(t *testing.T, conn *fastws.Conn) realtime.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event realtime.Event
	require.NoError(t, jsoniter.Unmarshal(data, &event))
	return event
}

func TestRealtimeHandshake(t *testing.T) {
	app := newTestApp(t)
	alice := testutil.NewAccount(t, "alice")

	resp, _ := doJSON(t, app, fiber.MethodGet, "/ws", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, fiber.MethodGet, "/ws", tokenFor(t, alice), nil)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestRealtimeMessagePush(t *testing.T) {
	app := newTestApp(t)
	alice, bob, chat := friendsWithChat(t)
	addr := serve(t, app)

	conn, _, err := fastws.DefaultDialer.Dial("ws://"+addr+"/ws?tk="+tokenFor(t, bob), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool {
		return realtime.H.Connections(bob.ID) == 1
	}, 5*time.Second, 10*time.Millisecond)

	message, err := services.NewMessage(chat.ID, alice.Name, "hello")
	require.NoError(t, err)

	event := readEvent(t, conn)
	assert.Equal(t, realtime.EventMessageNew, event.Type)
	assert.Equal(t, chat.ID, event.ChatID)
	require.NotNil(t, event.Message)
	assert.Equal(t, "hello", event.Message.Text)

	// Commands sent over the socket go through the same rules as the endpoints.
	require.NoError(t, conn.WriteJSON(fiber.Map{
		"action":     realtime.EventMessageUpdate,
		"chat_id":    chat.ID,
		"message_id": message.ID,
		"text":       "hello again",
	}))
	event = readEvent(t, conn)
	assert.Equal(t, realtime.EventMessageUpdate, event.Type)
	require.NotNil(t, event.Message)
	assert.Equal(t, "hello again", event.Message.Text)

	require.NoError(t, conn.WriteJSON(fiber.Map{
		"action":     realtime.EventMessageDelete,
		"chat_id":    chat.ID,
		"message_id": message.ID,
	}))
	event = readEvent(t, conn)
	assert.Equal(t, realtime.EventMessageDelete, event.Type)
	assert.Equal(t, message.ID, event.MessageID)

	require.NoError(t, conn.WriteJSON(fiber.Map{
		"action":  realtime.EventMessageNew,
		"chat_id": 9999,
		"text":    "anyone?",
	}))
	event = readEvent(t, conn)
	assert.Equal(t, realtime.EventError, event.Type)
	assert.Equal(t, services.ErrChatNotFound.Message, event.Error)

	require.NoError(t, conn.WriteMessage(fastws.TextMessage, []byte("{")))
	event = readEvent(t, conn)
	assert.Equal(t, realtime.EventError, event.Type)
}

func TestRealtimeSkipsNonMembers(t *testing.T) {
	testutil.Setup(t)
	alice, bob, chat := friendsWithChat(t)
	carol := testutil.NewAccount(t, "carol")

	bobClient := realtime.H.Subscribe(bob.ID)
	carolClient := realtime.H.Subscribe(carol.ID)
	defer realtime.H.Unsubscribe(bobClient)
	defer realtime.H.Unsubscribe(carolClient)

	_, err := services.NewMessage(chat.ID, alice.Name, "just us")
	require.NoError(t, err)

	assert.Len(t, bobClient.Messages(), 1)
	assert.Len(t, carolClient.Messages(), 0)
}

func TestEditMessageEndpointHidesForeignMessages(t *testing.T) {
	app := newTestApp(t)
	alice, _, chat := friendsWithChat(t)
	carol := testutil.NewAccount(t, "carol")

	message, err := services.NewMessage(chat.ID, alice.Name, "private")
	require.NoError(t, err)

	path := "/api/chats/" + itoa(chat.ID) + "/messages/"
	existing, existingBody := doJSON(t, app, fiber.MethodPut, path+itoa(message.ID), tokenFor(t, carol), fiber.Map{"text": "peek"})
	missing, missingBody := doJSON(t, app, fiber.MethodPut, path+"9999", tokenFor(t, carol), fiber.Map{"text": "peek"})
	assert.Equal(t, fiber.StatusBadRequest, existing.StatusCode)
	assert.Equal(t, missing.StatusCode, existing.StatusCode)
	assert.JSONEq(t, string(missingBody), string(existingBody))

	resp, _ := doJSON(t, app, fiber.MethodPut, path+itoa(message.ID), tokenFor(t, alice), fiber.Map{"text": "edited"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
