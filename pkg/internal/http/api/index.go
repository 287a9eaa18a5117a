package api

import (
	"git.solsynth.dev/hypernet/circle/pkg/internal/http/exts"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func MapAPIs(app *fiber.App, baseURL string) {
	app.Get("/ws", requireUser, upgradeRealtime, websocket.New(listenRealtime)).Name("Realtime")

	api := app.Group(baseURL).Name("API")
	{
		auth := api.Group("/auth").Name("Auth API")
		{
			auth.Post("/register", register)
			auth.Post("/login", login)
			auth.Post("/refresh", refreshToken)
		}

		users := api.Group("/users", requireUser).Name("Users API")
		{
			users.Get("/", getUserIdByName)
			users.Get("/all", listAllUsers)
			users.Get("/me/friends", listFriends)
			users.Get("/me/followers", listFollowers)
			users.Get("/me/requests", listFriendRequests)

			users.Post("/:userId/friend-request", sendFriendRequest)
			users.Post("/:userId/accept", acceptFriendRequest)
			users.Post("/:userId/refuse", refuseFriendRequest)
			users.Delete("/:userId/follower", refuseFollower)
			users.Delete("/:userId/friend", deleteFriend)
		}

		chats := api.Group("/chats", requireUser).Name("Chats API")
		{
			chats.Get("/", listOwnedChats)
			chats.Get("/all", listAllChats)
			chats.Post("/", createChat)
			chats.Get("/:chatId", getChat)
			chats.Get("/:chatId/last-message", getLastMessage)
			chats.Put("/:chatId/join", joinChat)
			chats.Put("/:chatId/leave", leaveChat)
			chats.Delete("/:chatId", deleteChat)

			chats.Get("/:chatId/messages", listMessages)
			chats.Post("/:chatId/messages", sendMessage)
			chats.Put("/:chatId/messages/:messageId", editMessage)
			chats.Delete("/:chatId/messages/:messageId", deleteMessage)
		}

		posts := api.Group("/posts", requireUser).Name("Posts API")
		{
			posts.Get("/feed", getFeed)
			posts.Get("/all", listAllPosts)
			posts.Post("/", createPost)
			posts.Get("/:postId", getPost)
			posts.Put("/:postId", editPost)
			posts.Delete("/:postId", deletePost)
		}
	}
}

func requireUser(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	return c.Next()
}

func paramID(c *fiber.Ctx, key string) (uint, error) {
	id, err := c.ParamsInt(key, 0)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+key)
	}
	return uint(id), nil
}
