package api

import (
	"git.solsynth.dev/hypernet/circle/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"git.solsynth.dev/hypernet/circle/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func createChat(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	var data struct {
		FirstID  uint `json:"first_id" validate:"required"`
		SecondID uint `json:"second_id" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	chat, err := services.NewChat(user, data.FirstID, data.SecondID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(chat)
}

func getChat(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	id, err := paramID(c, "chatId")
	if err != nil {
		return err
	}

	chat, err := services.GetChat(user, id)
	if err != nil {
		return err
	}

	return c.JSON(chat)
}

func getLastMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	id, err := paramID(c, "chatId")
	if err != nil {
		return err
	}

	text, err := services.GetChatLastMessage(user, id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"last_message": text})
}

func listOwnedChats(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	chats, err := services.ListOwnedChats(user)
	if err != nil {
		return err
	}

	return c.JSON(chats)
}

func listAllChats(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	chats, err := services.ListChats(user)
	if err != nil {
		return err
	}

	return c.JSON(chats)
}

func joinChat(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	id, err := paramID(c, "chatId")
	if err != nil {
		return err
	}

	chat, err := services.JoinChat(user, id)
	if err != nil {
		return err
	}

	return c.JSON(chat)
}

func leaveChat(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	id, err := paramID(c, "chatId")
	if err != nil {
		return err
	}

	if err := services.LeaveChat(user, id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}

func deleteChat(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	id, err := paramID(c, "chatId")
	if err != nil {
		return err
	}

	if err := services.DeleteChat(user, id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}
