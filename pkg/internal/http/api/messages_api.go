package api

import (
	"git.solsynth.dev/hypernet/circle/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"git.solsynth.dev/hypernet/circle/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func listMessages(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	chatId, err := paramID(c, "chatId")
	if err != nil {
		return err
	}

	messages, err := services.ListMessages(user, chatId)
	if err != nil {
		return err
	}

	return c.JSON(messages)
}

func sendMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	chatId, err := paramID(c, "chatId")
	if err != nil {
		return err
	}

	var data struct {
		Text string `json:"text" validate:"required,max=4096"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	message, err := services.NewMessage(chatId, user.Name, data.Text)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(message)
}

func editMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	chatId, err := paramID(c, "chatId")
	if err != nil {
		return err
	}
	messageId, err := paramID(c, "messageId")
	if err != nil {
		return err
	}

	var data struct {
		Text string `json:"text" validate:"required,max=4096"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	message, err := services.EditMessage(chatId, messageId, user.Name, data.Text)
	if err != nil {
		return err
	}

	return c.JSON(message)
}

func deleteMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	chatId, err := paramID(c, "chatId")
	if err != nil {
		return err
	}
	messageId, err := paramID(c, "messageId")
	if err != nil {
		return err
	}

	if err := services.DeleteMessage(user, messageId, chatId); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}
