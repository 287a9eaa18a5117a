package api

import (
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"git.solsynth.dev/hypernet/circle/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func getUserIdByName(c *fiber.Ctx) error {
	name := c.Query("name")
	if len(name) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	id, err := services.GetAccountIDWithName(name)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"id": id})
}

func listAllUsers(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	accounts, err := services.ListAccounts(user)
	if err != nil {
		return err
	}

	return c.JSON(accounts)
}

func listFriends(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	accounts, err := services.ListFriends(user)
	if err != nil {
		return err
	}

	return c.JSON(accounts)
}

func listFollowers(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	accounts, err := services.ListFollowers(user)
	if err != nil {
		return err
	}

	return c.JSON(accounts)
}

func listFriendRequests(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	accounts, err := services.ListFriendRequests(user)
	if err != nil {
		return err
	}

	return c.JSON(accounts)
}

// relationAction wraps the relationship transitions that only need the target user id.
func relationAction(action func(user models.Account, targetId uint) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals("user").(models.Account)
		targetId, err := paramID(c, "userId")
		if err != nil {
			return err
		}

		if err := action(user, targetId); err != nil {
			return err
		}

		return c.SendStatus(fiber.StatusOK)
	}
}

var (
	sendFriendRequest   = relationAction(services.NewFriendRequest)
	acceptFriendRequest = relationAction(services.AcceptFriendRequest)
	refuseFriendRequest = relationAction(services.RefuseFriendRequest)
	refuseFollower      = relationAction(services.RefuseFollower)
	deleteFriend        = relationAction(services.DeleteFriend)
)
