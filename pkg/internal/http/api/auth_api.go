package api

import (
	"git.solsynth.dev/hypernet/circle/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/circle/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func register(c *fiber.Ctx) error {
	var data struct {
		Name     string `json:"name" validate:"required,min=2,max=64"`
		Email    string `json:"email" validate:"omitempty,email"`
		Password string `json:"password" validate:"required,min=4"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	account, err := services.NewAccount(data.Name, data.Email, data.Password)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(account)
}

func login(c *fiber.Ctx) error {
	var data struct {
		Name     string `json:"name" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	pair, err := services.Login(data.Name, data.Password)
	if err != nil {
		return err
	}

	return c.JSON(pair)
}

func refreshToken(c *fiber.Ctx) error {
	var data struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	pair, err := services.RefreshToken(data.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(pair)
}
