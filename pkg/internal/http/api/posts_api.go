package api

import (
	"errors"
	"io"

	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"git.solsynth.dev/hypernet/circle/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// bindPostImage reads the optional "image" part of a multipart post form.
func bindPostImage(c *fiber.Ctx) (*models.PostImage, error) {
	file, err := c.FormFile("image")
	if errors.Is(err, fasthttp.ErrMissingFile) {
		return nil, nil
	} else if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	reader, err := file.Open()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return &models.PostImage{
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}, nil
}

func createPost(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	authorId := user.ID
	if len(c.FormValue("author")) > 0 {
		id, err := fasthttp.ParseUint([]byte(c.FormValue("author")))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid author")
		}
		authorId = uint(id)
	}

	image, err := bindPostImage(c)
	if err != nil {
		return err
	}

	item, err := services.NewPost(user, authorId, c.FormValue("description"), c.FormValue("message"), image)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

func getPost(c *fiber.Ctx) error {
	id, err := paramID(c, "postId")
	if err != nil {
		return err
	}

	item, err := services.GetPost(id)
	if err != nil {
		return err
	}

	return c.JSON(item)
}

func editPost(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	id, err := paramID(c, "postId")
	if err != nil {
		return err
	}

	image, err := bindPostImage(c)
	if err != nil {
		return err
	}

	item, err := services.EditPost(user, id, c.FormValue("description"), c.FormValue("message"), image)
	if err != nil {
		return err
	}

	return c.JSON(item)
}

func deletePost(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)
	id, err := paramID(c, "postId")
	if err != nil {
		return err
	}

	if err := services.DeletePost(user, id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}

func getFeed(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	viewer := c.QueryInt("viewer", int(user.ID))
	if viewer <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid viewer")
	}

	items, err := services.GetFeed(
		user,
		uint(viewer),
		c.QueryInt("page", 0),
		c.QueryInt("size", services.DefaultFeedSize),
		c.QueryBool("desc", true),
	)
	if err != nil {
		return err
	}

	return c.JSON(items)
}

func listAllPosts(c *fiber.Ctx) error {
	user := c.Locals("user").(models.Account)

	items, err := services.ListPosts(user)
	if err != nil {
		return err
	}

	return c.JSON(items)
}
