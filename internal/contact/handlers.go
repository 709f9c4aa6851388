package contact

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Contact
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		userID, _ := c.Locals("user_id").(string)
		req.UserID = userID
		if req.Name == "" || req.Phone == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name and phone required")
		}
		contact, err := svc.AddContact(c.Context(), req)
		if errors.Is(err, ErrTooManyContacts) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(contact)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		contacts, err := svc.ListContacts(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{
			"contacts": contacts,
			"armed":    len(contacts) >= MinRequired,
		})
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if err := svc.DeleteContact(c.Context(), userID, c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
