package escort

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Yamuna-Lakshmanan/HelpNow/internal/history"
)

type locationRequest struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

type startRequest struct {
	HomeLat float64 `json:"home_lat"`
	HomeLng float64 `json:"home_lng"`
}

type responseRequest struct {
	Outcome string  `json:"outcome"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/session", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := userFromLocals(c)
		if err != nil {
			return err
		}
		var req startRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		m := svc.ManagerFor(c.Context(), userID)
		started := m.StartTracking(c.Context(), req.HomeLat, req.HomeLng)
		status := fiber.StatusOK
		if started {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(m.Snapshot())
	})

	r.Delete("/session", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := userFromLocals(c)
		if err != nil {
			return err
		}
		m := svc.ManagerFor(c.Context(), userID)
		m.StopTracking(c.Context())
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/session", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := userFromLocals(c)
		if err != nil {
			return err
		}
		return c.JSON(svc.ManagerFor(c.Context(), userID).Snapshot())
	})

	r.Post("/session/location", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := userFromLocals(c)
		if err != nil {
			return err
		}
		var req locationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		m := svc.ManagerFor(c.Context(), userID)
		m.OnLocationTick(c.Context(), req.Lat, req.Lng, req.Address)
		return c.JSON(m.Snapshot())
	})

	r.Post("/session/checkins/:index/response", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := userFromLocals(c)
		if err != nil {
			return err
		}
		index, err := c.ParamsInt("index")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid check-in index")
		}
		var req responseRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		outcome := history.Outcome(req.Outcome)
		// TIMEOUT is recorded by the scheduler's deadline, never by clients.
		if outcome != history.OutcomeSafe && outcome != history.OutcomeUnsafe {
			return fiber.NewError(fiber.StatusBadRequest, "outcome must be SAFE or UNSAFE")
		}
		m := svc.ManagerFor(c.Context(), userID)
		recorded := m.OnCheckInResponse(c.Context(), index, outcome, req.Lat, req.Lng, req.Address)
		return c.JSON(fiber.Map{"recorded": recorded})
	})

	r.Post("/session/safe", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := userFromLocals(c)
		if err != nil {
			return err
		}
		m := svc.ManagerFor(c.Context(), userID)
		recorded := m.MarkSafeFromExternalSource(c.Context())
		return c.JSON(fiber.Map{"recorded": recorded})
	})

	r.Post("/session/trigger", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := userFromLocals(c)
		if err != nil {
			return err
		}
		m := svc.ManagerFor(c.Context(), userID)
		triggered := m.TriggerEmergency(c.Context())
		return c.JSON(fiber.Map{"triggered": triggered})
	})

	r.Get("/session/history", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := userFromLocals(c)
		if err != nil {
			return err
		}
		records := svc.ManagerFor(c.Context(), userID).History()
		return c.JSON(records)
	})
}

func userFromLocals(c *fiber.Ctx) (string, error) {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}
	return userID, nil
}
