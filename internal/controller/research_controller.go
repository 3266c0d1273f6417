package controller

import (
	"ai-research-be/internal/dto"
	"ai-research-be/internal/pkg/serverutils"
	"ai-research-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IResearchController interface {
	RegisterRoutes(r fiber.Router)
	Status(ctx *fiber.Ctx) error
	Start(ctx *fiber.Ctx) error
	Stop(ctx *fiber.Ctx) error
	Restart(ctx *fiber.Ctx) error
	Trigger(ctx *fiber.Ctx) error
	UpdateConfig(ctx *fiber.Ctx) error
	GetDrive(ctx *fiber.Ctx) error
	OverrideDrive(ctx *fiber.Ctx) error
	ListTopics(ctx *fiber.Ctx) error
	CreateTopic(ctx *fiber.Ctx) error
	ListFindings(ctx *fiber.Ctx) error
	RecordEngagement(ctx *fiber.Ctx) error
}

type researchController struct {
	service    service.IResearchService
	engagement service.IEngagementService
}

func NewResearchController(service service.IResearchService, engagement service.IEngagementService) IResearchController {
	return &researchController{
		service:    service,
		engagement: engagement,
	}
}

func (c *researchController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/research/v1")
	h.Use(serverutils.JwtMiddleware)

	h.Get("status", c.Status)
	h.Post("start", c.Start)
	h.Post("stop", c.Stop)
	h.Post("restart", c.Restart)
	h.Post("trigger", c.Trigger)
	h.Patch("config", c.UpdateConfig)
	h.Get("drive", c.GetDrive)
	h.Patch("drive", c.OverrideDrive)

	h.Get("topics", c.ListTopics)
	h.Post("topics", c.CreateTopic)
	h.Get("topics/:id/findings", c.ListFindings)
	h.Post("engagement", c.RecordEngagement)
}

func (c *researchController) Status(ctx *fiber.Ctx) error {
	res := c.service.Status(ctx.Context())
	return ctx.JSON(serverutils.SuccessResponse("Success get research status", res))
}

func (c *researchController) Start(ctx *fiber.Ctx) error {
	res, err := c.service.Start(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Research scheduler started", res))
}

func (c *researchController) Stop(ctx *fiber.Ctx) error {
	res, err := c.service.Stop(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Research scheduler stopped", res))
}

func (c *researchController) Restart(ctx *fiber.Ctx) error {
	res, err := c.service.Restart(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Research scheduler restarted", res))
}

func (c *researchController) Trigger(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Trigger(ctx.Context(), userId, ctx.QueryBool("wait", false))
	if err != nil {
		return err
	}
	if res.Queued {
		return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Research queued", res))
	}
	return ctx.JSON(serverutils.SuccessResponse("Research finished", res))
}

func (c *researchController) UpdateConfig(ctx *fiber.Ctx) error {
	var req dto.UpdateResearchConfigRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdateConfig(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Research configuration updated", res))
}

func (c *researchController) GetDrive(ctx *fiber.Ctx) error {
	res := c.service.GetDrive(ctx.Context())
	return ctx.JSON(serverutils.SuccessResponse("Success get drive state", res))
}

func (c *researchController) OverrideDrive(ctx *fiber.Ctx) error {
	var req dto.DriveOverrideRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res := c.service.OverrideDrive(ctx.Context(), &req)
	return ctx.JSON(serverutils.SuccessResponse("Drive state updated", res))
}

func (c *researchController) ListTopics(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.ListTopics(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get topics", res))
}

func (c *researchController) CreateTopic(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateTopicRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateTopic(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create topic", res))
}

func (c *researchController) ListFindings(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	topicId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid topic id")
	}

	var req dto.ListFindingsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.ListFindings(ctx.Context(), userId, topicId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get findings", res))
}

func (c *researchController) RecordEngagement(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.RecordEngagementRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.engagement.RecordEngagement(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Engagement recorded", res))
}
