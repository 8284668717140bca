package controller

import (
	"github.com/lxhmx/text2sql/internal/dto"
	"github.com/lxhmx/text2sql/internal/pkg/serverutils"
	"github.com/lxhmx/text2sql/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ITrainController interface {
	RegisterRoutes(r fiber.Router)
	TrainSQL(ctx *fiber.Ctx) error
	TrainDocument(ctx *fiber.Ctx) error
	TrainManual(ctx *fiber.Ctx) error
	GetTrainingData(ctx *fiber.Ctx) error
	DeleteTrainingData(ctx *fiber.Ctx) error
}

type trainController struct {
	service service.ITrainService
}

func NewTrainController(service service.ITrainService) ITrainController {
	return &trainController{service: service}
}

func (c *trainController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/api")
	h.Post("/train-sql", c.TrainSQL)
	h.Post("/train-document", c.TrainDocument)
	h.Post("/train-manual", c.TrainManual)
	h.Get("/training-data", c.GetTrainingData)
	h.Delete("/training-data", c.DeleteTrainingData)
}

func (c *trainController) TrainSQL(ctx *fiber.Ctx) error {
	res, err := c.service.TrainSQLDirectory(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success train sql directory", res))
}

func (c *trainController) TrainDocument(ctx *fiber.Ctx) error {
	res, err := c.service.TrainDocumentDirectory(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success train document directory", res))
}

func (c *trainController) TrainManual(ctx *fiber.Ctx) error {
	var req dto.TrainManualRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.TrainManual(ctx.Context(), &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success train manual item", nil))
}

func (c *trainController) GetTrainingData(ctx *fiber.Ctx) error {
	res, err := c.service.ListTrainingData(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get training data", res))
}

func (c *trainController) DeleteTrainingData(ctx *fiber.Ctx) error {
	var req dto.DeleteTrainingDataRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if len(req.Ids) == 0 && !req.DeleteAll && req.Type == "" {
		return fiber.NewError(fiber.StatusBadRequest, "nothing to delete: provide ids, a type or delete_all")
	}

	res, err := c.service.DeleteTrainingData(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete training data", res))
}
