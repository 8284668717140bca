package controller

import (
	"io"

	"github.com/lxhmx/text2sql/internal/dto"
	"github.com/lxhmx/text2sql/internal/pkg/serverutils"
	"github.com/lxhmx/text2sql/internal/service"

	"github.com/gofiber/fiber/v2"
)

// maxUploadSize bounds a single training file upload.
const maxUploadSize = 10 << 20 // 10 MiB

type IDataManageController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	Activity(ctx *fiber.Ctx) error
	ListFiles(ctx *fiber.Ctx) error
	DeleteFiles(ctx *fiber.Ctx) error
}

type dataManageController struct {
	service service.IDataManageService
}

func NewDataManageController(service service.IDataManageService) IDataManageController {
	return &dataManageController{service: service}
}

func (c *dataManageController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/api")
	h.Post("/upload", c.Upload)
	h.Get("/data-manage/stats", c.Stats)
	h.Get("/data-manage/activity", c.Activity)
	h.Get("/data-manage/files", c.ListFiles)
	h.Delete("/data-manage/files", c.DeleteFiles)
}

func (c *dataManageController) Upload(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing file field")
	}
	if fileHeader.Size > maxUploadSize {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "file too large")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	res, err := c.service.SaveUpload(ctx.Context(), fileHeader.Filename, content, ctx.FormValue("train_type"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return ctx.JSON(serverutils.SuccessResponse("Success upload file", res))
}

func (c *dataManageController) Stats(ctx *fiber.Ctx) error {
	res, err := c.service.Stats(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get data stats", res))
}

func (c *dataManageController) Activity(ctx *fiber.Ctx) error {
	res, err := c.service.Activity(ctx.Context(), ctx.QueryInt("days", 7))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get training activity", res))
}

func (c *dataManageController) ListFiles(ctx *fiber.Ctx) error {
	page := ctx.QueryInt("page", 1)
	limit := ctx.QueryInt("limit", 20)
	trainType := ctx.Query("train_type")
	status := ctx.Query("status")

	res, err := c.service.ListFiles(ctx.Context(), page, limit, trainType, status)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list files", res))
}

func (c *dataManageController) DeleteFiles(ctx *fiber.Ctx) error {
	var req dto.DeleteFilesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if len(req.Ids) == 0 && !req.DeleteAll {
		return fiber.NewError(fiber.StatusBadRequest, "provide ids or set delete_all")
	}

	res, err := c.service.DeleteFiles(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete files", res))
}
