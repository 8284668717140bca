package controller

import (
	"bufio"
	"context"
	"strings"

	"github.com/lxhmx/text2sql/internal/constant"
	"github.com/lxhmx/text2sql/internal/dto"
	"github.com/lxhmx/text2sql/internal/pkg/serverutils"
	"github.com/lxhmx/text2sql/internal/service"
	"github.com/lxhmx/text2sql/pkg/sse"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

type IQueryController interface {
	RegisterRoutes(r fiber.Router)
	Query(ctx *fiber.Ctx) error
	QueryStream(ctx *fiber.Ctx) error
	QueryAgent(ctx *fiber.Ctx) error
}

type queryController struct {
	queryService service.IQueryService
	agentService service.IAgentService
}

func NewQueryController(queryService service.IQueryService, agentService service.IAgentService) IQueryController {
	return &queryController{
		queryService: queryService,
		agentService: agentService,
	}
}

func (c *queryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/api")
	h.Post("/query", c.Query)
	h.Post("/query-stream", c.QueryStream)
	h.Post("/query-agent", c.QueryAgent)
}

func (c *queryController) Query(ctx *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.queryService.Query(ctx.Context(), &req)
	if err != nil {
		return err
	}
	if res.Rejected {
		return ctx.JSON(serverutils.Response[*dto.QueryResponse]{
			Success: false,
			Code:    fiber.StatusOK,
			Message: res.Answer,
			Data:    res,
		})
	}

	return ctx.JSON(serverutils.SuccessResponse("Success query", res))
}

func (c *queryController) QueryStream(ctx *fiber.Ctx) error {
	return c.stream(ctx, c.queryService.StreamQuery)
}

func (c *queryController) QueryAgent(ctx *fiber.Ctx) error {
	return c.stream(ctx, c.agentService.Respond)
}

// stream parses the request and hands the connection to a streaming producer.
// The request body must be read before the handler returns; the producer runs
// inside fasthttp's body stream writer with a detached context, cancelled when
// a write to the client fails.
func (c *queryController) stream(ctx *fiber.Ctx, produce func(context.Context, string, string, *sse.Stream)) error {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	question := strings.TrimSpace(req.Question)
	sessionID := req.SessionID

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		streamCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		stream := sse.NewStream(w, cancel)
		if question == "" {
			_ = stream.Error(constant.MsgEmptyQuestion)
			return
		}
		produce(streamCtx, question, sessionID, stream)
	}))

	return nil
}
