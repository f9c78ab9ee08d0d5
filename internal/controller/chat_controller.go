package controller

import (
	"bufio"
	"encoding/json"
	"fmt"

	"ai-research-agent-be/internal/dto"
	"ai-research-agent-be/internal/pkg/serverutils"
	"ai-research-agent-be/internal/service"
	"ai-research-agent-be/pkg/agent/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Send(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
}

type chatController struct {
	researchService service.IResearchService
}

func NewChatController(researchService service.IResearchService) IChatController {
	return &chatController{
		researchService: researchService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("", c.Send)
	h.Post("stream", c.Stream)
}

// Send runs the full research workflow and returns the answer in one
// response body.
func (c *chatController) Send(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.researchService.SendChat(ctx.Context(), &req)
	if err != nil {
		if err.Error() == "chat session not found" {
			return fiber.NewError(fiber.StatusNotFound, "Chat session not found")
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

// Stream runs the workflow in the background and relays its lifecycle
// events over Server-Sent Events. The stream always ends with a single
// terminal event (complete or error) before the connection closes.
func (c *chatController) Stream(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	events, err := c.researchService.StreamChat(ctx.Context(), &req)
	if err != nil {
		if err.Error() == "chat session not found" {
			return fiber.NewError(fiber.StatusNotFound, "Chat session not found")
		}
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		for evt := range events {
			if err := writeSSE(w, evt); err != nil {
				// Client disconnected; drain so the run can finish and
				// persist.
				for range events {
				}
				return
			}
		}
	}))

	return nil
}

func writeSSE(w *bufio.Writer, evt stream.Event) error {
	data, err := json.Marshal(evt.Data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data); err != nil {
		return err
	}
	return w.Flush()
}
