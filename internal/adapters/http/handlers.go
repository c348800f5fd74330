package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/urbanlens/urbanlens/internal/core/domain"
)

// CreateJobRequest accepts either a free-form prompt or an already
// structured request. When both are present the prompt wins.
type CreateJobRequest struct {
	Prompt    string   `json:"prompt"`
	Place     string   `json:"place"`
	Year      int      `json:"year"`
	DataTypes []string `json:"data_types"`
}

// CreateJobHandler runs the full pipeline for a prompt or structured
// request and returns the finished job.
func CreateJobHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateJobRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		geoReq := domain.GeoRequest{Place: req.Place, Year: req.Year}
		for _, dt := range req.DataTypes {
			geoReq.Kinds = append(geoReq.Kinds, domain.DatasetKind(dt))
		}

		if strings.TrimSpace(req.Prompt) != "" {
			parsed, err := deps.Parser.Parse(c.UserContext(), req.Prompt)
			if err != nil {
				// Record a failed job so the outcome shows up in listings,
				// same as a geocode failure further down the pipeline.
				job := domain.NewJob(geoReq.Place, geoReq.Year, geoReq.Kinds)
				job.State = domain.StateFailed
				job.Error = fmt.Sprintf("parse prompt: %v", err)
				job.Finalize()
				_ = deps.Jobs.Create(c.UserContext(), job)
				return c.Status(422).JSON(job)
			}
			geoReq.Place = parsed.Place
			if len(geoReq.Kinds) == 0 {
				geoReq.Kinds = parsed.Kinds
			}
		}

		if strings.TrimSpace(geoReq.Place) == "" {
			return errBadRequest(c, "prompt or place is required")
		}

		job, err := deps.Pipeline.Run(c.UserContext(), geoReq)
		if job == nil {
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			return errInternal(c, "pipeline returned no job")
		}
		// Job-level failures (unresolvable place, upstream geocoder down)
		// still produce a job record; the status code reflects the cause.
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				return c.Status(422).JSON(job)
			case errors.Is(err, domain.ErrServiceUnavailable):
				return c.Status(502).JSON(job)
			default:
				return c.Status(500).JSON(job)
			}
		}
		return c.Status(201).JSON(job)
	}
}

// ListJobsHandler returns known jobs, newest first, with offset/limit
// pagination.
func ListJobsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		jobs, err := deps.Jobs.List(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		total := len(jobs)
		if offset >= total {
			jobs = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			jobs = jobs[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: jobs, Pagination: pg})
	}
}

// GetJobHandler returns a single job by identifier.
func GetJobHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		job, err := deps.Jobs.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errNotFound(c, "job not found")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(job)
	}
}

// JobManifestHandler serves the persisted manifest for a job.
func JobManifestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := deps.Artifacts.Get(c.UserContext(), c.Params("id"), "manifest.json")
		if err != nil {
			return errNotFound(c, "manifest not found")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	}
}

// ListArtifactsHandler lists artifact names for a job.
func ListArtifactsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := deps.Jobs.Get(c.UserContext(), id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errNotFound(c, "job not found")
			}
			return errInternal(c, err.Error())
		}
		names, err := deps.Artifacts.List(c.UserContext(), id)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if names == nil {
			names = []string{}
		}
		return c.JSON(fiber.Map{"job_id": id, "artifacts": names})
	}
}

// JobArtifactHandler streams a raw artifact (GeoTIFF, preview PNG,
// manifest) by name.
func JobArtifactHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("name")
		data, err := deps.Artifacts.Get(c.UserContext(), c.Params("id"), name)
		if err != nil {
			return errNotFound(c, "artifact not found")
		}
		switch {
		case strings.HasSuffix(name, ".json"):
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		case strings.HasSuffix(name, ".png"):
			c.Set(fiber.HeaderContentType, "image/png")
		case strings.HasSuffix(name, ".tif"), strings.HasSuffix(name, ".tiff"):
			c.Set(fiber.HeaderContentType, "image/tiff")
			c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
		default:
			c.Set(fiber.HeaderContentType, "application/octet-stream")
		}
		return c.Send(data)
	}
}

type promptRequest struct {
	Prompt  string `json:"prompt"`
	Message string `json:"message"`
}

func (r promptRequest) text() string {
	if strings.TrimSpace(r.Prompt) != "" {
		return r.Prompt
	}
	return r.Message
}

// ParseHandler extracts a structured request from a prompt without
// running the pipeline.
func ParseHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req promptRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		prompt := req.text()
		if strings.TrimSpace(prompt) == "" {
			return errBadRequest(c, "prompt is required")
		}
		parsed, err := deps.Parser.Parse(c.UserContext(), prompt)
		if err != nil {
			if errors.Is(err, domain.ErrParseFailure) {
				return errUnprocessable(c, "could not extract a location from the prompt")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(parsed)
	}
}

// ChatHandler returns a conversational confirmation of what the prompt
// was understood to ask for, plus clarification hints.
func ChatHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req promptRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		prompt := req.text()
		if strings.TrimSpace(prompt) == "" {
			return errBadRequest(c, "prompt is required")
		}
		reply, err := deps.Parser.Conversational(c.UserContext(), prompt)
		if err != nil {
			if errors.Is(err, domain.ErrParseFailure) {
				return errUnprocessable(c, "could not understand the request")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(reply)
	}
}
