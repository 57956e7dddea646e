package http

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/melih/dirg/internal/core/domain"
)

// DefaultTail is the number of log lines returned when tail is not given.
const DefaultTail = "100"

// StatusService is the read-only subset of the container operations the API
// exposes.
type StatusService interface {
	Status(ctx context.Context, spec domain.ContainerSpec) (*domain.ContainerStatus, error)
	Logs(ctx context.Context, spec domain.ContainerSpec, opts domain.LogOptions) (domain.Stream[domain.LogLine], error)
}

type ServiceHandler struct {
	topology *domain.Topology
	service  StatusService
}

func NewServiceHandler(topology *domain.Topology, service StatusService) *ServiceHandler {
	return &ServiceHandler{topology: topology, service: service}
}

// Register mounts the routes on router.
func (h *ServiceHandler) Register(router fiber.Router) {
	services := router.Group("/services")
	services.Get("/", h.ListServices)
	services.Get("/:name", h.GetService)
	services.Get("/:name/status", h.GetServiceStatus)
	services.Get("/:name/containers/:container/logs", h.GetContainerLogs)
}

type serviceSummary struct {
	Name       string   `json:"name"`
	Containers []string `json:"containers"`
}

func (h *ServiceHandler) ListServices(c *fiber.Ctx) error {
	names := h.topology.ServiceNames()
	summaries := make([]serviceSummary, 0, len(names))
	for _, name := range names {
		svc := h.topology.Services[name]
		summaries = append(summaries, serviceSummary{Name: name, Containers: svc.ContainerNames()})
	}
	return c.JSON(summaries)
}

func (h *ServiceHandler) GetService(c *fiber.Ctx) error {
	svc, ok := h.topology.Service(c.Params("name"))
	if !ok {
		return notFound(c, "Invalid service "+c.Params("name"))
	}
	return c.JSON(svc)
}

type containerStatus struct {
	Container string                  `json:"container"`
	Host      string                  `json:"docker_host,omitempty"`
	Available bool                    `json:"available"`
	Status    *domain.ContainerStatus `json:"status"`
}

// GetServiceStatus reports every container of the service. Unreachable
// containers are listed as unavailable.
func (h *ServiceHandler) GetServiceStatus(c *fiber.Ctx) error {
	svc, ok := h.topology.Service(c.Params("name"))
	if !ok {
		return notFound(c, "Invalid service "+c.Params("name"))
	}

	result := make([]containerStatus, 0, len(svc.Containers))
	for _, spec := range svc.Containers {
		status, err := h.service.Status(c.Context(), spec)
		if err != nil {
			return failure(c, err)
		}
		result = append(result, containerStatus{
			Container: spec.Name,
			Host:      spec.DockerHost,
			Available: status != nil,
			Status:    status,
		})
	}
	return c.JSON(result)
}

// GetContainerLogs returns the last lines of a container's output. Logs are
// never followed.
func (h *ServiceHandler) GetContainerLogs(c *fiber.Ctx) error {
	svc, ok := h.topology.Service(c.Params("name"))
	if !ok {
		return notFound(c, "Invalid service "+c.Params("name"))
	}

	var spec *domain.ContainerSpec
	for i := range svc.Containers {
		if svc.Containers[i].Name == c.Params("container") {
			spec = &svc.Containers[i]
			break
		}
	}
	if spec == nil {
		return notFound(c, "Container "+c.Params("container")+" is not part of service "+svc.Name)
	}

	stream, err := h.service.Logs(c.Context(), *spec, domain.LogOptions{Tail: c.Query("tail", DefaultTail)})
	if err != nil {
		return failure(c, err)
	}
	defer stream.Close()

	var out strings.Builder
	for {
		line, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return failure(c, err)
		}
		out.WriteString(line.Text)
		out.WriteByte('\n')
	}

	c.Set("Content-Type", "text/plain")
	return c.SendString(out.String())
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": msg,
	})
}

func failure(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	var unresolved *domain.EndpointUnresolvedError
	switch {
	case domain.IsNotFound(err):
		status = fiber.StatusNotFound
	case errors.As(err, &unresolved):
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
