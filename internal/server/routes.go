package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ewh2grid/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/display", s.DisplayHandler)
	e.POST("/command/:name", s.CommandHandler)
	e.POST("/target/import", s.ImportTargetHandler)
	e.POST("/target/export", s.ExportTargetHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) DisplayHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetSnapshotRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "display: FAIL")
	}
	snapshot, ok := res.(domain.GetSnapshotResponse)
	if !ok || snapshot.HasResponseError() {
		return c.String(http.StatusServiceUnavailable, "display: FAIL")
	}

	var b strings.Builder
	props := snapshot.Properties
	fmt.Fprintf(&b, "device op state:        %s\n", snapshot.DeviceState)
	fmt.Fprintf(&b, "commanded state:        %s\n", snapshot.Commanded)
	fmt.Fprintf(&b, "import watts:           %d\n", props.ImportWatts)
	fmt.Fprintf(&b, "import power:           %d\n", props.ImportPower)
	fmt.Fprintf(&b, "import energy:          %d\n", props.ImportEnergy)
	fmt.Fprintf(&b, "rated import power:     %d\n", props.RatedImportPower)
	fmt.Fprintf(&b, "rated import energy:    %d\n", props.RatedImportEnergy)
	fmt.Fprintf(&b, "import ramp:            %d\n", props.ImportRamp)
	fmt.Fprintf(&b, "export watts:           %d\n", props.ExportWatts)
	fmt.Fprintf(&b, "export power:           %d\n", props.ExportPower)
	fmt.Fprintf(&b, "export energy:          %d\n", props.ExportEnergy)
	fmt.Fprintf(&b, "idle losses:            %d\n", props.IdleLosses)
	fmt.Fprintf(&b, "real import power:      %d\n", snapshot.RealImportPower)

	return c.String(http.StatusOK, b.String())
}

func (s *Server) CommandHandler(c echo.Context) error {
	var req domain.ControlRequest
	switch c.Param("name") {
	case "critical_peak":
		req = domain.CriticalPeakRequest{}
	case "load_up":
		req = domain.LoadUpRequest{}
	case "grid_emergency":
		req = domain.GridEmergencyRequest{}
	case "end_shed":
		req = domain.EndCurtailmentRequest{}
	case "shed":
		req = domain.ShedRequest{}
	default:
		return c.String(http.StatusBadRequest, "unknown command")
	}

	res, err := s.rootContext.RequestFuture(s.masterActor, req, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "command: FAIL")
	}
	response, ok := res.(domain.ControlResponse)
	if !ok || response.HasResponseError() {
		return c.String(http.StatusServiceUnavailable, "command: FAIL")
	}
	return c.String(http.StatusOK, fmt.Sprintf("commanded: %s", response.Commanded))
}

func (s *Server) ImportTargetHandler(c echo.Context) error {
	return s.targetHandler(c, func(watts uint32) domain.ControlRequest {
		return domain.SetImportTargetRequest{Watts: watts}
	})
}

func (s *Server) ExportTargetHandler(c echo.Context) error {
	return s.targetHandler(c, func(watts uint32) domain.ControlRequest {
		return domain.SetExportTargetRequest{Watts: watts}
	})
}

func (s *Server) targetHandler(c echo.Context, build func(uint32) domain.ControlRequest) error {
	watts, err := strconv.ParseUint(c.FormValue("watts"), 10, 32)
	if err != nil {
		return c.String(http.StatusBadRequest, "watts must be an unsigned integer")
	}

	res, err := s.rootContext.RequestFuture(s.masterActor, build(uint32(watts)), 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "target: FAIL")
	}
	response, ok := res.(domain.SetTargetResponse)
	if !ok || response.HasResponseError() {
		return c.String(http.StatusServiceUnavailable, "target: FAIL")
	}
	return c.String(http.StatusOK, "target: OK")
}
