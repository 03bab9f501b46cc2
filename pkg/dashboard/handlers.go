package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"ServingDashboard/pkg/graphing"
	"ServingDashboard/pkg/polling"
	"ServingDashboard/pkg/series"
)

func (s *Server) page(c *gin.Context) {
	snap := s.catalog.Snapshot()
	info := graphing.PageInfo{
		Title:         "Serving dashboard",
		Session:       s.session,
		Tick:          snap.Tick,
		MaxSamples:    snap.MaxSamples,
		Period:        s.period,
		Live:          true,
		EventsURL:     "/api/events",
		RefreshMillis: s.period.Milliseconds(),
	}

	var buf bytes.Buffer
	if err := graphing.RenderHTML(&buf, info, snap.Families); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) getCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.Snapshot())
}

func (s *Server) getCatalogStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.Stats())
}

func (s *Server) getFamily(c *gin.Context) {
	f, err := s.catalog.Family(c.Param("name"))
	if errors.Is(err, series.ErrUnknownFamily) {
		abortWithError(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *Server) getPollers(c *gin.Context) {
	out := make([]polling.PollerStats, 0, len(s.pollers))
	for _, p := range s.pollers {
		out = append(out, p.Stats())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) streamEvents(c *gin.Context) {
	events, cancel := s.hub.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// The handshake is not a tick: pages reload on tick events only.
	c.SSEvent(EventHello, Event{Type: EventHello, Tick: s.catalog.Now()})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.backend.StatusBoard(c.Request.Context()))
}

func (s *Server) getConfiguration(c *gin.Context) {
	c.JSON(http.StatusOK, s.backend.ConfigurationBoard(c.Request.Context()))
}

func (s *Server) getModels(c *gin.Context) {
	models, err := s.backend.Models(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, models)
}

func (s *Server) getContainers(c *gin.Context) {
	rows, err := s.backend.ContainersTable(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) getRequests(c *gin.Context) {
	maxReqs := s.maxRequests
	if q := c.Query("max_reqs"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			abortWithError(c, http.StatusBadRequest, fmt.Errorf("invalid max_reqs: %q", q))
			return
		}
		maxReqs = n
	}
	s.writeRaw(c, func(ctx context.Context) (json.RawMessage, error) { return s.backend.RequestsTable(ctx, maxReqs) })
}

func (s *Server) resetRequests(c *gin.Context) {
	if err := s.backend.ResetRequests(c.Request.Context()); err != nil {
		abortWithError(c, http.StatusBadGateway, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// raw serves a JSON body fetched from a service as is.
func (s *Server) raw(fetch func(context.Context) (json.RawMessage, error)) gin.HandlerFunc {
	return func(c *gin.Context) { s.writeRaw(c, fetch) }
}

func (s *Server) writeRaw(c *gin.Context, fetch func(context.Context) (json.RawMessage, error)) {
	body, err := fetch(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusBadGateway, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
