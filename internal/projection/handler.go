package projection

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	httperr "github.com/aevon-lab/vahan-pulse/internal/core/errors"
	"github.com/aevon-lab/vahan-pulse/internal/core/filter"
	"github.com/aevon-lab/vahan-pulse/internal/dataset"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all analytics API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/filters", s.observed("filters", s.HandleFilters))
	r.GET("/v1/registrations", s.observed("registrations", s.HandleRegistrations))
	r.GET("/v1/views", s.HandleViews)
	r.GET("/v1/trends/:view", s.observed("trends", s.HandleTrends))
	r.GET("/v1/quarters/:view", s.observed("quarters", s.HandleQuarters))
	r.GET("/v1/topline", s.observed("topline", s.HandleTopline))
	r.GET("/v1/share", s.observed("share", s.HandleShare))
	r.GET("/v1/share/latest", s.observed("share_latest", s.HandleLatestShare))
	r.GET("/v1/dashboard", s.observed("dashboard", s.HandleDashboard))
}

// HandleFilters handles GET /v1/filters
func (s *Service) HandleFilters(c *gin.Context) {
	resp, err := s.Filters(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleViews handles GET /v1/views
func (s *Service) HandleViews(c *gin.Context) {
	type viewJSON struct {
		Name        string   `json:"name"`
		KeyColumns  []string `json:"key_columns"`
		LabelColumn string   `json:"label_column"`
		YoYLag      int      `json:"yoy_lag"`
		Fingerprint string   `json:"fingerprint,omitempty"`
	}

	views := s.Views()
	out := make([]viewJSON, 0, len(views))
	for _, v := range views {
		out = append(out, viewJSON{
			Name:        v.Name,
			KeyColumns:  v.KeyColumns,
			LabelColumn: v.LabelColumn,
			YoYLag:      v.YoYLag,
			Fingerprint: v.Fingerprint,
		})
	}
	c.JSON(http.StatusOK, gin.H{"views": out})
}

// HandleRegistrations handles GET /v1/registrations
// Query parameters: date_from, date_to, class, manufacturer, state
func (s *Service) HandleRegistrations(c *gin.Context) {
	criteria, err := s.parseCriteria(c.Request.URL.Query())
	if err != nil {
		writeError(c, err)
		return
	}
	resp, err := s.Registrations(c.Request.Context(), criteria)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleTrends handles GET /v1/trends/:view
func (s *Service) HandleTrends(c *gin.Context) {
	criteria, err := s.parseCriteria(c.Request.URL.Query())
	if err != nil {
		writeError(c, err)
		return
	}
	resp, err := s.Trends(c.Request.Context(), c.Param("view"), criteria)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleQuarters handles GET /v1/quarters/:view
func (s *Service) HandleQuarters(c *gin.Context) {
	criteria, err := s.parseCriteria(c.Request.URL.Query())
	if err != nil {
		writeError(c, err)
		return
	}
	resp, err := s.Quarters(c.Request.Context(), c.Param("view"), criteria)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleTopline handles GET /v1/topline
func (s *Service) HandleTopline(c *gin.Context) {
	criteria, err := s.parseCriteria(c.Request.URL.Query())
	if err != nil {
		writeError(c, err)
		return
	}
	resp, err := s.Topline(c.Request.Context(), criteria)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleShare handles GET /v1/share
// Query parameters: the filter parameters plus top (0 keeps every manufacturer)
func (s *Service) HandleShare(c *gin.Context) {
	values := c.Request.URL.Query()
	criteria, err := s.parseCriteria(values)
	if err != nil {
		writeError(c, err)
		return
	}
	top, err := parseTop(values, s.opts.ShareTop)
	if err != nil {
		writeError(c, err)
		return
	}
	resp, err := s.Share(c.Request.Context(), criteria, top)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleLatestShare handles GET /v1/share/latest
func (s *Service) HandleLatestShare(c *gin.Context) {
	values := c.Request.URL.Query()
	criteria, err := s.parseCriteria(values)
	if err != nil {
		writeError(c, err)
		return
	}
	top, err := parseTop(values, s.opts.ShareTop)
	if err != nil {
		writeError(c, err)
		return
	}
	resp, err := s.LatestShare(c.Request.Context(), criteria, top)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleDashboard handles GET /v1/dashboard
func (s *Service) HandleDashboard(c *gin.Context) {
	criteria, err := s.parseCriteria(c.Request.URL.Query())
	if err != nil {
		writeError(c, err)
		return
	}
	resp, err := s.Dashboard(c.Request.Context(), criteria)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// parseCriteria parses filters against the names of the current snapshot.
// Without a snapshot every list value is split; the query itself then fails.
func (s *Service) parseCriteria(values url.Values) (filter.Criteria, error) {
	var known KnownValues
	if snap, err := s.snapshot(); err == nil {
		known = KnownValuesOf(snap.Records)
	}
	return ParseCriteria(values, known)
}

func (s *Service) observed(endpoint string, h gin.HandlerFunc) gin.HandlerFunc {
	if s.opts.Metrics == nil {
		return h
	}
	return func(c *gin.Context) {
		start := time.Now()
		h(c)
		s.opts.Metrics.ObserveQuery(endpoint, time.Since(start))
	}
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid analytics query",
			Details:   err.Error(),
		})
	case errors.Is(err, ErrViewNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpViewNotFoundError,
			Message:   "Unknown analytics view",
			Details:   err.Error(),
		})
	case errors.Is(err, dataset.ErrNoSnapshot):
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpDatasetUnavailable,
			Message:   "Dataset is not loaded yet",
		})
	default:
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to compute analytics",
			Details:   err.Error(),
		})
	}
}
