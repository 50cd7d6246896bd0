package api

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
	"github.com/dmitrijs2005/aiexplorer/internal/server/services"
	"github.com/gin-gonic/gin"
)

const (
	defaultMaxResults = 10
	defaultDimension  = 512
	defaultSteps      = 20
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Optional fields are pointers so that an explicit zero is rejected by the
// service instead of being replaced by the default.
type searchRequest struct {
	Query      string `json:"query"`
	MaxResults *int   `json:"max_results"`
	SaveResult *bool  `json:"save_result"`
}

type imageRequest struct {
	Prompt     string `json:"prompt"`
	Width      *int   `json:"width"`
	Height     *int   `json:"height"`
	Steps      *int   `json:"steps"`
	SaveResult *bool  `json:"save_result"`
}

func orDefault[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	u, err := s.svc.Users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	pair, err := s.svc.Users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (s *Server) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	pair, err := s.svc.Users.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (s *Server) logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	if err := s.svc.Users.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) profile(c *gin.Context) {
	u, err := s.svc.Users.Profile(c.Request.Context(), callerFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	res, err := s.svc.Search.PerformSearch(c.Request.Context(), callerFrom(c),
		req.Query, orDefault(req.MaxResults, defaultMaxResults), orDefault(req.SaveResult, true))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) image(c *gin.Context) {
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	params := models.ImageParameters{
		Width:  orDefault(req.Width, defaultDimension),
		Height: orDefault(req.Height, defaultDimension),
		Steps:  orDefault(req.Steps, defaultSteps),
	}

	res, err := s.svc.Image.GenerateImage(c.Request.Context(), callerFrom(c), req.Prompt, params, orDefault(req.SaveResult, true))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) history(kind models.RecordKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := pagination(c)
		if err != nil {
			s.badRequest(c, err)
			return
		}

		h, err := s.svc.Records.ListHistory(c.Request.Context(), callerFrom(c), kind, page)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, h)
	}
}

func pagination(c *gin.Context) (services.Pagination, error) {
	var p services.Pagination
	var err error
	if v := c.Query("limit"); v != "" {
		if p.Limit, err = strconv.Atoi(v); err != nil {
			return p, err
		}
	}
	if v := c.Query("offset"); v != "" {
		if p.Offset, err = strconv.Atoi(v); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (s *Server) deleteRecord(kind models.RecordKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.svc.Records.DeleteRecord(c.Request.Context(), callerFrom(c), kind, c.Param("id")); err != nil {
			s.writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) dashboard(c *gin.Context) {
	d, err := s.svc.Dashboard.Dashboard(c.Request.Context(), callerFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.svc.Admin.ListUsers(c.Request.Context(), callerFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) systemStats(c *gin.Context) {
	stats, err := s.svc.Admin.SystemStats(c.Request.Context(), callerFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
