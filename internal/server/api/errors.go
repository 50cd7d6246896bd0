package api

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/aiexplorer/internal/common"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	Retryable *bool  `json:"retryable,omitempty"`
}

type errorMapping struct {
	target    error
	status    int
	code      string
	detail    bool
	retryable *bool
}

func boolPtr(b bool) *bool { return &b }

// errorMappings is checked in order; the first errors.Is match wins.
var errorMappings = []errorMapping{
	{target: common.ErrorValidation, status: http.StatusBadRequest, code: "validation_error", detail: true},
	{target: common.ErrInvalidCredentials, status: http.StatusUnauthorized, code: "invalid_credentials"},
	{target: common.ErrTokenExpired, status: http.StatusUnauthorized, code: "token_expired"},
	{target: common.ErrInvalidToken, status: http.StatusUnauthorized, code: "invalid_token"},
	{target: common.ErrorForbidden, status: http.StatusForbidden, code: "forbidden"},
	{target: common.ErrorNotFound, status: http.StatusNotFound, code: "not_found"},
	{target: common.ErrDuplicateUser, status: http.StatusConflict, code: "duplicate_user"},
	{target: common.ErrUpstreamRejected, status: http.StatusUnprocessableEntity, code: "upstream_rejected", retryable: boolPtr(false)},
	{target: common.ErrUpstreamUnavailable, status: http.StatusBadGateway, code: "upstream_unavailable", retryable: boolPtr(true)},
	{target: common.ErrUpstreamProtocolError, status: http.StatusBadGateway, code: "upstream_protocol_error", retryable: boolPtr(true)},
}

// statusFor maps a service error to its HTTP status and response body.
// Anything unrecognised is a 500 without detail.
func statusFor(err error) (int, errorResponse) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			resp := errorResponse{Error: m.code, Retryable: m.retryable}
			if m.detail {
				resp.Detail = err.Error()
			}
			return m.status, resp
		}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal_error"}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, body := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, body)
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: "validation_error", Detail: err.Error()})
}
