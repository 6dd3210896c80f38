package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/lnmu-portal/internal/ctxutil"
	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
	"github.com/garyellow/lnmu-portal/internal/export"
	"github.com/garyellow/lnmu-portal/internal/portal"
)

const sessionKey = "portal_session"

type tabRequest struct {
	Tab string `json:"tab" binding:"required"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type filterRequest struct {
	Level string `json:"level" binding:"required"`
	Value string `json:"value"`
}

type pageRequest struct {
	Page      int    `json:"page"`
	Direction string `json:"direction"`
}

type profileRequest struct {
	Roll string `json:"roll" binding:"required"`
}

func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		sess, ok := s.store.Get(id)
		if !ok {
			s.reject(c, http.StatusNotFound, "session_not_found", "session not found")
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithSessionID(c.Request.Context(), id))
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func session(c *gin.Context) *portal.Session {
	return c.MustGet(sessionKey).(*portal.Session)
}

func (s *Server) listYears(c *gin.Context) {
	if s.years == nil {
		s.reject(c, http.StatusServiceUnavailable, "unavailable", "years are not available")
		return
	}
	years, err := s.years.Years(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if years == nil {
		years = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"years": years})
}

func (s *Server) createSession(c *gin.Context) {
	sess, err := s.store.Create()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess.Snapshot())
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, session(c).Snapshot())
}

func (s *Server) deleteSession(c *gin.Context) {
	s.store.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) switchTab(c *gin.Context) {
	var req tabRequest
	if !s.bind(c, &req) {
		return
	}
	tab, err := portal.ParseTab(req.Tab)
	if err != nil {
		s.fail(c, err)
		return
	}
	sess := session(c)
	sess.SwitchTab(tab)
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) search(c *gin.Context) {
	var req searchRequest
	if !s.bind(c, &req) {
		return
	}
	sess := session(c)
	_, err := sess.Search(c.Request.Context(), req.Query)
	s.respond(c, sess, err)
}

func (s *Server) filter(c *gin.Context) {
	var req filterRequest
	if !s.bind(c, &req) {
		return
	}
	sess := session(c)
	ctx := c.Request.Context()

	var err error
	switch strings.ToLower(req.Level) {
	case "year":
		_, err = sess.SetYear(ctx, req.Value)
	case "college":
		_, err = sess.SetCollege(ctx, req.Value)
	case "course":
		_, err = sess.SetCourse(ctx, req.Value)
	default:
		err = domerrors.NewValidationError("level", "level must be year, college or course")
	}
	s.respond(c, sess, err)
}

func (s *Server) page(c *gin.Context) {
	var req pageRequest
	if !s.bind(c, &req) {
		return
	}
	sess := session(c)
	ctx := c.Request.Context()

	var err error
	switch {
	case req.Direction == "next":
		_, err = sess.NextPage(ctx)
	case req.Direction == "prev":
		_, err = sess.PrevPage(ctx)
	case req.Direction == "" && req.Page > 0:
		_, err = sess.GotoPage(ctx, req.Page)
	default:
		err = domerrors.NewValidationError("page", "give a page number or a direction of next or prev")
	}
	s.respond(c, sess, err)
}

func (s *Server) openProfile(c *gin.Context) {
	var req profileRequest
	if !s.bind(c, &req) {
		return
	}
	sess := session(c)
	_, err := sess.ViewProfile(c.Request.Context(), req.Roll)
	s.respond(c, sess, err)
}

func (s *Server) closeProfile(c *gin.Context) {
	sess := session(c)
	sess.CloseProfile()
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) export(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatPDF)))
	if err != nil {
		s.fail(c, err)
		return
	}
	artifact, err := session(c).RenderReport(c.Request.Context(), c.Query("roll"), format)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+artifact.Name+`"`)
	c.Data(http.StatusOK, artifact.ContentType(), artifact.Data)
}

// respond writes the session snapshot. Fetch failures the session absorbed
// show up there as empty results or a closed profile; anything else fails
// the request.
func (s *Server) respond(c *gin.Context, sess *portal.Session, err error) {
	if err != nil && !portal.Degraded(err) {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.reject(c, http.StatusBadRequest, "bad_request", "invalid request body")
		return false
	}
	return true
}
