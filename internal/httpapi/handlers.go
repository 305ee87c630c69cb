package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"listenline/internal/auth"
	"listenline/internal/calls"
	"listenline/internal/listener"
	"listenline/internal/match"
	"listenline/internal/rating"
	"listenline/internal/rbac"
	"listenline/internal/reporting"
	"listenline/internal/rtc"
	"listenline/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth      *auth.Manager
	Listeners *listener.Service
	Calls     *calls.Service
	Match     *match.Selector
	Ratings   *rating.Service
	RTC       rtc.TokenProvider
	Reports   *reporting.Service
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Calls ---

func (h Handlers) CreateCall(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "forbidden"})
		return
	}
	var req calls.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	call, err := h.Calls.CreateSession(c.Request.Context(), uid, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, call)
}

type transitionRequest struct {
	Status          string `json:"status"`
	DurationSeconds *int   `json:"duration_seconds"`
}

func (h Handlers) TransitionCall(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "forbidden"})
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	call, err := h.Calls.Transition(c.Request.Context(), uid, c.Param("call_id"), calls.CallStatus(req.Status), req.DurationSeconds)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

func (h Handlers) GetCall(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "forbidden"})
		return
	}
	call, err := h.Calls.GetForParty(c.Request.Context(), uid, c.Param("call_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

// RTCToken mints a media-room credential for one leg of a call.
// Party-only: the call lookup enforces it before any minting.
func (h Handlers) RTCToken(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "forbidden"})
		return
	}
	call, err := h.Calls.GetForParty(c.Request.Context(), uid, c.Param("call_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	role := "listener"
	if call.CallerID == uid {
		role = "caller"
	}
	tok, err := h.RTC.MintToken(c.Request.Context(), rtc.TokenRequest{CallID: call.ID, Identity: uid, Role: role})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tok)
}

// --- Listeners ---

func (h Handlers) Heartbeat(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "forbidden"})
		return
	}
	if err := h.Listeners.Heartbeat(c.Request.Context(), uid, c.Param("listener_id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type availabilityRequest struct {
	IsAvailable *bool `json:"is_available"`
}

func (h Handlers) SetAvailability(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "forbidden"})
		return
	}
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsAvailable == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.Listeners.SetAvailability(c.Request.Context(), uid, c.Param("listener_id"), *req.IsAvailable); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_available": *req.IsAvailable})
}

func (h Handlers) GetListener(c *gin.Context) {
	sum, err := h.Listeners.GetSummary(c.Request.Context(), c.Param("listener_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// RandomListener implements the "talk to anyone" entry point.
func (h Handlers) RandomListener(c *gin.Context) {
	picked, err := h.Match.Pick(c.Request.Context(), c.Query("exclude"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, picked.Summarize(time.Now().UTC()))
}

// ListenerSummary reports a listener's calls and earnings over a range.
// Restricted to the listener's own user or an admin.
func (h Handlers) ListenerSummary(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "forbidden"})
		return
	}
	role, _ := auth.Role(c.Request.Context())
	listenerID := c.Param("listener_id")

	if !rbac.IsAdmin(role) {
		own, err := h.Listeners.ResolveOwn(c.Request.Context(), uid)
		if err != nil || own.ID != listenerID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
	}

	rng, err := parseRange(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	callsSum, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{ListenerID: listenerID, Range: rng})
	if err != nil {
		h.writeError(c, err)
		return
	}
	earnSum, err := h.Reports.EarningsSummary(c.Request.Context(), reporting.EarningsSummaryRequest{ListenerID: listenerID, Range: rng})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": callsSum, "earnings": earnSum})
}

func parseRange(c *gin.Context) (reporting.TimeRange, error) {
	now := time.Now().UTC()
	rng := reporting.TimeRange{From: now.AddDate(0, 0, -30), To: now}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return reporting.TimeRange{}, err
		}
		rng.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return reporting.TimeRange{}, err
		}
		rng.To = t
	}
	return rng, nil
}

// --- Ratings ---

func (h Handlers) SubmitRating(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "forbidden"})
		return
	}
	var req rating.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	rt, err := h.Ratings.Submit(c.Request.Context(), uid, c.Param("call_id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rt)
}

func (h Handlers) ListRatings(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		limit = n
	}
	out, err := h.Ratings.ListForListener(c.Request.Context(), c.Param("listener_id"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": out})
}

// writeError maps service sentinels to stable reason codes. Unknown
// errors log and surface as internal; clients retry the whole operation
// (terminal call writes are idempotent under retry).
func (h Handlers) writeError(c *gin.Context, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, calls.ErrListenerNotFound):
		status, code = http.StatusNotFound, "listener_not_found"
	case errors.Is(err, calls.ErrListenerUnavailable):
		status, code = http.StatusConflict, "listener_unavailable"
	case errors.Is(err, calls.ErrListenerBusy):
		status, code = http.StatusConflict, "listener_busy"
	case errors.Is(err, calls.ErrNotFound), errors.Is(err, listener.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, calls.ErrForbidden), errors.Is(err, listener.ErrForbidden), errors.Is(err, rating.ErrNotCaller):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, calls.ErrIllegalTransition):
		status, code = http.StatusConflict, "illegal_transition"
	case errors.Is(err, calls.ErrInvalidStatus):
		status, code = http.StatusBadRequest, "invalid_status"
	case errors.Is(err, rating.ErrCallNotCompleted):
		status, code = http.StatusConflict, "call_not_completed"
	case errors.Is(err, rating.ErrAlreadyRated):
		status, code = http.StatusConflict, "already_rated"
	case errors.Is(err, rating.ErrOutOfRange):
		status, code = http.StatusBadRequest, "out_of_range"
	case errors.Is(err, match.ErrNoListenerAvailable):
		status, code = http.StatusNotFound, "no_listener_available"
	case errors.Is(err, calls.ErrInvalidArgument),
		errors.Is(err, rating.ErrInvalidArgument),
		errors.Is(err, listener.ErrInvalidArgument),
		errors.Is(err, reporting.ErrInvalidRequest):
		status, code = http.StatusBadRequest, "invalid_request"
	default:
		logger.From(c.Request.Context()).Error("request failed", "path", c.FullPath(), "err", err)
		status, code = http.StatusInternalServerError, "internal"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}
