package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"faceattend/internal/attempts"
	"faceattend/internal/attendance"
	"faceattend/internal/auth"
	"faceattend/internal/calendar"
	"faceattend/internal/queue"
)

// CheckOut queues an exit time for today's entry. The caller must have
// checked in today.
func (h *Handler) CheckOut(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	ctx := c.Request.Context()
	now := h.now()
	local := now.In(h.loc())

	doc, err := h.Attendance.Get(ctx, claims.Subject)
	if err != nil && !errors.Is(err, attendance.ErrNotFound) {
		h.log().Error("attendance lookup failed", zap.String("user_email", claims.Subject), zap.Error(err))
		fail(c, http.StatusInternalServerError, "attendance lookup failed")
		return
	}
	if !hasEntry(doc, calendar.MonthOf(local).Name(), calendar.DateKeyOf(local)) {
		fail(c, http.StatusConflict, attendance.ErrNoEntryToday.Error())
		return
	}

	msg := queue.NewMessage(queue.TypeCheckOut, claims.Subject, now)
	if err := h.Queue.Publish(ctx, msg); err != nil {
		h.log().Error("queue publish failed", zap.String("user_email", claims.Subject), zap.Error(err))
		fail(c, http.StatusServiceUnavailable, "check-out could not be queued")
		return
	}
	ok(c, http.StatusAccepted, gin.H{
		"queued":   true,
		"date":     calendar.DateKeyOf(local),
		"exitTime": calendar.ClockTime(local),
	})
}

func hasEntry(doc attendance.Document, month, date string) bool {
	m := doc.Month(month)
	if m == nil {
		return false
	}
	for _, r := range m.Records {
		if r.Date == date {
			return true
		}
	}
	return false
}

// MyAttendance renders the caller's calendar. A user who never checked in
// gets an empty view.
func (h *Handler) MyAttendance(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	doc, err := h.Attendance.Get(c.Request.Context(), claims.Subject)
	if errors.Is(err, attendance.ErrNotFound) {
		ok(c, http.StatusOK, h.Reconciler.Document(attendance.Document{UserEmail: claims.Subject}))
		return
	}
	if err != nil {
		h.log().Error("attendance lookup failed", zap.String("user_email", claims.Subject), zap.Error(err))
		fail(c, http.StatusInternalServerError, "attendance lookup failed")
		return
	}
	ok(c, http.StatusOK, h.Reconciler.Document(doc))
}

// MyAttempts lists the caller's recent verification attempts.
func (h *Handler) MyAttempts(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	if h.Attempts == nil {
		fail(c, http.StatusServiceUnavailable, attempts.ErrDisabled.Error())
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	list, err := h.Attempts.ListByUser(c.Request.Context(), claims.Subject, limit)
	if errors.Is(err, attempts.ErrDisabled) {
		fail(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		h.log().Error("attempt log read failed", zap.String("user_email", claims.Subject), zap.Error(err))
		fail(c, http.StatusInternalServerError, "attempt log read failed")
		return
	}
	if list == nil {
		list = []attempts.Attempt{}
	}
	ok(c, http.StatusOK, list)
}

// ---------- Admin ----------

type listItem struct {
	UserEmail       string                   `json:"userEmail"`
	Verified        bool                     `json:"verified"`
	Method          string                   `json:"method"`
	Months          []attendance.MonthRecord `json:"months"`
	TotalAttendance int                      `json:"totalAttendance"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

type pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
}

// ListAttendance pages through all documents, newest first.
func (h *Handler) ListAttendance(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	docs, total, err := h.Attendance.List(c.Request.Context(), page, limit)
	if err != nil {
		h.log().Error("attendance list failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "attendance list failed")
		return
	}

	items := make([]listItem, 0, len(docs))
	for _, d := range docs {
		months := d.Months
		if months == nil {
			months = []attendance.MonthRecord{}
		}
		items = append(items, listItem{
			UserEmail:       d.UserEmail,
			Verified:        d.Verified,
			Method:          d.Method,
			Months:          months,
			TotalAttendance: attendance.TotalAttendance(d),
			CreatedAt:       d.CreatedAt,
			UpdatedAt:       d.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"pagination": pagination{
			Total:      total,
			Page:       page,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// UserAttendance renders one user's calendar.
func (h *Handler) UserAttendance(c *gin.Context) {
	email := c.Param("email")
	doc, err := h.Attendance.Get(c.Request.Context(), email)
	if errors.Is(err, attendance.ErrNotFound) {
		fail(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.log().Error("attendance lookup failed", zap.String("user_email", email), zap.Error(err))
		fail(c, http.StatusInternalServerError, "attendance lookup failed")
		return
	}
	ok(c, http.StatusOK, h.Reconciler.Document(doc))
}
