package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"faceattend/internal/attempts"
	"faceattend/internal/auth"
	"faceattend/internal/cloudinary"
	"faceattend/internal/face"
	"faceattend/internal/metrics"
	"faceattend/internal/queue"
	"faceattend/internal/users"
)

// maxUploadBytes bounds captured frames and profile pictures.
const maxUploadBytes = 10 << 20

// maxDataURLBytes bounds a JSON body carrying a base64 data URL of at most
// maxUploadBytes.
const maxDataURLBytes = maxUploadBytes/3*4 + 64<<10

var errImageTooLarge = errors.New("image too large")

type verifyResponse struct {
	Outcome   face.Outcome `json:"outcome"`
	Distance  float64      `json:"distance,omitempty"`
	Match     bool         `json:"match"`
	Threshold float64      `json:"threshold"`
	Retry     bool         `json:"retry"`
	Queued    bool         `json:"queued"`
	AttemptID string       `json:"attempt_id,omitempty"`
}

// Verify compares a live capture with the caller's profile picture. A match
// queues today's check-in and answers 202.
func (h *Handler) Verify(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	email := claims.Subject
	ctx := c.Request.Context()

	live, err := readImage(c, "live")
	if err != nil {
		fail(c, imageStatus(err), err.Error())
		return
	}

	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		fail(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.log().Error("user lookup failed", zap.String("user_email", email), zap.Error(err))
		fail(c, http.StatusInternalServerError, "user lookup failed")
		return
	}
	if u.ProfilePicture == "" {
		fail(c, http.StatusConflict, users.ErrNoReferenceImage.Error())
		return
	}

	reference, err := h.fetchReference(ctx, u.ProfilePicture)
	if err != nil {
		h.log().Error("reference image fetch failed", zap.String("user_email", email), zap.Error(err))
		fail(c, http.StatusBadGateway, "reference image unavailable")
		return
	}

	res, err := h.Gate.Verify(ctx, live, reference)
	if err != nil {
		metrics.Verifications.WithLabelValues("error").Inc()
		h.recordAttempt(ctx, attempts.Attempt{UserEmail: email, Outcome: "error", Error: err.Error()})
		status, msg := verifyErrorStatus(err)
		h.log().Error("verification failed", zap.String("user_email", email), zap.Error(err))
		fail(c, status, msg)
		return
	}

	metrics.Verifications.WithLabelValues(string(res.Outcome)).Inc()
	if res.Outcome != face.OutcomeNoFaceDetected {
		metrics.VerificationDistance.Observe(res.Distance)
	}

	resp := verifyResponse{
		Outcome:   res.Outcome,
		Distance:  res.Distance,
		Match:     res.Match,
		Threshold: res.Threshold,
		Retry:     res.Retry(),
	}

	status := http.StatusOK
	if res.Outcome == face.OutcomeMatched {
		msg := queue.NewMessage(queue.TypeCheckIn, u.Email, h.now())
		msg.Distance = res.Distance
		if err := h.Queue.Publish(ctx, msg); err != nil {
			h.log().Error("queue publish failed", zap.String("user_email", email), zap.Error(err))
			h.recordAttempt(ctx, attemptFor(email, res, false))
			fail(c, http.StatusServiceUnavailable, "check-in could not be queued")
			return
		}
		resp.Queued = true
		status = http.StatusAccepted
	}

	a := h.recordAttempt(ctx, attemptFor(email, res, resp.Queued))
	resp.AttemptID = a.ID

	h.log().Info("verification decided",
		zap.String("user_email", email),
		zap.String("outcome", string(res.Outcome)),
		zap.Float64("distance", res.Distance),
		zap.Bool("queued", resp.Queued))
	ok(c, status, resp)
}

func attemptFor(email string, res face.Result, queued bool) attempts.Attempt {
	a := attempts.Attempt{UserEmail: email, Outcome: string(res.Outcome), Queued: queued}
	if res.Outcome != face.OutcomeNoFaceDetected {
		d := res.Distance
		a.Distance = &d
	}
	return a
}

func (h *Handler) recordAttempt(ctx context.Context, a attempts.Attempt) attempts.Attempt {
	if h.Attempts == nil {
		return a
	}
	saved, err := h.Attempts.Record(ctx, a)
	if err != nil {
		h.log().Warn("attempt log write failed", zap.String("user_email", a.UserEmail), zap.Error(err))
		return a
	}
	return saved
}

func (h *Handler) fetchReference(ctx context.Context, url string) ([]byte, error) {
	if h.Images != nil {
		return h.Images.Fetch(ctx, url)
	}
	return cloudinary.Fetch(ctx, nil, url)
}

func verifyErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, face.ErrDecodeImage):
		return http.StatusBadRequest, "image could not be decoded"
	case errors.Is(err, face.ErrModelLoad):
		return http.StatusServiceUnavailable, "face models unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "verification timed out"
	default:
		return http.StatusBadGateway, "face engine error"
	}
}

// readImage accepts a multipart file under field, or a JSON body whose field
// holds a data URL. Oversized input yields errImageTooLarge.
func readImage(c *gin.Context, field string) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, _, err := c.Request.FormFile(field)
		if err != nil {
			return nil, errors.New(field + " file is required")
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			return nil, errors.New("failed to read " + field)
		}
		if len(data) > maxUploadBytes {
			return nil, errImageTooLarge
		}
		return data, nil
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDataURLBytes)
	var body map[string]string
	if err := c.ShouldBindJSON(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errImageTooLarge
		}
		return nil, errors.New(`provide multipart "` + field + `" or JSON {"` + field + `": "<data URL>"}`)
	}
	if body[field] == "" {
		return nil, errors.New(`provide multipart "` + field + `" or JSON {"` + field + `": "<data URL>"}`)
	}
	data, err := face.DecodeDataURL(body[field])
	if err != nil {
		return nil, err
	}
	if len(data) > maxUploadBytes {
		return nil, errImageTooLarge
	}
	return data, nil
}

// imageStatus maps a readImage error to a response status.
func imageStatus(err error) int {
	if errors.Is(err, errImageTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
