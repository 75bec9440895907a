package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"faceattend/internal/face"
	"faceattend/internal/users"
)

var unsafeID = regexp.MustCompile(`[^a-z0-9_-]+`)

// publicIDFor derives a stable image id from an email so re-uploads replace
// the previous picture.
func publicIDFor(email string) string {
	return strings.Trim(unsafeID.ReplaceAllString(users.Normalize(email), "_"), "_")
}

// UploadProfilePicture stores a new reference image for a user. The image
// must decode, and must contain a face when the models are available.
func (h *Handler) UploadProfilePicture(c *gin.Context) {
	if h.Images == nil {
		fail(c, http.StatusServiceUnavailable, "image storage not configured")
		return
	}
	email := users.Normalize(c.Param("email"))
	ctx := c.Request.Context()

	if _, err := h.Users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			fail(c, http.StatusNotFound, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, "user lookup failed")
		return
	}

	data, err := readImage(c, "file")
	if err != nil {
		fail(c, imageStatus(err), err.Error())
		return
	}
	img, err := face.DecodeImage(data)
	if err != nil {
		fail(c, http.StatusBadRequest, "image could not be decoded")
		return
	}
	if _, err := h.Gate.ExtractDescriptor(ctx, img); err != nil {
		if errors.Is(err, face.ErrNoFaceDetected) {
			fail(c, http.StatusUnprocessableEntity, "no face detected in image")
			return
		}
		h.log().Warn("reference face check skipped", zap.String("user_email", email), zap.Error(err))
	}

	jpg, err := face.EncodeJPEG(img)
	if err != nil {
		fail(c, http.StatusInternalServerError, "image encode failed")
		return
	}
	id := publicIDFor(email)
	res, err := h.Images.UploadBytes(ctx, jpg, id+".jpg", id)
	if err != nil {
		h.log().Error("image upload failed", zap.String("user_email", email), zap.Error(err))
		fail(c, http.StatusBadGateway, "image upload failed")
		return
	}
	if err := h.Users.SetProfilePicture(ctx, email, res.SecureURL); err != nil {
		h.log().Error("profile picture update failed", zap.String("user_email", email), zap.Error(err))
		fail(c, http.StatusInternalServerError, "profile picture update failed")
		return
	}
	ok(c, http.StatusOK, gin.H{
		"userEmail":      email,
		"profilePicture": res.SecureURL,
		"width":          res.Width,
		"height":         res.Height,
	})
}
