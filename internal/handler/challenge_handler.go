package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-quest-api/internal/dto"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
	"github.com/noah-isme/classroom-quest-api/pkg/response"
)

// MaxProofBytes bounds uploaded proof images.
const MaxProofBytes = 10 << 20

type challengeService interface {
	List(ctx context.Context, session *models.Session) ([]models.ChallengeItem, error)
	Create(ctx context.Context, session *models.Session, req dto.CreateChallengeRequest) (*models.ChallengeItem, error)
	Delete(ctx context.Context, session *models.Session, id string) error
}

type proofSubmitter interface {
	SubmitChallengeProof(ctx context.Context, session *models.Session, challengeID string, image []byte) (*dto.SubmissionResult, error)
}

// ChallengeHandler exposes challenge endpoints.
type ChallengeHandler struct {
	service challengeService
	proofs  proofSubmitter
}

// NewChallengeHandler constructs a challenge handler.
func NewChallengeHandler(service challengeService, proofs proofSubmitter) *ChallengeHandler {
	return &ChallengeHandler{service: service, proofs: proofs}
}

// List godoc
// @Summary List challenges
// @Tags Challenges
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /challenges [get]
func (h *ChallengeHandler) List(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	challenges, err := h.service.List(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, challenges, nil)
}

// Create godoc
// @Summary Create challenge
// @Tags Challenges
// @Accept json
// @Produce json
// @Param payload body dto.CreateChallengeRequest true "Challenge payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /challenges [post]
func (h *ChallengeHandler) Create(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateChallengeRequest
	if !bindJSON(c, &req, "invalid challenge payload") {
		return
	}
	challenge, err := h.service.Create(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, challenge)
}

// Delete godoc
// @Summary Delete challenge
// @Tags Challenges
// @Param id path string true "Challenge ID"
// @Success 204 {object} response.Envelope
// @Router /challenges/{id} [delete]
func (h *ChallengeHandler) Delete(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), session, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SubmitProof godoc
// @Summary Submit challenge proof
// @Description Uploads a proof photo. A rejected photo returns accepted=false and stores nothing.
// @Tags Challenges
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Challenge ID"
// @Param image formData file true "Proof image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /challenges/{id}/proofs [post]
func (h *ChallengeHandler) SubmitProof(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	header, err := c.FormFile("image")
	if err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "image file is required"))
		return
	}
	if header.Size > MaxProofBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "image exceeds the upload limit"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "unreadable image"))
		return
	}
	defer file.Close() //nolint:errcheck

	image, err := io.ReadAll(io.LimitReader(file, MaxProofBytes))
	if err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "unreadable image"))
		return
	}

	result, err := h.proofs.SubmitChallengeProof(c.Request.Context(), session, c.Param("id"), image)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusCreated
	if !result.Accepted {
		status = http.StatusOK
	}
	response.JSON(c, status, result, nil)
}
