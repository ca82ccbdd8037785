package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-quest-api/internal/dto"
	"github.com/noah-isme/classroom-quest-api/internal/middleware"
	"github.com/noah-isme/classroom-quest-api/internal/models"
)

type fakeProofSubmitter struct {
	result      *dto.SubmissionResult
	challengeID string
	image       []byte
}

func (f *fakeProofSubmitter) SubmitChallengeProof(_ context.Context, _ *models.Session, challengeID string, image []byte) (*dto.SubmissionResult, error) {
	f.challengeID = challengeID
	f.image = image
	return f.result, nil
}

func proofRequestContext(t *testing.T, image []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if image != nil {
		part, err := writer.CreateFormFile("image", "proof.jpg")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/challenges/ch-1/proofs", body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	c.Params = gin.Params{{Key: "id", Value: "ch-1"}}
	c.Set(middleware.ContextUserKey, studentSession())
	return c, rec
}

func TestChallengeHandlerSubmitProofAccepted(t *testing.T) {
	proofs := &fakeProofSubmitter{result: &dto.SubmissionResult{Accepted: true, PointsAwarded: 10, CurrentCount: 1, Target: 7}}
	handler := NewChallengeHandler(nil, proofs)

	c, rec := proofRequestContext(t, []byte("jpeg-bytes"))
	handler.SubmitProof(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ch-1", proofs.challengeID)
	assert.Equal(t, []byte("jpeg-bytes"), proofs.image)
}

func TestChallengeHandlerSubmitProofRejected(t *testing.T) {
	proofs := &fakeProofSubmitter{result: &dto.SubmissionResult{Accepted: false, Reason: "not a book"}}
	handler := NewChallengeHandler(nil, proofs)

	c, rec := proofRequestContext(t, []byte("jpeg-bytes"))
	handler.SubmitProof(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "not a book")
}

func TestChallengeHandlerSubmitProofRequiresImage(t *testing.T) {
	proofs := &fakeProofSubmitter{}
	handler := NewChallengeHandler(nil, proofs)

	c, rec := proofRequestContext(t, nil)
	handler.SubmitProof(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, proofs.challengeID)
}
