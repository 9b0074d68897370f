/**
* Name: 			record_handler.go
* Description: 		번호 확인, 녹음 등록, 재생 HTTP 핸들러
* Workflow: 		check_number → record(multipart) → listen
 */
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"voicemailboard/internal/claim"
	"voicemailboard/internal/models"
	"voicemailboard/internal/playback"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxUploadBytes = 16 << 20
	multipartMemory       = 4 << 20
)

type Options struct {
	MaxUploadBytes int64
	CaptureOptions
}

type Handler struct {
	workflow       *claim.Workflow
	resolver       *playback.Resolver
	maxUploadBytes int64
	capture        CaptureOptions
	upgrader       websocket.Upgrader
}

func New(workflow *claim.Workflow, resolver *playback.Resolver, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		workflow:       workflow,
		resolver:       resolver,
		maxUploadBytes: opts.MaxUploadBytes,
		capture:        opts.CaptureOptions.withDefaults(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

type AvailabilityResponse struct {
	Available bool `json:"available" example:"true"`
}

type RecordResponse struct {
	Success   bool   `json:"success" example:"true"`
	NewNumber string `json:"newNumber" example:"#1234"`
}

type ListenResponse struct {
	Success bool   `json:"success" example:"true"`
	Link    string `json:"link" example:"/uploads/1234.wav"`
	Number  string `json:"number" example:"#1234"`
}

type ErrorBody struct {
	Message string `json:"message" example:"This number is already in use. Please choose another number."`
}

// CheckNumber godoc
// @Summary      번호 사용 가능 여부 확인
// @Description  번호가 비어 있는지 확인합니다. 결과는 참고용이며 녹음 등록 시 다시 검증됩니다.
// @Tags         Voicemail
// @Produce      json
// @Param        number query    string true "# + 4자리 숫자 (예: #1234)"
// @Success      200    {object} handler.AvailabilityResponse
// @Failure      400    {object} handler.ErrorBody "잘못된 번호 형식"
// @Failure      503    {object} handler.ErrorBody "저장소 연결 실패"
// @Router       /api/check_number [get]
func (h *Handler) CheckNumber(c *gin.Context) {
	available, err := h.workflow.CheckAvailability(c.Request.Context(), c.Query("number"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, AvailabilityResponse{Available: available})
}

// Record godoc
// @Summary      녹음 등록
// @Description  업로드된 오디오를 WAV로 변환해 번호에 저장합니다. 이미 사용 중인 번호는 409를 반환합니다.
// @Tags         Voicemail
// @Accept       multipart/form-data
// @Produce      json
// @Param        number formData string true "# + 4자리 숫자"
// @Param        audio  formData file   true "녹음된 오디오 (webm, ogg, wav, mp4 ...)"
// @Success      201    {object} handler.RecordResponse
// @Failure      400    {object} handler.ErrorBody "번호 형식 오류 또는 오디오 누락"
// @Failure      409    {object} handler.ErrorBody "이미 사용 중인 번호"
// @Failure      413    {object} handler.ErrorBody "업로드 용량 초과"
// @Failure      500    {object} handler.ErrorBody "변환 실패 등 서버 오류"
// @Failure      503    {object} handler.ErrorBody "저장소 연결 실패"
// @Router       /api/record [post]
func (h *Handler) Record(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			HandleServiceError(c, err)
			return
		}
		HandleServiceError(c, fmt.Errorf("%w: %v", models.ErrMissingAudio, err))
		return
	}

	number := c.Request.FormValue("number")
	if err := models.ValidateNumber(number); err != nil {
		HandleServiceError(c, err)
		return
	}

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		HandleServiceError(c, fmt.Errorf("%w: %v", models.ErrMissingAudio, err))
		return
	}
	defer file.Close()

	hint := header.Header.Get("Content-Type")
	logrus.WithFields(logrus.Fields{"number": number, "size": header.Size, "hint": hint}).Info("Record(): upload received")

	// 업로드가 끝난 뒤 변환과 저장은 클라이언트가 끊겨도 마무리
	ctx := context.WithoutCancel(c.Request.Context())
	attempt, err := h.workflow.Claim(ctx, number, file, hint)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RecordResponse{Success: true, NewNumber: attempt.Recording.Number})
}

// Listen godoc
// @Summary      녹음 재생 링크 조회
// @Description  번호에 저장된 녹음의 재생 링크를 반환합니다. 클라우드 저장소의 링크는 곧 만료되므로 바로 사용해야 합니다.
// @Tags         Voicemail
// @Produce      json
// @Param        number query    string true "# + 4자리 숫자"
// @Success      200    {object} handler.ListenResponse
// @Failure      400    {object} handler.ErrorBody "잘못된 번호 형식"
// @Failure      404    {object} handler.ErrorBody "녹음 없음"
// @Failure      503    {object} handler.ErrorBody "저장소 연결 실패"
// @Router       /api/listen [get]
func (h *Handler) Listen(c *gin.Context) {
	ref, err := h.resolver.Resolve(c.Request.Context(), c.Query("number"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListenResponse{Success: true, Link: ref.Link, Number: ref.Number})
}

// Healthz godoc
// @Summary      헬스 체크
// @Tags         System
// @Produce      json
// @Success      200 {object} object{status=string}
// @Router       /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
