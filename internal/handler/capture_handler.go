package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"voicemailboard/internal/capture"
	"voicemailboard/internal/metrics"
	"voicemailboard/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const stopCommand = "stop"

var errClaimFinished = errors.New("claim finished")

type CaptureOptions struct {
	MaxDuration time.Duration
	Metrics     *metrics.Metrics
}

func (o CaptureOptions) withDefaults() CaptureOptions {
	if o.MaxDuration <= 0 {
		o.MaxDuration = 30 * time.Second
	}
	return o
}

// 캡처 결과 프레임, /api/record 응답과 같은 본문
type CaptureResult struct {
	Status    int    `json:"status"`
	Success   bool   `json:"success"`
	NewNumber string `json:"newNumber,omitempty"`
	Message   string `json:"message,omitempty"`
	Stop      string `json:"stop,omitempty"`
}

// RecordStream godoc
// @Summary      스트리밍 녹음 WebSocket
// @Description  번호를 확인한 뒤 WebSocket으로 녹음을 실시간 전송합니다.
// @Description  <br> 바이너리 프레임: 오디오 청크, 텍스트 프레임 "stop": 녹음 종료.
// @Description  <br> 최대 30초 후 서버가 자동 종료하며, 결과는 JSON 텍스트 프레임 하나로 전달됩니다.
// @Tags         Voicemail
// @Param        number query    string true  "# + 4자리 숫자"
// @Param        format query    string false "오디오 컨테이너 힌트 (예: audio/webm)"
// @Success      101    {string} string "101 Switching Protocols"
// @Failure      400    {object} handler.ErrorBody "잘못된 번호 형식"
// @Failure      409    {object} handler.ErrorBody "이미 사용 중인 번호"
// @Router       /ws/record [get]
func (h *Handler) RecordStream(c *gin.Context) {
	ctx := c.Request.Context()
	number := c.Query("number")
	hint := c.DefaultQuery("format", "audio/webm")

	attempt := h.workflow.Begin(number)
	if err := h.workflow.Check(ctx, attempt); err != nil {
		HandleServiceError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Warnf("RecordStream(): Failed to upgrade to WebSocket for %s: %v", number, err)
		return
	}
	defer conn.Close()

	session := capture.NewSession(number, h.capture.MaxDuration)
	audio, err := session.Start()
	if err != nil {
		logrus.Errorf("RecordStream(): %v", err)
		return
	}
	if m := h.capture.Metrics; m != nil {
		m.ActiveCaptures.Inc()
		defer m.ActiveCaptures.Dec()
	}
	logrus.WithFields(logrus.Fields{"number": number, "session": session.ID}).Info("RecordStream(): capture started")

	var g errgroup.Group
	g.Go(func() error {
		return clientReadPump(conn, session)
	})

	submitErr := h.workflow.Submit(context.WithoutCancel(ctx), attempt, audio, hint)
	session.Abort(errClaimFinished)

	result := CaptureResult{Status: http.StatusCreated, Success: true, NewNumber: attempt.Recording.Number, Stop: string(session.Reason())}
	if submitErr != nil {
		status, message := statusFor(submitErr)
		result = CaptureResult{Status: status, Message: message, Stop: string(session.Reason())}
	}
	if err := conn.WriteJSON(result); err != nil {
		logrus.WithField("number", number).Warnf("RecordStream(): failed to send result: %v", err)
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.Close()

	if err := g.Wait(); err != nil {
		logrus.WithField("number", number).Debugf("RecordStream(): read pump ended: %v", err)
	}
	if m := h.capture.Metrics; m != nil {
		m.CaptureStops.WithLabelValues(string(session.Reason())).Inc()
	}
	logrus.WithFields(logrus.Fields{
		"number":  number,
		"session": session.ID,
		"bytes":   session.Bytes(),
		"state":   attempt.State.String(),
	}).Info("RecordStream(): capture session ended")
}

// clientReadPump forwards binary frames into the session until the client
// stops, disconnects, or the connection is closed by the handler.
func clientReadPump(conn *websocket.Conn, session *capture.Session) error {
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			// 녹음 도중 연결이 끊기면 부분 녹음은 등록하지 않음
			session.Cancel(capture.StopDisconnect, fmt.Errorf("%w: client disconnected: %v", models.ErrMissingAudio, err))
			return err
		}

		switch messageType {
		case websocket.BinaryMessage:
			// 종료 후 들어오는 청크는 버림
			if err := session.Write(message); err != nil && !errors.Is(err, capture.ErrStopped) {
				return err
			}
		case websocket.TextMessage:
			if string(message) == stopCommand {
				session.Stop(capture.StopManual)
			}
		}
	}
}
