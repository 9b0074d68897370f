package models

import "errors"

var (
	// 사용자가 고칠 수 있는 입력 오류
	ErrInvalidCode = errors.New("invalid number format")
	// 다른 사용자가 이미 점유한 번호
	ErrCodeOccupied = errors.New("number already in use")
	// 오디오 파트가 없거나 비어 있음
	ErrMissingAudio = errors.New("audio is missing")
	// 디코딩 불가능한 오디오
	ErrTranscode = errors.New("audio transcode failed")
	// 재생할 녹음 없음
	ErrNotFound = errors.New("recording not found")
	// 저장소 연결 실패 또는 자격 증명 오류
	ErrBackendUnavailable = errors.New("storage backend unavailable")
)
