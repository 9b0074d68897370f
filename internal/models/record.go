package models

import (
	"fmt"
	"time"
)

// 녹음 번호 형식: '#' + 숫자 4자리
const NumberLength = 5

// 번호 하나에 저장된 음성 메시지
type Recording struct {
	Number    string    `json:"number" example:"#0042"`
	AudioRef  string    `json:"filePath" example:"/uploads/0042.wav"`
	CreatedAt time.Time `json:"timestamp"`
}

// ValidateNumber reports ErrInvalidCode unless number is '#' followed by
// exactly four ASCII digits. Leading zeros are significant.
func ValidateNumber(number string) error {
	if len(number) != NumberLength || number[0] != '#' {
		return fmt.Errorf("%w: %q", ErrInvalidCode, number)
	}
	for i := 1; i < NumberLength; i++ {
		if number[i] < '0' || number[i] > '9' {
			return fmt.Errorf("%w: %q", ErrInvalidCode, number)
		}
	}
	return nil
}

// Digits strips the leading '#'. The number must already be valid.
func Digits(number string) string {
	return number[1:]
}

// FileName is the object name every backend stores a number under.
func FileName(number string) string {
	return Digits(number) + ".wav"
}
