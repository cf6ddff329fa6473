package domain

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// GenerateOrderNumber 주문 번호 생성
// 형식: ORD-{밀리초 타임스탬프}-{8자리 대문자 16진수 난수}
// 유일성은 저장소의 unique 제약이 최종 보장하고, 충돌 시 서비스가 재생성한다.
func GenerateOrderNumber() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand 실패 시 시각 기반으로 대체
		binary.BigEndian.PutUint32(buf[:], uint32(time.Now().UnixNano()))
	}
	suffix := binary.BigEndian.Uint32(buf[:])
	return fmt.Sprintf("ORD-%d-%08X", time.Now().UnixMilli(), suffix)
}
