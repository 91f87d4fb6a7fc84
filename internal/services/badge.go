package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/munreg/internal/errors"
	"github.com/abrezinsky/munreg/internal/logger"
	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/repository"
)

// BadgeService renders seat badges for seated delegates
type BadgeService struct {
	log  logger.Logger
	repo repository.RegistrationRepository
}

// NewBadgeService creates a new BadgeService
func NewBadgeService(log logger.Logger, repo repository.RegistrationRepository) *BadgeService {
	return &BadgeService{log: log, repo: repo}
}

// Badge is a delegate's seat badge
type Badge struct {
	Code    string      `json:"code"`
	Seat    models.Seat `json:"seat"`
	Payload string      `json:"payload"`
	PNG     []byte      `json:"-"`
}

// BadgeCode creates a short, readable code for a delegate's seat.
// Uses only clear characters (no O/0/I/1/L) - format: XX-YYY
func BadgeCode(delegateID string, seat models.Seat) string {
	const chars = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

	hash := sha256.Sum256([]byte(delegateID + "|" + seat.CommitteeID + "|" + seat.Country))
	num := binary.BigEndian.Uint64(hash[:8])

	code := make([]byte, 5)
	for i := 0; i < 5; i++ {
		code[i] = chars[num%uint64(len(chars))]
		num /= uint64(len(chars))
	}

	return fmt.Sprintf("%s-%s", string(code[:2]), string(code[2:]))
}

// Badge renders the QR badge for the delegate's current seat. A delegate
// without a seat has no badge.
func (s *BadgeService) Badge(ctx context.Context, delegateID string) (*Badge, error) {
	reg, err := s.repo.GetRegistration(ctx, delegateID)
	if err != nil {
		return nil, notFoundOr(err, "delegate %s not found", delegateID)
	}
	seat, ok := reg.AssignedSeat()
	if !ok {
		return nil, errors.NotFoundf("delegate %s has no seat", delegateID)
	}

	code := BadgeCode(delegateID, seat)
	payload := fmt.Sprintf("MUNREG|%s|%s|%s|%s", code, delegateID, seat.CommitteeID, seat.Country)
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &Badge{Code: code, Seat: seat, Payload: payload, PNG: png}, nil
}
