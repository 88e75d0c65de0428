// Package service implements the business operations of the reward
// system: token issuance and the atomic claim/purchase units.
// Handlers stay thin and translate these results to HTTP.
package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/classmint/classmint-server/internal/model"
	"github.com/classmint/classmint-server/internal/repository"
	"github.com/classmint/classmint-server/internal/signer"
)

// TokenService is the token store: it issues signed reward tokens,
// voids them and looks them up.  All lifecycle writes go through the
// repository's conditional updates.
type TokenService struct {
	Signer *signer.Signer
	Tokens *repository.TokenRepo
}

// NewTokenService constructs a TokenService.  All dependencies must
// be non-nil.
func NewTokenService(s *signer.Signer, tokens *repository.TokenRepo) *TokenService {
	if s == nil || tokens == nil {
		panic("nil dependency passed to NewTokenService")
	}
	return &TokenService{Signer: s, Tokens: tokens}
}

// Issue creates a signed single-use token worth amount minor units,
// valid for the given duration, and persists it as ACTIVE.  It
// returns ErrInvalidAmount or ErrInvalidDuration for non-positive
// inputs before anything is signed or stored.  issuedBy is the
// issuing teacher's user id, or 0 for API-issued tokens.
func (s *TokenService) Issue(ctx context.Context, amount int64, validity time.Duration, description string, issuedBy uint64) (*model.Token, error) {
	if amount <= 0 {
		return nil, repository.ErrInvalidAmount
	}
	if validity <= 0 {
		return nil, repository.ErrInvalidDuration
	}
	nonce, err := signer.NewNonce()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	payload := signer.Payload{
		Amount: amount,
		One:    1,
		Exp:    now.Add(validity).Unix(),
		Nonce:  nonce,
		Desc:   description,
	}
	tokenString, err := s.Signer.Issue(payload)
	if err != nil {
		return nil, err
	}
	t := &model.Token{
		TokenString: tokenString,
		Amount:      amount,
		OneTime:     true,
		ExpiresAt:   payload.Exp,
		IssuedBy:    issuedBy,
		Status:      model.TokenStatusActive,
		CreatedAt:   now.Unix(),
		Description: description,
	}
	if err := s.Tokens.Create(ctx, t); err != nil {
		return nil, err
	}
	zap.L().Info("token issued",
		zap.Uint64("token_id", t.ID),
		zap.Int64("amount", t.Amount),
		zap.Int64("expires_at", t.ExpiresAt),
		zap.Uint64("issued_by", issuedBy))
	return t, nil
}

// Void retires an ACTIVE token.  Voiding an already used, voided or
// unknown token is a silent no-op.
func (s *TokenService) Void(ctx context.Context, tokenID uint64) error {
	if err := s.Tokens.Void(ctx, tokenID); err != nil {
		return err
	}
	zap.L().Info("token voided", zap.Uint64("token_id", tokenID))
	return nil
}

// FindByTokenString returns the stored token for a full token string,
// or ErrInvalidToken when no such row exists.
func (s *TokenService) FindByTokenString(ctx context.Context, tokenString string) (*model.Token, error) {
	t, err := s.Tokens.FindByTokenString(ctx, tokenString)
	if err == sql.ErrNoRows {
		return nil, repository.ErrInvalidToken
	}
	return t, err
}
