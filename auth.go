package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	inviteExpiry     = 24 * time.Hour
	bcryptCost       = 10
	maxPasswordLen   = 64
	joinRateWindow   = 60 * time.Second
	maxJoinAttempts  = 10
	inviteSecretKey  = "invite_secret"
	inviteClaimRoom  = "room"
	inviteSecretSize = 32
)

var (
	ErrWrongPassword = errors.New("wrong password")
	ErrBadInvite     = errors.New("invalid invite")
	ErrJoinRate      = errors.New("too many join attempts, try again later")
)

// Auth guards rooms: it hashes room passwords, issues signed invite tokens
// that stand in for the password, and rate limits failed joins per IP.
type Auth struct {
	secret []byte

	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates an Auth whose invite secret survives restarts when db is
// not nil.
func NewAuth(db *DB) *Auth {
	return &Auth{
		secret:  loadOrCreateSecret(db),
		rateMap: make(map[string]*rateEntry),
	}
}

// loadOrCreateSecret loads the signing secret from the database, or
// generates and persists a new one if none exists.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting(inviteSecretKey); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == inviteSecretSize {
				return b
			}
		}
	}
	secret := make([]byte, inviteSecretSize)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate invite secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting(inviteSecretKey, hex.EncodeToString(secret)); err != nil {
			log.Warn().Err(err).Msg("could not persist invite secret")
		}
	}
	return secret
}

// HashPassword hashes a room password. An empty password means an open
// room and hashes to "".
func (a *Auth) HashPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	if len(password) > maxPasswordLen {
		return "", fmt.Errorf("password must be at most %d characters", maxPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckJoin decides whether a join attempt may enter a room. A valid
// invite for the room bypasses the password.
func (a *Auth) CheckJoin(passHash, password, invite, roomCode, ip string) error {
	if passHash == "" {
		return nil
	}
	if invite != "" {
		if err := a.ValidateInvite(invite, roomCode); err == nil {
			return nil
		}
	}
	if !a.checkRate(ip) {
		return ErrJoinRate
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passHash), []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IssueInvite signs an invite token for a room
func (a *Auth) IssueInvite(roomCode string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		inviteClaimRoom: roomCode,
		"exp":           now.Add(inviteExpiry).Unix(),
		"iat":           now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateInvite checks that token is a live invite for roomCode
func (a *Auth) ValidateInvite(tokenStr, roomCode string) error {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadInvite, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return ErrBadInvite
	}
	room, ok := claims[inviteClaimRoom].(string)
	if !ok || room != roomCode {
		return ErrBadInvite
	}
	return nil
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(joinRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxJoinAttempts
}
