package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	otpMin = 100000
	otpMax = 999999
)

var otpSpan = big.NewInt(otpMax - otpMin + 1)

// GenerateOTP returns a 6 digit code uniform over [100000, 999999].
// rand.Int samples without modulo bias.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+otpMin), nil
}

// ChannelFor picks the OTP channel for a login identifier
func ChannelFor(identifier string) string {
	if strings.Contains(identifier, "@") {
		return "email"
	}
	return "phone"
}

// NormalizeIdentifier lower-cases emails and strips spaces from phones
func NormalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if ChannelFor(identifier) == "email" {
		return strings.ToLower(identifier)
	}
	return strings.ReplaceAll(identifier, " ", "")
}
