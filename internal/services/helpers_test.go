package services

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vanbook/backend/internal/config"
)

func TestGenerateVerifyCodeIsNumeric(t *testing.T) {
	digitsOnly := regexp.MustCompile(`^[0-9]+$`)
	for i := 0; i < 20; i++ {
		code := generateVerifyCode()
		require.Len(t, code, config.VerifyCodeLength)
		require.Regexp(t, digitsOnly, code)
	}
}

func TestGenerateURLCodeLength(t *testing.T) {
	require.Len(t, generateURLCode(), config.URLCodeLength)
}
