package iam

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

func randomID(prefix string, n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return prefix + strings.ToUpper(hex.EncodeToString(b))[:17]
}

func GenerateUserID() string   { return randomID("AIDA", 16) }
func GenerateGroupID() string  { return randomID("AGPA", 16) }
func GenerateRoleID() string   { return randomID("AROA", 16) }
func GeneratePolicyID() string { return randomID("ANPA", 16) }

func GenerateAccessKeyID() string {
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return "AKIA" + strings.ToUpper(hex.EncodeToString(b))
}

func GenerateSecretAccessKey() string {
	b := make([]byte, 30)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return base64.StdEncoding.EncodeToString(b)[:40]
}
