package auth

import (
	"bytes"
	"crypto/rand"
	"embed"
	"fmt"
	"html/template"
	"math/big"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var resetTemplate = template.Must(template.ParseFS(templateFS, "templates/reset-password.html"))

const (
	codeMin = 100000
	codeMax = 999999
)

func renderResetEmail(code string, ttl time.Duration) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Code             string
		ExpiresInMinutes int
	}{Code: code, ExpiresInMinutes: int(ttl / time.Minute)}
	if err := resetTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// generateCode returns a uniformly random six digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
