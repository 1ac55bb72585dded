package emailsvc

import (
	"bytes"
	"io"
	"log"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistemanotas/notas/core"
	logsvc "github.com/sistemanotas/notas/services/logger"
)

func newMock(t *testing.T) *ConsoleServiceMock {
	t.Helper()
	conf := core.NewTestConfig()
	return NewConsoleServiceMock(conf, logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf))
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	svc := newMock(t)
	to := []mail.Address{{Name: "Ana", Address: "ana@test.pe"}}

	svc.SendMessages(
		&core.EmailMessage{
			To:           to,
			Subject:      "Restablecimiento de contraseña",
			TemplateName: "password_reset",
			TemplateData: map[string]string{"Email": "ana@test.pe", "UID": "MQ", "Token": "abc-123"},
		},
		&core.EmailMessage{To: to, Subject: "Vacío"},                    // nothing to send
		&core.EmailMessage{Subject: "Sin destinatario", BodyStr: "hola"}, // no recipient
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Contains(t, msg.TextContent, "/password-reset/MQ/abc-123")
	assert.Contains(t, msg.TextContent, "ana@test.pe")
	assert.Contains(t, msg.HTMLContent, "/password-reset/MQ/abc-123")

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestConsoleServiceMock_MissingTemplateData(t *testing.T) {
	svc := newMock(t)
	svc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: "ana@test.pe"}},
		TemplateName: "welcome",
		TemplateData: map[string]string{"Name": "Ana"},
	})
	assert.Empty(t, svc.SentMessages())
}

func TestConsoleService_format(t *testing.T) {
	svc := newMock(t)
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: "Ana", Address: "ana@test.pe"}},
		Subject: "Notas",
		BodyStr: "adjunto tus notas",
	}
	require.NoError(t, msg.Attach(bytes.NewReader([]byte("PK\x03\x04data")), "notas.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
	require.NoError(t, svc.tmpls.Render(msg))

	out, err := svc.format(*msg)
	require.NoError(t, err)
	assert.Contains(t, out, "Subject: [Sistema de notas] Notas")
	assert.Contains(t, out, "multipart/mixed")
	assert.Contains(t, out, "adjunto tus notas")
	assert.Contains(t, out, "filename=notas.xlsx")
	assert.False(t, strings.Contains(out, "BCC:"))
}
