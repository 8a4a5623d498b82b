package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMIMEMessage_Validation(t *testing.T) {
	base := Email{
		From:     "no-reply@plantbid.kr",
		To:       []string{"buyer@example.com"},
		Subject:  "hello",
		TextBody: "hi",
	}

	_, err := buildMIMEMessage(base, "plantbid.kr")
	require.NoError(t, err)

	e := base
	e.To = nil
	_, err = buildMIMEMessage(e, "plantbid.kr")
	assert.Error(t, err)

	e = base
	e.From = ""
	_, err = buildMIMEMessage(e, "plantbid.kr")
	assert.Error(t, err)

	e = base
	e.TextBody = ""
	_, err = buildMIMEMessage(e, "plantbid.kr")
	assert.Error(t, err)
}

func TestBuildMIMEMessage_KoreanSubjectEncoded(t *testing.T) {
	e := Email{
		From:     "no-reply@plantbid.kr",
		FromName: "플랜트비드",
		To:       []string{"buyer@example.com"},
		Subject:  "결제 취소 안내",
		TextBody: "본문",
	}
	raw, err := buildMIMEMessage(e, "plantbid.kr")
	require.NoError(t, err)

	assert.Contains(t, raw, "Subject: =?utf-8?q?")
	assert.NotContains(t, strings.SplitN(raw, "\r\n\r\n", 2)[0], "결제",
		"non-ascii must not appear raw in headers")
	assert.Contains(t, raw, "Message-ID: <")
}

func TestBuildMIMEMessage_MultipartAlternative(t *testing.T) {
	e := Email{
		From:     "no-reply@plantbid.kr",
		To:       []string{"buyer@example.com"},
		Subject:  "hello",
		TextBody: "text part",
		HTMLBody: "<p>html part</p>",
	}
	raw, err := buildMIMEMessage(e, "plantbid.kr")
	require.NoError(t, err)

	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "text/plain; charset=UTF-8")
	assert.Contains(t, raw, "text/html; charset=UTF-8")
	assert.Contains(t, raw, "text part")
	assert.Contains(t, raw, "<p>html part</p>")
}
