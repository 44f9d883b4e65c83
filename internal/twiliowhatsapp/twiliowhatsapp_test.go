package twiliowhatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
)

func TestMockClient_SendMessage(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()

	if err := mock.SendMessage(ctx, "15551234567", "Hello Test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent := mock.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	if sent[0].Body != "Hello Test" || sent[0].To != "15551234567" {
		t.Errorf("unexpected message %+v", sent[0])
	}

	mock.Err = errors.New("rate limited")
	if err := mock.SendMessage(ctx, "15551234567", "again"); err == nil {
		t.Error("expected configured error")
	}
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewClient(); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok")); err == nil {
		t.Error("expected error without from number")
	}
	c, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok"), WithFromWhats("+14155238886"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.fromWhats != "whatsapp:+14155238886" {
		t.Errorf("fromWhats = %q, want whatsapp prefix added", c.fromWhats)
	}
}

// sign computes a Twilio webhook signature: HMAC-SHA1 over the URL followed by
// the sorted form keys and values.
func sign(token, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestSignatureValidator(t *testing.T) {
	const token = "secret-token"
	const publicURL = "https://support.example.com/twilio/webhook"
	form := url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"hi"}, "MessageSid": {"SM1"}}

	req := httptest.NewRequest("POST", "/twilio/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", sign(token, publicURL, form))
	if err := req.ParseForm(); err != nil {
		t.Fatalf("ParseForm: %v", err)
	}

	v := NewSignatureValidator(token)
	if !v.ValidateRequest(req, publicURL) {
		t.Error("expected valid signature")
	}
	if NewSignatureValidator("other-token").ValidateRequest(req, publicURL) {
		t.Error("signature with wrong token should fail")
	}

	req.Header.Del("X-Twilio-Signature")
	if v.ValidateRequest(req, publicURL) {
		t.Error("missing signature should fail")
	}
}
