package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/hackbot/pkg/errors"
)

type reasonBody struct {
	Reason string `json:"reason" validate:"required,min=10,max=1000"`
}

func decode(t *testing.T, body string) (reasonBody, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest reasonBody
	err := DecodeJSONBody(req, &dest)
	return dest, err
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	got, err := decode(t, `{"reason":"duplicate of an approved entry"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Reason != "duplicate of an approved entry" {
		t.Fatalf("unexpected reason %q", got.Reason)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	_, err := decode(t, `{"reason":"duplicate of an approved entry","extra":1}`)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsFieldByJSONName(t *testing.T) {
	_, err := decode(t, `{"reason":"short"}`)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
	if details["reason"] != "must be at least 10" {
		t.Fatalf("unexpected field message %q", details["reason"])
	}
}
