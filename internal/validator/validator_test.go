package validator

import (
	"errors"
	"strings"
	"testing"
)

type loginForm struct {
	User string `json:"user" validate:"required"`
	Pass string `json:"pass" validate:"required"`
}

func TestStructUsesJSONNames(t *testing.T) {
	v := New()
	err := v.Struct(loginForm{User: "ana"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	fields := v.TranslateErrors(err)
	msg, ok := fields["loginForm.pass"]
	if !ok {
		t.Fatalf("expected pass field error, got %v", fields)
	}
	if !strings.Contains(msg, "pass is a required field") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestTranslateNonValidationError(t *testing.T) {
	v := New()
	fields := v.TranslateErrors(errors.New("boom"))
	if fields["detail"] != "boom" {
		t.Fatalf("expected detail, got %v", fields)
	}
	if v.Message(errors.New("boom")) != "boom" {
		t.Fatalf("unexpected message")
	}
}

func TestValidStruct(t *testing.T) {
	if err := New().Struct(loginForm{User: "a", Pass: "b"}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}
