package auth

import (
	"context"
	"testing"

	"github.com/dukerupert/familyhub/internal/model"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{ProfileID: "p1", Name: "Sam", Role: model.RoleAdmin}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got != ac {
		t.Errorf("got %+v, want %+v", got, ac)
	}
	if ProfileID(ctx) != "p1" {
		t.Errorf("ProfileID = %q, want p1", ProfileID(ctx))
	}
	if !IsAdmin(ctx) {
		t.Error("expected IsAdmin true")
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected false for missing AuthContext")
	}
	if ProfileID(context.Background()) != "" {
		t.Error("expected empty ProfileID for missing context")
	}
	if IsAdmin(context.Background()) {
		t.Error("expected IsAdmin false for missing context")
	}
}

func TestForProfile(t *testing.T) {
	ac := ForProfile(model.Profile{ID: "k1", Name: "Kid", Role: model.RoleChild})
	if ac.ProfileID != "k1" || ac.Role != model.RoleChild {
		t.Errorf("got %+v", ac)
	}
}
