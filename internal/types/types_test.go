package types

import "testing"

func TestCallerAnonymous(t *testing.T) {
	if !(Caller{}).Anonymous() {
		t.Fatal("zero-value Caller should be anonymous")
	}
	if (Caller{UserID: "u1"}).Anonymous() {
		t.Fatal("Caller with UserID should not be anonymous")
	}
}

func TestRowIsLink(t *testing.T) {
	e := &Row{Kind: KindEntity}
	l := &Row{Kind: KindLink}
	if e.IsLink() {
		t.Fatal("entity row reported as link")
	}
	if !l.IsLink() {
		t.Fatal("link row reported as entity")
	}
}
