package token_test

import (
	"testing"

	"wsh/token"
)

func TestReserved(t *testing.T) {
	tests := []struct {
		word string
		want token.Token
		ok   bool
	}{
		{"if", token.IF, true},
		{"done", token.DONE, true},
		{"function", token.FUNCTION, true},
		{"foo", token.ILLEGAL, false},
	}
	for _, tc := range tests {
		got, ok := token.Reserved(tc.word)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("Reserved(%q) = %v, %v; want %v, %v", tc.word, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIsCommandStart(t *testing.T) {
	if !token.IsCommandStart(token.ILLEGAL) {
		t.Error("start of input should allow a command")
	}
	if !token.IsCommandStart(token.SEMICOLON) {
		t.Error("after ; a command may start")
	}
	if token.IsCommandStart(token.WORD) {
		t.Error("after a WORD a reserved word should not be recognized")
	}
}

func TestRedirOperator(t *testing.T) {
	for _, tok := range []token.Token{token.LSS, token.GTR, token.SHL, token.DHEREDOC, token.WHEREDOC} {
		if !token.RedirOperator(tok) {
			t.Errorf("%v should be a redirection operator", tok)
		}
	}
	if token.RedirOperator(token.WORD) {
		t.Error("WORD should not be a redirection operator")
	}
}

func TestString(t *testing.T) {
	if got := token.DHEREDOC.String(); got != "<<-" {
		t.Errorf("DHEREDOC.String() = %q, want %q", got, "<<-")
	}
}
