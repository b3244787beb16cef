package lexer

import (
	"strings"
	"testing"

	"github.com/harborlang/uscc/internal/diag"
	"github.com/harborlang/uscc/internal/token"
)

func scanAll(t *testing.T, src string) ([]token.Token, *diag.Sink) {
	t.Helper()
	errs := &diag.Sink{}
	l, err := New("test.usc", strings.NewReader(src), errs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks, errs
}

func TestScanKeywordsAndPunctuation(t *testing.T) {
	toks, errs := scanAll(t, "int main() { return 0; }")
	if !errs.OK() {
		t.Fatalf("unexpected errors: %v", errs.All())
	}
	want := []token.Kind{
		token.KwInt, token.Ident, token.LParen, token.RParen, token.LBrace,
		token.KwReturn, token.IntLit, token.Semi, token.RBrace, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestScanOperators(t *testing.T) {
	toks, errs := scanAll(t, "&& || == != ++ -- & < >")
	if !errs.OK() {
		t.Fatalf("unexpected errors: %v", errs.All())
	}
	want := []token.Kind{
		token.AndAnd, token.OrOr, token.Eq, token.Neq, token.Inc, token.Dec,
		token.Amp, token.Lt, token.Gt, token.EOF,
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestScanCharAndStringEscapes(t *testing.T) {
	toks, errs := scanAll(t, `'\n' '\t' "a\tb\n"`)
	if !errs.OK() {
		t.Fatalf("unexpected errors: %v", errs.All())
	}
	if toks[0].Text != "\n" || toks[1].Text != "\t" {
		t.Fatalf("char escapes: got %q, %q", toks[0].Text, toks[1].Text)
	}
	if toks[2].Text != "a\tb\n" {
		t.Fatalf("string escapes: got %q", toks[2].Text)
	}
}

func TestScanIllegalCharacter(t *testing.T) {
	_, errs := scanAll(t, "int x = 1 @ 2;")
	if errs.OK() {
		t.Fatalf("expected an error for '@'")
	}
	if !strings.Contains(errs.All()[0].Message, "Invalid symbol") {
		t.Fatalf("unexpected message: %s", errs.All()[0].Message)
	}
}

func TestScanSkipsComments(t *testing.T) {
	toks, errs := scanAll(t, "int x; // trailing\n/* block */ int y;")
	if !errs.OK() {
		t.Fatalf("unexpected errors: %v", errs.All())
	}
	var kinds []token.Kind
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	want := []token.Kind{token.KwInt, token.Ident, token.Semi, token.KwInt, token.Ident, token.Semi, token.EOF}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
}
