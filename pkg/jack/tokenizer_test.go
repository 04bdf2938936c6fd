package jack_test

import (
	"testing"

	"n2t.dev/toolchain/pkg/jack"
)

func TestTokenizer(t *testing.T) {
	collect := func(source string) ([]jack.Token, error) {
		tok := jack.NewTokenizer([]byte(source))
		tokens := []jack.Token{}
		for tok.HasNext() {
			next, err := tok.Advance()
			if err != nil {
				return tokens, err
			}
			tokens = append(tokens, next)
		}
		return tokens, nil
	}

	test := func(source string, expected []jack.Token, fail bool) {
		tokens, err := collect(source)
		if err != nil && !fail {
			t.Fatalf("unexpected error tokenizing %q: %s", source, err)
		}
		if err == nil && fail {
			t.Fatalf("expected an error tokenizing %q, got none", source)
		}
		if fail {
			return
		}
		if len(tokens) != len(expected) {
			t.Fatalf("expected %d tokens, got %d (%v)", len(expected), len(tokens), tokens)
		}
		for i, want := range expected {
			if tokens[i] != want {
				t.Fatalf("token %d: expected %+v, got %+v", i, want, tokens[i])
			}
		}
	}

	t.Run("Keywords and symbols", func(t *testing.T) {
		test("class Main { }", []jack.Token{
			{Type: jack.KeywordTok, Value: "class"},
			{Type: jack.IdentifierTok, Value: "Main"},
			{Type: jack.SymbolTok, Value: "{"},
			{Type: jack.SymbolTok, Value: "}"},
		}, false)
	})

	t.Run("Integer and string constants", func(t *testing.T) {
		test(`let x = 42; let s = "hello world";`, []jack.Token{
			{Type: jack.KeywordTok, Value: "let"},
			{Type: jack.IdentifierTok, Value: "x"},
			{Type: jack.SymbolTok, Value: "="},
			{Type: jack.IntConstTok, Value: "42"},
			{Type: jack.SymbolTok, Value: ";"},
			{Type: jack.KeywordTok, Value: "let"},
			{Type: jack.IdentifierTok, Value: "s"},
			{Type: jack.SymbolTok, Value: "="},
			{Type: jack.StringConstTok, Value: "hello world"},
			{Type: jack.SymbolTok, Value: ";"},
		}, false)
	})

	t.Run("Line and block comments are skipped", func(t *testing.T) {
		test("// a leading comment\nlet x = 1; /* trailing\nblock comment */\n", []jack.Token{
			{Type: jack.KeywordTok, Value: "let"},
			{Type: jack.IdentifierTok, Value: "x"},
			{Type: jack.SymbolTok, Value: "="},
			{Type: jack.IntConstTok, Value: "1"},
			{Type: jack.SymbolTok, Value: ";"},
		}, false)
	})

	t.Run("API documentation block comments are skipped", func(t *testing.T) {
		test("/** API doc\n * more doc\n */\nvar int x;", []jack.Token{
			{Type: jack.KeywordTok, Value: "var"},
			{Type: jack.KeywordTok, Value: "int"},
			{Type: jack.IdentifierTok, Value: "x"},
			{Type: jack.SymbolTok, Value: ";"},
		}, false)
	})

	t.Run("Malformed input", func(t *testing.T) {
		test(`"unterminated string`, nil, true)
		test("/* unterminated block comment", nil, true)
		test("99999999999999999999", nil, true) // overflows the 15 bit Hack integer range
	})
}

func TestTokenizerPeekIsNonMutating(t *testing.T) {
	tok := jack.NewTokenizer([]byte("foo bar baz"))

	first, err := tok.Peek()
	if err != nil {
		t.Fatalf("unexpected error on first Peek: %s", err)
	}
	second, err := tok.Peek()
	if err != nil {
		t.Fatalf("unexpected error on second Peek: %s", err)
	}
	if first != second {
		t.Fatalf("expected repeated Peek() to return the same token, got %+v then %+v", first, second)
	}

	advanced, err := tok.Advance()
	if err != nil {
		t.Fatalf("unexpected error on Advance: %s", err)
	}
	if advanced.Value != "bar" {
		t.Fatalf("expected Advance() to move past the peeked token %+v to 'bar', got %+v", first, advanced)
	}

	next, err := tok.Advance()
	if err != nil {
		t.Fatalf("unexpected error on second Advance: %s", err)
	}
	if next.Value != "baz" {
		t.Fatalf("expected third token to be 'baz', got %+v", next)
	}

	if tok.HasNext() {
		t.Fatalf("expected no more tokens after consuming the whole input")
	}
}
