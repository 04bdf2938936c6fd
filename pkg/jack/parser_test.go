package jack_test

import (
	"strings"
	"testing"

	"n2t.dev/toolchain/pkg/jack"
)

func parse(t *testing.T, source string) []string {
	t.Helper()
	tok := jack.NewTokenizer([]byte(source))
	parser := jack.NewParser(tok)
	lines, err := parser.Parse()
	if err != nil {
		t.Fatalf("unexpected error parsing %q: %s", source, err)
	}
	return lines
}

func TestParserMinimalClass(t *testing.T) {
	lines := parse(t, "class Main { }")

	expected := []string{
		"<class>",
		"<keyword> class </keyword>",
		"<identifier> Main </identifier>",
		"<symbol> { </symbol>",
		"<symbol> } </symbol>",
		"</class>",
	}

	if strings.Join(lines, "\n") != strings.Join(expected, "\n") {
		t.Fatalf("parse tree mismatch:\ngot:\n%s\nwant:\n%s", strings.Join(lines, "\n"), strings.Join(expected, "\n"))
	}
}

func TestParserClassWithStaticField(t *testing.T) {
	lines := parse(t, "class X { static int y; }")

	expected := []string{
		"<class>",
		"<keyword> class </keyword>",
		"<identifier> X </identifier>",
		"<symbol> { </symbol>",
		"<classVarDec>",
		"<keyword> static </keyword>",
		"<keyword> int </keyword>",
		"<identifier> y </identifier>",
		"<symbol> ; </symbol>",
		"</classVarDec>",
		"<symbol> } </symbol>",
		"</class>",
	}

	if strings.Join(lines, "\n") != strings.Join(expected, "\n") {
		t.Fatalf("parse tree mismatch:\ngot:\n%s\nwant:\n%s", strings.Join(lines, "\n"), strings.Join(expected, "\n"))
	}
}

func TestParserClassVarAndField(t *testing.T) {
	lines := parse(t, "class Foo { static int x, y; field boolean done; }")

	expectedFragment := []string{
		"<classVarDec>",
		"<keyword> static </keyword>",
		"<keyword> int </keyword>",
		"<identifier> x </identifier>",
		"<symbol> , </symbol>",
		"<identifier> y </identifier>",
		"<symbol> ; </symbol>",
		"</classVarDec>",
		"<classVarDec>",
		"<keyword> field </keyword>",
		"<keyword> boolean </keyword>",
		"<identifier> done </identifier>",
		"<symbol> ; </symbol>",
		"</classVarDec>",
	}

	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, strings.Join(expectedFragment, "\n")) {
		t.Fatalf("expected parse tree to contain:\n%s\ngot:\n%s", strings.Join(expectedFragment, "\n"), joined)
	}
}

func TestParserSubroutineWithStatements(t *testing.T) {
	source := `
	class Main {
		function void main() {
			var int sum;
			let sum = 0;
			if (sum) {
				let sum = sum + 1;
			} else {
				let sum = sum - 1;
			}
			while (sum) {
				do Main.loop();
			}
			return;
		}
	}`

	lines := parse(t, source)
	joined := strings.Join(lines, "\n")

	for _, tag := range []string{
		"<subroutineDec>", "<parameterList>", "<subroutineBody>",
		"<varDec>", "<letStatement>", "<ifStatement>", "<whileStatement>",
		"<doStatement>", "<returnStatement>", "<expression>", "<term>",
	} {
		if !strings.Contains(joined, tag) {
			t.Fatalf("expected parse tree to contain tag %q, got:\n%s", tag, joined)
		}
	}

	// 'Main.loop' is invoked as a subroutineCall, which never gets its own tag wrapper.
	if strings.Contains(joined, "<subroutineCall>") {
		t.Fatalf("subroutineCall must not be tagged, got:\n%s", joined)
	}
	if !strings.Contains(joined, "<identifier> Main </identifier>\n<symbol> . </symbol>\n<identifier> loop </identifier>") {
		t.Fatalf("expected an inlined 'Main.loop' subroutine call, got:\n%s", joined)
	}
}

func TestParserExpressionsAndTerms(t *testing.T) {
	source := `
	class Main {
		function void main() {
			var Array a;
			let a[0] = (1 + 2) * -3;
			let a[1] = ~true;
			do Output.printInt(a[0]);
			return;
		}
	}`

	lines := parse(t, source)
	joined := strings.Join(lines, "\n")

	for _, tag := range []string{
		"<integerConstant> 1 </integerConstant>",
		"<integerConstant> 2 </integerConstant>",
		"<integerConstant> 3 </integerConstant>",
		"<keyword> true </keyword>",
		"<symbol> ~ </symbol>",
		"<symbol> [ </symbol>",
		"<symbol> ] </symbol>",
	} {
		if !strings.Contains(joined, tag) {
			t.Fatalf("expected parse tree to contain %q, got:\n%s", tag, joined)
		}
	}
}

func TestParserRejectsMalformedSource(t *testing.T) {
	bad := []string{
		"class { }",                  // missing class name
		"class Main",                 // missing body
		"class Main { let x = 1; }",  // statement outside a subroutine
		"class Main { function }",    // truncated subroutineDec
	}

	for _, source := range bad {
		tok := jack.NewTokenizer([]byte(source))
		parser := jack.NewParser(tok)
		if _, err := parser.Parse(); err == nil {
			t.Fatalf("expected an error parsing %q, got none", source)
		}
	}
}
