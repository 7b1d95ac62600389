package expr

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/davecgh/go-spew/spew"
	"github.com/kylelemons/godebug/pretty"
)

func v(name string) Expr              { return &Variable{Name: name} }
func lit(x float64) Expr              { return &Literal{Value: x} }
func neg(e Expr) Expr                 { return &Unary{Op: OpNegate, Operand: e} }
func pos(e Expr) Expr                 { return &Unary{Op: OpIdentity, Operand: e} }
func bin(op BinaryOp, l, r Expr) Expr { return &Binary{Op: op, Left: l, Right: r} }

func TestParseTrees(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Expr
	}{
		{"integer", "42", lit(42)},
		{"float", "2.5", lit(2.5)},
		{"exponent", "1e3", lit(1000)},
		{"trailing dot", "3.", lit(3)},
		{"identifier", "foo_1", v("foo_1")},
		{"underscore start", "_x", v("_x")},
		{"parenthesised", "((x))", v("x")},
		{"negate", "-x", neg(v("x"))},
		{"identity", "+2", pos(lit(2))},
		{"double negate", "--x", neg(neg(v("x")))},
		{"negate paren", "-(a + b)", neg(bin(OpAdd, v("a"), v("b")))},
		{"sum", "a + b", bin(OpAdd, v("a"), v("b"))},
		{"left assoc sub", "1 - 2 - 3", bin(OpSubtract, bin(OpSubtract, lit(1), lit(2)), lit(3))},
		{"left assoc div", "a / b / c", bin(OpDivide, bin(OpDivide, v("a"), v("b")), v("c"))},
		{"product binds tighter", "1 + 2 * 3", bin(OpAdd, lit(1), bin(OpMultiply, lit(2), lit(3)))},
		{"product first", "2 * 3 + 1", bin(OpAdd, bin(OpMultiply, lit(2), lit(3)), lit(1))},
		{"parens override", "(1 + 2) * 3", bin(OpMultiply, bin(OpAdd, lit(1), lit(2)), lit(3))},
		{"product run", "a + b * c / d",
			bin(OpAdd, v("a"), bin(OpDivide, bin(OpMultiply, v("b"), v("c")), v("d")))},
		{"product run then sum", "a - b * c + d",
			bin(OpAdd, bin(OpSubtract, v("a"), bin(OpMultiply, v("b"), v("c"))), v("d"))},
		{"unary binds to primary", "-a * b", bin(OpMultiply, neg(v("a")), v("b"))},
		{"unary on right", "a * -b", bin(OpMultiply, v("a"), neg(v("b")))},
		{"no spaces", "x*2+y", bin(OpAdd, bin(OpMultiply, v("x"), lit(2)), v("y"))},
		{"whitespace", " \t1\n+ 2 ", bin(OpAdd, lit(1), lit(2))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.text, err)
			}
			if diff := pretty.Compare(got, tt.want); diff != "" {
				t.Errorf("Parse(%q) tree mismatch", tt.text)
				t.Logf("actual:\n%s", spew.Sdump(got))
				t.Logf("diff:\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		offset int
		substr string
	}{
		{"empty", "", 0, "end of input"},
		{"blank", "   ", 3, "end of input"},
		{"dangling operator", "1 +", 3, "end of input"},
		{"dangling unary", "-", 1, "end of input"},
		{"missing operator", "1 2", 2, "expected operator"},
		{"number then ident", "2x", 1, "expected operator"},
		{"bad exponent", "1e", 1, "expected operator"},
		{"unmatched close", "1)", 1, "unmatched ')'"},
		{"unclosed open", "(1 + 2", 6, "expected ')'"},
		{"empty parens", "()", 1, "unexpected ')'"},
		{"illegal char", "a % b", 2, "illegal character"},
		{"illegal rune", "x + é", 4, `illegal character "é"`},
		{"double operator", "1 * * 2", 4, "expected operand"},
		{"out of range", "1e999", 0, "out of range"},
		{"call syntax", "f(x)", 1, "expected operator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Parse(tt.text)
			if err == nil {
				t.Fatalf("Parse(%q) = %s, expected error", tt.text, e)
			}
			if e != nil {
				t.Errorf("Parse(%q) returned a partial tree: %s", tt.text, e)
			}
			var serr *SyntaxError
			if !errors.As(err, &serr) {
				t.Fatalf("expected *SyntaxError, got %T", err)
			}
			if serr.Offset != tt.offset {
				t.Errorf("offset = %d, want %d (%v)", serr.Offset, tt.offset, err)
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestParseIllegalRuneIsWhole(t *testing.T) {
	for _, text := range []string{"é", "2 × 3", "x + 日本"} {
		_, err := Parse(text)
		var serr *SyntaxError
		if !errors.As(err, &serr) {
			t.Fatalf("Parse(%q): expected *SyntaxError, got %v", text, err)
		}
		if !utf8.ValidString(serr.Token) || utf8.RuneCountInString(serr.Token) != 1 {
			t.Errorf("Parse(%q): token %q is not one whole rune", text, serr.Token)
		}
	}
}

func TestParseRestartable(t *testing.T) {
	// Simulates typing "a + b" one keystroke at a time; every prefix is parsed
	// independently of the previous attempt.
	text := "a + b"
	valid := map[string]bool{"a": true, "a ": true, "a + b": true}
	for i := 1; i <= len(text); i++ {
		prefix := text[:i]
		_, err := Parse(prefix)
		if valid[prefix] && err != nil {
			t.Errorf("Parse(%q) failed: %v", prefix, err)
		}
		if !valid[prefix] && err == nil {
			t.Errorf("Parse(%q) succeeded, expected error", prefix)
		}
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("MustParse should panic on bad input")
		}
	}()
	MustParse("1 +")
}
