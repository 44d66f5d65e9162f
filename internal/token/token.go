package token

type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers + literals
	IDENT = "IDENT" // plus, x, counter1
	INT   = "INT"   // -42
	REAL  = "REAL"  // 3.14

	// Delimiters
	LPAREN = "("
	RPAREN = ")"
	QUOTE  = "'"

	// Constants
	TRUE  = "TRUE"
	FALSE = "FALSE"
	NULL  = "NULL"

	// Special forms
	QUOTE_KW = "QUOTE"
	SETQ     = "SETQ"
	FUNC     = "FUNC"
	LAMBDA   = "LAMBDA"
	PROG     = "PROG"
	COND     = "COND"
	WHILE    = "WHILE"
	RETURN   = "RETURN"
	BREAK    = "BREAK"
)

type Token struct {
	Type     TokenType
	Literal  string
	Position int // the src index of the token
}

var keywords = map[string]TokenType{
	// constants
	"true":  TRUE,
	"false": FALSE,
	"null":  NULL,

	// special forms
	"quote":  QUOTE_KW,
	"setq":   SETQ,
	"func":   FUNC,
	"lambda": LAMBDA,
	"prog":   PROG,
	"cond":   COND,
	"while":  WHILE,
	"return": RETURN,
	"break":  BREAK,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword reports whether the token type names a special form.
func IsKeyword(t TokenType) bool {
	switch t {
	case QUOTE_KW, SETQ, FUNC, LAMBDA, PROG, COND, WHILE, RETURN, BREAK:
		return true
	}
	return false
}
