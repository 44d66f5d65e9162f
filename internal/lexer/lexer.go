package lexer

import (
	"lisp/internal/token"
	"unicode/utf8"
)

type Lexer struct {
	input        string
	position     int  // current byte position in input (points to start of current rune)
	readPosition int  // next byte position in input (start of next rune)
	ch           rune // current rune under examination; 0 means EOF
}

func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()

	startPosition := l.position

	switch l.ch {
	case '(':
		tok = newToken(token.LPAREN, l.ch, startPosition)
	case ')':
		tok = newToken(token.RPAREN, l.ch, startPosition)
	case '\'':
		tok = newToken(token.QUOTE, l.ch, startPosition)
	case 0:
		tok.Literal = ""
		tok.Type = token.EOF
		tok.Position = startPosition
	default:
		word := l.readWord()
		return token.Token{Type: classify(word), Literal: word, Position: startPosition}
	}

	l.readChar()
	return tok
}

// Tokens drains the lexer, including the trailing EOF token.
func (l *Lexer) Tokens() []token.Token {
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens
		}
	}
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.ch {
		case ' ', '\t', '\r', '\n':
			l.readChar()
		case ';':
			l.skipToLineEnd()
		default:
			return
		}
	}
}

func (l *Lexer) skipToLineEnd() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// readChar advances by one UTF-8 rune, updating byte positions
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
}

// readWord consumes everything up to the next delimiter.
func (l *Lexer) readWord() string {
	start := l.position
	for !isDelimiter(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// classify maps a bare word onto identifier, keyword, or numeric token types.
// Anything else is ILLEGAL and reported by the parser.
func classify(word string) token.TokenType {
	switch {
	case isIdentifier(word):
		return token.LookupIdent(word)
	case isInteger(word):
		return token.INT
	case isReal(word):
		return token.REAL
	}
	return token.ILLEGAL
}

func isIdentifier(word string) bool {
	if word == "" || !isLetter(rune(word[0])) {
		return false
	}
	for i := 1; i < len(word); i++ {
		if !isLetter(rune(word[i])) && !isDigit(rune(word[i])) {
			return false
		}
	}
	return true
}

// isInteger matches [+-]?\d+
func isInteger(word string) bool {
	digits := trimSign(word)
	return digits != "" && allDigits(digits)
}

// isReal matches [+-]?\d+\.\d+
func isReal(word string) bool {
	digits := trimSign(word)
	for i := 0; i < len(digits); i++ {
		if digits[i] == '.' {
			return i > 0 && i < len(digits)-1 && allDigits(digits[:i]) && allDigits(digits[i+1:])
		}
	}
	return false
}

func trimSign(word string) string {
	if len(word) > 0 && (word[0] == '+' || word[0] == '-') {
		return word[1:]
	}
	return word
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(rune(s[i])) {
			return false
		}
	}
	return true
}

func isDelimiter(ch rune) bool {
	switch ch {
	case 0, ' ', '\t', '\r', '\n', '(', ')', '\'', ';':
		return true
	}
	return false
}

func isLetter(ch rune) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func newToken(tokenType token.TokenType, ch rune, position int) token.Token {
	return token.Token{Type: tokenType, Literal: string(ch), Position: position}
}
