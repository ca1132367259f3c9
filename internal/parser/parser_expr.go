// SPDX-License-Identifier: Apache-2.0
package parser

import (
	"strconv"

	"sysyarm/internal/ast"
	"sysyarm/token"
)

// binaryPrecedence mirrors kanso's parser_pratt.go precedence table,
// extended with the relational/equality/short-circuit tiers this
// language's Cond grammar needs (|| lowest, || < && < equality <
// relational < additive < multiplicative).
var binaryPrecedence = map[token.Kind]int{
	token.OR_OR:   1,
	token.AND_AND: 2,
	token.EQ:      3,
	token.NOT_EQ:  3,
	token.LT:      4,
	token.LE:      4,
	token.GT:      4,
	token.GE:      4,
	token.PLUS:    5,
	token.MINUS:   5,
	token.ASTERISK: 6,
	token.SLASH:    6,
	token.PERCENT:  6,
}

var binaryOpFromKind = map[token.Kind]ast.BinaryOp{
	token.OR_OR:    ast.OpOr,
	token.AND_AND:  ast.OpAnd,
	token.EQ:       ast.OpEq,
	token.NOT_EQ:   ast.OpNe,
	token.LT:       ast.OpLt,
	token.LE:       ast.OpLe,
	token.GT:       ast.OpGt,
	token.GE:       ast.OpGe,
	token.PLUS:     ast.OpAdd,
	token.MINUS:    ast.OpSub,
	token.ASTERISK: ast.OpMul,
	token.SLASH:    ast.OpDiv,
	token.PERCENT:  ast.OpMod,
}

// parseExp parses a full Cond/Exp production (both are the same grammar in
// this language: the builder decides whether a value is used as a branch
// condition or as an int value).
func (p *Parser) parseExp() ast.Expr {
	return p.parseBinaryExp(1)
}

// parseAddExp parses the additive-and-tighter subset used for array
// dimensions and ConstExp contexts, where '&&'/'||'/relational operators
// are not meaningful.
func (p *Parser) parseAddExp() ast.Expr {
	return p.parseBinaryExp(5)
}

func (p *Parser) parseBinaryExp(minPrec int) ast.Expr {
	left := p.parseUnaryExp()
	for {
		prec, ok := binaryPrecedence[p.peek().Kind]
		if !ok || prec < minPrec {
			return left
		}
		opTok := p.advance()
		right := p.parseBinaryExp(prec + 1)
		left = &ast.BinaryExpr{
			Position: left.Pos(),
			Op:       binaryOpFromKind[opTok.Kind],
			Left:     left,
			Right:    right,
		}
	}
}

func (p *Parser) parseUnaryExp() ast.Expr {
	switch {
	case p.check(token.PLUS):
		pos := p.pos()
		p.advance()
		return &ast.UnaryExpr{Position: pos, Op: ast.UnaryPlus, Operand: p.parseUnaryExp()}
	case p.check(token.MINUS):
		pos := p.pos()
		p.advance()
		return &ast.UnaryExpr{Position: pos, Op: ast.UnaryNeg, Operand: p.parseUnaryExp()}
	case p.check(token.BANG):
		pos := p.pos()
		p.advance()
		return &ast.UnaryExpr{Position: pos, Op: ast.UnaryNot, Operand: p.parseUnaryExp()}
	case p.check(token.IDENT) && p.peekAt(1).Kind == token.LPAREN:
		return p.parseCallExp()
	default:
		return p.parsePrimaryExp()
	}
}

func (p *Parser) parseCallExp() ast.Expr {
	pos := p.pos()
	name := p.expectIdent("expected function name")
	p.expect(token.LPAREN, "expected '(' after function name")
	call := &ast.CallExpr{Position: pos, Callee: name}
	if !p.check(token.RPAREN) {
		call.Args = append(call.Args, p.parseCallArg())
		for p.match(token.COMMA) {
			call.Args = append(call.Args, p.parseCallArg())
		}
	}
	p.expect(token.RPAREN, "expected ')' after arguments")
	return call
}

// parseCallArg allows a bare string literal as a call argument, the putf
// format-string case; every other call takes ordinary int expressions.
func (p *Parser) parseCallArg() ast.Expr {
	if p.check(token.STRING) {
		pos := p.pos()
		lit := p.advance()
		return &ast.StringLit{Position: pos, Value: unquote(lit.Lexeme)}
	}
	return p.parseExp()
}

func (p *Parser) parsePrimaryExp() ast.Expr {
	switch {
	case p.match(token.LPAREN):
		e := p.parseExp()
		p.expect(token.RPAREN, "expected ')'")
		return e
	case p.check(token.NUMBER):
		pos := p.pos()
		lit := p.advance()
		v, err := strconv.ParseInt(lit.Lexeme, 0, 64)
		if err != nil {
			p.errorAt(pos, "invalid integer literal '"+lit.Lexeme+"'")
		}
		return &ast.NumberLit{Position: pos, Value: v}
	case p.check(token.IDENT):
		return p.parseLVal()
	default:
		pos := p.pos()
		p.errorAt(pos, "expected expression")
		p.advance()
		return &ast.NumberLit{Position: pos, Value: 0}
	}
}

func unquote(lexeme string) string {
	if len(lexeme) >= 2 {
		return lexeme[1 : len(lexeme)-1]
	}
	return lexeme
}
