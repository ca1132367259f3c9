// SPDX-License-Identifier: Apache-2.0
package parser

import (
	"fmt"

	"sysyarm/internal/ast"
	"sysyarm/token"
)

// ParseError is a syntax diagnostic with enough position info for a
// caret-style message, mirroring kanso's parser.ParseError.
type ParseError struct {
	Message string
	Line    int
	Column  int
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Parser is a hand-written recursive-descent + precedence-climbing parser,
// the idiom kanso's own internal/parser actually uses for expressions
// (parser_pratt.go) once its participle/grammar path is set aside (see
// DESIGN.md: that path is dead code in kanso, never wired to a working
// ParseSource).
type Parser struct {
	tokens  []token.Token
	current int
	errors  []ParseError
}

// ParseSource scans and parses source into a CompUnit. It never panics on
// malformed input: syntax problems are collected into the returned error
// slice exactly as scan errors are collected by the Scanner, so a caller
// can report every problem found in one pass.
func ParseSource(source string) (*ast.CompUnit, []ParseError, []ScanError) {
	scanner := NewScanner(source)
	tokens := scanner.ScanTokens()

	p := &Parser{tokens: tokens}
	cu := p.parseCompUnit()
	return cu, p.errors, scanner.errors
}

func (p *Parser) parseCompUnit() *ast.CompUnit {
	cu := &ast.CompUnit{Position: p.pos()}
	for !p.check(token.EOF) {
		if p.isFuncDefAhead() {
			cu.Funcs = append(cu.Funcs, p.parseFuncDef())
		} else {
			cu.Decls = append(cu.Decls, p.parseDecl())
		}
	}
	return cu
}

// isFuncDefAhead distinguishes `int f(...)` from `int x;` by looking past
// the leading type and identifier for a '('.
func (p *Parser) isFuncDefAhead() bool {
	save := p.current
	defer func() { p.current = save }()

	if p.check(token.VOID) {
		return true
	}
	if !p.check(token.INT) && !p.check(token.CONST) {
		return true // let parseDecl produce a clear error
	}
	if p.check(token.CONST) {
		return false
	}
	p.advance() // int
	if !p.check(token.IDENT) {
		return false
	}
	p.advance() // ident
	return p.check(token.LPAREN)
}

func (p *Parser) parseDecl() ast.Decl {
	if p.match(token.CONST) {
		return p.parseConstDecl()
	}
	return p.parseVarDecl()
}

func (p *Parser) parseConstDecl() *ast.ConstDecl {
	pos := p.previousPos()
	p.expect(token.INT, "expected 'int' after 'const'")
	decl := &ast.ConstDecl{Position: pos}
	decl.Defs = append(decl.Defs, p.parseConstDef())
	for p.match(token.COMMA) {
		decl.Defs = append(decl.Defs, p.parseConstDef())
	}
	p.expect(token.SEMICOLON, "expected ';' after const declaration")
	return decl
}

func (p *Parser) parseConstDef() *ast.ConstDef {
	pos := p.pos()
	name := p.expectIdent("expected identifier")
	def := &ast.ConstDef{Position: pos, Name: name, Dims: p.parseDims()}
	p.expect(token.ASSIGN, "expected '=' in const definition")
	def.Init = p.parseInitVal()
	return def
}

func (p *Parser) parseVarDecl() *ast.VarDecl {
	pos := p.pos()
	p.expect(token.INT, "expected 'int' in declaration")
	decl := &ast.VarDecl{Position: pos}
	decl.Defs = append(decl.Defs, p.parseVarDef())
	for p.match(token.COMMA) {
		decl.Defs = append(decl.Defs, p.parseVarDef())
	}
	p.expect(token.SEMICOLON, "expected ';' after variable declaration")
	return decl
}

func (p *Parser) parseVarDef() *ast.VarDef {
	pos := p.pos()
	name := p.expectIdent("expected identifier")
	def := &ast.VarDef{Position: pos, Name: name, Dims: p.parseDims()}
	if p.match(token.ASSIGN) {
		def.Init = p.parseInitVal()
	}
	return def
}

func (p *Parser) parseDims() []ast.Expr {
	var dims []ast.Expr
	for p.match(token.LBRACKET) {
		dims = append(dims, p.parseAddExp())
		p.expect(token.RBRACKET, "expected ']'")
	}
	return dims
}

func (p *Parser) parseInitVal() ast.InitVal {
	if p.check(token.LBRACE) {
		pos := p.pos()
		p.advance()
		list := &ast.ListInit{Position: pos}
		if !p.check(token.RBRACE) {
			list.Elems = append(list.Elems, p.parseInitVal())
			for p.match(token.COMMA) {
				list.Elems = append(list.Elems, p.parseInitVal())
			}
		}
		p.expect(token.RBRACE, "expected '}' in initializer list")
		return list
	}
	pos := p.pos()
	return &ast.ScalarInit{Position: pos, Value: p.parseExp()}
}

func (p *Parser) parseFuncDef() *ast.FuncDef {
	pos := p.pos()
	kind := ast.FuncInt
	if p.match(token.VOID) {
		kind = ast.FuncVoid
	} else {
		p.expect(token.INT, "expected 'int' or 'void' return type")
	}
	name := p.expectIdent("expected function name")
	p.expect(token.LPAREN, "expected '(' after function name")
	fn := &ast.FuncDef{Position: pos, Name: name, Kind: kind}
	if !p.check(token.RPAREN) {
		fn.Params = append(fn.Params, p.parseParam())
		for p.match(token.COMMA) {
			fn.Params = append(fn.Params, p.parseParam())
		}
	}
	p.expect(token.RPAREN, "expected ')' after parameters")
	fn.Body = p.parseBlock()
	return fn
}

func (p *Parser) parseParam() *ast.Param {
	pos := p.pos()
	p.expect(token.INT, "expected 'int' parameter type")
	name := p.expectIdent("expected parameter name")
	param := &ast.Param{Position: pos, Name: name}
	if p.match(token.LBRACKET) {
		param.IsArray = true
		param.Dims = append(param.Dims, nil) // decayed leading dimension
		p.expect(token.RBRACKET, "expected ']'")
		for p.match(token.LBRACKET) {
			param.Dims = append(param.Dims, p.parseAddExp())
			p.expect(token.RBRACKET, "expected ']'")
		}
	}
	return param
}

func (p *Parser) parseBlock() *ast.Block {
	pos := p.pos()
	p.expect(token.LBRACE, "expected '{'")
	block := &ast.Block{Position: pos}
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		block.Items = append(block.Items, p.parseBlockItem())
	}
	p.expect(token.RBRACE, "expected '}'")
	return block
}

func (p *Parser) parseBlockItem() ast.BlockItem {
	if p.check(token.CONST) || p.check(token.INT) {
		return p.parseDecl()
	}
	return p.parseStmt()
}

func (p *Parser) parseStmt() ast.Stmt {
	switch {
	case p.check(token.LBRACE):
		return p.parseBlock()
	case p.match(token.IF):
		return p.parseIfStmt()
	case p.match(token.WHILE):
		return p.parseWhileStmt()
	case p.match(token.BREAK):
		pos := p.previousPos()
		p.expect(token.SEMICOLON, "expected ';' after 'break'")
		return &ast.BreakStmt{Position: pos}
	case p.match(token.CONTINUE):
		pos := p.previousPos()
		p.expect(token.SEMICOLON, "expected ';' after 'continue'")
		return &ast.ContinueStmt{Position: pos}
	case p.match(token.RETURN):
		pos := p.previousPos()
		var val ast.Expr
		if !p.check(token.SEMICOLON) {
			val = p.parseExp()
		}
		p.expect(token.SEMICOLON, "expected ';' after return value")
		return &ast.ReturnStmt{Position: pos, Value: val}
	case p.check(token.SEMICOLON):
		pos := p.pos()
		p.advance()
		return &ast.EmptyStmt{Position: pos}
	default:
		return p.parseSimpleStmt()
	}
}

// parseSimpleStmt disambiguates an assignment `LVal = Exp;` from a bare
// expression statement by speculatively parsing an LVal and checking for a
// following '='.
func (p *Parser) parseSimpleStmt() ast.Stmt {
	if p.check(token.IDENT) && p.assignmentAhead() {
		pos := p.pos()
		lval := p.parseLVal()
		p.expect(token.ASSIGN, "expected '=' in assignment")
		value := p.parseExp()
		p.expect(token.SEMICOLON, "expected ';' after assignment")
		return &ast.AssignStmt{Position: pos, Target: lval, Value: value}
	}
	pos := p.pos()
	expr := p.parseExp()
	p.expect(token.SEMICOLON, "expected ';' after expression")
	return &ast.ExprStmt{Position: pos, Value: expr}
}

func (p *Parser) assignmentAhead() bool {
	save := p.current
	defer func() { p.current = save }()
	p.advance() // ident
	for p.check(token.LBRACKET) {
		p.advance()
		depth := 1
		for depth > 0 && !p.check(token.EOF) {
			if p.check(token.LBRACKET) {
				depth++
			} else if p.check(token.RBRACKET) {
				depth--
			}
			p.advance()
		}
	}
	return p.check(token.ASSIGN)
}

func (p *Parser) parseIfStmt() ast.Stmt {
	pos := p.previousPos()
	p.expect(token.LPAREN, "expected '(' after 'if'")
	cond := p.parseExp()
	p.expect(token.RPAREN, "expected ')' after condition")
	then := p.parseStmt()
	var els ast.Stmt
	if p.match(token.ELSE) {
		els = p.parseStmt()
	}
	return &ast.IfStmt{Position: pos, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	pos := p.previousPos()
	p.expect(token.LPAREN, "expected '(' after 'while'")
	cond := p.parseExp()
	p.expect(token.RPAREN, "expected ')' after condition")
	body := p.parseStmt()
	return &ast.WhileStmt{Position: pos, Cond: cond, Body: body}
}

func (p *Parser) parseLVal() *ast.LValExpr {
	pos := p.pos()
	name := p.expectIdent("expected identifier")
	lval := &ast.LValExpr{Position: pos, Name: name}
	for p.match(token.LBRACKET) {
		lval.Indices = append(lval.Indices, p.parseExp())
		p.expect(token.RBRACKET, "expected ']'")
	}
	return lval
}
