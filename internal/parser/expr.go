package parser

import (
	"act/internal/ast"
	"act/internal/lexer"
)

// binding powers, loosest first; right-associative operators rebind at
// their own level
const (
	precImpl = 1
	precOr   = 2
	precAnd  = 3
	precEq   = 4
	precCmp  = 5
	precCat  = 6
	precAdd  = 7
	precMul  = 8
	precExp  = 9
)

type opInfo struct {
	op    ast.BinOp
	prec  int
	right bool
}

var binaryOps = map[lexer.Kind]opInfo{
	lexer.ARROW:     {ast.OpImpl, precImpl, true},
	lexer.OR:        {ast.OpOr, precOr, false},
	lexer.AND:       {ast.OpAnd, precAnd, false},
	lexer.EQEQ:      {ast.OpEq, precEq, false},
	lexer.NEQ:       {ast.OpNeq, precEq, false},
	lexer.LT:        {ast.OpLt, precCmp, false},
	lexer.LEQ:       {ast.OpLeq, precCmp, false},
	lexer.GT:        {ast.OpGt, precCmp, false},
	lexer.GEQ:       {ast.OpGeq, precCmp, false},
	lexer.CAT:       {ast.OpCat, precCat, false},
	lexer.PLUS:      {ast.OpAdd, precAdd, false},
	lexer.MINUS:     {ast.OpSub, precAdd, false},
	lexer.STAR:      {ast.OpMul, precMul, false},
	lexer.SLASH:     {ast.OpDiv, precMul, false},
	lexer.PERCENT:   {ast.OpMod, precMul, false},
	lexer.CARET:     {ast.OpExp, precExp, true},
}

// expr is a precedence-climbing expression parser.
func (p *Parser) expr(minPrec int) (ast.Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		info, ok := binaryOps[p.cur().Kind]
		if !ok || info.prec < minPrec {
			return left, nil
		}
		opTok := p.advance()
		next := info.prec + 1
		if info.right {
			next = info.prec
		}
		right, err := p.expr(next)
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{P: opTok.Pos, Op: info.op, L: left, R: right}
	}
}

func (p *Parser) unary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.NOT:
		p.advance()
		e, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Not{P: tok.Pos, E: e}, nil
	case lexer.MINUS:
		p.advance()
		num, err := p.expect(lexer.NUMBER)
		if err != nil {
			return nil, err
		}
		return &ast.IntLit{P: tok.Pos, Lit: "-" + num.Lit}, nil
	}
	return p.primary()
}

func (p *Parser) primary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.NUMBER:
		p.advance()
		return &ast.IntLit{P: tok.Pos, Lit: tok.Lit}, nil

	case lexer.TRUE:
		p.advance()
		return &ast.BoolLit{P: tok.Pos, Val: true}, nil

	case lexer.FALSE:
		p.advance()
		return &ast.BoolLit{P: tok.Pos, Val: false}, nil

	case lexer.ENVVAR:
		p.advance()
		return &ast.EnvRef{P: tok.Pos, Name: tok.Lit}, nil

	case lexer.LPAREN:
		p.advance()
		e, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return e, nil

	case lexer.IF:
		p.advance()
		cond, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.THEN); err != nil {
			return nil, err
		}
		then, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.ELSE); err != nil {
			return nil, err
		}
		els, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return &ast.ITE{P: tok.Pos, Cond: cond, Then: then, Else: els}, nil

	case lexer.PRE, lexer.POST:
		tag := ast.TimePre
		if tok.Kind == lexer.POST {
			tag = ast.TimePost
		}
		p.advance()
		if _, err := p.expect(lexer.LPAREN); err != nil {
			return nil, err
		}
		ref, err := p.refPath()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return &ast.Entry{P: tok.Pos, Tag: tag, TagPos: tok.Pos, Ref: ref}, nil

	case lexer.IDENT:
		return p.entryOrSlice()
	}
	return nil, p.errf(tok.Pos, "expected an expression, found %s", tok.Kind)
}

// entryOrSlice parses an identifier followed by any number of bracket
// groups. A group containing `..` turns the reference parsed so far into
// a bytestring slice.
func (p *Parser) entryOrSlice() (ast.Expr, error) {
	start := p.cur()
	var ref ast.Ref = &ast.VarRef{P: start.Pos, Name: p.advance().Lit}
	for p.cur().Kind == lexer.LBRACK {
		open := p.advance()
		first, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if p.cur().Kind == lexer.RANGEDOTS {
			p.advance()
			to, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBRACK); err != nil {
				return nil, err
			}
			return &ast.SliceExpr{
				P:     start.Pos,
				Bytes: &ast.Entry{P: start.Pos, Ref: ref},
				From:  first,
				To:    to,
			}, nil
		}
		indexes := []ast.Expr{first}
		for p.cur().Kind == lexer.COMMA {
			p.advance()
			ix, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			indexes = append(indexes, ix)
		}
		if _, err := p.expect(lexer.RBRACK); err != nil {
			return nil, err
		}
		ref = &ast.MapRef{P: open.Pos, Base: ref, Indexes: indexes}
	}
	return &ast.Entry{P: start.Pos, Ref: ref}, nil
}

// refPath parses a bare reference (no slices), as used on the left of
// storage updates and inside pre(…)/post(…).
func (p *Parser) refPath() (ast.Ref, error) {
	start, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	var ref ast.Ref = &ast.VarRef{P: start.Pos, Name: start.Lit}
	for p.cur().Kind == lexer.LBRACK {
		open := p.advance()
		var indexes []ast.Expr
		for {
			ix, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			indexes = append(indexes, ix)
			if p.cur().Kind != lexer.COMMA {
				break
			}
			p.advance()
		}
		if _, err := p.expect(lexer.RBRACK); err != nil {
			return nil, err
		}
		ref = &ast.MapRef{P: open.Pos, Base: ref, Indexes: indexes}
	}
	return ref, nil
}
