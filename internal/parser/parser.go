package parser

import (
	"fmt"

	"act/internal/ast"
	"act/internal/lexer"
	"act/internal/span"
	"act/internal/types"
)

// Parser is a recursive descent parser over the token stream produced by
// the lexer. Failures carry a single position and message; at end of input
// the last token's position is used.
type Parser struct {
	toks []lexer.Token
	pos  int
}

// Parse lexes and parses a whole source file.
func Parse(src string) (*ast.File, error) {
	toks, err := lexer.Lex(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.file()
}

func (p *Parser) cur() lexer.Token {
	return p.toks[p.pos]
}

func (p *Parser) peek() lexer.Token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) advance() lexer.Token {
	tok := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) errf(pos span.Pos, format string, args ...interface{}) error {
	return &span.Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(kind lexer.Kind) (lexer.Token, error) {
	tok := p.cur()
	if tok.Kind != kind {
		return tok, p.errf(tok.Pos, "expected %s, found %s", kind, tok.Kind)
	}
	return p.advance(), nil
}

func (p *Parser) file() (*ast.File, error) {
	f := &ast.File{}
	for {
		switch p.cur().Kind {
		case lexer.EOF:
			if len(f.Behaviours) == 0 {
				return nil, p.errf(p.cur().Pos, "empty specification")
			}
			return f, nil
		case lexer.BEHAVIOUR:
			t, err := p.transition()
			if err != nil {
				return nil, err
			}
			f.Behaviours = append(f.Behaviours, t)
		case lexer.CONSTRUCTOR:
			d, err := p.definition()
			if err != nil {
				return nil, err
			}
			f.Behaviours = append(f.Behaviours, d)
		default:
			return nil, p.errf(p.cur().Pos, "expected behaviour or constructor, found %s", p.cur().Kind)
		}
	}
}

func (p *Parser) transition() (*ast.Transition, error) {
	start := p.advance() // behaviour
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.OF); err != nil {
		return nil, err
	}
	contract, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	iface, err := p.iface()
	if err != nil {
		return nil, err
	}
	iffs, err := p.iffClauses()
	if err != nil {
		return nil, err
	}
	cases, err := p.cases()
	if err != nil {
		return nil, err
	}
	ensures, err := p.exprSection(lexer.ENSURES)
	if err != nil {
		return nil, err
	}
	return &ast.Transition{
		P:        start.Pos,
		Name:     name.Lit,
		Contract: contract.Lit,
		Iface:    iface,
		Iffs:     iffs,
		Cases:    cases,
		Ensures:  ensures,
	}, nil
}

func (p *Parser) definition() (*ast.Definition, error) {
	start := p.advance() // constructor
	if _, err := p.expect(lexer.OF); err != nil {
		return nil, err
	}
	contract, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	iface, err := p.iface()
	if err != nil {
		return nil, err
	}
	iffs, err := p.iffClauses()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.CREATES); err != nil {
		return nil, err
	}
	var creates []ast.Assign
	for p.startsAssign() {
		a, err := p.assign()
		if err != nil {
			return nil, err
		}
		creates = append(creates, a)
	}
	ensures, err := p.exprSection(lexer.ENSURES)
	if err != nil {
		return nil, err
	}
	invariants, err := p.exprSection(lexer.INVARIANTS)
	if err != nil {
		return nil, err
	}
	return &ast.Definition{
		P:          start.Pos,
		Contract:   contract.Lit,
		Iface:      iface,
		Iffs:       iffs,
		Creates:    creates,
		Ensures:    ensures,
		Invariants: invariants,
	}, nil
}

func (p *Parser) iface() (ast.Interface, error) {
	kw, err := p.expect(lexer.INTERFACE)
	if err != nil {
		return ast.Interface{}, err
	}
	var name string
	switch p.cur().Kind {
	case lexer.IDENT:
		name = p.advance().Lit
	case lexer.CONSTRUCTOR:
		// the constructor interface is spelled `constructor(...)`
		name = "constructor"
		p.advance()
	default:
		return ast.Interface{}, p.errf(p.cur().Pos, "expected interface name, found %s", p.cur().Kind)
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return ast.Interface{}, err
	}
	var args []ast.Decl
	for p.cur().Kind != lexer.RPAREN {
		if len(args) > 0 {
			if _, err := p.expect(lexer.COMMA); err != nil {
				return ast.Interface{}, err
			}
		}
		typ, err := p.abiType()
		if err != nil {
			return ast.Interface{}, err
		}
		argPos := p.cur().Pos
		argName, err := p.expect(lexer.IDENT)
		if err != nil {
			return ast.Interface{}, err
		}
		args = append(args, ast.Decl{P: argPos, Type: typ, Name: argName.Lit})
	}
	p.advance() // )
	return ast.Interface{P: kw.Pos, Name: name, Args: args}, nil
}

func (p *Parser) abiType() (types.AbiType, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.UINTTYPE:
		p.advance()
		return types.UIntType(tok.Size), nil
	case lexer.INTTYPE:
		p.advance()
		return types.IntType(tok.Size), nil
	case lexer.BYTESTYPE:
		p.advance()
		return types.BytesType(tok.Size), nil
	case lexer.BYTESDYN:
		p.advance()
		return types.BytesDynType(), nil
	case lexer.ADDRESS:
		p.advance()
		return types.AddressType(), nil
	case lexer.BOOLTYPE:
		p.advance()
		return types.BoolType(), nil
	case lexer.STRINGTYPE:
		p.advance()
		return types.StringType(), nil
	}
	return types.AbiType{}, p.errf(tok.Pos, "expected a type, found %s", tok.Kind)
}

func (p *Parser) startsType() bool {
	switch p.cur().Kind {
	case lexer.UINTTYPE, lexer.INTTYPE, lexer.BYTESTYPE, lexer.BYTESDYN,
		lexer.ADDRESS, lexer.BOOLTYPE, lexer.STRINGTYPE:
		return true
	}
	return false
}

func (p *Parser) startsAssign() bool {
	return p.startsType() || p.cur().Kind == lexer.MAPPING
}

func (p *Parser) iffClauses() ([]ast.IffClause, error) {
	var clauses []ast.IffClause
	for p.cur().Kind == lexer.IFF {
		kw := p.advance()
		clause := ast.IffClause{P: kw.Pos}
		if p.cur().Kind == lexer.IN {
			p.advance()
			if _, err := p.expect(lexer.RANGE); err != nil {
				return nil, err
			}
			typ, err := p.abiType()
			if err != nil {
				return nil, err
			}
			clause.Range = &typ
		}
		exprs, err := p.exprList()
		if err != nil {
			return nil, err
		}
		if len(exprs) == 0 {
			return nil, p.errf(p.cur().Pos, "empty iff block")
		}
		clause.Exprs = exprs
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

// exprSection parses `<keyword> expr…` when the keyword is present.
func (p *Parser) exprSection(kw lexer.Kind) ([]ast.Expr, error) {
	if p.cur().Kind != kw {
		return nil, nil
	}
	p.advance()
	exprs, err := p.exprList()
	if err != nil {
		return nil, err
	}
	if len(exprs) == 0 {
		return nil, p.errf(p.cur().Pos, "empty %s block", kw)
	}
	return exprs, nil
}

func (p *Parser) exprList() ([]ast.Expr, error) {
	var out []ast.Expr
	for p.startsExpr() {
		e, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (p *Parser) startsExpr() bool {
	switch p.cur().Kind {
	case lexer.IDENT, lexer.NUMBER, lexer.TRUE, lexer.FALSE, lexer.ENVVAR,
		lexer.PRE, lexer.POST, lexer.NOT, lexer.IF, lexer.LPAREN, lexer.MINUS:
		return true
	}
	return false
}

// cases parses either a direct post (storage/returns at behaviour level)
// or a flat list of `case guard:` branches.
func (p *Parser) cases() (ast.Cases, error) {
	if p.cur().Kind == lexer.CASE {
		var branches []ast.Branch
		for p.cur().Kind == lexer.CASE {
			br, err := p.branch()
			if err != nil {
				return ast.Cases{}, err
			}
			branches = append(branches, br)
		}
		return ast.Cases{Branches: branches}, nil
	}
	post, err := p.post()
	if err != nil {
		return ast.Cases{}, err
	}
	return ast.Cases{Direct: post}, nil
}

func (p *Parser) branch() (ast.Branch, error) {
	kw := p.advance() // case
	br := ast.Branch{P: kw.Pos}
	if p.cur().Kind == lexer.IDENT && p.cur().Lit == "_" && p.peek().Kind == lexer.COLON {
		br.Wildcard = true
		p.advance()
	} else {
		guard, err := p.expr(0)
		if err != nil {
			return ast.Branch{}, err
		}
		br.Guard = guard
	}
	if _, err := p.expect(lexer.COLON); err != nil {
		return ast.Branch{}, err
	}
	post, err := p.post()
	if err != nil {
		return ast.Branch{}, err
	}
	br.Post = post
	return br, nil
}

// post parses `noop`, or an optional storage section followed by an
// optional returns clause.
func (p *Parser) post() (*ast.Post, error) {
	pos := p.cur().Pos
	if p.cur().Kind == lexer.NOOP {
		p.advance()
		return &ast.Post{P: pos}, nil
	}
	post := &ast.Post{P: pos}
	if p.cur().Kind == lexer.STORAGE {
		p.advance()
		for p.startsUpdate() {
			u, err := p.updateLine()
			if err != nil {
				return nil, err
			}
			post.Storage = append(post.Storage, u)
		}
		if len(post.Storage) == 0 {
			return nil, p.errf(p.cur().Pos, "empty storage block")
		}
	}
	if p.cur().Kind == lexer.RETURNS {
		p.advance()
		ret, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		post.Returns = ret
	}
	if post.Storage == nil && post.Returns == nil {
		return nil, p.errf(pos, "expected storage, returns, noop or case, found %s", p.cur().Kind)
	}
	return post, nil
}

func (p *Parser) startsUpdate() bool {
	return p.cur().Kind == lexer.IDENT
}

// updateLine parses `ref => expr`. The left-hand side is a reference, not
// a general expression, so the => here is unambiguous.
func (p *Parser) updateLine() (ast.UpdateLine, error) {
	pos := p.cur().Pos
	ref, err := p.refPath()
	if err != nil {
		return ast.UpdateLine{}, err
	}
	if _, err := p.expect(lexer.ARROW); err != nil {
		return ast.UpdateLine{}, err
	}
	value, err := p.expr(0)
	if err != nil {
		return ast.UpdateLine{}, err
	}
	return ast.UpdateLine{P: pos, Ref: ref, Value: value}, nil
}

func (p *Parser) assign() (ast.Assign, error) {
	pos := p.cur().Pos
	if p.cur().Kind == lexer.MAPPING {
		keys, value, err := p.mappingType()
		if err != nil {
			return nil, err
		}
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.ASSIGN); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.LBRACK); err != nil {
			return nil, err
		}
		var pairs []ast.MappingPair
		for p.cur().Kind != lexer.RBRACK {
			if len(pairs) > 0 {
				if _, err := p.expect(lexer.COMMA); err != nil {
					return nil, err
				}
			}
			pairPos := p.cur().Pos
			key, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.ASSIGN); err != nil {
				return nil, err
			}
			val, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, ast.MappingPair{P: pairPos, Key: key, Value: val})
		}
		p.advance() // ]
		return &ast.AssignMapping{P: pos, Keys: keys, Value: value, Name: name.Lit, Init: pairs}, nil
	}

	typ, err := p.abiType()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	return &ast.AssignVal{P: pos, Type: typ, Name: name.Lit, Value: value}, nil
}

// mappingType parses `mapping(<key> => <value>)`, flattening nested
// mapping values into a key list.
func (p *Parser) mappingType() ([]types.AbiType, types.AbiType, error) {
	p.advance() // mapping
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, types.AbiType{}, err
	}
	key, err := p.abiType()
	if err != nil {
		return nil, types.AbiType{}, err
	}
	if _, err := p.expect(lexer.ARROW); err != nil {
		return nil, types.AbiType{}, err
	}
	keys := []types.AbiType{key}
	var value types.AbiType
	if p.cur().Kind == lexer.MAPPING {
		rest, v, err := p.mappingType()
		if err != nil {
			return nil, types.AbiType{}, err
		}
		keys = append(keys, rest...)
		value = v
	} else {
		value, err = p.abiType()
		if err != nil {
			return nil, types.AbiType{}, err
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, types.AbiType{}, err
	}
	return keys, value, nil
}
