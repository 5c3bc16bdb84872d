package sql

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var sqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `--[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Keyword", Pattern: `(?i)\b(CREATE|TABLE|INDEX|ON|USING|PRIMARY|KEY|SELECT|FROM|WHERE|AND|OR|BETWEEN|INSERT|INTO|VALUES|FILE|DELETE|DROP|EXPLAIN|SHOW|TABLES|NULL|TRUE|FALSE)\b`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Float", Pattern: `[-+]?\d+\.\d*([eE][-+]?\d+)?`},
	{Name: "Int", Pattern: `[-+]?\d+`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"|'(''|[^'])*'`},
	{Name: "Operator", Pattern: `<=|>=|[=<>(),;*]`},
})

func buildParser() (*participle.Parser[script], error) {
	return participle.Build[script](
		participle.Lexer(sqlLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.CaseInsensitive("Keyword"),
		participle.UseLookahead(2),
	)
}

type script struct {
	Statements []*statement `parser:"';'* ( @@ ';'* )*"`
}

type statement struct {
	Pos lexer.Position

	Create  *createStmt `parser:"  'CREATE' @@"`
	Explain *selectStmt `parser:"| 'EXPLAIN' @@"`
	Select  *selectStmt `parser:"| @@"`
	Insert  *insertStmt `parser:"| @@"`
	Delete  *deleteStmt `parser:"| @@"`
	Drop    *string     `parser:"| 'DROP' 'TABLE' @Ident"`
	Show    bool        `parser:"| @( 'SHOW' 'TABLES' )"`
}

type createStmt struct {
	Table *createTable `parser:"  'TABLE' @@"`
	Index *createIndex `parser:"| 'INDEX' @@"`
}

type createTable struct {
	Name    string       `parser:"@Ident"`
	Columns []*columnDef `parser:"'(' @@ ( ',' @@ )* ')'"`
}

type columnDef struct {
	Name       string `parser:"@Ident"`
	Type       string `parser:"@Ident"`
	Size       *int   `parser:"( '(' @Int ')' )?"`
	PrimaryKey bool   `parser:"@( 'PRIMARY' 'KEY' )?"`
}

type createIndex struct {
	Name   string `parser:"@Ident?"`
	Table  string `parser:"'ON' @Ident"`
	Column string `parser:"'(' @Ident ')'"`
	Kind   string `parser:"( 'USING' @Ident )?"`
}

type selectStmt struct {
	All     bool     `parser:"'SELECT' ( @'*'"`
	Columns []string `parser:"        | @Ident ( ',' @Ident )* )"`
	Table   string   `parser:"'FROM' @Ident"`
	Where   *orExpr  `parser:"( 'WHERE' @@ )?"`
}

type insertStmt struct {
	Table  string   `parser:"'INSERT' 'INTO' @Ident"`
	Values []*value `parser:"( 'VALUES' '(' @@ ( ',' @@ )* ')'"`
	File   *string  `parser:"| 'FROM' 'FILE' @String )"`
}

type deleteStmt struct {
	Table string  `parser:"'DELETE' 'FROM' @Ident"`
	Where *orExpr `parser:"'WHERE' @@"`
}

type orExpr struct {
	Groups []*andExpr `parser:"@@ ( 'OR' @@ )*"`
}

type andExpr struct {
	Conditions []*condition `parser:"@@ ( 'AND' @@ )*"`
}

type condition struct {
	Column string `parser:"@Ident"`
	Op     string `parser:"( @( '<=' | '>=' | '=' | '<' | '>' )"`
	Value  *value `parser:"  @@"`
	Low    *value `parser:"| 'BETWEEN' @@"`
	High   *value `parser:"  'AND' @@ )"`
}

type value struct {
	Null   bool     `parser:"  @'NULL'"`
	True   bool     `parser:"| @'TRUE'"`
	False  bool     `parser:"| @'FALSE'"`
	Float  *float64 `parser:"| @Float"`
	Int    *int64   `parser:"| @Int"`
	String *string  `parser:"| @String"`
}
