// Package session executes SQL text against an engine and keeps the
// response of the last statement.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/rizalta/toysql/logging"
	"github.com/rizalta/toysql/metrics"
	"github.com/rizalta/toysql/planner"
	"github.com/rizalta/toysql/sql"
)

var ErrIO = errors.New("session: cannot read source")

// exit ends the process when a script file cannot be read.
var exit = os.Exit

// Session runs statements one at a time. It is not safe for concurrent
// use; give every caller its own session and engine.
type Session struct {
	id        string
	engine    planner.Engine
	planner   *planner.Planner
	validator *planner.Validator
	logger    *slog.Logger
	response  Response
}

func New(engine planner.Engine, logger *slog.Logger) *Session {
	if logger == nil {
		logger = logging.Get()
	}

	id := uuid.NewString()
	logger = logger.With("session", id)
	p := planner.New(engine, logger)

	s := &Session{
		id:        id,
		engine:    engine,
		planner:   p,
		validator: p.Validator(),
		logger:    logger,
	}
	s.Clear()
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Response returns the session's response. It keeps changing as more
// statements run; use Clone for a snapshot.
func (s *Session) Response() *Response {
	return &s.response
}

// Clear resets the response to an empty success.
func (s *Session) Clear() {
	s.response = Response{Code: CodeOK}
}

// ParseFile runs the script at path. A file that cannot be read ends the
// process.
func (s *Session) ParseFile(path string) (*Response, error) {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Error("failed to open script", "path", path, "error", err)
		exit(1)
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer f.Close()

	s.logger.Info("running script", "path", path)
	return s.Parse(f)
}

// Parse runs every statement read from r and returns the session's
// response. The first failing statement stops the run; its error is also
// recorded in the response.
func (s *Session) Parse(r io.Reader) (*Response, error) {
	stmts, err := sql.Parse(r)
	if err != nil {
		s.logger.Error("parsing failed", "error", err)
		return s.fail(err)
	}

	for _, stmt := range stmts {
		err := s.execute(stmt)
		metrics.RecordStatement(stmt.Kind(), err)
		if err != nil {
			s.logger.Error("statement failed", "kind", stmt.Kind(), "error", err)
			return s.fail(err)
		}
		s.response.Code = CodeOK
		s.response.Error = ""
	}
	return &s.response, nil
}

func (s *Session) fail(err error) (*Response, error) {
	s.response.Error = err.Error()
	s.response.Code = statusCode(err)
	return &s.response, err
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, sql.ErrSyntax), errors.Is(err, planner.ErrSchema):
		return CodeBadRequest
	}
	return CodeInternal
}
