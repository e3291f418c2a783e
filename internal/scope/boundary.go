package scope

import (
	"context"

	"github.com/google/uuid"

	"github.com/0xsj/go-loom/internal/manifest"
)

// Token delimits the lifetime of a request or session scope. Opaque to
// callers; entries created under one token are never visible under another.
type Token struct {
	id   string
	kind manifest.Scope
}

func newToken(kind manifest.Scope) Token {
	return Token{id: uuid.NewString(), kind: kind}
}

func (t Token) ID() string {
	return t.id
}

func (t Token) Kind() manifest.Scope {
	return t.kind
}

func (t Token) IsZero() bool {
	return t.id == ""
}

func (t Token) String() string {
	return t.kind.String() + ":" + t.id
}

type tokenContextKey manifest.Scope

// WithToken attaches a boundary token to the context. Request and session
// tokens occupy separate slots, so both may be active at once.
func WithToken(ctx context.Context, tok Token) context.Context {
	return context.WithValue(ctx, tokenContextKey(tok.kind), tok)
}

// TokenFrom extracts the boundary token for the given scope kind.
func TokenFrom(ctx context.Context, kind manifest.Scope) (Token, bool) {
	tok, ok := ctx.Value(tokenContextKey(kind)).(Token)
	return tok, ok
}
