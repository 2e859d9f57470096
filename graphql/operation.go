// Package graphql is the session's GraphQL transport. Queries and mutations go
// over HTTP, subscriptions over a graphql-ws WebSocket. Both read the bearer
// token from the token store on every call or handshake.
package graphql

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Operation is a GraphQL request document plus its variables.
type Operation struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

type Kind string

const (
	KindQuery        Kind = "query"
	KindMutation     Kind = "mutation"
	KindSubscription Kind = "subscription"
)

// KindOf parses the document and returns the kind of the operation named by
// OperationName, or of the first operation when no name is given.
func KindOf(op Operation) (Kind, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "operation", Input: op.Query})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	if len(doc.Operations) == 0 {
		return "", fmt.Errorf("%w: document has no operations", ErrInvalidOperation)
	}

	def := doc.Operations[0]
	if op.OperationName != "" {
		def = doc.Operations.ForName(op.OperationName)
		if def == nil {
			return "", fmt.Errorf("%w: no operation named %q", ErrInvalidOperation, op.OperationName)
		}
	}

	switch def.Operation {
	case ast.Query:
		return KindQuery, nil
	case ast.Mutation:
		return KindMutation, nil
	case ast.Subscription:
		return KindSubscription, nil
	}
	return "", fmt.Errorf("%w: unknown operation type %q", ErrInvalidOperation, def.Operation)
}

// IsSubscription reports whether op must travel over the streaming channel.
// Unparseable documents are not subscriptions.
func IsSubscription(op Operation) bool {
	kind, err := KindOf(op)
	return err == nil && kind == KindSubscription
}

// Response is the standard GraphQL response envelope.
type Response struct {
	Data       json.RawMessage `json:"data,omitempty"`
	Errors     []Error         `json:"errors,omitempty"`
	Extensions map[string]any  `json:"extensions,omitempty"`
}

// Decode unmarshals Data into v.
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return ErrNoData
	}
	return json.Unmarshal(r.Data, v)
}

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Error is one entry of a response's errors list.
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Locations  []Location     `json:"locations,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e Error) Error() string {
	return e.Message
}

// Code returns extensions.code, the machine readable error class Hasura sets.
func (e Error) Code() string {
	code, _ := e.Extensions["code"].(string)
	return code
}

// Errors joins a list of GraphQL errors into one error value.
type Errors []Error

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}
