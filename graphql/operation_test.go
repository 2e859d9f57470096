package graphql_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-client/graphql"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		op   graphql.Operation
		want graphql.Kind
	}{
		{"shorthand query", graphql.Operation{Query: `{ users { id } }`}, graphql.KindQuery},
		{"named query", graphql.Operation{Query: `query Users { users { id } }`}, graphql.KindQuery},
		{"mutation", graphql.Operation{Query: `mutation Rename($id: Int!) { update_users_by_pk(pk_columns: {id: $id}, _set: {name: "x"}) { id } }`}, graphql.KindMutation},
		{"subscription", graphql.Operation{Query: `subscription Video($homeId: Int!) { hardware_datavideo(where: {home_id: {_eq: $homeId}}) { video_file } }`}, graphql.KindSubscription},
		{"selected by name", graphql.Operation{
			Query:         `query A { a } subscription B { b }`,
			OperationName: "B",
		}, graphql.KindSubscription},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := graphql.KindOf(tt.op)
			require.NoError(t, err)
			require.Equal(t, tt.want, kind)
			require.Equal(t, tt.want == graphql.KindSubscription, graphql.IsSubscription(tt.op))
		})
	}
}

func TestKindOf_Invalid(t *testing.T) {
	for name, op := range map[string]graphql.Operation{
		"empty":         {},
		"syntax":        {Query: `query {`},
		"unknown name":  {Query: `query A { a }`, OperationName: "B"},
		"fragment only": {Query: `fragment F on User { id }`},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := graphql.KindOf(op)
			require.ErrorIs(t, err, graphql.ErrInvalidOperation)
			require.False(t, graphql.IsSubscription(op))
		})
	}
}

func TestTransport_Route(t *testing.T) {
	tr, err := graphql.New("http://localhost/v1/graphql", "ws://localhost/v1/graphql", nil)
	require.NoError(t, err)

	ch, err := tr.Route(graphql.Operation{Query: `subscription { s }`})
	require.NoError(t, err)
	require.Equal(t, graphql.ChannelStream, ch)

	ch, err = tr.Route(graphql.Operation{Query: `mutation { m }`})
	require.NoError(t, err)
	require.Equal(t, graphql.ChannelHTTP, ch)

	ch, err = tr.Route(graphql.Operation{Query: `{ q }`})
	require.NoError(t, err)
	require.Equal(t, graphql.ChannelHTTP, ch)

	_, err = tr.Route(graphql.Operation{Query: `nope`})
	require.Error(t, err)
}

func TestResponse_Decode(t *testing.T) {
	r := graphql.Response{Data: []byte(`{"users":[{"id":1}]}`)}
	var out struct {
		Users []struct {
			ID int `json:"id"`
		} `json:"users"`
	}
	require.NoError(t, r.Decode(&out))
	require.Len(t, out.Users, 1)

	require.ErrorIs(t, (&graphql.Response{Data: []byte("null")}).Decode(&out), graphql.ErrNoData)
}
