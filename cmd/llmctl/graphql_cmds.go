package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-session-client/graphql"
)

type operationFlags struct {
	variables string
	name      string
}

func (f *operationFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.variables, "variables", "", "variables as a JSON object")
	cmd.Flags().StringVar(&f.name, "operation", "", "operation name when the document has several")
}

func (f *operationFlags) operation(cmd *cobra.Command, file string) (graphql.Operation, error) {
	doc, err := readInput(cmd, file)
	if err != nil {
		return graphql.Operation{}, err
	}
	op := graphql.Operation{Query: string(doc), OperationName: f.name}
	if f.variables != "" {
		if err := json.Unmarshal([]byte(f.variables), &op.Variables); err != nil {
			return graphql.Operation{}, fmt.Errorf("invalid --variables: %w", err)
		}
	}
	return op, nil
}

func newQueryCmd(get func() *app) *cobra.Command {
	var flags operationFlags
	cmd := &cobra.Command{
		Use:   "query <file|->",
		Short: "Run a GraphQL query or mutation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := flags.operation(cmd, args[0])
			if err != nil {
				return err
			}
			resp, err := get().gql.Execute(cmd.Context(), op)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			if len(resp.Errors) > 0 {
				return graphql.Errors(resp.Errors)
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newSubscribeCmd(get func() *app) *cobra.Command {
	var flags operationFlags
	cmd := &cobra.Command{
		Use:   "subscribe <file|->",
		Short: "Stream a GraphQL subscription until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			op, err := flags.operation(cmd, args[0])
			if err != nil {
				return err
			}

			// a long lived stream keeps the session fresh in the background
			d, err := a.boot.Navigate(cmd.Context(), a.cfg.GetLandingRoute())
			if err != nil {
				return err
			}
			if !d.LoggedIn {
				return fmt.Errorf("not logged in, run llmctl login")
			}

			sub, err := a.gql.Subscribe(cmd.Context(), op)
			if err != nil {
				return err
			}
			defer sub.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			for ev := range sub.Events() {
				if ev.Err != nil {
					return ev.Err
				}
				if err := enc.Encode(ev.Response); err != nil {
					return err
				}
			}
			return cmd.Context().Err()
		},
	}
	flags.bind(cmd)
	return cmd
}
