package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"philcali.me/foodgram/internal/test/memory"
)

func newProvider(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/userInfo" || r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sub": "abc", "username": "alice", "email": "alice@example.com", "given_name": "Alice", "custom:is_staff": "true"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func request(authorization string) events.APIGatewayV2CustomAuthorizerV2Request {
	headers := map[string]string{}
	if authorization != "" {
		headers["authorization"] = authorization
	}
	return events.APIGatewayV2CustomAuthorizerV2Request{Headers: headers}
}

func TestHandleRequest(t *testing.T) {
	provider := newProvider(t)
	people := memory.NewUsers()
	authorizer := NewAuthorizer(provider.URL+"/", people)

	t.Run("Anonymous", func(t *testing.T) {
		resp, err := authorizer.HandleRequest(context.Background(), request(""))
		require.NoError(t, err)
		assert.True(t, resp.IsAuthorized)
		assert.NotContains(t, resp.Context, "claims")
	})

	t.Run("Rejected", func(t *testing.T) {
		resp, err := authorizer.HandleRequest(context.Background(), request("Bearer bad"))
		require.NoError(t, err)
		assert.False(t, resp.IsAuthorized)
	})

	t.Run("Accepted", func(t *testing.T) {
		resp, err := authorizer.HandleRequest(context.Background(), request("Bearer good"))
		require.NoError(t, err)
		require.True(t, resp.IsAuthorized)
		claims := resp.Context["claims"].(map[string]interface{})
		assert.Equal(t, "alice", claims["username"])
		assert.Equal(t, "true", claims["is_staff"])
		assert.Equal(t, "", claims["family_name"])

		saved, err := people.Get(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", saved.Email)
		assert.Equal(t, "Alice", saved.FirstName)
		assert.Equal(t, "", saved.LastName)
	})
}
