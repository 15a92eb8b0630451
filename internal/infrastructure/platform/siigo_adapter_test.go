package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conexapi/backend/internal/domain/integration"
)

func testSiigoIdentity() integration.ClientIdentity {
	return integration.ClientIdentity{
		ClientID:     "siigo-app",
		ClientSecret: "siigo-secret",
		PartnerID:    "ConexAPI",
	}
}

func testSiigoCredential(t *testing.T) *integration.Credential {
	t.Helper()
	cred, err := integration.NewCredential(integration.PlatformSiigo, "tenant-1")
	require.NoError(t, err)
	cred.Username = "facturacion@example.com"
	cred.AccessKey = "access-key-789"
	return cred
}

// ---------------------------------------------------------------------------
// Refresher Tests
// ---------------------------------------------------------------------------

func TestSiigoRefresher_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/connect/token", r.URL.Path)
		assert.Equal(t, "ConexAPI", r.Header.Get("Partner-Id"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "offline_access", r.PostForm.Get("scope"))
		assert.Equal(t, "siigo-app", r.PostForm.Get("client_id"))
		assert.Equal(t, "facturacion@example.com", r.PostForm.Get("username"))
		assert.Equal(t, "access-key-789", r.PostForm.Get("password"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "siigo-AT",
			"token_type":   "Bearer",
			"expires_in":   86400,
		})
	}))
	defer server.Close()

	refresher := NewSiigoRefresher(server.URL, 5*time.Second)
	assert.Equal(t, integration.PlatformSiigo, refresher.Platform())

	material, err := refresher.Refresh(context.Background(), testSiigoCredential(t), testSiigoIdentity())
	require.NoError(t, err)
	assert.Equal(t, "siigo-AT", material.AccessToken)
	assert.Empty(t, material.RefreshToken)
	assert.Equal(t, 86400, material.ExpiresIn)
}

func TestSiigoRefresher_MissingAccountIdentity(t *testing.T) {
	cred, err := integration.NewCredential(integration.PlatformSiigo, "tenant-1")
	require.NoError(t, err)

	refresher := NewSiigoRefresher("http://localhost:0", time.Second)
	_, err = refresher.Refresh(context.Background(), cred, testSiigoIdentity())
	assert.ErrorIs(t, err, integration.ErrMissingAccountIdentity)
}

func TestSiigoRefresher_FailureTaxonomy(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_username"}`))
		}))
		defer server.Close()

		refresher := NewSiigoRefresher(server.URL, 5*time.Second)
		_, err := refresher.Refresh(context.Background(), testSiigoCredential(t), testSiigoIdentity())

		var refreshErr *integration.RefreshError
		require.ErrorAs(t, err, &refreshErr)
		assert.Equal(t, integration.RefreshReasonHTTPError, refreshErr.Reason)
		assert.Equal(t, "http_error:400", refreshErr.ReasonTag())
	})

	t.Run("malformed response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
		}))
		defer server.Close()

		refresher := NewSiigoRefresher(server.URL, 5*time.Second)
		_, err := refresher.Refresh(context.Background(), testSiigoCredential(t), testSiigoIdentity())

		var refreshErr *integration.RefreshError
		require.ErrorAs(t, err, &refreshErr)
		assert.Equal(t, integration.RefreshReasonMalformed, refreshErr.Reason)
	})

	t.Run("network", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		server.Close()

		refresher := NewSiigoRefresher(server.URL, time.Second)
		_, err := refresher.Refresh(context.Background(), testSiigoCredential(t), testSiigoIdentity())

		var refreshErr *integration.RefreshError
		require.ErrorAs(t, err, &refreshErr)
		assert.Equal(t, integration.RefreshReasonNetwork, refreshErr.Reason)
	})
}

// ---------------------------------------------------------------------------
// API Client Tests
// ---------------------------------------------------------------------------

func TestSiigoClient_ListProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "Bearer siigo-AT", r.Header.Get("Authorization"))
		assert.Equal(t, "ConexAPI", r.Header.Get("Partner-Id"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"pagination": {"total_results": 2},
			"results": [
				{"id": "p-1", "code": "SKU-001", "name": "Camiseta", "active": true, "available_quantity": 25},
				{"id": "p-2", "code": "SKU-002", "name": "Gorra", "active": false, "available_quantity": 0}
			]
		}`))
	}))
	defer server.Close()

	client := NewSiigoClient(server.URL, "ConexAPI", 5*time.Second, &staticTokenProvider{token: "siigo-AT"})
	products, err := client.ListProducts(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "p-1", products[0].ProductID)
	assert.Equal(t, "SKU-001", products[0].Code)
	assert.Equal(t, "25", products[0].AvailableQuantity.String())
	assert.True(t, products[0].Active)
	assert.False(t, products[1].Active)
}

func TestSiigoClient_UpdateInventory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/products/SKU-001/inventory", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, float64(12), payload["quantity"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quantity":12}`))
	}))
	defer server.Close()

	client := NewSiigoClient(server.URL, "ConexAPI", 5*time.Second, &staticTokenProvider{token: "siigo-AT"})
	err := client.UpdateInventory(context.Background(), "tenant-1", "SKU-001", 12)
	assert.NoError(t, err)
}

func TestSiigoClient_UpdateInventory_EmptyCode(t *testing.T) {
	client := NewSiigoClient("http://localhost:0", "ConexAPI", time.Second, &staticTokenProvider{token: "siigo-AT"})
	err := client.UpdateInventory(context.Background(), "tenant-1", "", 12)
	assert.ErrorIs(t, err, integration.ErrPlatformInvalidBody)
}

func TestSiigoClient_CreateInvoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/invoices", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.NotNil(t, payload["customer"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"inv-1","number":42}`))
	}))
	defer server.Close()

	client := NewSiigoClient(server.URL, "ConexAPI", 5*time.Second, &staticTokenProvider{token: "siigo-AT"})
	created, err := client.CreateInvoice(context.Background(), "tenant-1", map[string]any{
		"customer": map[string]any{"identification": "900123456"},
	})
	require.NoError(t, err)
	assert.Equal(t, "inv-1", created["id"])
}

func TestSiigoClient_ErrorMapping(t *testing.T) {
	t.Run("403 maps to unauthorized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		client := NewSiigoClient(server.URL, "ConexAPI", 5*time.Second, &staticTokenProvider{token: "siigo-AT"})
		_, err := client.ListProducts(context.Background(), "tenant-1")
		assert.ErrorIs(t, err, integration.ErrPlatformUnauthorized)
	})

	t.Run("422 preserves upstream status and body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"errors":[{"code":"invalid_tax"}]}`))
		}))
		defer server.Close()

		client := NewSiigoClient(server.URL, "ConexAPI", 5*time.Second, &staticTokenProvider{token: "siigo-AT"})
		_, err := client.CreateInvoice(context.Background(), "tenant-1", map[string]any{})

		var apiErr *integration.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, integration.PlatformSiigo, apiErr.Platform)
		assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
		assert.Contains(t, apiErr.Body, "invalid_tax")
	})

	t.Run("transport failure maps to unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		server.Close()

		client := NewSiigoClient(server.URL, "ConexAPI", time.Second, &staticTokenProvider{token: "siigo-AT"})
		_, err := client.ListProducts(context.Background(), "tenant-1")
		assert.ErrorIs(t, err, integration.ErrPlatformUnavailable)
	})
}
