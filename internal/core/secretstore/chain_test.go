package secretstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marketingops/n8n-gateway/internal/core/secretstore"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
	"github.com/marketingops/n8n-gateway/internal/mocks"
)

func newStore(source models.SecretSource) *mocks.MockSecretStore {
	store := new(mocks.MockSecretStore)
	store.On("Source").Return(source).Maybe()
	return store
}

func TestNewChainStore_RequiresStore(t *testing.T) {
	chain, err := secretstore.NewChainStore()

	assert.Error(t, err)
	assert.Nil(t, chain)
}

func TestChainStore_Get_FirstWithKeyWins(t *testing.T) {
	secrets := newStore(models.SecretSourceSecrets)
	settings := newStore(models.SecretSourceSettings)
	ctx := context.Background()

	secrets.On("Get", ctx, "user-1", models.ProviderN8N).Return(nil, nil)
	settings.On("Get", ctx, "user-1", models.ProviderN8N).
		Return(&models.Credential{APIKey: "legacy", Source: models.SecretSourceSettings}, nil)

	chain, err := secretstore.NewChainStore(secrets, settings)
	require.NoError(t, err)

	cred, err := chain.Get(ctx, "user-1", models.ProviderN8N)

	require.NoError(t, err)
	assert.Equal(t, "legacy", cred.APIKey)
	assert.Equal(t, models.SecretSourceSettings, cred.Source)
}

func TestChainStore_Get_StopsAtFirstKey(t *testing.T) {
	secrets := newStore(models.SecretSourceSecrets)
	settings := newStore(models.SecretSourceSettings)
	ctx := context.Background()

	secrets.On("Get", ctx, "user-1", models.ProviderN8N).
		Return(&models.Credential{APIKey: "current"}, nil)

	chain, _ := secretstore.NewChainStore(secrets, settings)
	cred, err := chain.Get(ctx, "user-1", models.ProviderN8N)

	require.NoError(t, err)
	assert.Equal(t, "current", cred.APIKey)
	settings.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestChainStore_Get_PartialRecordWhenNoKey(t *testing.T) {
	secrets := newStore(models.SecretSourceSecrets)
	settings := newStore(models.SecretSourceSettings)
	ctx := context.Background()

	secrets.On("Get", ctx, "user-1", models.ProviderN8N).
		Return(&models.Credential{BaseURL: "https://n8n.example.com"}, nil)
	settings.On("Get", ctx, "user-1", models.ProviderN8N).Return(nil, nil)

	chain, _ := secretstore.NewChainStore(secrets, settings)
	cred, err := chain.Get(ctx, "user-1", models.ProviderN8N)

	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Empty(t, cred.APIKey)
	assert.Equal(t, "https://n8n.example.com", cred.BaseURL)
}

func TestChainStore_Get_SkipsFailingSource(t *testing.T) {
	secrets := newStore(models.SecretSourceSecrets)
	settings := newStore(models.SecretSourceSettings)
	ctx := context.Background()

	secrets.On("Get", ctx, "user-1", models.ProviderN8N).Return(nil, errors.New("timeout"))
	settings.On("Get", ctx, "user-1", models.ProviderN8N).
		Return(&models.Credential{APIKey: "legacy"}, nil)

	chain, _ := secretstore.NewChainStore(secrets, settings)
	cred, err := chain.Get(ctx, "user-1", models.ProviderN8N)

	require.NoError(t, err)
	assert.Equal(t, "legacy", cred.APIKey)
}

func TestChainStore_Get_AllSourcesFail(t *testing.T) {
	secrets := newStore(models.SecretSourceSecrets)
	ctx := context.Background()

	secrets.On("Get", ctx, "user-1", models.ProviderN8N).Return(nil, errors.New("timeout"))

	chain, _ := secretstore.NewChainStore(secrets)
	cred, err := chain.Get(ctx, "user-1", models.ProviderN8N)

	require.Error(t, err)
	assert.Nil(t, cred)
	assert.Contains(t, err.Error(), "timeout")
}

func TestChainStore_Save_SkipsReadOnly(t *testing.T) {
	settings := newStore(models.SecretSourceSettings)
	secrets := newStore(models.SecretSourceSecrets)
	ctx := context.Background()
	cred := &models.Credential{OwnerID: "user-1", APIKey: "key"}

	settings.On("Save", ctx, cred).Return(secretstore.ErrReadOnly)
	secrets.On("Save", ctx, cred).Return(nil)

	chain, _ := secretstore.NewChainStore(settings, secrets)
	err := chain.Save(ctx, cred)

	require.NoError(t, err)
	assert.Equal(t, models.SecretSourceSecrets, cred.Source)
}

func TestChainStore_Save_NoWritableStore(t *testing.T) {
	settings := newStore(models.SecretSourceSettings)
	ctx := context.Background()
	cred := &models.Credential{OwnerID: "user-1", APIKey: "key"}

	settings.On("Save", ctx, cred).Return(secretstore.ErrReadOnly)

	chain, _ := secretstore.NewChainStore(settings)

	assert.ErrorIs(t, chain.Save(ctx, cred), secretstore.ErrReadOnly)
}

func TestChainStore_Delete(t *testing.T) {
	secrets := newStore(models.SecretSourceSecrets)
	settings := newStore(models.SecretSourceSettings)
	ctx := context.Background()

	secrets.On("Delete", ctx, "user-1", models.ProviderN8N).Return(true, nil)
	settings.On("Delete", ctx, "user-1", models.ProviderN8N).Return(false, secretstore.ErrReadOnly)

	chain, _ := secretstore.NewChainStore(secrets, settings)
	deleted, err := chain.Delete(ctx, "user-1", models.ProviderN8N)

	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestChainStore_Ping(t *testing.T) {
	secrets := newStore(models.SecretSourceSecrets)
	ctx := context.Background()

	secrets.On("Ping", ctx).Return(errors.New("down"))

	chain, _ := secretstore.NewChainStore(secrets)
	err := chain.Ping(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "secrets")
}
