package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretVersionName(t *testing.T) {
	name, err := secretVersionName("tutorhub", "jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, "projects/tutorhub/secrets/jwt-secret/versions/latest", name)

	name, err = secretVersionName("", "projects/p/secrets/jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, "projects/p/secrets/jwt-secret/versions/latest", name)

	name, err = secretVersionName("", "projects/p/secrets/jwt-secret/versions/3")
	require.NoError(t, err)
	assert.Equal(t, "projects/p/secrets/jwt-secret/versions/3", name)

	_, err = secretVersionName("", "jwt-secret")
	assert.Error(t, err)
}
