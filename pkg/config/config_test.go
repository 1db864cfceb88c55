package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("CHAT_HISTORY_LIMIT", "50")
	t.Setenv("ROOM_MEMBER_LIMIT", "not-a-number")

	cfg := Load()

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, 50, cfg.ChatHistoryLimit)
	assert.Equal(t, 20, cfg.RoomMemberLimit, "unparseable value falls back to the default")
	assert.Equal(t, "development", cfg.Env)
}

func TestInitDBRejectsIncompleteConfig(t *testing.T) {
	_, err := InitDB(&Config{MongoURI: "mongodb://localhost:27017"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_CONN_STR")

	_, err = InitDB(&Config{PostgresConnStr: "host=localhost user=app dbname=app"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")
}
