package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateLastMessageSentAt(t *testing.T) {
	members, _ := newTestRepos(t)
	ctx := context.Background()

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, members.UpdateLastMessageSentAt(ctx, testGuild, "alice", at))

	member, err := members.GetMember(ctx, testGuild, "alice")
	require.NoError(t, err)
	require.NotNil(t, member.LastMessageSentAt)
	assert.WithinDuration(t, at, *member.LastMessageSentAt, time.Second)
}

func TestGetInactiveMembers(t *testing.T) {
	members, _ := newTestRepos(t)
	ctx := context.Background()

	// active today
	require.NoError(t, members.UpdateLastMessageSentAt(ctx, testGuild, "active", time.Now().UTC()))
	// last seen long ago
	stale := time.Now().UTC().AddDate(0, 0, -45)
	require.NoError(t, members.UpdateLastMessageSentAt(ctx, testGuild, "stale", stale))
	// never seen at all
	_, err := members.EnsureMembers(ctx, testGuild, []string{"ghost"})
	require.NoError(t, err)

	inactive, err := members.GetInactiveMembers(ctx, testGuild, 30)
	require.NoError(t, err)

	ids := make([]string, len(inactive))
	for i, m := range inactive {
		ids[i] = m.DiscordID
	}
	assert.ElementsMatch(t, []string{"stale", "ghost"}, ids)
}

func TestCommandsEnabledDefaultsOn(t *testing.T) {
	members, _ := newTestRepos(t)
	ctx := context.Background()

	enabled, err := members.GetCommandsEnabled(ctx, testGuild)
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, members.SetCommandsEnabled(ctx, testGuild, false))

	enabled, err = members.GetCommandsEnabled(ctx, testGuild)
	require.NoError(t, err)
	assert.False(t, enabled)
}
