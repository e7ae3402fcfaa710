package budget

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/rnupgrade/internal/session"
)

func TestAge(t *testing.T) {
	long := strings.Repeat("x", 50)
	messages := []session.Message{
		session.UserMessage(long),
		session.FunctionCallMessage("readFile", `{"path":"`+long+`"}`),
		session.FunctionResult("readFile", "ok"),
		session.UserMessage(long),
	}

	n := Age(messages, 1, 10)

	require.Equal(t, 2, n)
	require.Equal(t, strings.Repeat("x", 10)+TruncatedSuffix, messages[0].Text())
	require.True(t, strings.HasSuffix(messages[1].FunctionCall.Arguments, TruncatedSuffix))
	require.Equal(t, "readFile", messages[1].FunctionCall.Name)
	require.Equal(t, "ok", messages[2].Text())
	require.Equal(t, long, messages[3].Text(), "recent messages are untouched")

	roles := []session.Role{session.RoleUser, session.RoleAssistant, session.RoleFunction, session.RoleUser}
	for i, m := range messages {
		require.Equal(t, roles[i], m.Role)
	}
}

func TestAge_KeepAll(t *testing.T) {
	messages := []session.Message{session.UserMessage(strings.Repeat("y", 100))}
	require.Zero(t, Age(messages, 5, 10))
	require.Zero(t, Age(messages, 0, 0))
}
