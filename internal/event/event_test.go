package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Discussion(t *testing.T) {
	body := []byte(`{"action":"created","discussion":{"node_id":"D_1","title":"Hello"},"installation":{"id":9}}`)

	ev, err := Decode("discussion", body)
	require.NoError(t, err)
	assert.Equal(t, KindDiscussion, ev.Kind)
	assert.Equal(t, ActionCreated, ev.Action)
	assert.Equal(t, "D_1", ev.Discussion.NodeID)
	assert.Equal(t, "Hello", ev.Discussion.Title)
	assert.Equal(t, int64(9), ev.InstallationID)
}

func TestDecode_MissingFields(t *testing.T) {
	cases := map[string]string{
		`{"action":"created","discussion":{"title":"Hello"}}`:      "discussion.node_id",
		`{"action":"created","discussion":{"node_id":"D_1"}}`:      "discussion.title",
		`{"action":"created"}`:                                      "discussion",
		`{"discussion":{"node_id":"D_1","title":"Hello"}}`:          "action",
		`{"action":"created","discussion":null,"installation":{}}`: "discussion",
	}
	for body, field := range cases {
		_, err := Decode("discussion", []byte(body))
		var malformed *MalformedEventError
		require.ErrorAs(t, err, &malformed, body)
		assert.Equal(t, field, malformed.Field, body)
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode("discussion_comment", []byte(`{`))
	var malformed *MalformedEventError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "body", malformed.Field)
}

func TestDecode_UnsupportedKindIsNotValidated(t *testing.T) {
	ev, err := Decode("issues", []byte(`not json`))
	require.NoError(t, err)
	assert.Equal(t, KindUnsupported, ev.Kind)
	assert.Equal(t, "issues", ev.Name)

	ev, err = Decode("ping", []byte(`{"zen":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, KindPing, ev.Kind)
}
